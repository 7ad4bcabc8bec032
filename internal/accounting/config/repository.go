package config

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort abstracts storage access for the resolver.
type RepositoryPort interface {
	Get(ctx context.Context, posID int64) (Config, error)
}

// Repository reads accounting configuration rows from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Get(ctx context.Context, posID int64) (Config, error) {
	var cfg Config
	var sale, cash, receivable *int64
	err := r.pool.QueryRow(ctx, `SELECT pos_id, enterprise_id, sale_revenue_account_id, cash_account_id, receivable_account_id,
discount_account_id, stock_asset_account_id, stock_variation_account_id, purchase_account_id, outlet_warehouse_id,
created_at, updated_at
FROM pos_accounting_configs WHERE pos_id=$1`, posID).
		Scan(&cfg.POSID, &cfg.EnterpriseID, &sale, &cash, &receivable,
			&cfg.DiscountAccountID, &cfg.StockAssetAccountID, &cfg.StockVariationAccountID, &cfg.PurchaseAccountID, &cfg.OutletWarehouseID,
			&cfg.CreatedAt, &cfg.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Config{}, ErrConfigMissing
		}
		return Config{}, err
	}
	if sale != nil {
		cfg.SaleRevenueAccountID = *sale
	}
	if cash != nil {
		cfg.CashAccountID = *cash
	}
	if receivable != nil {
		cfg.ReceivableAccountID = *receivable
	}
	return cfg, nil
}

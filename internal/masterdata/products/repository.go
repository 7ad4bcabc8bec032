package products

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates a missing product.
var ErrNotFound = errors.New("products: not found")

// Reader is the read-side contract the checkout resolves cart lines against.
type Reader interface {
	Get(ctx context.Context, id int64) (Product, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]Product, error)
}

// Repository persists products in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const productColumns = `id, code, name, price, cost, revenue_account_id, charge_account_id, is_active, created_at, updated_at`

func (r *Repository) Get(ctx context.Context, id int64) (Product, error) {
	var p Product
	err := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.Code, &p.Name, &p.Price, &p.Cost, &p.RevenueAccountID, &p.ChargeAccountID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

// GetByIDs loads a batch of products keyed by id. Missing ids are simply
// absent from the result map.
func (r *Repository) GetByIDs(ctx context.Context, ids []int64) (map[int64]Product, error) {
	result := make(map[int64]Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.Price, &p.Cost, &p.RevenueAccountID, &p.ChargeAccountID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		result[p.ID] = p
	}
	return result, rows.Err()
}

// List returns active products ordered by code.
func (r *Repository) List(ctx context.Context) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE is_active ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.Price, &p.Cost, &p.RevenueAccountID, &p.ChargeAccountID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

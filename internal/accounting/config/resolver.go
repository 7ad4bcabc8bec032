package config

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/comptoir-erp/comptoir/internal/masterdata/products"
	"github.com/comptoir-erp/comptoir/internal/masterdata/services"
)

// Resolver loads and validates per-POS accounting configuration and performs
// deterministic account selection for checkout postings.
type Resolver struct {
	repo  RepositoryPort
	cache *Cache
}

// NewResolver constructs Resolver. cache may be nil.
func NewResolver(repo RepositoryPort, cache *Cache) *Resolver {
	return &Resolver{repo: repo, cache: cache}
}

// Load returns the configuration for the POS. It fails with ErrConfigMissing
// when the row is absent or any of the always-required accounts is unset.
func (r *Resolver) Load(ctx context.Context, posID int64) (Config, error) {
	if cfg, ok := r.cache.Get(ctx, posID); ok {
		return cfg, nil
	}
	cfg, err := r.repo.Get(ctx, posID)
	if err != nil {
		return Config{}, err
	}
	if cfg.SaleRevenueAccountID == 0 || cfg.CashAccountID == 0 || cfg.ReceivableAccountID == 0 {
		return Config{}, ErrConfigMissing
	}
	r.cache.Set(ctx, cfg)
	return cfg, nil
}

// Invalidate drops the cached configuration of the POS after an edit.
func (r *Resolver) Invalidate(ctx context.Context, posID int64) {
	r.cache.Invalidate(ctx, posID)
}

// ValidateForSale checks the accounts required by this particular cart:
// a discount needs the discount-expense account, product lines need the
// stock-asset and stock-variation pair for perpetual-inventory postings.
func (r *Resolver) ValidateForSale(cfg Config, hasProductLines bool, discount decimal.Decimal) error {
	if discount.IsPositive() && cfg.DiscountAccountID == nil {
		return IncompleteError{Reason: "discount account unset while cart carries a discount"}
	}
	if hasProductLines {
		if cfg.StockAssetAccountID == nil {
			return IncompleteError{Reason: "stock asset account unset while cart carries product lines"}
		}
		if cfg.StockVariationAccountID == nil {
			return IncompleteError{Reason: "stock variation account unset while cart carries product lines"}
		}
	}
	return nil
}

// RevenueAccountForProduct resolves the credit account for a product line:
// product override first, then the POS sale-revenue account.
func (r *Resolver) RevenueAccountForProduct(cfg Config, p products.Product) (int64, error) {
	if p.RevenueAccountID != nil && *p.RevenueAccountID != 0 {
		return *p.RevenueAccountID, nil
	}
	if cfg.SaleRevenueAccountID != 0 {
		return cfg.SaleRevenueAccountID, nil
	}
	return 0, IncompleteError{Reason: "no revenue account resolvable for product line"}
}

// RevenueAccountForService resolves the credit account for a service line:
// catalog override first, then the POS sale-revenue account.
func (r *Resolver) RevenueAccountForService(cfg Config, s services.Service) (int64, error) {
	if s.RevenueAccountID != nil && *s.RevenueAccountID != 0 {
		return *s.RevenueAccountID, nil
	}
	if cfg.SaleRevenueAccountID != 0 {
		return cfg.SaleRevenueAccountID, nil
	}
	return 0, IncompleteError{Reason: "no revenue account resolvable for service line"}
}

// COGSAccountFor resolves the debit account for the stock journal: product
// charge override, then the purchase/COGS account, then the stock-variation
// account.
func (r *Resolver) COGSAccountFor(cfg Config, p products.Product) (int64, error) {
	if p.ChargeAccountID != nil && *p.ChargeAccountID != 0 {
		return *p.ChargeAccountID, nil
	}
	if cfg.PurchaseAccountID != nil && *cfg.PurchaseAccountID != 0 {
		return *cfg.PurchaseAccountID, nil
	}
	if cfg.StockVariationAccountID != nil && *cfg.StockVariationAccountID != 0 {
		return *cfg.StockVariationAccountID, nil
	}
	return 0, IncompleteError{Reason: "no cost of goods account resolvable for product"}
}

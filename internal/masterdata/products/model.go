package products

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a sellable stocked item.
type Product struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
	// Price is the default sale price; the checkout captures the price
	// actually charged on each order line.
	Price decimal.Decimal `json:"price"`
	// Cost is the acquisition cost used for COGS postings.
	Cost decimal.Decimal `json:"cost"`
	// RevenueAccountID overrides the POS sale-revenue account when set.
	RevenueAccountID *int64 `json:"revenue_account_id,omitempty"`
	// ChargeAccountID overrides the POS purchase/COGS account when set.
	ChargeAccountID *int64    `json:"charge_account_id,omitempty"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

package services

import (
	"time"

	"github.com/shopspring/decimal"
)

// Service represents a sellable service. Services never affect stock.
type Service struct {
	ID    int64           `json:"id"`
	Code  string          `json:"code"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	// RevenueAccountID overrides the POS sale-revenue account when set.
	RevenueAccountID *int64    `json:"revenue_account_id,omitempty"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

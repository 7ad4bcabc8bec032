package config

import (
	"errors"
	"fmt"
	"time"
)

// Config is the per-POS accounting configuration row. The three always
// required accounts (sale revenue, cash, customer receivable) are plain ids;
// the rest are optional and validated per operation.
type Config struct {
	POSID                int64 `json:"pos_id"`
	EnterpriseID         int64 `json:"enterprise_id"`
	SaleRevenueAccountID int64 `json:"sale_revenue_account_id"`
	CashAccountID        int64 `json:"cash_account_id"`
	ReceivableAccountID  int64 `json:"receivable_account_id"`

	DiscountAccountID       *int64 `json:"discount_account_id,omitempty"`
	StockAssetAccountID     *int64 `json:"stock_asset_account_id,omitempty"`
	StockVariationAccountID *int64 `json:"stock_variation_account_id,omitempty"`
	PurchaseAccountID       *int64 `json:"purchase_account_id,omitempty"`

	// OutletWarehouseID designates the warehouse POS sales deduct from.
	// A nil value degrades stock updates to a logged no-op.
	OutletWarehouseID *int64 `json:"outlet_warehouse_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ErrConfigMissing indicates the POS has no usable accounting configuration.
var ErrConfigMissing = errors.New("accounting config missing for point of sale")

// IncompleteError reports a required account left unset for the requested
// operation.
type IncompleteError struct {
	Reason string
}

func (e IncompleteError) Error() string {
	return fmt.Sprintf("accounting config incomplete: %s", e.Reason)
}

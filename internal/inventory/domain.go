package inventory

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Direction marks whether a movement takes stock in or out of a warehouse.
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// Stock is the current quantity of a product in a warehouse. The persisted
// quantity never goes negative.
type Stock struct {
	WarehouseID int64           `json:"warehouse_id"`
	ProductID   int64           `json:"product_id"`
	Qty         decimal.Decimal `json:"qty"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Movement is an append-only audit row mirroring every stock mutation.
type Movement struct {
	ID              int64           `json:"id"`
	ProductID       int64           `json:"product_id"`
	WarehouseID     int64           `json:"warehouse_id"`
	Direction       Direction       `json:"direction"`
	Qty             decimal.Decimal `json:"qty"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	TotalCost       decimal.Decimal `json:"total_cost"`
	DestWarehouseID *int64          `json:"dest_warehouse_id,omitempty"`
	Reference       string          `json:"reference"`
	Description     string          `json:"description"`
	UserID          int64           `json:"user_id"`
	MovedAt         time.Time       `json:"moved_at"`
}

// DeductInput describes a sale-side stock deduction.
type DeductInput struct {
	WarehouseID int64
	ProductID   int64
	Qty         decimal.Decimal
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
	OrderNumber string
	UserID      int64
}

// RestoreInput describes a cancellation-side stock restitution.
type RestoreInput struct {
	WarehouseID int64
	ProductID   int64
	Qty         decimal.Decimal
	OrderNumber string
	UserID      int64
}

// Requirement is one product demand checked against availability.
type Requirement struct {
	ProductID int64
	Qty       decimal.Decimal
}

// Shortage reports one product whose availability does not cover the request.
type Shortage struct {
	ProductID int64           `json:"product_id"`
	Available decimal.Decimal `json:"available"`
	Requested decimal.Decimal `json:"requested"`
}

// InsufficientStockError carries the full shortage list so the caller can
// report every failing line at once.
type InsufficientStockError struct {
	Shortages []Shortage
}

func (e InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("product %d: available %s, requested %s", s.ProductID, s.Available, s.Requested))
	}
	return "inventory: insufficient stock: " + strings.Join(parts, "; ")
}

// ErrStockNotFound indicates a missing (warehouse, product) row.
var ErrStockNotFound = errors.New("inventory: stock row not found")

// ErrInvalidQuantity indicates a non-positive movement quantity.
var ErrInvalidQuantity = errors.New("inventory: quantity must be positive")

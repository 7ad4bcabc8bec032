package inventory

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

const (
	descriptionSale         = "sale"
	descriptionCancellation = "cancellation"
)

// Ledger mutates per-warehouse quantities and appends the mirrored movement
// rows. All operations run inside a transaction handed in by the caller.
type Ledger struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewLedger constructs Ledger.
func NewLedger(logger *slog.Logger) *Ledger {
	return &Ledger{logger: logger, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (l *Ledger) WithNow(now func() time.Time) {
	if now != nil {
		l.now = now
	}
}

// Deduct removes sold quantity from the warehouse and appends the outbound
// movement. An absent stock row is treated as zero. The pre-transaction
// availability check runs on an unlocked read, so the locked quantity is
// checked again here: a concurrent sale that drained the row in the meantime
// fails instead of driving the stock negative.
func (l *Ledger) Deduct(ctx context.Context, tx TxRepository, in DeductInput) (Movement, error) {
	if !in.Qty.IsPositive() {
		return Movement{}, ErrInvalidQuantity
	}
	stock, err := tx.GetStockForUpdate(ctx, in.WarehouseID, in.ProductID)
	if err != nil && !errors.Is(err, ErrStockNotFound) {
		return Movement{}, err
	}
	next := stock.Qty.Sub(in.Qty)
	if next.IsNegative() {
		l.logger.Warn("stock drained under a concurrent sale",
			slog.Int64("warehouse_id", in.WarehouseID),
			slog.Int64("product_id", in.ProductID),
			slog.String("available", stock.Qty.String()),
			slog.String("requested", in.Qty.String()),
		)
		return Movement{}, InsufficientStockError{Shortages: []Shortage{{
			ProductID: in.ProductID,
			Available: stock.Qty,
			Requested: in.Qty,
		}}}
	}
	stock.Qty = next
	if err := tx.UpsertStock(ctx, stock); err != nil {
		return Movement{}, err
	}
	movement := Movement{
		ProductID:   in.ProductID,
		WarehouseID: in.WarehouseID,
		Direction:   DirectionOut,
		Qty:         in.Qty,
		UnitCost:    in.UnitPrice,
		TotalCost:   in.LineTotal,
		Reference:   in.OrderNumber,
		Description: descriptionSale,
		UserID:      in.UserID,
		MovedAt:     l.now().UTC(),
	}
	id, err := tx.InsertMovement(ctx, movement)
	if err != nil {
		return Movement{}, err
	}
	movement.ID = id
	return movement, nil
}

// Restore re-credits the warehouse after a cancellation and appends the
// inbound movement. Restitutions carry no cost.
func (l *Ledger) Restore(ctx context.Context, tx TxRepository, in RestoreInput) (Movement, error) {
	if !in.Qty.IsPositive() {
		return Movement{}, ErrInvalidQuantity
	}
	stock, err := tx.GetStockForUpdate(ctx, in.WarehouseID, in.ProductID)
	if err != nil && !errors.Is(err, ErrStockNotFound) {
		return Movement{}, err
	}
	stock.Qty = stock.Qty.Add(in.Qty)
	if err := tx.UpsertStock(ctx, stock); err != nil {
		return Movement{}, err
	}
	movement := Movement{
		ProductID:   in.ProductID,
		WarehouseID: in.WarehouseID,
		Direction:   DirectionIn,
		Qty:         in.Qty,
		UnitCost:    decimal.Zero,
		TotalCost:   decimal.Zero,
		Reference:   in.OrderNumber,
		Description: descriptionCancellation,
		UserID:      in.UserID,
		MovedAt:     l.now().UTC(),
	}
	id, err := tx.InsertMovement(ctx, movement)
	if err != nil {
		return Movement{}, err
	}
	movement.ID = id
	return movement, nil
}

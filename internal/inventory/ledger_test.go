package inventory

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryStockTx struct {
	stocks    map[string]Stock
	movements []Movement
	nextID    int64
}

func newMemoryStockTx() *memoryStockTx {
	return &memoryStockTx{stocks: make(map[string]Stock)}
}

func stockKey(warehouseID, productID int64) string {
	return fmt.Sprintf("%d:%d", warehouseID, productID)
}

func (m *memoryStockTx) GetStockForUpdate(ctx context.Context, warehouseID, productID int64) (Stock, error) {
	if s, ok := m.stocks[stockKey(warehouseID, productID)]; ok {
		return s, nil
	}
	return Stock{WarehouseID: warehouseID, ProductID: productID}, ErrStockNotFound
}

func (m *memoryStockTx) UpsertStock(ctx context.Context, stock Stock) error {
	m.stocks[stockKey(stock.WarehouseID, stock.ProductID)] = stock
	return nil
}

func (m *memoryStockTx) InsertMovement(ctx context.Context, movement Movement) (int64, error) {
	m.nextID++
	movement.ID = m.nextID
	m.movements = append(m.movements, movement)
	return m.nextID, nil
}

func (m *memoryStockTx) seed(warehouseID, productID int64, qty string) {
	m.stocks[stockKey(warehouseID, productID)] = Stock{
		WarehouseID: warehouseID,
		ProductID:   productID,
		Qty:         decimal.RequireFromString(qty),
	}
}

func qty(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func testLedger() *Ledger {
	return NewLedger(discardLogger())
}

func TestDeductWritesMovementAndDecrements(t *testing.T) {
	tx := newMemoryStockTx()
	tx.seed(2, 17, "10")
	ledger := testLedger()

	movement, err := ledger.Deduct(context.Background(), tx, DeductInput{
		WarehouseID: 2,
		ProductID:   17,
		Qty:         qty("2"),
		UnitPrice:   qty("5000"),
		LineTotal:   qty("10000"),
		OrderNumber: "FAC-20250301090000-001",
		UserID:      7,
	})
	require.NoError(t, err)
	require.Equal(t, DirectionOut, movement.Direction)
	require.True(t, movement.UnitCost.Equal(qty("5000")))
	require.True(t, movement.TotalCost.Equal(qty("10000")))
	require.Equal(t, "FAC-20250301090000-001", movement.Reference)
	require.Equal(t, "sale", movement.Description)

	stock := tx.stocks[stockKey(2, 17)]
	require.True(t, stock.Qty.Equal(qty("8")))
}

func TestDeductMissingRowCountsAsZeroAvailability(t *testing.T) {
	tx := newMemoryStockTx()
	ledger := testLedger()

	_, err := ledger.Deduct(context.Background(), tx, DeductInput{
		WarehouseID: 2,
		ProductID:   9,
		Qty:         qty("3"),
		OrderNumber: "FAC-20250301090000-002",
	})
	var shortage InsufficientStockError
	require.ErrorAs(t, err, &shortage)
	require.Len(t, tx.movements, 0)
}

func TestDeductFailsWhenLockedRowDrained(t *testing.T) {
	tx := newMemoryStockTx()
	tx.seed(2, 17, "1")
	ledger := testLedger()

	_, err := ledger.Deduct(context.Background(), tx, DeductInput{
		WarehouseID: 2,
		ProductID:   17,
		Qty:         qty("5"),
		OrderNumber: "FAC-20250301090000-003",
	})
	var shortage InsufficientStockError
	require.ErrorAs(t, err, &shortage)
	require.Len(t, shortage.Shortages, 1)
	require.True(t, shortage.Shortages[0].Available.Equal(qty("1")))
	require.True(t, shortage.Shortages[0].Requested.Equal(qty("5")))
	require.True(t, tx.stocks[stockKey(2, 17)].Qty.Equal(qty("1")), "locked quantity untouched")
	require.Len(t, tx.movements, 0)
}

func TestRestoreMirrorsDeduct(t *testing.T) {
	tx := newMemoryStockTx()
	tx.seed(2, 17, "8")
	ledger := testLedger()

	movement, err := ledger.Restore(context.Background(), tx, RestoreInput{
		WarehouseID: 2,
		ProductID:   17,
		Qty:         qty("2"),
		OrderNumber: "FAC-20250301090000-001",
		UserID:      7,
	})
	require.NoError(t, err)
	require.Equal(t, DirectionIn, movement.Direction)
	require.True(t, movement.UnitCost.IsZero())
	require.True(t, movement.TotalCost.IsZero())
	require.Equal(t, "cancellation", movement.Description)
	require.True(t, tx.stocks[stockKey(2, 17)].Qty.Equal(qty("10")))
}

func TestDeductRejectsNonPositiveQty(t *testing.T) {
	tx := newMemoryStockTx()
	ledger := testLedger()

	_, err := ledger.Deduct(context.Background(), tx, DeductInput{WarehouseID: 2, ProductID: 1, Qty: qty("0")})
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

package inventory

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memoryAvailability struct {
	quantities map[int64]decimal.Decimal
}

func (m *memoryAvailability) GetQuantities(ctx context.Context, warehouseID int64, productIDs []int64) (map[int64]decimal.Decimal, error) {
	result := make(map[int64]decimal.Decimal)
	for _, id := range productIDs {
		if q, ok := m.quantities[id]; ok {
			result[id] = q
		}
	}
	return result, nil
}

func TestCheckAllCovered(t *testing.T) {
	checker := NewChecker(&memoryAvailability{quantities: map[int64]decimal.Decimal{
		17: qty("10"),
		9:  qty("1"),
	}})
	err := checker.Check(context.Background(), 2, []Requirement{
		{ProductID: 17, Qty: qty("2")},
		{ProductID: 9, Qty: qty("1")},
	})
	require.NoError(t, err)
}

func TestCheckReportsEveryShortage(t *testing.T) {
	checker := NewChecker(&memoryAvailability{quantities: map[int64]decimal.Decimal{
		17: qty("1"),
	}})
	err := checker.Check(context.Background(), 2, []Requirement{
		{ProductID: 17, Qty: qty("2")},
		{ProductID: 9, Qty: qty("1")},
	})
	var insufficient InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Len(t, insufficient.Shortages, 2)
	require.Equal(t, int64(17), insufficient.Shortages[0].ProductID)
	require.True(t, insufficient.Shortages[0].Available.Equal(qty("1")))
	require.True(t, insufficient.Shortages[0].Requested.Equal(qty("2")))
	require.True(t, insufficient.Shortages[1].Available.IsZero(), "absent row counts as zero")
}

func TestCheckAccumulatesRepeatedProduct(t *testing.T) {
	checker := NewChecker(&memoryAvailability{quantities: map[int64]decimal.Decimal{
		17: qty("3"),
	}})
	err := checker.Check(context.Background(), 2, []Requirement{
		{ProductID: 17, Qty: qty("2")},
		{ProductID: 17, Qty: qty("2")},
	})
	var insufficient InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Len(t, insufficient.Shortages, 1)
	require.True(t, insufficient.Shortages[0].Requested.Equal(qty("4")))
}

func TestCheckEmptyRequirements(t *testing.T) {
	checker := NewChecker(&memoryAvailability{})
	require.NoError(t, checker.Check(context.Background(), 2, nil))
}

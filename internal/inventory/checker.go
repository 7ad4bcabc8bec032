package inventory

import (
	"context"

	"github.com/shopspring/decimal"
)

// AvailabilityReader abstracts the read path the checker uses.
type AvailabilityReader interface {
	GetQuantities(ctx context.Context, warehouseID int64, productIDs []int64) (map[int64]decimal.Decimal, error)
}

// Checker validates product availability before any transaction opens.
type Checker struct {
	repo AvailabilityReader
}

// NewChecker constructs Checker.
func NewChecker(repo AvailabilityReader) *Checker {
	return &Checker{repo: repo}
}

// Check verifies every requirement against the outlet warehouse. An absent
// stock row counts as zero availability. It returns InsufficientStockError
// listing every shortage, or nil when all lines are covered.
func (c *Checker) Check(ctx context.Context, warehouseID int64, requirements []Requirement) error {
	if len(requirements) == 0 {
		return nil
	}
	// Requirements may repeat a product; demand accumulates.
	demand := make(map[int64]decimal.Decimal, len(requirements))
	order := make([]int64, 0, len(requirements))
	for _, req := range requirements {
		if _, seen := demand[req.ProductID]; !seen {
			order = append(order, req.ProductID)
		}
		demand[req.ProductID] = demand[req.ProductID].Add(req.Qty)
	}
	available, err := c.repo.GetQuantities(ctx, warehouseID, order)
	if err != nil {
		return err
	}
	var shortages []Shortage
	for _, productID := range order {
		have := available[productID]
		want := demand[productID]
		if have.LessThan(want) {
			shortages = append(shortages, Shortage{ProductID: productID, Available: have, Requested: want})
		}
	}
	if len(shortages) > 0 {
		return InsufficientStockError{Shortages: shortages}
	}
	return nil
}

package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// RunStockIntegrityCheck scans warehouse stock for negative quantities. The
// ledger clamps deductions at zero, so negatives can only come from writes
// outside the application.
func RunStockIntegrityCheck(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	rows, err := pool.Query(ctx, `SELECT warehouse_id, product_id, qty FROM warehouse_stocks WHERE qty < 0`)
	if err != nil {
		return fmt.Errorf("jobs: stock integrity query: %w", err)
	}
	defer rows.Close()

	violations := 0
	for rows.Next() {
		var (
			warehouseID, productID int64
			qty                    decimal.Decimal
		)
		if err := rows.Scan(&warehouseID, &productID, &qty); err != nil {
			return err
		}
		violations++
		logger.Error("negative stock",
			slog.Int64("warehouse_id", warehouseID),
			slog.Int64("product_id", productID),
			slog.String("qty", qty.String()),
		)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if violations > 0 {
		return fmt.Errorf("jobs: %d negative stock rows found", violations)
	}
	logger.Info("stock integrity check passed")
	return nil
}

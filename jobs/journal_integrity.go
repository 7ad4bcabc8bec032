package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// RunJournalIntegrityCheck scans every journal for a debit/credit imbalance.
// The writer enforces balance at posting time, so a hit here means manual
// data surgery or corruption; the job logs each offender and fails so the
// queue surfaces it.
func RunJournalIntegrityCheck(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	rows, err := pool.Query(ctx, `SELECT j.id, j.reference, COALESCE(SUM(e.debit), 0), COALESCE(SUM(e.credit), 0)
FROM journals j
LEFT JOIN journal_entries e ON e.journal_id = j.id
GROUP BY j.id, j.reference
HAVING COALESCE(SUM(e.debit), 0) <> COALESCE(SUM(e.credit), 0)`)
	if err != nil {
		return fmt.Errorf("jobs: journal integrity query: %w", err)
	}
	defer rows.Close()

	violations := 0
	for rows.Next() {
		var (
			id            int64
			reference     string
			debit, credit decimal.Decimal
		)
		if err := rows.Scan(&id, &reference, &debit, &credit); err != nil {
			return err
		}
		violations++
		logger.Error("unbalanced journal",
			slog.Int64("journal_id", id),
			slog.String("reference", reference),
			slog.String("debit", debit.String()),
			slog.String("credit", credit.String()),
		)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if violations > 0 {
		return fmt.Errorf("jobs: %d unbalanced journals found", violations)
	}
	logger.Info("journal integrity check passed")
	return nil
}

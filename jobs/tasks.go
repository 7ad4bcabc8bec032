package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comptoir-erp/comptoir/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeReceiptEmail is the task type for mailing a sale receipt.
	TaskTypeReceiptEmail = "receipt:email"
	// TaskTypeJournalIntegrity is the nightly ledger balance scan.
	TaskTypeJournalIntegrity = "journal:integrity"
	// TaskTypeStockIntegrity is the nightly negative-stock scan.
	TaskTypeStockIntegrity = "stock:integrity"
	// TaskTypeIdempotencyCleanup prunes old idempotency keys.
	TaskTypeIdempotencyCleanup = "idempotency:cleanup"
)

// ReceiptEmailPayload describes the receipt to mail after a sale.
type ReceiptEmailPayload struct {
	To          string `json:"to"`
	OrderNumber string `json:"order_number"`
	Total       string `json:"total"`
}

// NewReceiptEmailTask constructs an Asynq task.
func NewReceiptEmailTask(payload ReceiptEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeReceiptEmail, data), nil
}

// NewJournalIntegrityTask constructs the ledger scan task. The scan carries
// no payload.
func NewJournalIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskTypeJournalIntegrity, nil)
}

// NewStockIntegrityTask constructs the stock scan task.
func NewStockIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskTypeStockIntegrity, nil)
}

// NewIdempotencyCleanupTask constructs the key pruning task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskTypeIdempotencyCleanup, nil)
}

// HandleReceiptEmailTask processes TaskTypeReceiptEmail tasks.
func HandleReceiptEmailTask(ctx context.Context, t *asynq.Task) error {
	var payload ReceiptEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	// Placeholder: integrate with SMTP/Mailpit once the mail relay lands.
	slog.Default().Info("receipt email queued",
		slog.String("to", payload.To),
		slog.String("order", payload.OrderNumber))
	return nil
}

// Tasks bundles the database-backed job handlers.
type Tasks struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
}

// HandleJournalIntegrity processes TaskTypeJournalIntegrity tasks.
func (t *Tasks) HandleJournalIntegrity(ctx context.Context, _ *asynq.Task) error {
	return RunJournalIntegrityCheck(ctx, t.Pool, t.Logger)
}

// HandleStockIntegrity processes TaskTypeStockIntegrity tasks.
func (t *Tasks) HandleStockIntegrity(ctx context.Context, _ *asynq.Task) error {
	return RunStockIntegrityCheck(ctx, t.Pool, t.Logger)
}

// HandleIdempotencyCleanup processes TaskTypeIdempotencyCleanup tasks. Keys
// older than two days are far beyond any terminal retry window.
func (t *Tasks) HandleIdempotencyCleanup(ctx context.Context, _ *asynq.Task) error {
	if err := shared.NewIdempotencyStore(t.Pool).Cleanup(ctx, 48*time.Hour); err != nil {
		return err
	}
	t.Logger.Info("idempotency keys pruned")
	return nil
}

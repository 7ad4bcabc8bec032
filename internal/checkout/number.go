package checkout

import (
	"fmt"
	"time"
)

const orderNumberPrefix = "FAC"

// counterDay is the key of the per-POS daily order counter.
func counterDay(t time.Time) string {
	return t.Format("20060102")
}

// formatOrderNumber builds the receipt number shown to the customer. The
// three-digit suffix comes from the daily counter, so numbers stay unique as
// long as a single POS emits fewer than a thousand orders per second; the
// unique index on the column is the backstop beyond that.
func formatOrderNumber(t time.Time, seq int64) string {
	return fmt.Sprintf("%s-%s-%03d", orderNumberPrefix, t.Format("20060102150405"), seq%1000)
}

package journals

import (
	"context"
	"time"
)

// Writer appends journals. It is the only write path into the ledger; no
// update or delete API exists.
type Writer struct {
	now func() time.Time
}

// NewWriter constructs Writer.
func NewWriter() *Writer {
	return &Writer{now: time.Now}
}

// WithNow overrides the clock, for tests.
func (w *Writer) WithNow(now func() time.Time) {
	if now != nil {
		w.now = now
	}
}

// Post validates the balance of the entries and inserts the journal header
// followed by its entries, in the caller's supplied sequence, inside the
// caller's transaction. It returns the persisted journal with entries attached.
func (w *Writer) Post(ctx context.Context, tx TxRepository, in PostingInput) (Journal, error) {
	if in.PostedAt.IsZero() {
		in.PostedAt = w.now()
	}
	if err := in.Validate(); err != nil {
		return Journal{}, err
	}
	journal, err := tx.InsertJournal(ctx, in)
	if err != nil {
		return Journal{}, err
	}
	if err := tx.InsertEntries(ctx, journal.ID, in.Entries); err != nil {
		return Journal{}, err
	}
	journal.Entries = toEntries(journal.ID, in.Entries)
	return journal, nil
}

func toEntries(journalID int64, inputs []EntryInput) []Entry {
	out := make([]Entry, 0, len(inputs))
	for idx, in := range inputs {
		out = append(out, Entry{
			JournalID: journalID,
			AccountID: in.AccountID,
			Debit:     in.Debit,
			Credit:    in.Credit,
			Position:  idx + 1,
			Label:     in.Label,
		})
	}
	return out
}

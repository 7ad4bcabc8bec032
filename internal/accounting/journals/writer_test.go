package journals

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryTx struct {
	journals []Journal
	entries  map[int64][]EntryInput
	nextID   int64
}

func newMemoryTx() *memoryTx {
	return &memoryTx{entries: make(map[int64][]EntryInput)}
}

func (m *memoryTx) InsertJournal(ctx context.Context, in PostingInput) (Journal, error) {
	m.nextID++
	journal := Journal{
		ID:           m.nextID,
		PostedAt:     in.PostedAt,
		Label:        in.Label,
		Amount:       in.Amount,
		Tag:          in.Tag,
		Reference:    in.Reference,
		Description:  in.Description,
		EnterpriseID: in.EnterpriseID,
		UserID:       in.UserID,
	}
	m.journals = append(m.journals, journal)
	return journal, nil
}

func (m *memoryTx) InsertEntries(ctx context.Context, journalID int64, entries []EntryInput) error {
	m.entries[journalID] = entries
	return nil
}

func amount(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestPostBalancedJournal(t *testing.T) {
	tx := newMemoryTx()
	writer := NewWriter()
	writer.WithNow(func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) })

	journal, err := writer.Post(context.Background(), tx, PostingInput{
		Tag:       TagSale,
		Reference: "FAC-20250301090000-001",
		Label:     "Vente",
		Amount:    amount("10000"),
		Entries: []EntryInput{
			{AccountID: 70, Credit: amount("10000")},
			{AccountID: 41, Debit: amount("10000")},
		},
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), journal.ID)
	require.Len(t, journal.Entries, 2)
	require.Equal(t, 1, journal.Entries[0].Position)
	require.Equal(t, 2, journal.Entries[1].Position)
	require.False(t, journal.PostedAt.IsZero())
}

func TestPostUnbalancedJournalRejected(t *testing.T) {
	tx := newMemoryTx()
	writer := NewWriter()

	_, err := writer.Post(context.Background(), tx, PostingInput{
		Tag:       TagSale,
		Reference: "FAC-20250301090000-002",
		Entries: []EntryInput{
			{AccountID: 70, Credit: amount("10000")},
			{AccountID: 41, Debit: amount("9999.99")},
		},
	})
	require.ErrorIs(t, err, ErrUnbalanced)
	require.Empty(t, tx.journals)
}

func TestPostEmptyJournalAllowed(t *testing.T) {
	// Zero-cost carts still post an empty stock journal to keep audit linkage.
	tx := newMemoryTx()
	writer := NewWriter()

	journal, err := writer.Post(context.Background(), tx, PostingInput{
		Tag:       TagStock,
		Reference: "FAC-20250301090000-003",
		Amount:    amount("5000"),
	})
	require.NoError(t, err)
	require.Empty(t, journal.Entries)
}

func TestValidateRejectsMixedEntry(t *testing.T) {
	in := PostingInput{
		Tag:       TagPayment,
		Reference: "PAI-FAC-20250301090000-001",
		Entries: []EntryInput{
			{AccountID: 57, Debit: amount("100"), Credit: amount("100")},
		},
	}
	require.Error(t, in.Validate())
}

func TestReverseEntriesSwapsSides(t *testing.T) {
	entries := []Entry{
		{AccountID: 70, Credit: amount("8000")},
		{AccountID: 41, Debit: amount("6500")},
		{AccountID: 66, Debit: amount("1500")},
	}
	reversed := ReverseEntries(entries)
	require.Len(t, reversed, 3)
	require.True(t, reversed[0].Debit.Equal(amount("8000")))
	require.True(t, reversed[0].Credit.IsZero())
	require.True(t, reversed[1].Credit.Equal(amount("6500")))
	require.True(t, reversed[2].Credit.Equal(amount("1500")))
}

package journals

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrUnbalanced indicates the debit and credit sums differ. Reaching it from
// checkout code paths is a bug, not an input error.
var ErrUnbalanced = errors.New("journals: debits and credits do not balance")

// EntryInput describes a journal entry for a posting request.
type EntryInput struct {
	AccountID int64
	Debit     decimal.Decimal
	Credit    decimal.Decimal
	Label     string
}

// PostingInput groups fields required to create a journal.
type PostingInput struct {
	PostedAt     time.Time
	Label        string
	Amount       decimal.Decimal
	Tag          Tag
	Reference    string
	Description  string
	EnterpriseID int64
	UserID       int64
	Entries      []EntryInput
}

// Validate ensures the posting balances to the cent. An empty entry list is
// accepted: a zero-balanced journal may be posted to preserve audit linkage.
func (in PostingInput) Validate() error {
	if in.Tag == "" {
		return errors.New("journals: tag required")
	}
	if in.Reference == "" {
		return errors.New("journals: reference required")
	}
	debit := decimal.Zero
	credit := decimal.Zero
	for idx, entry := range in.Entries {
		if entry.AccountID == 0 {
			return fmt.Errorf("journals: entry %d missing account", idx+1)
		}
		if entry.Debit.IsNegative() || entry.Credit.IsNegative() {
			return fmt.Errorf("journals: entry %d negative amount", idx+1)
		}
		if entry.Debit.IsPositive() && entry.Credit.IsPositive() {
			return fmt.Errorf("journals: entry %d cannot be both debit and credit", idx+1)
		}
		debit = debit.Add(entry.Debit)
		credit = credit.Add(entry.Credit)
	}
	if !debit.Round(2).Equal(credit.Round(2)) {
		return ErrUnbalanced
	}
	return nil
}

// ReverseEntries swaps debits and credits, producing the entry list of an
// inverse journal.
func ReverseEntries(entries []Entry) []EntryInput {
	out := make([]EntryInput, 0, len(entries))
	for _, entry := range entries {
		out = append(out, EntryInput{
			AccountID: entry.AccountID,
			Debit:     entry.Credit,
			Credit:    entry.Debit,
			Label:     entry.Label,
		})
	}
	return out
}

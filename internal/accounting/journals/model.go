package journals

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tag classifies the operation a journal realises.
type Tag string

const (
	TagSale         Tag = "SALE"
	TagStock        Tag = "STOCK"
	TagPayment      Tag = "PAYMENT"
	TagCancellation Tag = "CANCELLATION"
)

// Journal captures posting metadata. Postings are append-only; corrections
// are made through additional journals.
type Journal struct {
	ID       int64           `json:"id"`
	PostedAt time.Time       `json:"posted_at"`
	Label    string          `json:"label"`
	Amount   decimal.Decimal `json:"amount"`
	Tag      Tag             `json:"tag"`
	// Reference links the journal to its source document, e.g. the order
	// number, optionally prefixed (PAI-, ANN-, ANN-STOCK-, ANN-PAI-).
	Reference    string    `json:"reference"`
	Description  string    `json:"description"`
	EnterpriseID int64     `json:"enterprise_id"`
	UserID       int64     `json:"user_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Entries      []Entry   `json:"entries,omitempty"`
}

// Entry stores a debit or credit amount for an account. Exactly one of the
// two amounts is positive.
type Entry struct {
	ID        int64           `json:"id"`
	JournalID int64           `json:"journal_id"`
	AccountID int64           `json:"account_id"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	// Position is the 1-based ordering index within the journal.
	Position int    `json:"position"`
	Label    string `json:"label"`
}

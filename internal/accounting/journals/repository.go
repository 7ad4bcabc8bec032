package journals

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrJournalNotFound indicates a missing journal row.
var ErrJournalNotFound = errors.New("journals: not found")

// TxRepository exposes the append operations available within a transaction
// handed in by the caller.
type TxRepository interface {
	InsertJournal(ctx context.Context, in PostingInput) (Journal, error)
	InsertEntries(ctx context.Context, journalID int64, entries []EntryInput) error
}

// Repository reads journals from PostgreSQL outside any transaction.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const journalColumns = `id, posted_at, label, amount, tag, reference, description, enterprise_id, user_id, created_at, updated_at`

// List returns journals newest first.
func (r *Repository) List(ctx context.Context, limit int) ([]Journal, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+journalColumns+` FROM journals ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Journal
	for rows.Next() {
		var j Journal
		if err := rows.Scan(&j.ID, &j.PostedAt, &j.Label, &j.Amount, &j.Tag, &j.Reference, &j.Description, &j.EnterpriseID, &j.UserID, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// GetByReference returns every journal carrying the reference, entries
// included, in posting order.
func (r *Repository) GetByReference(ctx context.Context, reference string) ([]Journal, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+journalColumns+` FROM journals WHERE reference=$1 ORDER BY id ASC`, reference)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Journal
	for rows.Next() {
		var j Journal
		if err := rows.Scan(&j.ID, &j.PostedAt, &j.Label, &j.Amount, &j.Tag, &j.Reference, &j.Description, &j.EnterpriseID, &j.UserID, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for idx := range out {
		entries, err := r.getEntries(ctx, out[idx].ID)
		if err != nil {
			return nil, err
		}
		out[idx].Entries = entries
	}
	return out, nil
}

func (r *Repository) getEntries(ctx context.Context, journalID int64) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, journal_id, account_id, debit, credit, position, label
FROM journal_entries WHERE journal_id=$1 ORDER BY position ASC`, journalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.JournalID, &e.AccountID, &e.Debit, &e.Credit, &e.Position, &e.Label); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

// NewTxRepository wraps an open transaction. The checkout orchestrator owns
// the transaction lifecycle.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

func (r *txRepository) InsertJournal(ctx context.Context, in PostingInput) (Journal, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO journals (posted_at, label, amount, tag, reference, description, enterprise_id, user_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id, created_at, updated_at`,
		in.PostedAt, in.Label, in.Amount, string(in.Tag), in.Reference, in.Description, nullInt(in.EnterpriseID), nullInt(in.UserID))
	journal := Journal{
		PostedAt:     in.PostedAt,
		Label:        in.Label,
		Amount:       in.Amount,
		Tag:          in.Tag,
		Reference:    in.Reference,
		Description:  in.Description,
		EnterpriseID: in.EnterpriseID,
		UserID:       in.UserID,
	}
	if err := row.Scan(&journal.ID, &journal.CreatedAt, &journal.UpdatedAt); err != nil {
		return Journal{}, err
	}
	return journal, nil
}

func (r *txRepository) InsertEntries(ctx context.Context, journalID int64, entries []EntryInput) error {
	for idx, entry := range entries {
		if _, err := r.tx.Exec(ctx, `INSERT INTO journal_entries (journal_id, account_id, debit, credit, position, label)
VALUES ($1,$2,$3,$4,$5,$6)`, journalID, entry.AccountID, entry.Debit, entry.Credit, idx+1, entry.Label); err != nil {
			return err
		}
	}
	return nil
}

func nullInt(val int64) any {
	if val == 0 {
		return nil
	}
	return val
}

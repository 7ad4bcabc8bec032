package services

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates a missing service.
var ErrNotFound = errors.New("services: not found")

// Reader is the read-side contract the checkout resolves service lines against.
type Reader interface {
	Get(ctx context.Context, id int64) (Service, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]Service, error)
}

// Repository persists the service catalog in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const serviceColumns = `id, code, name, price, revenue_account_id, is_active, created_at, updated_at`

func (r *Repository) Get(ctx context.Context, id int64) (Service, error) {
	var s Service
	err := r.pool.QueryRow(ctx, `SELECT `+serviceColumns+` FROM services WHERE id=$1`, id).
		Scan(&s.ID, &s.Code, &s.Name, &s.Price, &s.RevenueAccountID, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Service{}, ErrNotFound
		}
		return Service{}, err
	}
	return s, nil
}

// GetByIDs loads a batch of services keyed by id.
func (r *Repository) GetByIDs(ctx context.Context, ids []int64) (map[int64]Service, error) {
	result := make(map[int64]Service, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var s Service
		if err := rows.Scan(&s.ID, &s.Code, &s.Name, &s.Price, &s.RevenueAccountID, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		result[s.ID] = s
	}
	return result, rows.Err()
}

// List returns active services ordered by code.
func (r *Repository) List(ctx context.Context) ([]Service, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+serviceColumns+` FROM services WHERE is_active ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Service
	for rows.Next() {
		var s Service
		if err := rows.Scan(&s.ID, &s.Code, &s.Name, &s.Price, &s.RevenueAccountID, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

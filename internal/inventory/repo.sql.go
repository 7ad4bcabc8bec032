package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// TxRepository exposes the stock operations available within a transaction
// handed in by the checkout orchestrator.
type TxRepository interface {
	GetStockForUpdate(ctx context.Context, warehouseID, productID int64) (Stock, error)
	UpsertStock(ctx context.Context, stock Stock) error
	InsertMovement(ctx context.Context, movement Movement) (int64, error)
}

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetQuantities returns the available quantity per product in the warehouse.
// Products without a row are absent from the map.
func (r *Repository) GetQuantities(ctx context.Context, warehouseID int64, productIDs []int64) (map[int64]decimal.Decimal, error) {
	result := make(map[int64]decimal.Decimal, len(productIDs))
	if len(productIDs) == 0 {
		return result, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT product_id, qty FROM warehouse_stocks WHERE warehouse_id=$1 AND product_id = ANY($2)`, warehouseID, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var productID int64
		var qty decimal.Decimal
		if err := rows.Scan(&productID, &qty); err != nil {
			return nil, err
		}
		result[productID] = qty
	}
	return result, rows.Err()
}

// GetLevels lists stock rows of a warehouse.
func (r *Repository) GetLevels(ctx context.Context, warehouseID int64) ([]Stock, error) {
	rows, err := r.pool.Query(ctx, `SELECT warehouse_id, product_id, qty, updated_at FROM warehouse_stocks WHERE warehouse_id=$1 ORDER BY product_id`, warehouseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Stock
	for rows.Next() {
		var s Stock
		if err := rows.Scan(&s.WarehouseID, &s.ProductID, &s.Qty, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListMovements returns movement rows matching the reference, oldest first.
func (r *Repository) ListMovements(ctx context.Context, reference string) ([]Movement, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, product_id, warehouse_id, direction, qty, unit_cost, total_cost, dest_warehouse_id, reference, description, user_id, moved_at
FROM stock_movements WHERE reference=$1 ORDER BY id ASC`, reference)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.WarehouseID, &m.Direction, &m.Qty, &m.UnitCost, &m.TotalCost, &m.DestWarehouseID, &m.Reference, &m.Description, &m.UserID, &m.MovedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

// NewTxRepository wraps an open transaction owned by the caller.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

func (r *txRepository) GetStockForUpdate(ctx context.Context, warehouseID, productID int64) (Stock, error) {
	var s Stock
	err := r.tx.QueryRow(ctx, `SELECT warehouse_id, product_id, qty, updated_at FROM warehouse_stocks WHERE warehouse_id=$1 AND product_id=$2 FOR UPDATE`, warehouseID, productID).
		Scan(&s.WarehouseID, &s.ProductID, &s.Qty, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Stock{WarehouseID: warehouseID, ProductID: productID}, ErrStockNotFound
		}
		return Stock{}, err
	}
	return s, nil
}

func (r *txRepository) UpsertStock(ctx context.Context, stock Stock) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO warehouse_stocks (warehouse_id, product_id, qty, updated_at)
VALUES ($1,$2,$3,NOW())
ON CONFLICT (warehouse_id, product_id) DO UPDATE SET qty=EXCLUDED.qty, updated_at=NOW()`, stock.WarehouseID, stock.ProductID, stock.Qty)
	return err
}

func (r *txRepository) InsertMovement(ctx context.Context, movement Movement) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_movements (product_id, warehouse_id, direction, qty, unit_cost, total_cost, dest_warehouse_id, reference, description, user_id, moved_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING id`,
		movement.ProductID, movement.WarehouseID, string(movement.Direction), movement.Qty, movement.UnitCost, movement.TotalCost,
		movement.DestWarehouseID, movement.Reference, movement.Description, nullInt(movement.UserID), nullMovedAt(movement.MovedAt)).Scan(&id)
	return id, err
}

func nullInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullMovedAt(t time.Time) any {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

package checkout

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/comptoir-erp/comptoir/internal/accounting/journals"
	"github.com/comptoir-erp/comptoir/internal/inventory"
	"github.com/comptoir-erp/comptoir/internal/platform/db"
)

// OrderStore groups the order-table operations available inside a checkout
// transaction.
type OrderStore interface {
	InsertOrder(ctx context.Context, order Order) (int64, error)
	InsertProductLine(ctx context.Context, line ProductLine) (int64, error)
	InsertServiceLine(ctx context.Context, line ServiceLine) (int64, error)
	InsertPayment(ctx context.Context, payment Payment) (int64, error)
	// GetOrderForUpdate locks the order row for the remainder of the
	// transaction so concurrent cancellations serialise.
	GetOrderForUpdate(ctx context.Context, id int64) (Order, error)
	ListProductLines(ctx context.Context, orderID int64) ([]ProductLine, error)
	ListServiceLines(ctx context.Context, orderID int64) ([]ServiceLine, error)
	ListPayments(ctx context.Context, orderID int64) ([]Payment, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
	// ZeroPayments sets every payment amount on the order to zero. Rows are
	// kept for traceability.
	ZeroPayments(ctx context.Context, orderID int64) error
}

// Tx aggregates the stores that participate in one checkout transaction.
// Everything reached through it shares a single database transaction, so a
// failure anywhere rolls back orders, stock and journals together.
type Tx interface {
	Orders() OrderStore
	Stock() inventory.TxRepository
	Journals() journals.TxRepository
}

// Repository is the persistence boundary of the orchestrator.
type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// NextSequence increments and returns the per-POS counter for the given
	// day (YYYYMMDD). The counter row is created on first use. It commits
	// on its own so a rolled-back sale never reissues the same sequence.
	NextSequence(ctx context.Context, posID int64, day string) (int64, error)
	GetOrder(ctx context.Context, id int64) (Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]Order, error)
}

// OrderFilter narrows order listings. Zero values match everything.
type OrderFilter struct {
	POSID  int64
	Status Status
	Limit  int
}

// PgRepository implements Repository on PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository constructs PgRepository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// NextSequence runs on the pool, outside any sale transaction, so the
// increment stays committed even when the sale rolls back.
func (r *PgRepository) NextSequence(ctx context.Context, posID int64, day string) (int64, error) {
	var seq int64
	err := r.pool.QueryRow(ctx, `INSERT INTO pos_order_counters (pos_id, day, seq) VALUES ($1, $2, 1)
ON CONFLICT (pos_id, day) DO UPDATE SET seq = pos_order_counters.seq + 1
RETURNING seq`, posID, day).Scan(&seq)
	return seq, err
}

// WithTx runs fn inside one RepeatableRead transaction shared by the order,
// stock and journal stores.
func (r *PgRepository) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return db.WithTx(ctx, r.pool, func(pgtx pgx.Tx) error {
		return fn(ctx, &pgTx{
			orders:   &orderStore{tx: pgtx},
			stock:    inventory.NewTxRepository(pgtx),
			journals: journals.NewTxRepository(pgtx),
		})
	})
}

const orderColumns = `id, pos_id, customer_id, number, status, payment_method, subtotal, discount, total, user_id, note, created_at, updated_at`

// GetOrder loads an order with its lines and payments.
func (r *PgRepository) GetOrder(ctx context.Context, id int64) (Order, error) {
	var o Order
	err := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM pos_orders WHERE id=$1`, id).
		Scan(&o.ID, &o.POSID, &o.CustomerID, &o.Number, &o.Status, &o.PaymentMethod, &o.Subtotal, &o.Discount, &o.Total, &o.UserID, &o.Note, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, err
	}
	if o.ProductLines, err = scanProductLines(ctx, r.pool, id); err != nil {
		return Order{}, err
	}
	if o.ServiceLines, err = scanServiceLines(ctx, r.pool, id); err != nil {
		return Order{}, err
	}
	if o.Payments, err = scanPayments(ctx, r.pool, id); err != nil {
		return Order{}, err
	}
	return o, nil
}

// ListOrders returns recent orders for a POS, newest first.
func (r *PgRepository) ListOrders(ctx context.Context, filter OrderFilter) ([]Order, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM pos_orders
WHERE pos_id=$1 AND ($2::text = '' OR status=$2) ORDER BY id DESC LIMIT $3`, filter.POSID, string(filter.Status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.POSID, &o.CustomerID, &o.Number, &o.Status, &o.PaymentMethod, &o.Subtotal, &o.Discount, &o.Total, &o.UserID, &o.Note, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

type pgTx struct {
	orders   OrderStore
	stock    inventory.TxRepository
	journals journals.TxRepository
}

func (t *pgTx) Orders() OrderStore              { return t.orders }
func (t *pgTx) Stock() inventory.TxRepository   { return t.stock }
func (t *pgTx) Journals() journals.TxRepository { return t.journals }

type orderStore struct {
	tx pgx.Tx
}

func (s *orderStore) InsertOrder(ctx context.Context, o Order) (int64, error) {
	var id int64
	err := s.tx.QueryRow(ctx, `INSERT INTO pos_orders (pos_id, customer_id, number, status, payment_method, subtotal, discount, total, user_id, note, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11) RETURNING id`,
		o.POSID, o.CustomerID, o.Number, o.Status, o.PaymentMethod, o.Subtotal, o.Discount, o.Total, o.UserID, o.Note, o.CreatedAt).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateNumber
		}
		return 0, err
	}
	return id, nil
}

func (s *orderStore) InsertProductLine(ctx context.Context, l ProductLine) (int64, error) {
	var id int64
	err := s.tx.QueryRow(ctx, `INSERT INTO pos_order_products (order_id, product_id, name, qty, unit_price, total)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		l.OrderID, l.ProductID, l.Name, l.Qty, l.UnitPrice, l.Total).Scan(&id)
	return id, err
}

func (s *orderStore) InsertServiceLine(ctx context.Context, l ServiceLine) (int64, error) {
	var id int64
	err := s.tx.QueryRow(ctx, `INSERT INTO pos_order_services (order_id, service_id, name, qty, unit_price, total)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		l.OrderID, l.ServiceID, l.Name, l.Qty, l.UnitPrice, l.Total).Scan(&id)
	return id, err
}

func (s *orderStore) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	var id int64
	err := s.tx.QueryRow(ctx, `INSERT INTO pos_payments (order_id, amount, method, reference, paid_at)
VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		p.OrderID, p.Amount, p.Method, p.Reference, p.PaidAt).Scan(&id)
	return id, err
}

func (s *orderStore) GetOrderForUpdate(ctx context.Context, id int64) (Order, error) {
	var o Order
	err := s.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM pos_orders WHERE id=$1 FOR UPDATE`, id).
		Scan(&o.ID, &o.POSID, &o.CustomerID, &o.Number, &o.Status, &o.PaymentMethod, &o.Subtotal, &o.Discount, &o.Total, &o.UserID, &o.Note, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	return o, err
}

func (s *orderStore) ListProductLines(ctx context.Context, orderID int64) ([]ProductLine, error) {
	return scanProductLines(ctx, s.tx, orderID)
}

func (s *orderStore) ListServiceLines(ctx context.Context, orderID int64) ([]ServiceLine, error) {
	return scanServiceLines(ctx, s.tx, orderID)
}

func (s *orderStore) ListPayments(ctx context.Context, orderID int64) ([]Payment, error) {
	return scanPayments(ctx, s.tx, orderID)
}

func (s *orderStore) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := s.tx.Exec(ctx, `UPDATE pos_orders SET status=$2, updated_at=NOW() WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (s *orderStore) ZeroPayments(ctx context.Context, orderID int64) error {
	_, err := s.tx.Exec(ctx, `UPDATE pos_payments SET amount=0 WHERE order_id=$1`, orderID)
	return err
}

// querier is satisfied by both pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func scanProductLines(ctx context.Context, q querier, orderID int64) ([]ProductLine, error) {
	rows, err := q.Query(ctx, `SELECT id, order_id, product_id, name, qty, unit_price, total FROM pos_order_products WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProductLine
	for rows.Next() {
		var l ProductLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Name, &l.Qty, &l.UnitPrice, &l.Total); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanServiceLines(ctx context.Context, q querier, orderID int64) ([]ServiceLine, error) {
	rows, err := q.Query(ctx, `SELECT id, order_id, service_id, name, qty, unit_price, total FROM pos_order_services WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ServiceLine
	for rows.Next() {
		var l ServiceLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ServiceID, &l.Name, &l.Qty, &l.UnitPrice, &l.Total); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanPayments(ctx context.Context, q querier, orderID int64) ([]Payment, error) {
	rows, err := q.Query(ctx, `SELECT id, order_id, amount, method, reference, paid_at FROM pos_payments WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.OrderID, &p.Amount, &p.Method, &p.Reference, &p.PaidAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PaidTotal sums positive payment amounts.
func PaidTotal(payments []Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		if p.Amount.IsPositive() {
			total = total.Add(p.Amount)
		}
	}
	return total
}

var _ Repository = (*PgRepository)(nil)

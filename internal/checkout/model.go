package checkout

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Status enumerates order lifecycle values. Cancelled is terminal.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Payment method tags recognised by downstream reporting. The tags are
// free-form strings; orders created without any payment carry the literal
// "Credit" tag.
const (
	MethodCash   = "Espèces"
	MethodCard   = "Carte bancaire"
	MethodMobile = "Mobile Money"
	MethodCredit = "Credit"
)

// Order is the persisted record of a POS checkout. It is never deleted;
// the only mutation is a status change.
type Order struct {
	ID            int64           `json:"id"`
	POSID         int64           `json:"pos_id"`
	CustomerID    *int64          `json:"customer_id,omitempty"`
	Number        string          `json:"number"`
	Status        Status          `json:"status"`
	PaymentMethod string          `json:"payment_method"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
	UserID        int64           `json:"user_id"`
	Note          string          `json:"note,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	ProductLines []ProductLine `json:"product_lines,omitempty"`
	ServiceLines []ServiceLine `json:"service_lines,omitempty"`
	Payments     []Payment     `json:"payments,omitempty"`
}

// ProductLine is immutable once created. The unit price is the price
// actually charged at sale time.
type ProductLine struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Qty       decimal.Decimal `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
}

// ServiceLine is immutable once created. Services never affect stock.
type ServiceLine struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ServiceID int64           `json:"service_id"`
	Name      string          `json:"name"`
	Qty       decimal.Decimal `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
}

// Payment records money received against an order. On cancellation amounts
// are zeroed but rows are retained.
type Payment struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	Reference string          `json:"reference"`
	PaidAt    time.Time       `json:"paid_at"`
}

// WarningKind identifies a degradation surfaced on a successful result.
type WarningKind string

// WarningWarehouseMissing is raised when the POS has no outlet warehouse
// configured: the sale proceeds but stock is untouched.
const WarningWarehouseMissing WarningKind = "WAREHOUSE_MISSING"

// Warning is a non-fatal condition operators should audit.
type Warning struct {
	Kind   WarningKind `json:"kind"`
	Detail string      `json:"detail,omitempty"`
}

// SaleResult is returned by ProcessSale on success.
type SaleResult struct {
	OrderID  int64           `json:"order_id"`
	Number   string          `json:"number"`
	Status   Status          `json:"status"`
	Total    decimal.Decimal `json:"total"`
	Message  string          `json:"message"`
	Warnings []Warning       `json:"warnings,omitempty"`
}

// CancelResult is returned by CancelSale on success.
type CancelResult struct {
	OrderID  int64     `json:"order_id"`
	Number   string    `json:"number"`
	Message  string    `json:"message"`
	Warnings []Warning `json:"warnings,omitempty"`
}

var (
	// ErrOrderNotFound indicates an unknown order id.
	ErrOrderNotFound = errors.New("checkout: order not found")
	// ErrAlreadyCancelled indicates a second cancellation attempt.
	ErrAlreadyCancelled = errors.New("checkout: order already cancelled")
	// ErrDuplicateNumber indicates an order-number unique violation; the
	// orchestrator regenerates and retries a bounded number of times.
	ErrDuplicateNumber = errors.New("checkout: duplicate order number")
	// ErrEmptyCart indicates a request without any line. The UI normally
	// rejects these upstream.
	ErrEmptyCart = errors.New("checkout: cart has no lines")
)

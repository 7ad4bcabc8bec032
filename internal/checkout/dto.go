package checkout

import "github.com/shopspring/decimal"

// Line kinds accepted in a sale request.
const (
	LineKindProduct = "product"
	LineKindService = "service"
)

// LineRequest is one cart line. The unit price is the price charged at the
// till, which may differ from the catalog price.
type LineRequest struct {
	Kind      string          `json:"kind" validate:"required,oneof=product service"`
	ItemID    int64           `json:"item_id" validate:"required,gt=0"`
	Name      string          `json:"name" validate:"max=255"`
	Qty       decimal.Decimal `json:"qty" validate:"required"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// PaymentIntent carries the money tendered with the sale, if any.
type PaymentIntent struct {
	Method         string          `json:"method" validate:"max=64"`
	AmountReceived decimal.Decimal `json:"amount_received"`
}

// SaleRequest is the full checkout payload.
type SaleRequest struct {
	POSID      int64           `json:"pos_id" validate:"required,gt=0"`
	CustomerID *int64          `json:"customer_id,omitempty"`
	Lines      []LineRequest   `json:"lines" validate:"required,min=1,dive"`
	Discount   decimal.Decimal `json:"discount"`
	Payment    PaymentIntent   `json:"payment"`
	Note       string          `json:"note" validate:"max=1024"`
	// ReceiptEmail, when set, queues a receipt mail after the sale commits.
	ReceiptEmail string `json:"receipt_email" validate:"omitempty,email"`
	UserID       int64  `json:"user_id" validate:"required,gt=0"`
}

// HasProductLines reports whether any line references a product.
func (r SaleRequest) HasProductLines() bool {
	for _, l := range r.Lines {
		if l.Kind == LineKindProduct {
			return true
		}
	}
	return false
}

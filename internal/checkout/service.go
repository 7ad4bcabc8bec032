package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/comptoir-erp/comptoir/internal/accounting/config"
	"github.com/comptoir-erp/comptoir/internal/accounting/journals"
	"github.com/comptoir-erp/comptoir/internal/inventory"
	"github.com/comptoir-erp/comptoir/internal/masterdata/products"
	"github.com/comptoir-erp/comptoir/internal/masterdata/services"
	"github.com/comptoir-erp/comptoir/internal/shared"
)

// maxNumberAttempts bounds how many times a sale is replayed after an
// order-number collision before the failure surfaces.
const maxNumberAttempts = 5

// JournalReader loads committed journals by reference; cancellation reverses
// the recorded entries instead of re-deriving them from the catalog.
type JournalReader interface {
	GetByReference(ctx context.Context, reference string) ([]journals.Journal, error)
}

// AuditRecorder receives the fire-and-forget audit trail.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ServiceDeps groups the collaborators of the orchestrator.
type ServiceDeps struct {
	Repo     Repository
	Products products.Reader
	Services services.Reader
	Journals JournalReader
	Resolver *config.Resolver
	Checker  *inventory.Checker
	Ledger   *inventory.Ledger
	Writer   *journals.Writer
	Audit    AuditRecorder
	Logger   *slog.Logger
}

// Service orchestrates checkout: one call, one transaction, with order rows,
// stock mutations and accounting journals committed or rolled back together.
type Service struct {
	repo     Repository
	products products.Reader
	services services.Reader
	journals JournalReader
	resolver *config.Resolver
	checker  *inventory.Checker
	ledger   *inventory.Ledger
	writer   *journals.Writer
	audit    AuditRecorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs Service.
func NewService(d ServiceDeps) *Service {
	return &Service{
		repo:     d.Repo,
		products: d.Products,
		services: d.Services,
		journals: d.Journals,
		resolver: d.Resolver,
		checker:  d.Checker,
		ledger:   d.Ledger,
		writer:   d.Writer,
		audit:    d.Audit,
		logger:   d.Logger,
		now:      time.Now,
	}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// pricedLine is a cart line with its captured amounts and resolved catalog
// record.
type pricedLine struct {
	req     LineRequest
	total   decimal.Decimal
	product products.Product
	service services.Service
}

// ProcessSale runs the full sale pipeline. On success the order, its lines,
// the stock deductions and every journal exist together; on any error nothing
// is persisted.
func (s *Service) ProcessSale(ctx context.Context, req SaleRequest) (SaleResult, error) {
	if len(req.Lines) == 0 {
		return SaleResult{}, ErrEmptyCart
	}
	for _, l := range req.Lines {
		if !l.Qty.IsPositive() {
			return SaleResult{}, fmt.Errorf("checkout: line %s %d: %w", l.Kind, l.ItemID, inventory.ErrInvalidQuantity)
		}
		if l.UnitPrice.IsNegative() {
			return SaleResult{}, fmt.Errorf("checkout: line %s %d: negative unit price", l.Kind, l.ItemID)
		}
	}

	cfg, err := s.resolver.Load(ctx, req.POSID)
	if err != nil {
		return SaleResult{}, err
	}

	lines, subtotal, err := s.priceLines(ctx, req.Lines)
	if err != nil {
		return SaleResult{}, err
	}
	discount := req.Discount
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	discount = discount.Round(2)
	total := subtotal.Sub(discount)

	hasProducts := req.HasProductLines()
	if err := s.resolver.ValidateForSale(cfg, hasProducts, discount); err != nil {
		return SaleResult{}, err
	}

	var warnings []Warning
	if hasProducts {
		if cfg.OutletWarehouseID == nil {
			s.logger.Warn("outlet warehouse unset, selling without stock deduction", slog.Int64("pos_id", req.POSID))
			warnings = append(warnings, Warning{
				Kind:   WarningWarehouseMissing,
				Detail: "no outlet warehouse configured for this point of sale, stock left untouched",
			})
		} else if err := s.checker.Check(ctx, *cfg.OutletWarehouseID, requirementsOf(req.Lines)); err != nil {
			return SaleResult{}, err
		}
	}

	received := req.Payment.AmountReceived
	if received.IsNegative() {
		received = decimal.Zero
	}
	received = received.Round(2)
	// Change handed back over the counter is not a payment: the recorded
	// amount is capped at the order total.
	paid := received
	if paid.GreaterThan(total) {
		paid = total
	}
	status := StatusPending
	if received.GreaterThanOrEqual(total) {
		status = StatusCompleted
	}
	method := req.Payment.Method
	if method == "" {
		method = MethodCash
	}
	// The tag keys on the money actually tendered. A fully discounted sale
	// paid over the counter is not a credit sale even though nothing is
	// recorded against the total.
	if received.IsZero() {
		method = MethodCredit
	}

	var (
		orderID     int64
		orderNumber string
	)
	// Each attempt re-reads the clock and draws a fresh sequence. The
	// counter commits on its own, so a rolled-back attempt cannot reissue
	// the number that just collided.
	for attempt := 0; ; attempt++ {
		now := s.now()
		var seq int64
		seq, err = s.repo.NextSequence(ctx, req.POSID, counterDay(now))
		if err != nil {
			return SaleResult{}, fmt.Errorf("checkout: next order sequence: %w", err)
		}
		orderNumber = formatOrderNumber(now, seq)
		err = s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
			var err error
			orderID, err = tx.Orders().InsertOrder(ctx, Order{
				POSID:         req.POSID,
				CustomerID:    req.CustomerID,
				Number:        orderNumber,
				Status:        status,
				PaymentMethod: method,
				Subtotal:      subtotal,
				Discount:      discount,
				Total:         total,
				UserID:        req.UserID,
				Note:          req.Note,
				CreatedAt:     now,
			})
			if err != nil {
				return err
			}
			return s.persistSaleBody(ctx, tx, cfg, saleBody{
				orderID:     orderID,
				orderNumber: orderNumber,
				lines:       lines,
				subtotal:    subtotal,
				discount:    discount,
				total:       total,
				paid:        paid,
				method:      method,
				userID:      req.UserID,
				note:        req.Note,
				now:         now,
			})
		})
		if errors.Is(err, ErrDuplicateNumber) && attempt+1 < maxNumberAttempts {
			continue
		}
		break
	}
	if err != nil {
		return SaleResult{}, err
	}

	s.recordAudit(ctx, req.UserID, "pos.sale", orderNumber, map[string]any{
		"order_id": orderID,
		"total":    total.String(),
		"status":   string(status),
	})

	return SaleResult{
		OrderID:  orderID,
		Number:   orderNumber,
		Status:   status,
		Total:    total,
		Message:  saleMessage(orderNumber, status, paid, total),
		Warnings: warnings,
	}, nil
}

type saleBody struct {
	orderID     int64
	orderNumber string
	lines       []pricedLine
	subtotal    decimal.Decimal
	discount    decimal.Decimal
	total       decimal.Decimal
	paid        decimal.Decimal
	method      string
	userID      int64
	note        string
	now         time.Time
}

// persistSaleBody writes lines, stock movements and journals for an already
// inserted order header, all on the supplied transaction.
func (s *Service) persistSaleBody(ctx context.Context, tx Tx, cfg config.Config, b saleBody) error {
	var (
		saleEntries  []journals.EntryInput
		stockEntries []journals.EntryInput
		hasProducts  bool
	)
	for _, line := range b.lines {
		switch line.req.Kind {
		case LineKindProduct:
			hasProducts = true
			name := line.req.Name
			if name == "" {
				name = line.product.Name
			}
			if _, err := tx.Orders().InsertProductLine(ctx, ProductLine{
				OrderID:   b.orderID,
				ProductID: line.product.ID,
				Name:      name,
				Qty:       line.req.Qty,
				UnitPrice: line.req.UnitPrice,
				Total:     line.total,
			}); err != nil {
				return err
			}
			if cfg.OutletWarehouseID != nil {
				if _, err := s.ledger.Deduct(ctx, tx.Stock(), inventory.DeductInput{
					WarehouseID: *cfg.OutletWarehouseID,
					ProductID:   line.product.ID,
					Qty:         line.req.Qty,
					UnitPrice:   line.req.UnitPrice,
					LineTotal:   line.total,
					OrderNumber: b.orderNumber,
					UserID:      b.userID,
				}); err != nil {
					return err
				}
			}
			revenue, err := s.resolver.RevenueAccountForProduct(cfg, line.product)
			if err != nil {
				return err
			}
			saleEntries = append(saleEntries, journals.EntryInput{AccountID: revenue, Credit: line.total, Label: name})

			cost := line.product.Cost.Mul(line.req.Qty).Round(2)
			if cost.IsPositive() {
				cogs, err := s.resolver.COGSAccountFor(cfg, line.product)
				if err != nil {
					return err
				}
				stockEntries = append(stockEntries,
					journals.EntryInput{AccountID: cogs, Debit: cost, Label: name},
					journals.EntryInput{AccountID: *cfg.StockAssetAccountID, Credit: cost, Label: name},
				)
			}
		case LineKindService:
			name := line.req.Name
			if name == "" {
				name = line.service.Name
			}
			if _, err := tx.Orders().InsertServiceLine(ctx, ServiceLine{
				OrderID:   b.orderID,
				ServiceID: line.service.ID,
				Name:      name,
				Qty:       line.req.Qty,
				UnitPrice: line.req.UnitPrice,
				Total:     line.total,
			}); err != nil {
				return err
			}
			revenue, err := s.resolver.RevenueAccountForService(cfg, line.service)
			if err != nil {
				return err
			}
			saleEntries = append(saleEntries, journals.EntryInput{AccountID: revenue, Credit: line.total, Label: name})
		}
	}

	saleEntries = append(saleEntries, journals.EntryInput{AccountID: cfg.ReceivableAccountID, Debit: b.total, Label: "Client"})
	if b.discount.IsPositive() {
		saleEntries = append(saleEntries, journals.EntryInput{AccountID: *cfg.DiscountAccountID, Debit: b.discount, Label: "Remise"})
	}
	if _, err := s.writer.Post(ctx, tx.Journals(), journals.PostingInput{
		PostedAt:     b.now,
		Label:        "Vente " + b.orderNumber,
		Amount:       b.total,
		Tag:          journals.TagSale,
		Reference:    b.orderNumber,
		Description:  b.note,
		EnterpriseID: cfg.EnterpriseID,
		UserID:       b.userID,
		Entries:      saleEntries,
	}); err != nil {
		return err
	}

	// The stock journal is posted whenever the cart holds product lines,
	// even with every cost at zero, so cancellation always finds its
	// counterpart under the bare order number.
	if hasProducts {
		if _, err := s.writer.Post(ctx, tx.Journals(), journals.PostingInput{
			PostedAt:     b.now,
			Label:        "Sortie de stock " + b.orderNumber,
			Amount:       b.subtotal,
			Tag:          journals.TagStock,
			Reference:    b.orderNumber,
			EnterpriseID: cfg.EnterpriseID,
			UserID:       b.userID,
			Entries:      stockEntries,
		}); err != nil {
			return err
		}
	}

	if b.paid.IsPositive() {
		if _, err := tx.Orders().InsertPayment(ctx, Payment{
			OrderID:   b.orderID,
			Amount:    b.paid,
			Method:    b.method,
			Reference: b.orderNumber,
			PaidAt:    b.now,
		}); err != nil {
			return err
		}
		if _, err := s.writer.Post(ctx, tx.Journals(), journals.PostingInput{
			PostedAt:     b.now,
			Label:        "Règlement " + b.orderNumber,
			Amount:       b.paid,
			Tag:          journals.TagPayment,
			Reference:    "PAI-" + b.orderNumber,
			EnterpriseID: cfg.EnterpriseID,
			UserID:       b.userID,
			Entries: []journals.EntryInput{
				{AccountID: cfg.CashAccountID, Debit: b.paid, Label: b.method},
				{AccountID: cfg.ReceivableAccountID, Credit: b.paid, Label: "Client"},
			},
		}); err != nil {
			return err
		}
	}

	return nil
}

// CancelSale reverses a sale: inverse journals for every posting found under
// the order's references, stock restitution, status flip and payment zeroing,
// in one transaction. Cancellation is terminal and idempotent-hostile: a
// second attempt fails with ErrAlreadyCancelled.
func (s *Service) CancelSale(ctx context.Context, orderID, userID int64) (CancelResult, error) {
	var (
		order    Order
		warnings []Warning
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		order, err = tx.Orders().GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status == StatusCancelled {
			return ErrAlreadyCancelled
		}
		cfg, err := s.resolver.Load(ctx, order.POSID)
		if err != nil {
			return err
		}

		now := s.now()
		origins, err := s.journals.GetByReference(ctx, order.Number)
		if err != nil {
			return fmt.Errorf("checkout: load journals for %s: %w", order.Number, err)
		}
		for _, j := range origins {
			ref := "ANN-" + order.Number
			label := "Annulation " + order.Number
			if j.Tag == journals.TagStock {
				ref = "ANN-STOCK-" + order.Number
				label = "Annulation sortie de stock " + order.Number
			}
			if _, err := s.writer.Post(ctx, tx.Journals(), journals.PostingInput{
				PostedAt:     now,
				Label:        label,
				Amount:       j.Amount,
				Tag:          journals.TagCancellation,
				Reference:    ref,
				EnterpriseID: cfg.EnterpriseID,
				UserID:       userID,
				Entries:      journals.ReverseEntries(j.Entries),
			}); err != nil {
				return err
			}
		}
		payments, err := s.journals.GetByReference(ctx, "PAI-"+order.Number)
		if err != nil {
			return fmt.Errorf("checkout: load payment journals for %s: %w", order.Number, err)
		}
		for _, j := range payments {
			if _, err := s.writer.Post(ctx, tx.Journals(), journals.PostingInput{
				PostedAt:     now,
				Label:        "Annulation règlement " + order.Number,
				Amount:       j.Amount,
				Tag:          journals.TagCancellation,
				Reference:    "ANN-PAI-" + order.Number,
				EnterpriseID: cfg.EnterpriseID,
				UserID:       userID,
				Entries:      journals.ReverseEntries(j.Entries),
			}); err != nil {
				return err
			}
		}

		productLines, err := tx.Orders().ListProductLines(ctx, orderID)
		if err != nil {
			return err
		}
		if len(productLines) > 0 {
			if cfg.OutletWarehouseID == nil {
				s.logger.Warn("outlet warehouse unset, cancelling without stock restitution",
					slog.Int64("pos_id", order.POSID), slog.String("number", order.Number))
				warnings = append(warnings, Warning{
					Kind:   WarningWarehouseMissing,
					Detail: "no outlet warehouse configured for this point of sale, stock left untouched",
				})
			} else {
				for _, l := range productLines {
					if _, err := s.ledger.Restore(ctx, tx.Stock(), inventory.RestoreInput{
						WarehouseID: *cfg.OutletWarehouseID,
						ProductID:   l.ProductID,
						Qty:         l.Qty,
						OrderNumber: order.Number,
						UserID:      userID,
					}); err != nil {
						return err
					}
				}
			}
		}

		if err := tx.Orders().UpdateStatus(ctx, orderID, StatusCancelled); err != nil {
			return err
		}
		return tx.Orders().ZeroPayments(ctx, orderID)
	})
	if err != nil {
		return CancelResult{}, err
	}

	s.recordAudit(ctx, userID, "pos.cancel", order.Number, map[string]any{
		"order_id": orderID,
		"total":    order.Total.String(),
	})

	return CancelResult{
		OrderID:  orderID,
		Number:   order.Number,
		Message:  frPrinter.Sprintf("Vente %s annulée", order.Number),
		Warnings: warnings,
	}, nil
}

// GetOrder loads an order with its lines and payments.
func (s *Service) GetOrder(ctx context.Context, id int64) (Order, error) {
	return s.repo.GetOrder(ctx, id)
}

// ListOrders returns the recent orders of a POS.
func (s *Service) ListOrders(ctx context.Context, filter OrderFilter) ([]Order, error) {
	return s.repo.ListOrders(ctx, filter)
}

// priceLines resolves catalog records and computes per-line totals. Inactive
// or unknown items fail the sale.
func (s *Service) priceLines(ctx context.Context, reqs []LineRequest) ([]pricedLine, decimal.Decimal, error) {
	var productIDs, serviceIDs []int64
	for _, l := range reqs {
		switch l.Kind {
		case LineKindProduct:
			productIDs = append(productIDs, l.ItemID)
		case LineKindService:
			serviceIDs = append(serviceIDs, l.ItemID)
		default:
			return nil, decimal.Zero, fmt.Errorf("checkout: unknown line kind %q", l.Kind)
		}
	}
	prods := map[int64]products.Product{}
	if len(productIDs) > 0 {
		var err error
		if prods, err = s.products.GetByIDs(ctx, productIDs); err != nil {
			return nil, decimal.Zero, err
		}
	}
	svcs := map[int64]services.Service{}
	if len(serviceIDs) > 0 {
		var err error
		if svcs, err = s.services.GetByIDs(ctx, serviceIDs); err != nil {
			return nil, decimal.Zero, err
		}
	}

	lines := make([]pricedLine, 0, len(reqs))
	subtotal := decimal.Zero
	for _, l := range reqs {
		line := pricedLine{req: l, total: l.Qty.Mul(l.UnitPrice).Round(2)}
		switch l.Kind {
		case LineKindProduct:
			p, ok := prods[l.ItemID]
			if !ok {
				return nil, decimal.Zero, fmt.Errorf("checkout: product %d: %w", l.ItemID, products.ErrNotFound)
			}
			if !p.IsActive {
				return nil, decimal.Zero, fmt.Errorf("checkout: product %d (%s) is inactive", p.ID, p.Name)
			}
			line.product = p
		case LineKindService:
			sv, ok := svcs[l.ItemID]
			if !ok {
				return nil, decimal.Zero, fmt.Errorf("checkout: service %d: %w", l.ItemID, services.ErrNotFound)
			}
			if !sv.IsActive {
				return nil, decimal.Zero, fmt.Errorf("checkout: service %d (%s) is inactive", sv.ID, sv.Name)
			}
			line.service = sv
		}
		subtotal = subtotal.Add(line.total)
		lines = append(lines, line)
	}
	return lines, subtotal, nil
}

func requirementsOf(reqs []LineRequest) []inventory.Requirement {
	var out []inventory.Requirement
	for _, l := range reqs {
		if l.Kind == LineKindProduct {
			out = append(out, inventory.Requirement{ProductID: l.ItemID, Qty: l.Qty})
		}
	}
	return out
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action, number string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "pos_order",
		EntityID: number,
		Meta:     meta,
		At:       s.now(),
	}); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.String("error", err.Error()))
	}
}

var frPrinter = message.NewPrinter(language.French)

// formatAmount renders a monetary amount with French digit grouping. Display
// only, so the float conversion is acceptable.
func formatAmount(d decimal.Decimal) string {
	f, _ := d.Float64()
	return frPrinter.Sprintf("%v", number.Decimal(f, number.MaxFractionDigits(2)))
}

func saleMessage(orderNumber string, status Status, paid, total decimal.Decimal) string {
	switch {
	case status == StatusCompleted:
		return frPrinter.Sprintf("Vente %s enregistrée, réglée %s", orderNumber, formatAmount(total))
	case paid.IsPositive():
		return frPrinter.Sprintf("Vente %s enregistrée, acompte %s sur %s", orderNumber, formatAmount(paid), formatAmount(total))
	default:
		return frPrinter.Sprintf("Vente %s enregistrée à crédit, solde %s", orderNumber, formatAmount(total))
	}
}

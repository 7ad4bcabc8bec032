package checkout

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/comptoir-erp/comptoir/internal/accounting/config"
	"github.com/comptoir-erp/comptoir/internal/accounting/journals"
	"github.com/comptoir-erp/comptoir/internal/inventory"
	"github.com/comptoir-erp/comptoir/internal/masterdata/products"
	"github.com/comptoir-erp/comptoir/internal/masterdata/services"
	"github.com/comptoir-erp/comptoir/internal/shared"
)

// memState is the whole persistent world of a test. WithTx snapshots it and
// restores the snapshot on error, mirroring a database rollback.
type memState struct {
	counters      map[string]int64
	orders        map[int64]Order
	nextOrderID   int64
	productLines  []ProductLine
	serviceLines  []ServiceLine
	payments      []Payment
	nextRowID     int64
	stocks        map[string]inventory.Stock
	movements     []inventory.Movement
	journals      []journals.Journal
	nextJournalID int64
}

func newMemState() *memState {
	return &memState{
		counters:      make(map[string]int64),
		orders:        make(map[int64]Order),
		nextOrderID:   1,
		nextRowID:     1,
		stocks:        make(map[string]inventory.Stock),
		nextJournalID: 1,
	}
}

func (s *memState) clone() *memState {
	out := &memState{
		counters:      make(map[string]int64, len(s.counters)),
		orders:        make(map[int64]Order, len(s.orders)),
		nextOrderID:   s.nextOrderID,
		productLines:  append([]ProductLine(nil), s.productLines...),
		serviceLines:  append([]ServiceLine(nil), s.serviceLines...),
		payments:      append([]Payment(nil), s.payments...),
		nextRowID:     s.nextRowID,
		stocks:        make(map[string]inventory.Stock, len(s.stocks)),
		movements:     append([]inventory.Movement(nil), s.movements...),
		nextJournalID: s.nextJournalID,
	}
	for k, v := range s.counters {
		out.counters[k] = v
	}
	for k, v := range s.orders {
		out.orders[k] = v
	}
	for k, v := range s.stocks {
		out.stocks[k] = v
	}
	for _, j := range s.journals {
		j.Entries = append([]journals.Entry(nil), j.Entries...)
		out.journals = append(out.journals, j)
	}
	return out
}

func stockKey(warehouseID, productID int64) string {
	return fmt.Sprintf("%d|%d", warehouseID, productID)
}

type memRepo struct {
	state *memState
	// failInserts makes the next N order inserts report a duplicate number.
	failInserts int
}

func newMemRepo() *memRepo {
	return &memRepo{state: newMemState()}
}

func (m *memRepo) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	snapshot := m.state.clone()
	tx := &memTx{
		orders:   &memOrders{state: m.state, repo: m},
		stock:    &memStock{state: m.state},
		journals: &memJournals{state: m.state},
	}
	if err := fn(ctx, tx); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (m *memRepo) GetOrder(ctx context.Context, id int64) (Order, error) {
	o, ok := m.state.orders[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	for _, l := range m.state.productLines {
		if l.OrderID == id {
			o.ProductLines = append(o.ProductLines, l)
		}
	}
	for _, l := range m.state.serviceLines {
		if l.OrderID == id {
			o.ServiceLines = append(o.ServiceLines, l)
		}
	}
	for _, p := range m.state.payments {
		if p.OrderID == id {
			o.Payments = append(o.Payments, p)
		}
	}
	return o, nil
}

// NextSequence mutates the counter before the transaction snapshot is
// taken, mirroring the standalone committed counter in production.
func (m *memRepo) NextSequence(ctx context.Context, posID int64, day string) (int64, error) {
	key := fmt.Sprintf("%d|%s", posID, day)
	m.state.counters[key]++
	return m.state.counters[key], nil
}

func (m *memRepo) ListOrders(ctx context.Context, filter OrderFilter) ([]Order, error) {
	var out []Order
	for id := m.state.nextOrderID - 1; id >= 1; id-- {
		o, ok := m.state.orders[id]
		if !ok || o.POSID != filter.POSID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

// GetByReference satisfies JournalReader.
func (m *memRepo) GetByReference(ctx context.Context, reference string) ([]journals.Journal, error) {
	var out []journals.Journal
	for _, j := range m.state.journals {
		if j.Reference == reference {
			j.Entries = append([]journals.Entry(nil), j.Entries...)
			out = append(out, j)
		}
	}
	return out, nil
}

// GetQuantities satisfies inventory.AvailabilityReader.
func (m *memRepo) GetQuantities(ctx context.Context, warehouseID int64, productIDs []int64) (map[int64]decimal.Decimal, error) {
	out := make(map[int64]decimal.Decimal, len(productIDs))
	for _, id := range productIDs {
		if s, ok := m.state.stocks[stockKey(warehouseID, id)]; ok {
			out[id] = s.Qty
		}
	}
	return out, nil
}

func (m *memRepo) seedStock(warehouseID, productID int64, q string) {
	m.state.stocks[stockKey(warehouseID, productID)] = inventory.Stock{
		WarehouseID: warehouseID,
		ProductID:   productID,
		Qty:         d(q),
	}
}

func (m *memRepo) stockQty(warehouseID, productID int64) decimal.Decimal {
	return m.state.stocks[stockKey(warehouseID, productID)].Qty
}

type memTx struct {
	orders   *memOrders
	stock    *memStock
	journals *memJournals
}

func (t *memTx) Orders() OrderStore              { return t.orders }
func (t *memTx) Stock() inventory.TxRepository   { return t.stock }
func (t *memTx) Journals() journals.TxRepository { return t.journals }

type memOrders struct {
	state *memState
	repo  *memRepo
}

func (m *memOrders) InsertOrder(ctx context.Context, o Order) (int64, error) {
	if m.repo.failInserts > 0 {
		m.repo.failInserts--
		return 0, ErrDuplicateNumber
	}
	for _, existing := range m.state.orders {
		if existing.Number == o.Number {
			return 0, ErrDuplicateNumber
		}
	}
	o.ID = m.state.nextOrderID
	m.state.nextOrderID++
	o.UpdatedAt = o.CreatedAt
	m.state.orders[o.ID] = o
	return o.ID, nil
}

func (m *memOrders) InsertProductLine(ctx context.Context, l ProductLine) (int64, error) {
	l.ID = m.state.nextRowID
	m.state.nextRowID++
	m.state.productLines = append(m.state.productLines, l)
	return l.ID, nil
}

func (m *memOrders) InsertServiceLine(ctx context.Context, l ServiceLine) (int64, error) {
	l.ID = m.state.nextRowID
	m.state.nextRowID++
	m.state.serviceLines = append(m.state.serviceLines, l)
	return l.ID, nil
}

func (m *memOrders) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	p.ID = m.state.nextRowID
	m.state.nextRowID++
	m.state.payments = append(m.state.payments, p)
	return p.ID, nil
}

func (m *memOrders) GetOrderForUpdate(ctx context.Context, id int64) (Order, error) {
	o, ok := m.state.orders[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return o, nil
}

func (m *memOrders) ListProductLines(ctx context.Context, orderID int64) ([]ProductLine, error) {
	var out []ProductLine
	for _, l := range m.state.productLines {
		if l.OrderID == orderID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memOrders) ListServiceLines(ctx context.Context, orderID int64) ([]ServiceLine, error) {
	var out []ServiceLine
	for _, l := range m.state.serviceLines {
		if l.OrderID == orderID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memOrders) ListPayments(ctx context.Context, orderID int64) ([]Payment, error) {
	var out []Payment
	for _, p := range m.state.payments {
		if p.OrderID == orderID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memOrders) UpdateStatus(ctx context.Context, id int64, status Status) error {
	o, ok := m.state.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	o.Status = status
	m.state.orders[id] = o
	return nil
}

func (m *memOrders) ZeroPayments(ctx context.Context, orderID int64) error {
	for i, p := range m.state.payments {
		if p.OrderID == orderID {
			p.Amount = decimal.Zero
			m.state.payments[i] = p
		}
	}
	return nil
}

type memStock struct {
	state *memState
}

func (m *memStock) GetStockForUpdate(ctx context.Context, warehouseID, productID int64) (inventory.Stock, error) {
	s, ok := m.state.stocks[stockKey(warehouseID, productID)]
	if !ok {
		return inventory.Stock{WarehouseID: warehouseID, ProductID: productID}, inventory.ErrStockNotFound
	}
	return s, nil
}

func (m *memStock) UpsertStock(ctx context.Context, stock inventory.Stock) error {
	m.state.stocks[stockKey(stock.WarehouseID, stock.ProductID)] = stock
	return nil
}

func (m *memStock) InsertMovement(ctx context.Context, movement inventory.Movement) (int64, error) {
	movement.ID = int64(len(m.state.movements) + 1)
	m.state.movements = append(m.state.movements, movement)
	return movement.ID, nil
}

type memJournals struct {
	state *memState
}

func (m *memJournals) InsertJournal(ctx context.Context, in journals.PostingInput) (journals.Journal, error) {
	j := journals.Journal{
		ID:           m.state.nextJournalID,
		PostedAt:     in.PostedAt,
		Label:        in.Label,
		Amount:       in.Amount,
		Tag:          in.Tag,
		Reference:    in.Reference,
		Description:  in.Description,
		EnterpriseID: in.EnterpriseID,
		UserID:       in.UserID,
	}
	m.state.nextJournalID++
	m.state.journals = append(m.state.journals, j)
	return j, nil
}

func (m *memJournals) InsertEntries(ctx context.Context, journalID int64, entries []journals.EntryInput) error {
	for i := range m.state.journals {
		if m.state.journals[i].ID != journalID {
			continue
		}
		for idx, in := range entries {
			m.state.journals[i].Entries = append(m.state.journals[i].Entries, journals.Entry{
				JournalID: journalID,
				AccountID: in.AccountID,
				Debit:     in.Debit,
				Credit:    in.Credit,
				Position:  idx + 1,
				Label:     in.Label,
			})
		}
		return nil
	}
	return fmt.Errorf("journal %d not found", journalID)
}

type memProducts map[int64]products.Product

func (m memProducts) Get(ctx context.Context, id int64) (products.Product, error) {
	p, ok := m[id]
	if !ok {
		return products.Product{}, products.ErrNotFound
	}
	return p, nil
}

func (m memProducts) GetByIDs(ctx context.Context, ids []int64) (map[int64]products.Product, error) {
	out := make(map[int64]products.Product, len(ids))
	for _, id := range ids {
		if p, ok := m[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type memServices map[int64]services.Service

func (m memServices) Get(ctx context.Context, id int64) (services.Service, error) {
	s, ok := m[id]
	if !ok {
		return services.Service{}, services.ErrNotFound
	}
	return s, nil
}

func (m memServices) GetByIDs(ctx context.Context, ids []int64) (map[int64]services.Service, error) {
	out := make(map[int64]services.Service, len(ids))
	for _, id := range ids {
		if s, ok := m[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

type memConfigRepo struct {
	cfg config.Config
	err error
}

func (m memConfigRepo) Get(ctx context.Context, posID int64) (config.Config, error) {
	if m.err != nil {
		return config.Config{}, m.err
	}
	return m.cfg, nil
}

type memAudit struct {
	logs []shared.AuditLog
}

func (m *memAudit) Record(ctx context.Context, log shared.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

type testEnv struct {
	svc   *Service
	repo  *memRepo
	audit *memAudit
}

var testNow = time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)

func newTestEnv(t *testing.T, cfg config.Config, prods memProducts, svcs memServices) *testEnv {
	t.Helper()
	repo := newMemRepo()
	audit := &memAudit{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ledger := inventory.NewLedger(logger)
	ledger.WithNow(func() time.Time { return testNow })
	writer := journals.NewWriter()
	writer.WithNow(func() time.Time { return testNow })
	svc := NewService(ServiceDeps{
		Repo:     repo,
		Products: prods,
		Services: svcs,
		Journals: repo,
		Resolver: config.NewResolver(memConfigRepo{cfg: cfg}, nil),
		Checker:  inventory.NewChecker(repo),
		Ledger:   ledger,
		Writer:   writer,
		Audit:    audit,
		Logger:   logger,
	})
	svc.WithNow(func() time.Time { return testNow })
	return &testEnv{svc: svc, repo: repo, audit: audit}
}

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func ptr(v int64) *int64 {
	return &v
}

func baseConfig() config.Config {
	return config.Config{
		POSID:                   1,
		EnterpriseID:            7,
		SaleRevenueAccountID:    701,
		CashAccountID:           571,
		ReceivableAccountID:     411,
		DiscountAccountID:       ptr(709),
		StockAssetAccountID:     ptr(31),
		StockVariationAccountID: ptr(603),
		PurchaseAccountID:       ptr(601),
		OutletWarehouseID:       ptr(5),
	}
}

func baseProducts() memProducts {
	return memProducts{
		1: {ID: 1, Code: "RIZ-25", Name: "Sac de riz", Price: d("1000"), Cost: d("600"), IsActive: true},
		2: {ID: 2, Code: "HUI-01", Name: "Bidon d'huile", Price: d("2500"), Cost: d("0"), IsActive: true},
	}
}

func baseServices() memServices {
	return memServices{
		10: {ID: 10, Code: "LIV", Name: "Livraison", Price: d("3000"), IsActive: true},
	}
}

// journalByRef asserts exactly one journal exists under the reference with
// the given tag and returns it.
func journalByRef(t *testing.T, repo *memRepo, reference string, tag journals.Tag) journals.Journal {
	t.Helper()
	found, err := repo.GetByReference(context.Background(), reference)
	require.NoError(t, err)
	var match []journals.Journal
	for _, j := range found {
		if j.Tag == tag {
			match = append(match, j)
		}
	}
	require.Len(t, match, 1, "expected one %s journal under %s", tag, reference)
	return match[0]
}

// netByAccount folds every journal entry into a per-account debit minus
// credit balance.
func netByAccount(repo *memRepo) map[int64]decimal.Decimal {
	out := make(map[int64]decimal.Decimal)
	for _, j := range repo.state.journals {
		for _, e := range j.Entries {
			out[e.AccountID] = out[e.AccountID].Add(e.Debit).Sub(e.Credit)
		}
	}
	return out
}

package memory

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/apperrors"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/interfaces"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/models"
)

var errReadOnly = errors.New("write in read-only transaction")

// MemoryStore is an in-process implementation of interfaces.Store.
// Write transactions hold the store lock for their whole duration, so they
// are serializable; every mutation records an undo step that is replayed in
// reverse if the transaction fails.
type MemoryStore struct {
	mu sync.RWMutex

	account      models.Account
	transactions []models.Transaction
	reversals    map[string]string // transaction id -> id of its reversal
	stock        map[models.StockKey]models.StockItem
	products     map[models.StockKey]models.Product
	services     map[string]models.Service
	areas        map[string]models.ProgramArea
	sales        map[string]models.Sale
	donations    map[string]models.Donation
	expenses     map[string]models.Expense
	employees    map[string]models.Employee
	payments     map[string]models.Payment
}

// NewMemoryStore creates an empty store with a zero balance.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		account:      models.Account{Balance: decimal.Zero},
		transactions: make([]models.Transaction, 0),
		reversals:    make(map[string]string),
		stock:        make(map[models.StockKey]models.StockItem),
		products:     make(map[models.StockKey]models.Product),
		services:     make(map[string]models.Service),
		areas:        make(map[string]models.ProgramArea),
		sales:        make(map[string]models.Sale),
		donations:    make(map[string]models.Donation),
		expenses:     make(map[string]models.Expense),
		employees:    make(map[string]models.Employee),
		payments:     make(map[string]models.Payment),
	}
}

func (m *MemoryStore) WithTx(ctx context.Context, fn func(tx interfaces.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Storage("begin", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTx{store: m}
	defer func() {
		if r := recover(); r != nil {
			tx.rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (m *MemoryStore) View(ctx context.Context, fn func(tx interfaces.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Storage("begin", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return fn(&memoryTx{store: m, readOnly: true})
}

type memoryTx struct {
	store    *MemoryStore
	readOnly bool
	undo     []func()
}

func (t *memoryTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *memoryTx) writable(op string) error {
	if t.readOnly {
		return apperrors.Storage(op, errReadOnly)
	}
	return nil
}

func put[K comparable, V any](t *memoryTx, m map[K]V, k K, v V) {
	prev, existed := m[k]
	m[k] = v
	t.undo = append(t.undo, func() {
		if existed {
			m[k] = prev
		} else {
			delete(m, k)
		}
	})
}

func remove[K comparable, V any](t *memoryTx, m map[K]V, k K) {
	prev, existed := m[k]
	if !existed {
		return
	}
	delete(m, k)
	t.undo = append(t.undo, func() { m[k] = prev })
}

func values[K comparable, V any](m map[K]V, less func(a, b V) int) []V {
	out := make([]V, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	slices.SortFunc(out, less)
	return out
}

func byCreated(a, b time.Time, aID, bID string) int {
	if c := a.Compare(b); c != 0 {
		return c
	}
	return strings.Compare(aID, bID)
}

// Account

func (t *memoryTx) GetAccount(_ context.Context) (models.Account, error) {
	return t.store.account, nil
}

func (t *memoryTx) LockAccount(ctx context.Context) (models.Account, error) {
	if err := t.writable("lock account"); err != nil {
		return models.Account{}, err
	}
	return t.GetAccount(ctx)
}

func (t *memoryTx) UpdateBalance(_ context.Context, balance decimal.Decimal) error {
	if err := t.writable("update balance"); err != nil {
		return err
	}
	prev := t.store.account
	t.store.account = models.Account{Balance: balance, UpdatedAt: time.Now().UTC()}
	t.undo = append(t.undo, func() { t.store.account = prev })
	return nil
}

func (t *memoryTx) InsertTransaction(_ context.Context, tr models.Transaction) error {
	if err := t.writable("insert transaction"); err != nil {
		return err
	}
	s := t.store
	n := len(s.transactions)
	s.transactions = append(s.transactions, tr)
	t.undo = append(t.undo, func() { s.transactions = s.transactions[:n] })
	if tr.ReversalOf != "" {
		put(t, s.reversals, tr.ReversalOf, tr.ID)
	}
	return nil
}

func (t *memoryTx) GetTransaction(_ context.Context, id string) (models.Transaction, error) {
	for _, tr := range t.store.transactions {
		if tr.ID == id {
			return tr, nil
		}
	}
	return models.Transaction{}, apperrors.NotFound("transaction", id)
}

func (t *memoryTx) HasReversal(_ context.Context, id string) (bool, error) {
	_, ok := t.store.reversals[id]
	return ok, nil
}

func (t *memoryTx) ListTransactions(_ context.Context) ([]models.Transaction, error) {
	copied := make([]models.Transaction, len(t.store.transactions))
	copy(copied, t.store.transactions)
	return copied, nil
}

// Stock

func (t *memoryTx) GetStock(_ context.Context, key models.StockKey) (models.StockItem, error) {
	item, ok := t.store.stock[key]
	if !ok {
		return models.StockItem{}, apperrors.NotFound("stock item", key.String())
	}
	return item, nil
}

func (t *memoryTx) EnsureStock(_ context.Context, item models.StockItem) error {
	if err := t.writable("ensure stock"); err != nil {
		return err
	}
	if _, ok := t.store.stock[item.Key()]; ok {
		return nil
	}
	put(t, t.store.stock, item.Key(), item)
	return nil
}

func (t *memoryTx) LockStock(ctx context.Context, key models.StockKey) (models.StockItem, error) {
	if err := t.writable("lock stock"); err != nil {
		return models.StockItem{}, err
	}
	return t.GetStock(ctx, key)
}

func (t *memoryTx) SaveStock(_ context.Context, item models.StockItem) error {
	if err := t.writable("save stock"); err != nil {
		return err
	}
	put(t, t.store.stock, item.Key(), item)
	return nil
}

func (t *memoryTx) DeleteStock(_ context.Context, key models.StockKey) error {
	if err := t.writable("delete stock"); err != nil {
		return err
	}
	if _, ok := t.store.stock[key]; !ok {
		return apperrors.NotFound("stock item", key.String())
	}
	remove(t, t.store.stock, key)
	return nil
}

func (t *memoryTx) ListStock(_ context.Context) ([]models.StockItem, error) {
	return values(t.store.stock, func(a, b models.StockItem) int {
		return strings.Compare(a.Key().String(), b.Key().String())
	}), nil
}

// Catalog

func (t *memoryTx) SaveProduct(_ context.Context, p models.Product) error {
	if err := t.writable("save product"); err != nil {
		return err
	}
	put(t, t.store.products, p.Key(), p)
	return nil
}

func (t *memoryTx) GetProduct(_ context.Context, key models.StockKey) (models.Product, error) {
	p, ok := t.store.products[key]
	if !ok {
		return models.Product{}, apperrors.NotFound("product", key.String())
	}
	return p, nil
}

func (t *memoryTx) DeleteProduct(_ context.Context, key models.StockKey) error {
	if err := t.writable("delete product"); err != nil {
		return err
	}
	if _, ok := t.store.products[key]; !ok {
		return apperrors.NotFound("product", key.String())
	}
	remove(t, t.store.products, key)
	return nil
}

func (t *memoryTx) ListProducts(_ context.Context) ([]models.Product, error) {
	return values(t.store.products, func(a, b models.Product) int {
		return strings.Compare(a.Key().String(), b.Key().String())
	}), nil
}

func (t *memoryTx) InsertService(_ context.Context, s models.Service) error {
	if err := t.writable("insert service"); err != nil {
		return err
	}
	put(t, t.store.services, s.ID, s)
	return nil
}

func (t *memoryTx) ListServices(_ context.Context) ([]models.Service, error) {
	return values(t.store.services, func(a, b models.Service) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	}), nil
}

// Program areas

func (t *memoryTx) EnsureProgramArea(_ context.Context, name string) error {
	if err := t.writable("ensure program area"); err != nil {
		return err
	}
	if _, ok := t.store.areas[name]; ok {
		return nil
	}
	put(t, t.store.areas, name, models.ProgramArea{
		Name:      name,
		Budget:    decimal.Zero,
		Balance:   decimal.Zero,
		UpdatedAt: time.Now().UTC(),
	})
	return nil
}

func (t *memoryTx) GetProgramArea(_ context.Context, name string) (models.ProgramArea, error) {
	a, ok := t.store.areas[name]
	if !ok {
		return models.ProgramArea{}, apperrors.NotFound("program area", name)
	}
	return a, nil
}

func (t *memoryTx) LockProgramArea(ctx context.Context, name string) (models.ProgramArea, error) {
	if err := t.writable("lock program area"); err != nil {
		return models.ProgramArea{}, err
	}
	return t.GetProgramArea(ctx, name)
}

func (t *memoryTx) SaveProgramArea(_ context.Context, area models.ProgramArea) error {
	if err := t.writable("save program area"); err != nil {
		return err
	}
	if _, ok := t.store.areas[area.Name]; !ok {
		return apperrors.NotFound("program area", area.Name)
	}
	put(t, t.store.areas, area.Name, area)
	return nil
}

func (t *memoryTx) ListProgramAreas(_ context.Context) ([]models.ProgramArea, error) {
	return values(t.store.areas, func(a, b models.ProgramArea) int {
		return strings.Compare(a.Name, b.Name)
	}), nil
}

// Sales

func (t *memoryTx) InsertSale(_ context.Context, s models.Sale) error {
	if err := t.writable("insert sale"); err != nil {
		return err
	}
	s.LineItems = slices.Clone(s.LineItems)
	put(t, t.store.sales, s.ID, s)
	return nil
}

func (t *memoryTx) GetSale(_ context.Context, id string) (models.Sale, error) {
	s, ok := t.store.sales[id]
	if !ok {
		return models.Sale{}, apperrors.NotFound("sale", id)
	}
	s.LineItems = slices.Clone(s.LineItems)
	return s, nil
}

func (t *memoryTx) DeleteSale(_ context.Context, id string) error {
	if err := t.writable("delete sale"); err != nil {
		return err
	}
	if _, ok := t.store.sales[id]; !ok {
		return apperrors.NotFound("sale", id)
	}
	remove(t, t.store.sales, id)
	return nil
}

func (t *memoryTx) ListSales(_ context.Context) ([]models.Sale, error) {
	out := values(t.store.sales, func(a, b models.Sale) int {
		return byCreated(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	})
	for i := range out {
		out[i].LineItems = slices.Clone(out[i].LineItems)
	}
	return out, nil
}

// Donations

func (t *memoryTx) InsertDonation(_ context.Context, d models.Donation) error {
	if err := t.writable("insert donation"); err != nil {
		return err
	}
	put(t, t.store.donations, d.ID, d)
	return nil
}

func (t *memoryTx) GetDonation(_ context.Context, id string) (models.Donation, error) {
	d, ok := t.store.donations[id]
	if !ok {
		return models.Donation{}, apperrors.NotFound("donation", id)
	}
	return d, nil
}

func (t *memoryTx) DeleteDonation(_ context.Context, id string) error {
	if err := t.writable("delete donation"); err != nil {
		return err
	}
	if _, ok := t.store.donations[id]; !ok {
		return apperrors.NotFound("donation", id)
	}
	remove(t, t.store.donations, id)
	return nil
}

func (t *memoryTx) ListDonations(_ context.Context) ([]models.Donation, error) {
	return values(t.store.donations, func(a, b models.Donation) int {
		return byCreated(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	}), nil
}

// Expenses

func (t *memoryTx) InsertExpense(_ context.Context, e models.Expense) error {
	if err := t.writable("insert expense"); err != nil {
		return err
	}
	put(t, t.store.expenses, e.ID, e)
	return nil
}

func (t *memoryTx) GetExpense(_ context.Context, id string) (models.Expense, error) {
	e, ok := t.store.expenses[id]
	if !ok {
		return models.Expense{}, apperrors.NotFound("expense", id)
	}
	return e, nil
}

func (t *memoryTx) DeleteExpense(_ context.Context, id string) error {
	if err := t.writable("delete expense"); err != nil {
		return err
	}
	if _, ok := t.store.expenses[id]; !ok {
		return apperrors.NotFound("expense", id)
	}
	remove(t, t.store.expenses, id)
	return nil
}

func (t *memoryTx) ListExpenses(_ context.Context) ([]models.Expense, error) {
	return values(t.store.expenses, func(a, b models.Expense) int {
		return byCreated(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	}), nil
}

// Employees

func (t *memoryTx) InsertEmployee(_ context.Context, e models.Employee) error {
	if err := t.writable("insert employee"); err != nil {
		return err
	}
	put(t, t.store.employees, e.ID, e)
	return nil
}

func (t *memoryTx) GetEmployee(_ context.Context, id string) (models.Employee, error) {
	e, ok := t.store.employees[id]
	if !ok {
		return models.Employee{}, apperrors.NotFound("employee", id)
	}
	return e, nil
}

func (t *memoryTx) ListEmployees(_ context.Context) ([]models.Employee, error) {
	return values(t.store.employees, func(a, b models.Employee) int {
		return byCreated(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	}), nil
}

// Payments

func (t *memoryTx) InsertPayment(_ context.Context, p models.Payment) error {
	if err := t.writable("insert payment"); err != nil {
		return err
	}
	put(t, t.store.payments, p.ID, p)
	return nil
}

func (t *memoryTx) GetPayment(_ context.Context, id string) (models.Payment, error) {
	p, ok := t.store.payments[id]
	if !ok {
		return models.Payment{}, apperrors.NotFound("payment", id)
	}
	return p, nil
}

func (t *memoryTx) LockPayment(ctx context.Context, id string) (models.Payment, error) {
	if err := t.writable("lock payment"); err != nil {
		return models.Payment{}, err
	}
	return t.GetPayment(ctx, id)
}

func (t *memoryTx) UpdatePayment(_ context.Context, p models.Payment) error {
	if err := t.writable("update payment"); err != nil {
		return err
	}
	if _, ok := t.store.payments[p.ID]; !ok {
		return apperrors.NotFound("payment", p.ID)
	}
	put(t, t.store.payments, p.ID, p)
	return nil
}

func (t *memoryTx) ListPayments(_ context.Context) ([]models.Payment, error) {
	return values(t.store.payments, func(a, b models.Payment) int {
		return byCreated(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	}), nil
}

// Compile-time check: ensure MemoryStore implements Store interface
var _ interfaces.Store = (*MemoryStore)(nil)
var _ interfaces.Tx = (*memoryTx)(nil)

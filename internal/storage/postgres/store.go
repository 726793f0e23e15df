package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/apperrors"
	interfaces "github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/interfaces"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/models"
)

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// PostgresStore keeps one connection pool for the life of the process. Each
// WithTx borrows a connection for the duration of its transaction.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db: db,
	}
}

// Open connects to dsn, tunes the pool and verifies the connection.
func Open(ctx context.Context, dsn string, pool PoolConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns >= 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	if pool.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewPostgresStore(db), nil
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}

// WithTx runs fn in a read-committed transaction. Rows fn mutates are locked
// with SELECT ... FOR UPDATE before they are read, so concurrent operations
// on the same rows serialize while disjoint ones proceed in parallel.
func (p *PostgresStore) WithTx(ctx context.Context, fn func(tx interfaces.Tx) error) error {
	dbTx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return apperrors.Storage("begin", err)
	}
	defer func() { _ = dbTx.Rollback() }()

	if err := fn(&pgTx{tx: dbTx}); err != nil {
		return err
	}
	if err := dbTx.Commit(); err != nil {
		return apperrors.Storage("commit", err)
	}
	return nil
}

// View runs fn in a read-only repeatable-read transaction so that every
// query sees the same snapshot.
func (p *PostgresStore) View(ctx context.Context, fn func(tx interfaces.Tx) error) error {
	dbTx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return apperrors.Storage("begin", err)
	}
	defer func() { _ = dbTx.Rollback() }()

	if err := fn(&pgTx{tx: dbTx}); err != nil {
		return err
	}
	if err := dbTx.Commit(); err != nil {
		return apperrors.Storage("commit", err)
	}
	return nil
}

type pgTx struct {
	tx *sql.Tx
}

type rowScanner interface {
	Scan(dest ...any) error
}

// classify turns a driver error into the error taxonomy.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return apperrors.InvalidState("%s: %s", op, pqErr.Message)
		case "23503": // foreign_key_violation
			return apperrors.NotFound("reference", pqErr.Constraint)
		case "23514": // check_violation
			return apperrors.Invalid(pqErr.Constraint, pqErr.Message)
		}
	}
	return apperrors.Storage(op, err)
}

func notFoundOr(op string, err error, entity, key string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound(entity, key)
	}
	return classify(op, err)
}

func (t *pgTx) execAffecting(ctx context.Context, op, entity, key, query string, args ...any) error {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return classify(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(op, err)
	}
	if n == 0 {
		return apperrors.NotFound(entity, key)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Account

const accountQuery = `SELECT balance, updated_at FROM account WHERE id = 1`

func (t *pgTx) GetAccount(ctx context.Context) (models.Account, error) {
	return t.scanAccount(ctx, accountQuery)
}

func (t *pgTx) LockAccount(ctx context.Context) (models.Account, error) {
	return t.scanAccount(ctx, accountQuery+` FOR UPDATE`)
}

func (t *pgTx) scanAccount(ctx context.Context, query string) (models.Account, error) {
	var a models.Account
	err := t.tx.QueryRowContext(ctx, query).Scan(&a.Balance, &a.UpdatedAt)
	if err != nil {
		return models.Account{}, notFoundOr("get account", err, "account", "1")
	}
	return a, nil
}

func (t *pgTx) UpdateBalance(ctx context.Context, balance decimal.Decimal) error {
	const query = `UPDATE account SET balance = $1, updated_at = now() WHERE id = 1`
	return t.execAffecting(ctx, "update balance", "account", "1", query, balance)
}

func (t *pgTx) InsertTransaction(ctx context.Context, tr models.Transaction) error {
	const query = `INSERT INTO transactions (id, kind, amount, purpose, reversal_of, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := t.tx.ExecContext(ctx, query, tr.ID, string(tr.Kind), tr.Amount, tr.Purpose, nullString(tr.ReversalOf), tr.CreatedAt)
	return classify("insert transaction", err)
}

const transactionColumns = `id, kind, amount, purpose, reversal_of, created_at`

func scanTransaction(row rowScanner) (models.Transaction, error) {
	var (
		tr         models.Transaction
		kind       string
		reversalOf sql.NullString
	)
	if err := row.Scan(&tr.ID, &kind, &tr.Amount, &tr.Purpose, &reversalOf, &tr.CreatedAt); err != nil {
		return models.Transaction{}, err
	}
	tr.Kind = models.TransactionKind(kind)
	tr.ReversalOf = reversalOf.String
	return tr, nil
}

func (t *pgTx) GetTransaction(ctx context.Context, id string) (models.Transaction, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	tr, err := scanTransaction(row)
	if err != nil {
		return models.Transaction{}, notFoundOr("get transaction", err, "transaction", id)
	}
	return tr, nil
}

func (t *pgTx) HasReversal(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := t.tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM transactions WHERE reversal_of = $1)`, id).Scan(&exists)
	if err != nil {
		return false, classify("check reversal", err)
	}
	return exists, nil
}

func (t *pgTx) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	return list(ctx, t, "list transactions", `SELECT `+transactionColumns+` FROM transactions ORDER BY seq`, scanTransaction)
}

// list runs query and scans every row with scan.
func list[T any](ctx context.Context, t *pgTx, op, query string, scan func(rowScanner) (T, error), args ...any) ([]T, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, classify(op, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}
	return out, nil
}

// Stock

const stockColumns = `product_name, product_type, quantity, price_per_unit, updated_at`

func scanStock(row rowScanner) (models.StockItem, error) {
	var s models.StockItem
	err := row.Scan(&s.ProductName, &s.ProductType, &s.Quantity, &s.PricePerUnit, &s.UpdatedAt)
	return s, err
}

func (t *pgTx) GetStock(ctx context.Context, key models.StockKey) (models.StockItem, error) {
	return t.stockRow(ctx, `SELECT `+stockColumns+` FROM stock WHERE product_name = $1 AND product_type = $2`, key)
}

func (t *pgTx) LockStock(ctx context.Context, key models.StockKey) (models.StockItem, error) {
	return t.stockRow(ctx, `SELECT `+stockColumns+` FROM stock WHERE product_name = $1 AND product_type = $2 FOR UPDATE`, key)
}

func (t *pgTx) stockRow(ctx context.Context, query string, key models.StockKey) (models.StockItem, error) {
	item, err := scanStock(t.tx.QueryRowContext(ctx, query, key.ProductName, key.ProductType))
	if err != nil {
		return models.StockItem{}, notFoundOr("get stock", err, "stock item", key.String())
	}
	return item, nil
}

func (t *pgTx) EnsureStock(ctx context.Context, item models.StockItem) error {
	const query = `INSERT INTO stock (product_name, product_type, quantity, price_per_unit, updated_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (product_name, product_type) DO NOTHING`

	_, err := t.tx.ExecContext(ctx, query, item.ProductName, item.ProductType, item.Quantity, item.PricePerUnit, item.UpdatedAt)
	return classify("ensure stock", err)
}

func (t *pgTx) SaveStock(ctx context.Context, item models.StockItem) error {
	const query = `INSERT INTO stock (product_name, product_type, quantity, price_per_unit, updated_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (product_name, product_type)
	DO UPDATE SET quantity = EXCLUDED.quantity, price_per_unit = EXCLUDED.price_per_unit, updated_at = EXCLUDED.updated_at`

	_, err := t.tx.ExecContext(ctx, query, item.ProductName, item.ProductType, item.Quantity, item.PricePerUnit, item.UpdatedAt)
	return classify("save stock", err)
}

func (t *pgTx) DeleteStock(ctx context.Context, key models.StockKey) error {
	const query = `DELETE FROM stock WHERE product_name = $1 AND product_type = $2`
	return t.execAffecting(ctx, "delete stock", "stock item", key.String(), query, key.ProductName, key.ProductType)
}

func (t *pgTx) ListStock(ctx context.Context) ([]models.StockItem, error) {
	return list(ctx, t, "list stock", `SELECT `+stockColumns+` FROM stock ORDER BY product_name, product_type`, scanStock)
}

// Catalog

func scanProduct(row rowScanner) (models.Product, error) {
	var p models.Product
	err := row.Scan(&p.Name, &p.Type, &p.BuyingPrice, &p.SellingPrice)
	return p, err
}

func (t *pgTx) SaveProduct(ctx context.Context, p models.Product) error {
	const query = `INSERT INTO products (name, type, buying_price, selling_price)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (name, type) DO UPDATE SET buying_price = EXCLUDED.buying_price, selling_price = EXCLUDED.selling_price`

	_, err := t.tx.ExecContext(ctx, query, p.Name, p.Type, p.BuyingPrice, p.SellingPrice)
	return classify("save product", err)
}

func (t *pgTx) GetProduct(ctx context.Context, key models.StockKey) (models.Product, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT name, type, buying_price, selling_price FROM products WHERE name = $1 AND type = $2`,
		key.ProductName, key.ProductType)
	p, err := scanProduct(row)
	if err != nil {
		return models.Product{}, notFoundOr("get product", err, "product", key.String())
	}
	return p, nil
}

func (t *pgTx) DeleteProduct(ctx context.Context, key models.StockKey) error {
	const query = `DELETE FROM products WHERE name = $1 AND type = $2`
	return t.execAffecting(ctx, "delete product", "product", key.String(), query, key.ProductName, key.ProductType)
}

func (t *pgTx) ListProducts(ctx context.Context) ([]models.Product, error) {
	return list(ctx, t, "list products", `SELECT name, type, buying_price, selling_price FROM products ORDER BY name, type`, scanProduct)
}

func (t *pgTx) InsertService(ctx context.Context, s models.Service) error {
	const query = `INSERT INTO services (id, name, description, price) VALUES ($1, $2, $3, $4)`
	_, err := t.tx.ExecContext(ctx, query, s.ID, s.Name, s.Description, s.Price)
	return classify("insert service", err)
}

func (t *pgTx) ListServices(ctx context.Context) ([]models.Service, error) {
	return list(ctx, t, "list services", `SELECT id, name, description, price FROM services ORDER BY name, id`,
		func(row rowScanner) (models.Service, error) {
			var s models.Service
			err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Price)
			return s, err
		})
}

// Program areas

const programAreaColumns = `name, budget, balance, updated_at`

func scanProgramArea(row rowScanner) (models.ProgramArea, error) {
	var a models.ProgramArea
	err := row.Scan(&a.Name, &a.Budget, &a.Balance, &a.UpdatedAt)
	return a, err
}

func (t *pgTx) EnsureProgramArea(ctx context.Context, name string) error {
	const query = `INSERT INTO program_areas (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`
	_, err := t.tx.ExecContext(ctx, query, name)
	return classify("ensure program area", err)
}

func (t *pgTx) GetProgramArea(ctx context.Context, name string) (models.ProgramArea, error) {
	return t.programAreaRow(ctx, `SELECT `+programAreaColumns+` FROM program_areas WHERE name = $1`, name)
}

func (t *pgTx) LockProgramArea(ctx context.Context, name string) (models.ProgramArea, error) {
	return t.programAreaRow(ctx, `SELECT `+programAreaColumns+` FROM program_areas WHERE name = $1 FOR UPDATE`, name)
}

func (t *pgTx) programAreaRow(ctx context.Context, query, name string) (models.ProgramArea, error) {
	a, err := scanProgramArea(t.tx.QueryRowContext(ctx, query, name))
	if err != nil {
		return models.ProgramArea{}, notFoundOr("get program area", err, "program area", name)
	}
	return a, nil
}

func (t *pgTx) SaveProgramArea(ctx context.Context, area models.ProgramArea) error {
	const query = `UPDATE program_areas SET budget = $2, balance = $3, updated_at = $4 WHERE name = $1`
	return t.execAffecting(ctx, "save program area", "program area", area.Name, query, area.Name, area.Budget, area.Balance, area.UpdatedAt)
}

func (t *pgTx) ListProgramAreas(ctx context.Context) ([]models.ProgramArea, error) {
	return list(ctx, t, "list program areas", `SELECT `+programAreaColumns+` FROM program_areas ORDER BY name`, scanProgramArea)
}

// Sales

const saleColumns = `id, client_name, line_items, total_amount, transaction_id, created_at`

func scanSale(row rowScanner) (models.Sale, error) {
	var (
		s     models.Sale
		items []byte
	)
	if err := row.Scan(&s.ID, &s.ClientName, &items, &s.TotalAmount, &s.TransactionID, &s.CreatedAt); err != nil {
		return models.Sale{}, err
	}
	if err := json.Unmarshal(items, &s.LineItems); err != nil {
		return models.Sale{}, err
	}
	return s, nil
}

func (t *pgTx) InsertSale(ctx context.Context, s models.Sale) error {
	items, err := json.Marshal(s.LineItems)
	if err != nil {
		return apperrors.Storage("encode line items", err)
	}
	const query = `INSERT INTO sales (id, client_name, line_items, total_amount, transaction_id, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = t.tx.ExecContext(ctx, query, s.ID, s.ClientName, string(items), s.TotalAmount, s.TransactionID, s.CreatedAt)
	return classify("insert sale", err)
}

func (t *pgTx) GetSale(ctx context.Context, id string) (models.Sale, error) {
	s, err := scanSale(t.tx.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id))
	if err != nil {
		return models.Sale{}, notFoundOr("get sale", err, "sale", id)
	}
	return s, nil
}

func (t *pgTx) DeleteSale(ctx context.Context, id string) error {
	return t.execAffecting(ctx, "delete sale", "sale", id, `DELETE FROM sales WHERE id = $1`, id)
}

func (t *pgTx) ListSales(ctx context.Context) ([]models.Sale, error) {
	return list(ctx, t, "list sales", `SELECT `+saleColumns+` FROM sales ORDER BY created_at, id`, scanSale)
}

// Donations

const donationColumns = `id, donor_name, amount, payment_method, date, project, notes, status, transaction_id, created_at`

func scanDonation(row rowScanner) (models.Donation, error) {
	var (
		d       models.Donation
		project sql.NullString
		status  string
	)
	err := row.Scan(&d.ID, &d.DonorName, &d.Amount, &d.PaymentMethod, &d.Date, &project, &d.Notes, &status, &d.TransactionID, &d.CreatedAt)
	if err != nil {
		return models.Donation{}, err
	}
	d.Project = project.String
	d.Status = models.DonationStatus(status)
	return d, nil
}

func (t *pgTx) InsertDonation(ctx context.Context, d models.Donation) error {
	const query = `INSERT INTO donations (` + donationColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := t.tx.ExecContext(ctx, query, d.ID, d.DonorName, d.Amount, d.PaymentMethod, d.Date,
		nullString(d.Project), d.Notes, string(d.Status), d.TransactionID, d.CreatedAt)
	return classify("insert donation", err)
}

func (t *pgTx) GetDonation(ctx context.Context, id string) (models.Donation, error) {
	d, err := scanDonation(t.tx.QueryRowContext(ctx, `SELECT `+donationColumns+` FROM donations WHERE id = $1`, id))
	if err != nil {
		return models.Donation{}, notFoundOr("get donation", err, "donation", id)
	}
	return d, nil
}

func (t *pgTx) DeleteDonation(ctx context.Context, id string) error {
	return t.execAffecting(ctx, "delete donation", "donation", id, `DELETE FROM donations WHERE id = $1`, id)
}

func (t *pgTx) ListDonations(ctx context.Context) ([]models.Donation, error) {
	return list(ctx, t, "list donations", `SELECT `+donationColumns+` FROM donations ORDER BY created_at, id`, scanDonation)
}

// Expenses

const expenseColumns = `id, date, person, description, cost, quantity, total, transaction_id, created_at`

func scanExpense(row rowScanner) (models.Expense, error) {
	var e models.Expense
	err := row.Scan(&e.ID, &e.Date, &e.Person, &e.Description, &e.Cost, &e.Quantity, &e.Total, &e.TransactionID, &e.CreatedAt)
	return e, err
}

func (t *pgTx) InsertExpense(ctx context.Context, e models.Expense) error {
	const query = `INSERT INTO expenses (` + expenseColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := t.tx.ExecContext(ctx, query, e.ID, e.Date, e.Person, e.Description, e.Cost, e.Quantity, e.Total, e.TransactionID, e.CreatedAt)
	return classify("insert expense", err)
}

func (t *pgTx) GetExpense(ctx context.Context, id string) (models.Expense, error) {
	e, err := scanExpense(t.tx.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id))
	if err != nil {
		return models.Expense{}, notFoundOr("get expense", err, "expense", id)
	}
	return e, nil
}

func (t *pgTx) DeleteExpense(ctx context.Context, id string) error {
	return t.execAffecting(ctx, "delete expense", "expense", id, `DELETE FROM expenses WHERE id = $1`, id)
}

func (t *pgTx) ListExpenses(ctx context.Context) ([]models.Expense, error) {
	return list(ctx, t, "list expenses", `SELECT `+expenseColumns+` FROM expenses ORDER BY created_at, id`, scanExpense)
}

// Employees

func scanEmployee(row rowScanner) (models.Employee, error) {
	var e models.Employee
	err := row.Scan(&e.ID, &e.Name, &e.Position, &e.CreatedAt)
	return e, err
}

func (t *pgTx) InsertEmployee(ctx context.Context, e models.Employee) error {
	const query = `INSERT INTO employees (id, name, position, created_at) VALUES ($1, $2, $3, $4)`
	_, err := t.tx.ExecContext(ctx, query, e.ID, e.Name, e.Position, e.CreatedAt)
	return classify("insert employee", err)
}

func (t *pgTx) GetEmployee(ctx context.Context, id string) (models.Employee, error) {
	e, err := scanEmployee(t.tx.QueryRowContext(ctx, `SELECT id, name, position, created_at FROM employees WHERE id = $1`, id))
	if err != nil {
		return models.Employee{}, notFoundOr("get employee", err, "employee", id)
	}
	return e, nil
}

func (t *pgTx) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	return list(ctx, t, "list employees", `SELECT id, name, position, created_at FROM employees ORDER BY created_at, id`, scanEmployee)
}

// Payments

const paymentColumns = `id, employee_id, amount, payment_period, payment_method, description, status, remarks, created_at, approved_at, processed_by`

func scanPayment(row rowScanner) (models.Payment, error) {
	var (
		p          models.Payment
		status     string
		approvedAt sql.NullTime
	)
	err := row.Scan(&p.ID, &p.EmployeeID, &p.Amount, &p.PaymentPeriod, &p.PaymentMethod, &p.Description,
		&status, &p.Remarks, &p.CreatedAt, &approvedAt, &p.ProcessedBy)
	if err != nil {
		return models.Payment{}, err
	}
	p.Status = models.PaymentStatus(status)
	if approvedAt.Valid {
		at := approvedAt.Time
		p.ApprovedAt = &at
	}
	return p, nil
}

func (t *pgTx) InsertPayment(ctx context.Context, p models.Payment) error {
	const query = `INSERT INTO payments (` + paymentColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := t.tx.ExecContext(ctx, query, p.ID, p.EmployeeID, p.Amount, p.PaymentPeriod, p.PaymentMethod, p.Description,
		string(p.Status), p.Remarks, p.CreatedAt, p.ApprovedAt, p.ProcessedBy)
	return classify("insert payment", err)
}

func (t *pgTx) GetPayment(ctx context.Context, id string) (models.Payment, error) {
	return t.paymentRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
}

func (t *pgTx) LockPayment(ctx context.Context, id string) (models.Payment, error) {
	return t.paymentRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, id)
}

func (t *pgTx) paymentRow(ctx context.Context, query, id string) (models.Payment, error) {
	p, err := scanPayment(t.tx.QueryRowContext(ctx, query, id))
	if err != nil {
		return models.Payment{}, notFoundOr("get payment", err, "payment", id)
	}
	return p, nil
}

func (t *pgTx) UpdatePayment(ctx context.Context, p models.Payment) error {
	const query = `UPDATE payments SET status = $2, remarks = $3, approved_at = $4, processed_by = $5 WHERE id = $1`
	return t.execAffecting(ctx, "update payment", "payment", p.ID, query, p.ID, string(p.Status), p.Remarks, p.ApprovedAt, p.ProcessedBy)
}

func (t *pgTx) ListPayments(ctx context.Context) ([]models.Payment, error) {
	return list(ctx, t, "list payments", `SELECT `+paymentColumns+` FROM payments ORDER BY created_at, id`, scanPayment)
}

var _ interfaces.Store = (*PostgresStore)(nil)
var _ interfaces.Tx = (*pgTx)(nil)

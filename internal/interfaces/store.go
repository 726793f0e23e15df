package interfaces

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/models"
)

// Store is the transaction boundary of the bookkeeping core. WithTx runs fn
// atomically: either every mutation made through tx commits or none does.
// View runs fn against a consistent read-only snapshot.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
}

// Tx groups the row access of every owner. Each component only touches its
// own segment; composite processors pass the Tx along to the owners.
type Tx interface {
	AccountTx
	StockTx
	CatalogTx
	ProgramAreaTx
	SaleTx
	DonationTx
	ExpenseTx
	EmployeeTx
	PaymentTx
}

// AccountTx is owned by the ledger.
type AccountTx interface {
	GetAccount(ctx context.Context) (models.Account, error)
	// LockAccount reads the account row and holds it until the tx ends.
	LockAccount(ctx context.Context) (models.Account, error)
	UpdateBalance(ctx context.Context, balance decimal.Decimal) error
	InsertTransaction(ctx context.Context, t models.Transaction) error
	GetTransaction(ctx context.Context, id string) (models.Transaction, error)
	HasReversal(ctx context.Context, id string) (bool, error)
	ListTransactions(ctx context.Context) ([]models.Transaction, error)
}

// StockTx is owned by the inventory tracker.
type StockTx interface {
	GetStock(ctx context.Context, key models.StockKey) (models.StockItem, error)
	// EnsureStock creates item unless a row with its key already exists.
	EnsureStock(ctx context.Context, item models.StockItem) error
	LockStock(ctx context.Context, key models.StockKey) (models.StockItem, error)
	SaveStock(ctx context.Context, item models.StockItem) error
	DeleteStock(ctx context.Context, key models.StockKey) error
	ListStock(ctx context.Context) ([]models.StockItem, error)
}

// CatalogTx holds the product and service catalog.
type CatalogTx interface {
	SaveProduct(ctx context.Context, p models.Product) error
	GetProduct(ctx context.Context, key models.StockKey) (models.Product, error)
	DeleteProduct(ctx context.Context, key models.StockKey) error
	ListProducts(ctx context.Context) ([]models.Product, error)
	InsertService(ctx context.Context, s models.Service) error
	ListServices(ctx context.Context) ([]models.Service, error)
}

// ProgramAreaTx is owned by the program area allocator.
type ProgramAreaTx interface {
	// EnsureProgramArea creates the area with zero budget and balance unless
	// it already exists.
	EnsureProgramArea(ctx context.Context, name string) error
	GetProgramArea(ctx context.Context, name string) (models.ProgramArea, error)
	LockProgramArea(ctx context.Context, name string) (models.ProgramArea, error)
	SaveProgramArea(ctx context.Context, area models.ProgramArea) error
	ListProgramAreas(ctx context.Context) ([]models.ProgramArea, error)
}

type SaleTx interface {
	InsertSale(ctx context.Context, s models.Sale) error
	GetSale(ctx context.Context, id string) (models.Sale, error)
	DeleteSale(ctx context.Context, id string) error
	ListSales(ctx context.Context) ([]models.Sale, error)
}

type DonationTx interface {
	InsertDonation(ctx context.Context, d models.Donation) error
	GetDonation(ctx context.Context, id string) (models.Donation, error)
	DeleteDonation(ctx context.Context, id string) error
	ListDonations(ctx context.Context) ([]models.Donation, error)
}

type ExpenseTx interface {
	InsertExpense(ctx context.Context, e models.Expense) error
	GetExpense(ctx context.Context, id string) (models.Expense, error)
	DeleteExpense(ctx context.Context, id string) error
	ListExpenses(ctx context.Context) ([]models.Expense, error)
}

type EmployeeTx interface {
	InsertEmployee(ctx context.Context, e models.Employee) error
	GetEmployee(ctx context.Context, id string) (models.Employee, error)
	ListEmployees(ctx context.Context) ([]models.Employee, error)
}

// PaymentTx is owned by the payment approval workflow.
type PaymentTx interface {
	InsertPayment(ctx context.Context, p models.Payment) error
	LockPayment(ctx context.Context, id string) (models.Payment, error)
	UpdatePayment(ctx context.Context, p models.Payment) error
	GetPayment(ctx context.Context, id string) (models.Payment, error)
	ListPayments(ctx context.Context) ([]models.Payment, error)
}

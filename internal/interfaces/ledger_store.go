package interfaces

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harborpay/ledger/internal/models"
)

// LedgerStore is the durable account/ledger store. Only the transaction
// coordinator mutates accounts or ledger entries, and only through a
// LedgerTx unit of work obtained from Begin.
type LedgerStore interface {
	// Begin opens an all-or-nothing unit of work with row-level locking
	// semantics (at least repeatable read).
	Begin(ctx context.Context) (LedgerTx, error)

	CreateAccount(ctx context.Context, name, currency string, initialBalance decimal.Decimal) (models.Account, error)
	GetAccount(ctx context.Context, accountID int64) (models.Account, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)

	// GetEntriesByAccount returns the account's ledger entries, newest first.
	GetEntriesByAccount(ctx context.Context, accountID int64) ([]models.LedgerEntry, error)

	// FinalizeTransaction records the terminal status of a transaction. It
	// runs on its own connection, after the unit of work has committed or
	// rolled back. If the pending row was removed by rollback the full
	// transaction is written with the terminal status, so failed attempts
	// stay auditable; a transaction already in a terminal status is never
	// moved out of it.
	FinalizeTransaction(ctx context.Context, txn models.Transaction, status models.TransactionStatus) error

	GetTransaction(ctx context.Context, transactionID uuid.UUID) (models.Transaction, error)
}

// LedgerTx is a single unit of work. LockAccounts must be called before any
// write; locks are held until Commit or Rollback releases them atomically.
type LedgerTx interface {
	// LockAccounts takes exclusive row locks on the given accounts in
	// ascending id order and returns the locked rows keyed by id. Missing
	// accounts are simply absent from the result.
	LockAccounts(ctx context.Context, accountIDs []int64) (map[int64]models.Account, error)

	// CreateTransaction inserts the pending transaction row.
	CreateTransaction(ctx context.Context, txn *models.Transaction) error

	// AppendEntry writes one immutable ledger entry and, in the same unit of
	// work, applies the signed amount to the account's stored balance.
	AppendEntry(ctx context.Context, entry models.LedgerEntry) error

	Commit() error
	Rollback() error
}

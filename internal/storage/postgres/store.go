// Package postgres implements the ledger store on PostgreSQL. Units of work
// run at REPEATABLE READ and take SELECT ... FOR UPDATE row locks on the
// accounts involved, acquired one at a time in ascending id order.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/harborpay/ledger/internal/interfaces"
	"github.com/harborpay/ledger/internal/ledger"
	"github.com/harborpay/ledger/internal/models"
)

type Store struct {
	db *sql.DB
}

// Open connects to Postgres and bounds the connection pool. Checkout beyond
// the pool capacity blocks, and a connect timeout surfaces as a plain error
// the coordinator classifies as internal.
func Open(dsn string, maxOpenConns int, connMaxLifetime time.Duration) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxOpenConns / 2)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewStore(db), nil
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Begin opens a unit of work. Repeatable read plus the explicit row locks in
// LockAccounts is what serializes two transfers debiting the same account.
func (s *Store) Begin(ctx context.Context) (interfaces.LedgerTx, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return nil, err
	}
	return &ledgerTx{tx: tx}, nil
}

func (s *Store) CreateAccount(ctx context.Context, name, currency string, initialBalance decimal.Decimal) (models.Account, error) {
	const query = `INSERT INTO accounts (name, currency, balance)
	VALUES ($1, $2, $3)
	RETURNING id, created_at`

	account := models.Account{Name: name, Currency: currency, Balance: initialBalance}
	err := s.db.QueryRowContext(ctx, query, name, currency, initialBalance).
		Scan(&account.ID, &account.CreatedAt)
	if err != nil {
		return models.Account{}, err
	}
	return account, nil
}

func (s *Store) GetAccount(ctx context.Context, accountID int64) (models.Account, error) {
	const query = `SELECT id, name, currency, balance, created_at FROM accounts WHERE id = $1`

	var account models.Account
	err := s.db.QueryRowContext(ctx, query, accountID).
		Scan(&account.ID, &account.Name, &account.Currency, &account.Balance, &account.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, ledger.ErrAccountNotFound
	}
	if err != nil {
		return models.Account{}, err
	}
	return account, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]models.Account, error) {
	const query = `SELECT id, name, currency, balance, created_at FROM accounts ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var account models.Account
		if err := rows.Scan(&account.ID, &account.Name, &account.Currency, &account.Balance, &account.CreatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (s *Store) GetEntriesByAccount(ctx context.Context, accountID int64) ([]models.LedgerEntry, error) {
	const query = `SELECT id, transaction_id, account_id, entry_type, amount, created_at
	FROM ledger_entries
	WHERE account_id = $1
	ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var entry models.LedgerEntry
		if err := rows.Scan(&entry.ID, &entry.TransactionID, &entry.AccountID, &entry.EntryType, &entry.Amount, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// FinalizeTransaction runs on the pool, never inside the unit of work. The
// upsert re-creates the row when rollback removed the pending one, so failed
// attempts stay auditable, and the status guard makes the call idempotent: a
// transaction already in a terminal status is left untouched.
func (s *Store) FinalizeTransaction(ctx context.Context, txn models.Transaction, status models.TransactionStatus) error {
	const query = `INSERT INTO transactions (id, type, source_account_id, destination_account_id, amount, currency, description, status)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status
	WHERE transactions.status = 'pending'`

	_, err := s.db.ExecContext(ctx, query,
		txn.ID, txn.Type, txn.SourceAccountID, txn.DestinationAccountID,
		txn.Amount, txn.Currency, txn.Description, status)
	return err
}

func (s *Store) GetTransaction(ctx context.Context, transactionID uuid.UUID) (models.Transaction, error) {
	const query = `SELECT id, type, source_account_id, destination_account_id, amount, currency, description, status, created_at
	FROM transactions WHERE id = $1`

	var txn models.Transaction
	err := s.db.QueryRowContext(ctx, query, transactionID).
		Scan(&txn.ID, &txn.Type, &txn.SourceAccountID, &txn.DestinationAccountID,
			&txn.Amount, &txn.Currency, &txn.Description, &txn.Status, &txn.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Transaction{}, fmt.Errorf("transaction %s not found", transactionID)
	}
	if err != nil {
		return models.Transaction{}, err
	}
	return txn, nil
}

// ledgerTx is one unit of work on a dedicated pooled connection. The
// connection is released back to the pool by Commit or Rollback on every
// exit path.
type ledgerTx struct {
	tx *sql.Tx
}

func (t *ledgerTx) LockAccounts(ctx context.Context, accountIDs []int64) (map[int64]models.Account, error) {
	const query = `SELECT id, name, currency, balance, created_at FROM accounts WHERE id = $1 FOR UPDATE`

	// One SELECT per account, in ascending id order. A single IN (...) FOR
	// UPDATE gives no ordering guarantee on lock acquisition.
	ids := slices.Clone(accountIDs)
	slices.Sort(ids)

	accounts := make(map[int64]models.Account, len(ids))
	for _, id := range ids {
		var account models.Account
		err := t.tx.QueryRowContext(ctx, query, id).
			Scan(&account.ID, &account.Name, &account.Currency, &account.Balance, &account.CreatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		accounts[id] = account
	}
	return accounts, nil
}

func (t *ledgerTx) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	const query = `INSERT INTO transactions (id, type, source_account_id, destination_account_id, amount, currency, description, status)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := t.tx.ExecContext(ctx, query,
		txn.ID, txn.Type, txn.SourceAccountID, txn.DestinationAccountID,
		txn.Amount, txn.Currency, txn.Description, txn.Status)
	return err
}

// AppendEntry inserts the immutable entry row and applies its signed amount
// to the account's stored balance in the same unit of work, so the two can
// never drift apart.
func (t *ledgerTx) AppendEntry(ctx context.Context, entry models.LedgerEntry) error {
	const insertQuery = `INSERT INTO ledger_entries (id, transaction_id, account_id, entry_type, amount, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := t.tx.ExecContext(ctx, insertQuery,
		entry.ID, entry.TransactionID, entry.AccountID, entry.EntryType, entry.Amount, entry.CreatedAt)
	if err != nil {
		return err
	}

	const balanceQuery = `UPDATE accounts SET balance = balance + $1 WHERE id = $2`

	_, err = t.tx.ExecContext(ctx, balanceQuery, entry.Signed(), entry.AccountID)
	return err
}

func (t *ledgerTx) Commit() error {
	return t.tx.Commit()
}

func (t *ledgerTx) Rollback() error {
	return t.tx.Rollback()
}

var _ interfaces.LedgerStore = (*Store)(nil)

// Package memory is an in-memory implementation of the ledger store, used by
// tests and as a no-database demo mode. It reproduces the store contract's
// locking semantics with one mutex per account, acquired in ascending id
// order and held until the unit of work commits or rolls back.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harborpay/ledger/internal/interfaces"
	"github.com/harborpay/ledger/internal/ledger"
	"github.com/harborpay/ledger/internal/models"
)

type Store struct {
	mu           sync.Mutex
	accounts     map[int64]models.Account
	entries      []models.LedgerEntry
	transactions map[uuid.UUID]models.Transaction
	nextID       int64

	lockMu       sync.Mutex
	accountLocks map[int64]*sync.Mutex
}

func NewStore() *Store {
	return &Store{
		accounts:     make(map[int64]models.Account),
		transactions: make(map[uuid.UUID]models.Transaction),
		accountLocks: make(map[int64]*sync.Mutex),
		nextID:       1,
	}
}

func (s *Store) accountLock(accountID int64) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	if _, ok := s.accountLocks[accountID]; !ok {
		s.accountLocks[accountID] = &sync.Mutex{}
	}
	return s.accountLocks[accountID]
}

func (s *Store) Begin(ctx context.Context) (interfaces.LedgerTx, error) {
	return &ledgerTx{store: s}, nil
}

func (s *Store) CreateAccount(ctx context.Context, name, currency string, initialBalance decimal.Decimal) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account := models.Account{
		ID:        s.nextID,
		Name:      name,
		Currency:  currency,
		Balance:   initialBalance,
		CreatedAt: time.Now().UTC(),
	}
	s.nextID++
	s.accounts[account.ID] = account
	return account, nil
}

func (s *Store) GetAccount(ctx context.Context, accountID int64) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return models.Account{}, ledger.ErrAccountNotFound
	}
	return account, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := make([]models.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		accounts = append(accounts, account)
	}
	return accounts, nil
}

// GetEntriesByAccount returns the account's entries newest first.
func (s *Store) GetEntriesByAccount(ctx context.Context, accountID int64) ([]models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []models.LedgerEntry
	// entries are stored in append order; walk backwards for newest first
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].AccountID == accountID {
			entries = append(entries, s.entries[i])
		}
	}
	return entries, nil
}

// FinalizeTransaction is idempotent: a transaction already in a terminal
// status keeps it. If rollback removed the pending row the transaction is
// stored with the terminal status, so failed attempts stay auditable.
func (s *Store) FinalizeTransaction(ctx context.Context, txn models.Transaction, status models.TransactionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.transactions[txn.ID]
	if ok {
		if existing.Status != models.TransactionStatusPending {
			return nil
		}
		existing.Status = status
		s.transactions[txn.ID] = existing
		return nil
	}

	txn.Status = status
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}
	s.transactions[txn.ID] = txn
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, transactionID uuid.UUID) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.transactions[transactionID]
	if !ok {
		return models.Transaction{}, fmt.Errorf("transaction %s not found", transactionID)
	}
	return txn, nil
}

// AllTransactions returns a copy of every recorded transaction.
func (s *Store) AllTransactions() []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	txns := make([]models.Transaction, 0, len(s.transactions))
	for _, txn := range s.transactions {
		txns = append(txns, txn)
	}
	return txns
}

// AllEntries returns a copy of every ledger entry, in write order.
func (s *Store) AllEntries() []models.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]models.LedgerEntry, len(s.entries))
	copy(copied, s.entries)
	return copied
}

// ledgerTx stages writes and applies them atomically on Commit, while
// holding the account mutexes taken by LockAccounts.
type ledgerTx struct {
	store *Store

	lockedIDs []int64
	staged    []models.LedgerEntry
	txn       *models.Transaction
	done      bool
}

func (t *ledgerTx) LockAccounts(ctx context.Context, accountIDs []int64) (map[int64]models.Account, error) {
	ids := make([]int64, len(accountIDs))
	copy(ids, accountIDs)
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if ids[j] < ids[i] {
				ids[i], ids[j] = ids[j], ids[i]
			}
		}
	}

	for _, id := range ids {
		t.store.accountLock(id).Lock()
		t.lockedIDs = append(t.lockedIDs, id)
	}

	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	accounts := make(map[int64]models.Account, len(ids))
	for _, id := range ids {
		if account, ok := t.store.accounts[id]; ok {
			accounts[id] = account
		}
	}
	return accounts, nil
}

func (t *ledgerTx) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	staged := *txn
	if staged.CreatedAt.IsZero() {
		staged.CreatedAt = time.Now().UTC()
	}
	t.txn = &staged
	return nil
}

func (t *ledgerTx) AppendEntry(ctx context.Context, entry models.LedgerEntry) error {
	t.staged = append(t.staged, entry)
	return nil
}

func (t *ledgerTx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.releaseLocks()

	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	if t.txn != nil {
		t.store.transactions[t.txn.ID] = *t.txn
	}
	for _, entry := range t.staged {
		t.store.entries = append(t.store.entries, entry)
		account := t.store.accounts[entry.AccountID]
		account.Balance = account.Balance.Add(entry.Signed())
		t.store.accounts[entry.AccountID] = account
	}
	return nil
}

func (t *ledgerTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.staged = nil
	t.txn = nil
	t.releaseLocks()
	return nil
}

func (t *ledgerTx) releaseLocks() {
	for i := len(t.lockedIDs) - 1; i >= 0; i-- {
		t.store.accountLock(t.lockedIDs[i]).Unlock()
	}
	t.lockedIDs = nil
}

var _ interfaces.LedgerStore = (*Store)(nil)

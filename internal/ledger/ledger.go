// Package ledger contains the transaction coordinator: the only component
// that turns transfer/deposit/withdrawal requests into committed ledger
// mutations. All writes happen inside a single unit of work with exclusive
// row locks taken in ascending account-id order.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/harborpay/ledger/internal/amount"
	"github.com/harborpay/ledger/internal/interfaces"
	"github.com/harborpay/ledger/internal/models"
	"github.com/harborpay/ledger/internal/models/events"
)

// Service coordinates the transaction lifecycle against a LedgerStore.
// The store's unit of work is the sole synchronization boundary between
// concurrent requests; the service itself holds no locks.
type Service struct {
	store  interfaces.LedgerStore
	events interfaces.EventPublisher
	log    *zap.Logger
}

func NewService(store interfaces.LedgerStore, publisher interfaces.EventPublisher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:  store,
		events: publisher,
		log:    log,
	}
}

// Result is the outcome of a committed money movement. Balance is the new
// balance of the debited account for transfers and withdrawals, and of the
// credited account for deposits.
type Result struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	Balance       decimal.Decimal `json:"balance"`
}

// Transfer moves amt from the source account to the destination account.
// Produces exactly one DEBIT entry on the source and one CREDIT entry on the
// destination, or nothing at all.
func (s *Service) Transfer(ctx context.Context, sourceID, destinationID int64, amt decimal.Decimal, currency, description string) (*Result, error) {
	if err := amount.Validate(amt); err != nil {
		return nil, err
	}
	// Rejected before any lock is taken or row created.
	if sourceID == destinationID || sourceID == 0 || destinationID == 0 {
		return nil, ErrInvalidAccount
	}
	return s.run(ctx, &models.Transaction{
		ID:                   uuid.New(),
		Type:                 models.TransactionTypeTransfer,
		SourceAccountID:      sourceID,
		DestinationAccountID: destinationID,
		Amount:               amt,
		Currency:             currency,
		Description:          description,
		Status:               models.TransactionStatusPending,
	})
}

// Deposit credits amt to the account.
func (s *Service) Deposit(ctx context.Context, accountID int64, amt decimal.Decimal, currency, description string) (*Result, error) {
	if err := amount.Validate(amt); err != nil {
		return nil, err
	}
	if accountID == 0 {
		return nil, ErrInvalidAccount
	}
	return s.run(ctx, &models.Transaction{
		ID:                   uuid.New(),
		Type:                 models.TransactionTypeDeposit,
		DestinationAccountID: accountID,
		Amount:               amt,
		Currency:             currency,
		Description:          description,
		Status:               models.TransactionStatusPending,
	})
}

// Withdraw debits amt from the account after the insufficient-funds check.
func (s *Service) Withdraw(ctx context.Context, accountID int64, amt decimal.Decimal, currency, description string) (*Result, error) {
	if err := amount.Validate(amt); err != nil {
		return nil, err
	}
	if accountID == 0 {
		return nil, ErrInvalidAccount
	}
	return s.run(ctx, &models.Transaction{
		ID:                   uuid.New(),
		Type:                 models.TransactionTypeWithdrawal,
		SourceAccountID:      accountID,
		Amount:               amt,
		Currency:             currency,
		Description:          description,
		Status:               models.TransactionStatusPending,
	})
}

// run drives a transaction through its unit of work: lock, validate, write
// entries, commit. On any failure the whole unit of work is rolled back and
// the transaction, if its row was created, is marked failed out of band.
func (s *Service) run(ctx context.Context, txn *models.Transaction) (*Result, error) {
	// A caller disconnect must not abandon held row locks mid-flight; the
	// unit of work always runs to commit or rollback.
	ctx = context.WithoutCancel(ctx)

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin unit of work: %w", err)
	}

	rowCreated := false
	balance, err := s.apply(ctx, uow, txn, &rowCreated)
	if err != nil {
		if rbErr := uow.Rollback(); rbErr != nil {
			s.log.Error("rollback failed",
				zap.String("transaction_id", txn.ID.String()),
				zap.Error(rbErr))
		}
		if rowCreated {
			s.finalize(ctx, txn, models.TransactionStatusFailed)
		}
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		// Nothing persisted, the pending row included; there is nothing to mark.
		return nil, fmt.Errorf("commit unit of work: %w", err)
	}

	// The financial effect is durable from here on. Status bookkeeping and
	// event publishing are best-effort and must not undo it.
	s.finalize(ctx, txn, models.TransactionStatusCompleted)
	s.publish(ctx, txn)

	return &Result{TransactionID: txn.ID, Balance: balance}, nil
}

// apply performs all reads and writes of the unit of work, without committing.
func (s *Service) apply(ctx context.Context, uow interfaces.LedgerTx, txn *models.Transaction, rowCreated *bool) (decimal.Decimal, error) {
	lockIDs := txn.LockOrder()
	accounts, err := uow.LockAccounts(ctx, lockIDs)
	if err != nil {
		return decimal.Zero, fmt.Errorf("lock accounts: %w", err)
	}
	for _, id := range lockIDs {
		if _, ok := accounts[id]; !ok {
			return decimal.Zero, ErrInvalidAccount
		}
	}

	// The pending row goes in before the funds check so that a rejected
	// attempt is still finalized as a failed transaction afterward.
	if err := uow.CreateTransaction(ctx, txn); err != nil {
		return decimal.Zero, fmt.Errorf("create transaction: %w", err)
	}
	*rowCreated = true

	// Balance is resolved from the locked rows, never from a read outside
	// the unit of work.
	var newBalance decimal.Decimal
	switch txn.Type {
	case models.TransactionTypeTransfer, models.TransactionTypeWithdrawal:
		source := accounts[txn.SourceAccountID]
		if source.Balance.LessThan(txn.Amount) {
			return decimal.Zero, ErrInsufficientFunds
		}
		newBalance = source.Balance.Sub(txn.Amount)
	case models.TransactionTypeDeposit:
		newBalance = accounts[txn.DestinationAccountID].Balance.Add(txn.Amount)
	default:
		return decimal.Zero, fmt.Errorf("unknown transaction type %q", txn.Type)
	}

	now := time.Now().UTC()
	for _, entry := range entriesFor(txn, now) {
		if err := uow.AppendEntry(ctx, entry); err != nil {
			return decimal.Zero, fmt.Errorf("append %s entry: %w", entry.EntryType, err)
		}
	}
	return newBalance, nil
}

// entriesFor builds the double-entry rows: a transfer debits the source and
// credits the destination for the same amount, a deposit credits only, a
// withdrawal debits only.
func entriesFor(txn *models.Transaction, now time.Time) []models.LedgerEntry {
	entry := func(accountID int64, entryType models.EntryType) models.LedgerEntry {
		return models.LedgerEntry{
			ID:            uuid.New(),
			TransactionID: txn.ID,
			AccountID:     accountID,
			EntryType:     entryType,
			Amount:        txn.Amount,
			CreatedAt:     now,
		}
	}
	switch txn.Type {
	case models.TransactionTypeTransfer:
		return []models.LedgerEntry{
			entry(txn.SourceAccountID, models.EntryTypeDebit),
			entry(txn.DestinationAccountID, models.EntryTypeCredit),
		}
	case models.TransactionTypeDeposit:
		return []models.LedgerEntry{entry(txn.DestinationAccountID, models.EntryTypeCredit)}
	case models.TransactionTypeWithdrawal:
		return []models.LedgerEntry{entry(txn.SourceAccountID, models.EntryTypeDebit)}
	}
	return nil
}

// finalize records the transaction's terminal status on a separate
// connection. Failure here never converts a committed financial effect into a
// reported failure; it is logged and left for reconciliation.
func (s *Service) finalize(ctx context.Context, txn *models.Transaction, status models.TransactionStatus) {
	if err := s.store.FinalizeTransaction(ctx, *txn, status); err != nil {
		s.log.Error("status finalization failed, left for reconciliation",
			zap.String("transaction_id", txn.ID.String()),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, txn *models.Transaction) {
	if s.events == nil {
		return
	}
	event := events.TransactionCompleted{
		TransactionID:        txn.ID,
		Type:                 string(txn.Type),
		SourceAccountID:      txn.SourceAccountID,
		DestinationAccountID: txn.DestinationAccountID,
		Amount:               txn.Amount,
		Currency:             txn.Currency,
		OccurredAt:           time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Warn("transaction event publish failed",
			zap.String("transaction_id", txn.ID.String()),
			zap.Error(err))
	}
}

// GetBalance returns the account's current stored balance.
func (s *Service) GetBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

// ListEntries returns the account's ledger entries, newest first.
func (s *Service) ListEntries(ctx context.Context, accountID int64) ([]models.LedgerEntry, error) {
	if _, err := s.store.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return s.store.GetEntriesByAccount(ctx, accountID)
}

// CreateAccount opens an account with an initial stored balance.
func (s *Service) CreateAccount(ctx context.Context, name, currency string, initialBalance decimal.Decimal) (models.Account, error) {
	if initialBalance.Sign() < 0 {
		return models.Account{}, ErrInvalidAmount
	}
	return s.store.CreateAccount(ctx, name, currency, initialBalance)
}

func (s *Service) GetAccount(ctx context.Context, accountID int64) (models.Account, error) {
	return s.store.GetAccount(ctx, accountID)
}

func (s *Service) ListAccounts(ctx context.Context) ([]models.Account, error) {
	return s.store.ListAccounts(ctx)
}

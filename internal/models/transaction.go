package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeTransfer   TransactionType = "transfer"
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Transaction represents an intent to move money. The row is created in
// pending status inside the unit of work and finalized exactly once afterward.
// SourceAccountID is 0 for deposits, DestinationAccountID is 0 for withdrawals.
type Transaction struct {
	ID                   uuid.UUID         `json:"id"`
	Type                 TransactionType   `json:"type"`
	SourceAccountID      int64             `json:"source_account_id"`
	DestinationAccountID int64             `json:"destination_account_id"`
	Amount               decimal.Decimal   `json:"amount"`
	Currency             string            `json:"currency"`
	Description          string            `json:"description"`
	Status               TransactionStatus `json:"status"`
	CreatedAt            time.Time         `json:"created_at"`
}

// LockOrder returns the account ids the transaction needs exclusive locks on,
// always in ascending id order so two concurrent transfers over the same pair
// of accounts cannot deadlock each other.
func (t *Transaction) LockOrder() []int64 {
	ids := make([]int64, 0, 2)
	switch t.Type {
	case TransactionTypeTransfer:
		if t.SourceAccountID < t.DestinationAccountID {
			ids = append(ids, t.SourceAccountID, t.DestinationAccountID)
		} else {
			ids = append(ids, t.DestinationAccountID, t.SourceAccountID)
		}
	case TransactionTypeDeposit:
		ids = append(ids, t.DestinationAccountID)
	case TransactionTypeWithdrawal:
		ids = append(ids, t.SourceAccountID)
	}
	return ids
}

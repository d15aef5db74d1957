package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionCompleted struct {
	TransactionID        uuid.UUID       `json:"transaction_id"`
	Type                 string          `json:"type"`
	SourceAccountID      int64           `json:"source_account_id"`
	DestinationAccountID int64           `json:"destination_account_id"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency"`
	OccurredAt           time.Time       `json:"occurred_at"`
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account holds a stored running balance. The balance column is only ever
// mutated inside a unit of work that also writes the matching ledger entries.
type Account struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}

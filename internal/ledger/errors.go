package ledger

import (
	"errors"

	"github.com/harborpay/ledger/internal/amount"
)

var (
	// ErrInvalidAmount is re-exported so callers can classify every ledger
	// failure against one package.
	ErrInvalidAmount = amount.ErrInvalidAmount

	// ErrInvalidAccount covers a missing account on a money movement, or a
	// transfer where source and destination are the same account.
	ErrInvalidAccount = errors.New("invalid source or destination account")

	// ErrInsufficientFunds means the debited account's balance is lower than
	// the requested amount. The unit of work is rolled back.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAccountNotFound is returned by read operations on unknown accounts.
	ErrAccountNotFound = errors.New("account not found")
)

// IsClientError reports whether err maps to a caller mistake rather than an
// internal failure. Anything else surfacing from a unit of work is internal
// and must be surfaced opaquely.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidAccount) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrAccountNotFound)
}

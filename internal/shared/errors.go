package shared

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates missing or malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates concurrent-update contention; safe to retry.
	ErrConflict = errors.New("concurrent update conflict")
	// ErrInsufficientStock indicates the stock collaborator rejected a reserve/deduct.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrSequenceUnavailable indicates the sequence counter store failed.
	ErrSequenceUnavailable = errors.New("sequence counter unavailable")
)

// InvalidTransitionError reports a rejected state-machine transition with the
// unmet guard, so handlers can render a user-facing message.
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
	Guard  string
}

func (e *InvalidTransitionError) Error() string {
	if e.Guard == "" {
		return fmt.Sprintf("%s: cannot transition from %s to %s", e.Entity, e.From, e.To)
	}
	return fmt.Sprintf("%s: cannot transition from %s to %s: %s", e.Entity, e.From, e.To, e.Guard)
}

// NewInvalidTransition builds an InvalidTransitionError.
func NewInvalidTransition(entity, from, to, guard string) error {
	return &InvalidTransitionError{Entity: entity, From: from, To: to, Guard: guard}
}

// CreditLimitExceededError reports a failed credit check.
type CreditLimitExceededError struct {
	CustomerID int64
	Limit      decimal.Decimal
	Balance    decimal.Decimal
	Requested  decimal.Decimal
}

func (e *CreditLimitExceededError) Error() string {
	return fmt.Sprintf("customer %d: credit limit exceeded: balance %s + requested %s > limit %s",
		e.CustomerID, e.Balance, e.Requested, e.Limit)
}

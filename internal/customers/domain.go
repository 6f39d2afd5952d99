package customers

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pharmaflow/pharmaflow/internal/shared"
)

// CreditLimitType controls whether a customer's debt is capped.
type CreditLimitType string

const (
	CreditUnlimited CreditLimitType = "unlimited"
	CreditLimited   CreditLimitType = "limited"
)

// IsValid checks if the credit limit type is known.
func (t CreditLimitType) IsValid() bool {
	return t == CreditUnlimited || t == CreditLimited
}

// PaymentTerms enumerates how a customer settles wholesale orders.
type PaymentTerms string

const (
	PayNow   PaymentTerms = "pay_now"
	PayLater PaymentTerms = "pay_later"
)

// IsValid checks if the payment terms value is known.
func (t PaymentTerms) IsValid() bool {
	return t == PayNow || t == PayLater
}

// Customer is a wholesale buyer. CurrentBalance is the amount the customer
// owes the business; it grows when pay_later orders are confirmed and
// shrinks when payments complete.
type Customer struct {
	ID               int64           `json:"id" db:"id"`
	Code             string          `json:"code" db:"code"`
	Name             string          `json:"name" db:"name"`
	Email            *string         `json:"email,omitempty" db:"email"`
	Phone            *string         `json:"phone,omitempty" db:"phone"`
	TaxID            *string         `json:"tax_id,omitempty" db:"tax_id"`
	CreditLimitType  CreditLimitType `json:"credit_limit_type" db:"credit_limit_type"`
	CreditLimit      decimal.Decimal `json:"credit_limit" db:"credit_limit"`
	CurrentBalance   decimal.Decimal `json:"current_balance" db:"current_balance"`
	PaymentTerms     PaymentTerms    `json:"payment_terms" db:"payment_terms"`
	PaymentTermsDays int             `json:"payment_terms_days" db:"payment_terms_days"`
	AddressLine1     *string         `json:"address_line1,omitempty" db:"address_line1"`
	City             *string         `json:"city,omitempty" db:"city"`
	Country          string          `json:"country" db:"country"`
	IsActive         bool            `json:"is_active" db:"is_active"`
	Notes            *string         `json:"notes,omitempty" db:"notes"`
	CreatedBy        int64           `json:"created_by" db:"created_by"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// CreditAccount is the slice of customer state the credit rule needs.
// Workflow repositories scan it under a row lock instead of loading the
// whole customer.
type CreditAccount struct {
	ID              int64
	CreditLimitType CreditLimitType
	CreditLimit     decimal.Decimal
	CurrentBalance  decimal.Decimal
}

// CreditAccount projects the customer's credit state.
func (c *Customer) CreditAccount() CreditAccount {
	return CreditAccount{
		ID:              c.ID,
		CreditLimitType: c.CreditLimitType,
		CreditLimit:     c.CreditLimit,
		CurrentBalance:  c.CurrentBalance,
	}
}

// CheckCredit decides whether taking on amount of additional debt stays
// within the customer's limit. The single place the credit rule lives;
// callers run it against a row-locked customer so two concurrent confirms
// cannot both pass on the same headroom.
func CheckCredit(acct *CreditAccount, amount decimal.Decimal) error {
	if acct.CreditLimitType != CreditLimited {
		return nil
	}
	if acct.CurrentBalance.Add(amount).GreaterThan(acct.CreditLimit) {
		return &shared.CreditLimitExceededError{
			CustomerID: acct.ID,
			Limit:      acct.CreditLimit,
			Balance:    acct.CurrentBalance,
			Requested:  amount,
		}
	}
	return nil
}

// AvailableCredit returns the remaining headroom, nil for unlimited accounts.
func AvailableCredit(acct *CreditAccount) *decimal.Decimal {
	if acct.CreditLimitType != CreditLimited {
		return nil
	}
	v := acct.CreditLimit.Sub(acct.CurrentBalance)
	return &v
}

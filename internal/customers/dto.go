package customers

import "github.com/shopspring/decimal"

type CreateCustomerRequest struct {
	Code             string          `json:"code" validate:"required,max=50"`
	Name             string          `json:"name" validate:"required,max=200"`
	Email            *string         `json:"email,omitempty" validate:"omitempty,email"`
	Phone            *string         `json:"phone,omitempty" validate:"omitempty,max=50"`
	TaxID            *string         `json:"tax_id,omitempty" validate:"omitempty,max=50"`
	CreditLimitType  CreditLimitType `json:"credit_limit_type" validate:"required,oneof=unlimited limited"`
	CreditLimit      decimal.Decimal `json:"credit_limit"`
	PaymentTerms     PaymentTerms    `json:"payment_terms" validate:"required,oneof=pay_now pay_later"`
	PaymentTermsDays int             `json:"payment_terms_days" validate:"gte=0,lte=365"`
	AddressLine1     *string         `json:"address_line1,omitempty" validate:"omitempty,max=200"`
	City             *string         `json:"city,omitempty" validate:"omitempty,max=100"`
	Country          string          `json:"country" validate:"required,len=2"`
	Notes            *string         `json:"notes,omitempty"`
}

type UpdateCustomerRequest struct {
	Name             *string          `json:"name,omitempty" validate:"omitempty,max=200"`
	Email            *string          `json:"email,omitempty" validate:"omitempty,email"`
	Phone            *string          `json:"phone,omitempty" validate:"omitempty,max=50"`
	TaxID            *string          `json:"tax_id,omitempty"`
	CreditLimitType  *CreditLimitType `json:"credit_limit_type,omitempty" validate:"omitempty,oneof=unlimited limited"`
	CreditLimit      *decimal.Decimal `json:"credit_limit,omitempty"`
	PaymentTerms     *PaymentTerms    `json:"payment_terms,omitempty" validate:"omitempty,oneof=pay_now pay_later"`
	PaymentTermsDays *int             `json:"payment_terms_days,omitempty" validate:"omitempty,gte=0,lte=365"`
	AddressLine1     *string          `json:"address_line1,omitempty"`
	City             *string          `json:"city,omitempty"`
	Country          *string          `json:"country,omitempty" validate:"omitempty,len=2"`
	IsActive         *bool            `json:"is_active,omitempty"`
	Notes            *string          `json:"notes,omitempty"`
}

type ListCustomersRequest struct {
	IsActive *bool   `json:"is_active,omitempty"`
	Search   *string `json:"search,omitempty"`
	Limit    int     `json:"limit" validate:"gte=0,lte=1000"`
	Offset   int     `json:"offset" validate:"gte=0"`
}

// CreditStatus is the read-side view of a customer's credit position.
type CreditStatus struct {
	CustomerID      int64            `json:"customer_id"`
	CreditLimitType CreditLimitType  `json:"credit_limit_type"`
	CreditLimit     decimal.Decimal  `json:"credit_limit"`
	CurrentBalance  decimal.Decimal  `json:"current_balance"`
	AvailableCredit *decimal.Decimal `json:"available_credit,omitempty"`
}

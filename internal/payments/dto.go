package payments

import "github.com/shopspring/decimal"

// RecordPaymentRequest opens a payment. Order-linked payments take an
// order_id and inherit the customer; standalone debt payments take a
// customer_id instead and pay the running balance down directly.
type RecordPaymentRequest struct {
	OrderID    *int64          `json:"order_id" validate:"omitempty,gt=0"`
	CustomerID int64           `json:"customer_id" validate:"omitempty,gt=0"`
	Amount     decimal.Decimal `json:"amount" validate:"required"`
	Method     string          `json:"method" validate:"required,oneof=cash bank_transfer card cheque mobile_money"`
	Category   string          `json:"category" validate:"omitempty,oneof=full partial debt_mark debt_payment"`
	Reference  string          `json:"reference" validate:"omitempty,uuid4"`
	Notes      string          `json:"notes" validate:"max=2000"`
}

type FailPaymentRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type ListPaymentsRequest struct {
	OrderID    int64  `json:"order_id"`
	CustomerID int64  `json:"customer_id"`
	Status     string `json:"status"`
	Page       int    `json:"page"`
	PerPage    int    `json:"per_page"`
}

package payments

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pharmaflow/pharmaflow/internal/shared"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
	StatusCancelled Status = "cancelled"
)

type Method string

const (
	MethodCash         Method = "cash"
	MethodBankTransfer Method = "bank_transfer"
	MethodCard         Method = "card"
	MethodCheque       Method = "cheque"
	MethodMobileMoney  Method = "mobile_money"
)

func (m Method) IsValid() bool {
	switch m {
	case MethodCash, MethodBankTransfer, MethodCard, MethodCheque, MethodMobileMoney:
		return true
	}
	return false
}

// Category says what a payment means for the books. full and partial
// settle an order with real money; debt_mark acknowledges an order's
// balance as customer debt without any money moving; debt_payment pays
// accumulated debt down directly, with no order attached.
type Category string

const (
	CategoryFull        Category = "full"
	CategoryPartial     Category = "partial"
	CategoryDebtMark    Category = "debt_mark"
	CategoryDebtPayment Category = "debt_payment"
)

func (c Category) IsValid() bool {
	switch c {
	case CategoryFull, CategoryPartial, CategoryDebtMark, CategoryDebtPayment:
		return true
	}
	return false
}

type Payment struct {
	ID             int64           `json:"id"`
	PaymentNumber  string          `json:"payment_number"`
	OrderID        *int64          `json:"order_id,omitempty"`
	CustomerID     int64           `json:"customer_id"`
	Amount         decimal.Decimal `json:"amount"`
	AmountReceived decimal.Decimal `json:"amount_received"`
	Method         Method          `json:"method"`
	Category       Category        `json:"category"`
	Status         Status          `json:"status"`
	Reference      string          `json:"reference"`
	ReceiptNumber  *string         `json:"receipt_number,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	ProcessedBy    int64           `json:"processed_by"`
	ProcessedAt    *time.Time      `json:"processed_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

var paymentTransitions = map[Status][]Status{
	StatusPending:   {StatusCompleted, StatusFailed, StatusCancelled},
	StatusCompleted: {StatusRefunded},
}

// Transition validates and applies a payment status change in memory.
func (p *Payment) Transition(next Status) error {
	for _, t := range paymentTransitions[p.Status] {
		if t == next {
			p.Status = next
			return nil
		}
	}
	return shared.NewInvalidTransition("payment", string(p.Status), string(next), "")
}

package finance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pharmaflow/pharmaflow/internal/shared"
)

type ActivityType string

const (
	TypeIncome     ActivityType = "income"
	TypeExpense    ActivityType = "expense"
	TypeRefund     ActivityType = "refund"
	TypeAdjustment ActivityType = "adjustment"
)

func (t ActivityType) IsValid() bool {
	switch t {
	case TypeIncome, TypeExpense, TypeRefund, TypeAdjustment:
		return true
	}
	return false
}

type ActivityStatus string

const (
	StatusPending  ActivityStatus = "pending"
	StatusApproved ActivityStatus = "approved"
	StatusRejected ActivityStatus = "rejected"
)

// Activity is a single income or expense entry in the financial ledger.
// Only approved entries count toward the profit figures.
type Activity struct {
	ID            int64           `json:"id"`
	TransactionID string          `json:"transaction_id"`
	Type          ActivityType    `json:"type"`
	Category      string          `json:"category"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description,omitempty"`
	Status        ActivityStatus  `json:"status"`
	ActivityDate  time.Time       `json:"activity_date"`
	OrderID       *int64          `json:"order_id,omitempty"`
	CreatedBy     int64           `json:"created_by"`
	ApprovedBy    *int64          `json:"approved_by,omitempty"`
	ApprovedAt    *time.Time      `json:"approved_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Approve resolves a pending entry. Approval decisions are final.
func (a *Activity) Approve(approverID int64, at time.Time) error {
	if a.Status != StatusPending {
		return shared.NewInvalidTransition("financial activity", string(a.Status), string(StatusApproved), "only pending entries can be approved")
	}
	a.Status = StatusApproved
	a.ApprovedBy = &approverID
	a.ApprovedAt = &at
	return nil
}

// Reject resolves a pending entry. Rejection decisions are final.
func (a *Activity) Reject(approverID int64, at time.Time) error {
	if a.Status != StatusPending {
		return shared.NewInvalidTransition("financial activity", string(a.Status), string(StatusRejected), "only pending entries can be rejected")
	}
	a.Status = StatusRejected
	a.ApprovedBy = &approverID
	a.ApprovedAt = &at
	return nil
}

// Summary aggregates approved ledger entries over a period.
type Summary struct {
	From             time.Time       `json:"from"`
	To               time.Time       `json:"to"`
	TotalIncome      decimal.Decimal `json:"total_income"`
	TotalExpenses    decimal.Decimal `json:"total_expenses"`
	TotalRefunds     decimal.Decimal `json:"total_refunds"`
	TotalAdjustments decimal.Decimal `json:"total_adjustments"`
	NetProfit        decimal.Decimal `json:"net_profit"`
	ProfitMargin     decimal.Decimal `json:"profit_margin"`
}

// Summarize folds approved entries into period totals. Refunds count
// against profit like expenses do; adjustments carry a sign of their own
// and add in as written. Margin is zero when there is no income, not an
// error.
func Summarize(entries []Activity, from, to time.Time) Summary {
	s := Summary{
		From:             from,
		To:               to,
		TotalIncome:      decimal.Zero,
		TotalExpenses:    decimal.Zero,
		TotalRefunds:     decimal.Zero,
		TotalAdjustments: decimal.Zero,
	}
	for _, a := range entries {
		if a.Status != StatusApproved {
			continue
		}
		switch a.Type {
		case TypeIncome:
			s.TotalIncome = s.TotalIncome.Add(a.Amount)
		case TypeExpense:
			s.TotalExpenses = s.TotalExpenses.Add(a.Amount)
		case TypeRefund:
			s.TotalRefunds = s.TotalRefunds.Add(a.Amount)
		case TypeAdjustment:
			s.TotalAdjustments = s.TotalAdjustments.Add(a.Amount)
		}
	}
	s.NetProfit = s.TotalIncome.Sub(s.TotalExpenses).Sub(s.TotalRefunds).Add(s.TotalAdjustments)
	if s.TotalIncome.IsPositive() {
		s.ProfitMargin = s.NetProfit.Div(s.TotalIncome).Mul(decimal.NewFromInt(100)).Round(2)
	} else {
		s.ProfitMargin = decimal.Zero
	}
	return s
}

package finance

import (
	"time"

	"github.com/shopspring/decimal"
)

type RecordActivityRequest struct {
	Type            string          `json:"type" validate:"required,oneof=income expense refund adjustment"`
	Category        string          `json:"category" validate:"required,max=100"`
	Amount          decimal.Decimal `json:"amount" validate:"required"`
	Description     string          `json:"description" validate:"max=2000"`
	ActivityDate    time.Time       `json:"activity_date"`
	OrderID         *int64          `json:"order_id" validate:"omitempty,gt=0"`
	RequireApproval bool            `json:"require_approval"`
}

type ListActivitiesRequest struct {
	Type     string     `json:"type"`
	Status   string     `json:"status"`
	Category string     `json:"category"`
	From     *time.Time `json:"from"`
	To       *time.Time `json:"to"`
	Page     int        `json:"page"`
	PerPage  int        `json:"per_page"`
}

package summary

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatusBucket is one slice of the order book: how many orders sit in a
// status and what they are worth.
type StatusBucket struct {
	Status     string          `json:"status"`
	Count      int64           `json:"count"`
	TotalValue decimal.Decimal `json:"total_value"`
}

type OverdueOrder struct {
	OrderID     int64           `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	CustomerID  int64           `json:"customer_id"`
	BalanceDue  decimal.Decimal `json:"balance_due"`
	DueDate     time.Time       `json:"due_date"`
	DaysOverdue int64           `json:"days_overdue"`
}

type OverdueDelivery struct {
	DeliveryID     int64     `json:"delivery_id"`
	DeliveryNumber string    `json:"delivery_number"`
	OrderID        int64     `json:"order_id"`
	Status         string    `json:"status"`
	ScheduledDate  time.Time `json:"scheduled_date"`
}

// Dashboard is the operational snapshot served to the front desk.
type Dashboard struct {
	GeneratedAt       time.Time         `json:"generated_at"`
	OrdersByStatus    []StatusBucket    `json:"orders_by_status"`
	OverdueOrders     []OverdueOrder    `json:"overdue_orders"`
	OverdueDeliveries []OverdueDelivery `json:"overdue_deliveries"`
	OpenBalance       decimal.Decimal   `json:"open_balance"`
	PaymentsToday     decimal.Decimal   `json:"payments_today"`
}

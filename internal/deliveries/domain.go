package deliveries

import (
	"time"

	"github.com/pharmaflow/pharmaflow/internal/shared"
)

type Status string

const (
	StatusScheduled      Status = "scheduled"
	StatusInTransit      Status = "in_transit"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusFailed         Status = "failed"
	StatusReturned       Status = "returned"
	StatusCancelled      Status = "cancelled"
)

// Cancellation and return are open while the goods can still turn around,
// from scheduled or in_transit. Once the courier is out on the doorstep
// leg only delivered, failed or returned remain.
var deliveryTransitions = map[Status][]Status{
	StatusScheduled:      {StatusInTransit, StatusFailed, StatusCancelled, StatusReturned},
	StatusInTransit:      {StatusOutForDelivery, StatusDelivered, StatusFailed, StatusCancelled, StatusReturned},
	StatusOutForDelivery: {StatusDelivered, StatusFailed, StatusReturned},
	StatusFailed:         {StatusScheduled},
}

type Delivery struct {
	ID                int64      `json:"id"`
	DeliveryNumber    string     `json:"delivery_number"`
	OrderID           int64      `json:"order_id"`
	CustomerID        int64      `json:"customer_id"`
	Status            Status     `json:"status"`
	CourierName       string     `json:"courier_name"`
	CourierPhone      string     `json:"courier_phone,omitempty"`
	Address           string     `json:"address"`
	ScheduledDate     time.Time  `json:"scheduled_date"`
	DeliveredAt       *time.Time `json:"delivered_at,omitempty"`
	IsPartialDelivery bool       `json:"is_partial_delivery"`
	Notes             string     `json:"notes,omitempty"`
	CreatedBy         int64      `json:"created_by"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Transition validates and applies a delivery status change in memory.
func (dl *Delivery) Transition(next Status) error {
	for _, t := range deliveryTransitions[dl.Status] {
		if t == next {
			dl.Status = next
			return nil
		}
	}
	return shared.NewInvalidTransition("delivery", string(dl.Status), string(next), "")
}

// IsOverdue reports whether the scheduled date has passed while the
// goods are still waiting for the doorstep leg. A delivery already out
// for delivery, or one that ended, is not overdue.
func (dl *Delivery) IsOverdue(now time.Time) bool {
	if dl.Status != StatusScheduled && dl.Status != StatusInTransit {
		return false
	}
	return now.After(dl.ScheduledDate)
}

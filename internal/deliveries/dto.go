package deliveries

import "time"

type ScheduleDeliveryRequest struct {
	OrderID           int64     `json:"order_id" validate:"required,gt=0"`
	CourierName       string    `json:"courier_name" validate:"required,max=255"`
	CourierPhone      string    `json:"courier_phone" validate:"max=50"`
	Address           string    `json:"address" validate:"required,max=1000"`
	ScheduledDate     time.Time `json:"scheduled_date" validate:"required"`
	IsPartialDelivery bool      `json:"is_partial_delivery"`
	Notes             string    `json:"notes" validate:"max=2000"`
}

type FailDeliveryRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type RescheduleRequest struct {
	ScheduledDate time.Time `json:"scheduled_date" validate:"required"`
	CourierName   string    `json:"courier_name" validate:"omitempty,max=255"`
}

type ListDeliveriesRequest struct {
	Status  string `json:"status"`
	OrderID int64  `json:"order_id"`
	Page    int    `json:"page"`
	PerPage int    `json:"per_page"`
}

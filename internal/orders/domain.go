package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pharmaflow/pharmaflow/internal/shared"
)

type OrderStatus string

const (
	StatusDraft              OrderStatus = "draft"
	StatusPendingPayment     OrderStatus = "pending_payment"
	StatusConfirmed          OrderStatus = "confirmed"
	StatusProcessing         OrderStatus = "processing"
	StatusReadyForDelivery   OrderStatus = "ready_for_delivery"
	StatusAssignedToDelivery OrderStatus = "assigned_to_delivery"
	StatusOutForDelivery     OrderStatus = "out_for_delivery"
	StatusDelivered          OrderStatus = "delivered"
	StatusPickedByCustomer   OrderStatus = "picked_by_customer"
	StatusCompleted          OrderStatus = "completed"
	StatusCancelled          OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
	PaymentOverdue PaymentStatus = "overdue"
)

type DeliveryType string

const (
	DeliveryTypeDelivery DeliveryType = "delivery"
	DeliveryTypePickup   DeliveryType = "pickup"
)

// transitions is the forward edge set of the order lifecycle. Cancellation
// is handled separately because it carries its own guards.
var transitions = map[OrderStatus][]OrderStatus{
	StatusDraft:              {StatusPendingPayment, StatusConfirmed},
	StatusPendingPayment:     {StatusConfirmed},
	StatusConfirmed:          {StatusProcessing},
	StatusProcessing:         {StatusReadyForDelivery},
	StatusReadyForDelivery:   {StatusAssignedToDelivery, StatusPickedByCustomer},
	StatusAssignedToDelivery: {StatusOutForDelivery, StatusDelivered},
	StatusOutForDelivery:     {StatusDelivered},
	StatusDelivered:          {StatusCompleted},
	StatusPickedByCustomer:   {StatusCompleted},
}

// cancellableFrom holds the states an order may still be cancelled from.
// Once goods are with a courier or the customer, cancellation is closed off.
var cancellableFrom = map[OrderStatus]bool{
	StatusDraft:            true,
	StatusPendingPayment:   true,
	StatusConfirmed:        true,
	StatusProcessing:       true,
	StatusReadyForDelivery: true,
}

func (s OrderStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusPendingPayment, StatusConfirmed, StatusProcessing,
		StatusReadyForDelivery, StatusAssignedToDelivery, StatusOutForDelivery,
		StatusDelivered, StatusPickedByCustomer, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the edge from s to next exists in the
// lifecycle graph, ignoring guards that depend on order state.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions leave s.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s OrderStatus) IsCancellable() bool {
	return cancellableFrom[s]
}

type Order struct {
	ID          int64        `json:"id"`
	OrderNumber string       `json:"order_number"`
	CustomerID  int64        `json:"customer_id"`

	Status        OrderStatus   `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	DeliveryType  DeliveryType  `json:"delivery_type"`

	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	ShippingCost   decimal.Decimal `json:"shipping_cost"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	BalanceDue     decimal.Decimal `json:"balance_due"`

	PaymentTerms string     `json:"payment_terms"`
	DueDate      *time.Time `json:"due_date,omitempty"`

	OrderDate            time.Time  `json:"order_date"`
	ExpectedDeliveryDate *time.Time `json:"expected_delivery_date,omitempty"`
	ActualDeliveryDate   *time.Time `json:"actual_delivery_date,omitempty"`

	IsInvoiced          bool    `json:"is_invoiced"`
	InvoiceNumber       *string `json:"invoice_number,omitempty"`
	IsPaymentProcessed  bool    `json:"is_payment_processed"`
	IsDeliveryScheduled bool    `json:"is_delivery_scheduled"`
	IsDelivered         bool    `json:"is_delivered"`
	InventoryReserved   bool    `json:"inventory_reserved"`
	InventoryDeducted   bool    `json:"inventory_deducted"`

	Notes     string     `json:"notes,omitempty"`
	CreatedBy int64      `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Items     []OrderItem `json:"items,omitempty"`
}

type OrderItem struct {
	ID          int64  `json:"id"`
	OrderID     int64  `json:"order_id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`

	Quantity          decimal.Decimal `json:"quantity"`
	QuantityDelivered decimal.Decimal `json:"quantity_delivered"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	WholesalePrice    decimal.Decimal `json:"wholesale_price"`
	DiscountPercent   decimal.Decimal `json:"discount_percent"`
	TaxPercent        decimal.Decimal `json:"tax_percent"`

	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	Total          decimal.Decimal `json:"total"`
}

// Transition validates and applies a status change in memory. Guards that
// need external state (payment, stock) live in the service layer.
func (o *Order) Transition(next OrderStatus) error {
	if next == StatusCancelled {
		if !o.Status.IsCancellable() {
			return shared.NewInvalidTransition("order", string(o.Status), string(next), "order can no longer be cancelled")
		}
		o.Status = next
		return nil
	}
	if !o.Status.CanTransitionTo(next) {
		return shared.NewInvalidTransition("order", string(o.Status), string(next), "")
	}
	o.Status = next
	return nil
}

// PayLater reports whether the order was placed on credit terms.
func (o *Order) PayLater() bool {
	return o.PaymentTerms == "pay_later"
}

// IsPaid reports whether the order has been paid in full.
func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentPaid
}

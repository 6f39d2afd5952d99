package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderItemInput struct {
	ProductID       int64           `json:"product_id" validate:"required,gt=0"`
	ProductName     string          `json:"product_name" validate:"required,max=255"`
	Quantity        decimal.Decimal `json:"quantity" validate:"required"`
	UnitPrice       decimal.Decimal `json:"unit_price" validate:"required"`
	WholesalePrice  decimal.Decimal `json:"wholesale_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	TaxPercent      decimal.Decimal `json:"tax_percent"`
}

type CreateOrderRequest struct {
	CustomerID           int64            `json:"customer_id" validate:"required,gt=0"`
	DeliveryType         string           `json:"delivery_type" validate:"required,oneof=delivery pickup"`
	PaymentTerms         string           `json:"payment_terms" validate:"required,oneof=pay_now pay_later"`
	ShippingCost         decimal.Decimal  `json:"shipping_cost"`
	ExpectedDeliveryDate *time.Time       `json:"expected_delivery_date"`
	Notes                string           `json:"notes" validate:"max=2000"`
	Items                []OrderItemInput `json:"items" validate:"dive"`
}

type UpdateOrderRequest struct {
	DeliveryType         *string          `json:"delivery_type" validate:"omitempty,oneof=delivery pickup"`
	ShippingCost         *decimal.Decimal `json:"shipping_cost"`
	ExpectedDeliveryDate *time.Time       `json:"expected_delivery_date"`
	Notes                *string          `json:"notes" validate:"omitempty,max=2000"`
	Items                []OrderItemInput `json:"items" validate:"omitempty,dive"`
}

type TransitionRequest struct {
	Status string `json:"status" validate:"required"`
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type ListOrdersRequest struct {
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	CustomerID    int64  `json:"customer_id"`
	Page          int    `json:"page"`
	PerPage       int    `json:"per_page"`
}

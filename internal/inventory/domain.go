package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockLevel tracks on-hand and reserved quantity for a product.
type StockLevel struct {
	ProductID   int64           `json:"product_id" db:"product_id"`
	ProductName string          `json:"product_name" db:"product_name"`
	OnHand      decimal.Decimal `json:"on_hand" db:"on_hand"`
	Reserved    decimal.Decimal `json:"reserved" db:"reserved"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// Available is the quantity that can still be promised to new orders.
func (s StockLevel) Available() decimal.Decimal {
	return s.OnHand.Sub(s.Reserved)
}

// MovementType enumerates stock movement reasons.
type MovementType string

const (
	MovementReserve MovementType = "reserve"
	MovementRelease MovementType = "release"
	MovementDeduct  MovementType = "deduct"
	MovementReceive MovementType = "receive"
)

// StockMovement is an append-only audit record of a stock change.
type StockMovement struct {
	ID            int64           `json:"id" db:"id"`
	ProductID     int64           `json:"product_id" db:"product_id"`
	Type          MovementType    `json:"type" db:"type"`
	Quantity      decimal.Decimal `json:"quantity" db:"quantity"`
	ReferenceType string          `json:"reference_type" db:"reference_type"`
	ReferenceID   int64           `json:"reference_id" db:"reference_id"`
	ActorID       int64           `json:"actor_id" db:"actor_id"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ComputeItem recalculates the money columns of a line item from its
// quantity, unit price and percentages. Subtotal is gross; the discount
// applies to the gross, and tax applies to the discounted amount.
func ComputeItem(it *OrderItem) {
	it.Subtotal = it.Quantity.Mul(it.UnitPrice)
	it.DiscountAmount = it.Subtotal.Mul(it.DiscountPercent).Div(hundred)
	taxable := it.Subtotal.Sub(it.DiscountAmount)
	it.TaxAmount = taxable.Mul(it.TaxPercent).Div(hundred)
	it.Total = taxable.Add(it.TaxAmount)
}

// SumTotals recomputes an order's money aggregates from its items. Tax and
// discount roll up from the line items; shipping is the only order-level
// input. This is the only place order money aggregates are computed.
func SumTotals(o *Order) {
	subtotal, tax, discount := decimal.Zero, decimal.Zero, decimal.Zero
	for i := range o.Items {
		ComputeItem(&o.Items[i])
		subtotal = subtotal.Add(o.Items[i].Subtotal)
		tax = tax.Add(o.Items[i].TaxAmount)
		discount = discount.Add(o.Items[i].DiscountAmount)
	}
	o.Subtotal = subtotal
	o.TaxAmount = tax
	o.DiscountAmount = discount
	o.TotalAmount = subtotal.Add(tax).Sub(discount).Add(o.ShippingCost)
	o.BalanceDue = o.TotalAmount.Sub(o.PaidAmount)
}

// DerivePaymentStatus maps the paid amount against the total, with an
// overdue override when a due date has passed and a balance remains.
// It is the single derivation point for payment status.
func DerivePaymentStatus(o *Order, now time.Time) PaymentStatus {
	var st PaymentStatus
	switch {
	case o.TotalAmount.IsPositive() && o.PaidAmount.GreaterThanOrEqual(o.TotalAmount):
		st = PaymentPaid
	case o.PaidAmount.IsPositive():
		st = PaymentPartial
	default:
		st = PaymentPending
	}
	if st != PaymentPaid && o.DueDate != nil && now.After(*o.DueDate) && o.TotalAmount.Sub(o.PaidAmount).IsPositive() {
		return PaymentOverdue
	}
	return st
}

package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/pharmaflow/pharmaflow/internal/shared"
)

var receiptPrinter = message.NewPrinter(language.English)

func money(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return receiptPrinter.Sprintf("%.2f", f)
}

// Receipt renders a plain-text receipt for an order that has been paid or
// handed over. It is a read-side rendering; nothing is written.
func (s *Service) Receipt(ctx context.Context, id int64) (string, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if !o.IsPaid() && !o.IsDelivered {
		return "", fmt.Errorf("%w: receipt is only available for paid or delivered orders", shared.ErrValidation)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "RECEIPT - order %s\n", o.OrderNumber)
	if o.InvoiceNumber != nil {
		fmt.Fprintf(&b, "Invoice: %s\n", *o.InvoiceNumber)
	}
	fmt.Fprintf(&b, "Date: %s\n", o.CreatedAt.Format("2006-01-02"))
	fmt.Fprintf(&b, "Customer: %d\n", o.CustomerID)
	b.WriteString(strings.Repeat("-", 60) + "\n")
	for _, it := range o.Items {
		fmt.Fprintf(&b, "%-30s %8s x %10s = %12s\n",
			truncate(it.ProductName, 30), it.Quantity.String(), money(it.UnitPrice), money(it.Total))
	}
	b.WriteString(strings.Repeat("-", 60) + "\n")
	fmt.Fprintf(&b, "%-40s %12s\n", "Subtotal", money(o.Subtotal))
	if o.TaxAmount.IsPositive() {
		fmt.Fprintf(&b, "%-40s %12s\n", "Tax", money(o.TaxAmount))
	}
	if o.DiscountAmount.IsPositive() {
		fmt.Fprintf(&b, "%-40s %12s\n", "Discount", "-"+money(o.DiscountAmount))
	}
	if o.ShippingCost.IsPositive() {
		fmt.Fprintf(&b, "%-40s %12s\n", "Shipping", money(o.ShippingCost))
	}
	fmt.Fprintf(&b, "%-40s %12s\n", "Total", money(o.TotalAmount))
	fmt.Fprintf(&b, "%-40s %12s\n", "Paid", money(o.PaidAmount))
	fmt.Fprintf(&b, "%-40s %12s\n", "Balance due", money(o.BalanceDue))
	return b.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

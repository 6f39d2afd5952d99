package orders

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	out, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return out
}

func TestComputeItem(t *testing.T) {
	it := OrderItem{
		Quantity:        d("10"),
		UnitPrice:       d("250"),
		DiscountPercent: d("10"),
		TaxPercent:      d("18"),
	}
	ComputeItem(&it)

	assert.True(t, it.Subtotal.Equal(d("2500")), "subtotal %s", it.Subtotal)
	assert.True(t, it.DiscountAmount.Equal(d("250")), "discount %s", it.DiscountAmount)
	// tax applies to the discounted amount: (2500-250) * 18%
	assert.True(t, it.TaxAmount.Equal(d("405")), "tax %s", it.TaxAmount)
	assert.True(t, it.Total.Equal(d("2655")), "total %s", it.Total)
}

func TestComputeItemZeroPercents(t *testing.T) {
	it := OrderItem{Quantity: d("3"), UnitPrice: d("99.99")}
	ComputeItem(&it)
	assert.True(t, it.Subtotal.Equal(d("299.97")))
	assert.True(t, it.Total.Equal(d("299.97")))
}

func TestSumTotals(t *testing.T) {
	o := &Order{
		ShippingCost: d("5000"),
		PaidAmount:   d("0"),
		Items: []OrderItem{
			{Quantity: d("100"), UnitPrice: d("600"), TaxPercent: d("18")},
			{Quantity: d("80"), UnitPrice: d("500"), TaxPercent: d("18")},
		},
	}
	SumTotals(o)

	require.True(t, o.Subtotal.Equal(d("100000")), "subtotal %s", o.Subtotal)
	assert.True(t, o.TaxAmount.Equal(d("18000")), "tax %s", o.TaxAmount)
	assert.True(t, o.DiscountAmount.IsZero(), "discount %s", o.DiscountAmount)
	assert.True(t, o.TotalAmount.Equal(d("123000")), "total %s", o.TotalAmount)
	assert.True(t, o.BalanceDue.Equal(d("123000")), "balance %s", o.BalanceDue)
}

func TestSumTotalsAggregatesItemTaxAndDiscount(t *testing.T) {
	o := &Order{
		ShippingCost: d("100"),
		PaidAmount:   d("0"),
		Items: []OrderItem{
			{Quantity: d("10"), UnitPrice: d("250"), DiscountPercent: d("10"), TaxPercent: d("18")},
			{Quantity: d("4"), UnitPrice: d("500"), DiscountPercent: d("5")},
		},
	}
	SumTotals(o)

	// item 1: 2500 gross, 250 off, 405 tax; item 2: 2000 gross, 100 off
	require.True(t, o.Subtotal.Equal(d("4500")), "subtotal %s", o.Subtotal)
	assert.True(t, o.DiscountAmount.Equal(d("350")), "discount %s", o.DiscountAmount)
	assert.True(t, o.TaxAmount.Equal(d("405")), "tax %s", o.TaxAmount)
	assert.True(t, o.TotalAmount.Equal(d("4655")), "total %s", o.TotalAmount)
}

func TestSumTotalsBalanceTracksPaid(t *testing.T) {
	o := &Order{
		ShippingCost: d("0"),
		PaidAmount:   d("400"),
		Items:        []OrderItem{{Quantity: d("1"), UnitPrice: d("1000")}},
	}
	SumTotals(o)
	assert.True(t, o.BalanceDue.Equal(d("600")))
}

func TestDerivePaymentStatus(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -1)
	future := now.AddDate(0, 0, 30)

	cases := []struct {
		name  string
		total string
		paid  string
		due   *time.Time
		want  PaymentStatus
	}{
		{"nothing paid", "1000", "0", nil, PaymentPending},
		{"partially paid", "1000", "400", nil, PaymentPartial},
		{"fully paid", "1000", "1000", nil, PaymentPaid},
		{"overpaid counts as paid", "1000", "1200", nil, PaymentPaid},
		{"unpaid past due", "1000", "0", &past, PaymentOverdue},
		{"partial past due", "1000", "400", &past, PaymentOverdue},
		{"paid past due stays paid", "1000", "1000", &past, PaymentPaid},
		{"unpaid before due", "1000", "0", &future, PaymentPending},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := &Order{TotalAmount: d(tc.total), PaidAmount: d(tc.paid), DueDate: tc.due}
			assert.Equal(t, tc.want, DerivePaymentStatus(o, now))
		})
	}
}

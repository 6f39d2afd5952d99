package sequence

import (
	"fmt"
	"time"
)

// Kind enumerates document families with independent number series.
type Kind string

const (
	KindOrder                Kind = "order"
	KindInvoice              Kind = "invoice"
	KindPayment              Kind = "payment"
	KindDelivery             Kind = "delivery"
	KindReceipt              Kind = "receipt"
	KindFinancialTransaction Kind = "financial-transaction"
)

// IsValid checks if the kind is a known series.
func (k Kind) IsValid() bool {
	switch k {
	case KindOrder, KindInvoice, KindPayment, KindDelivery, KindReceipt, KindFinancialTransaction:
		return true
	default:
		return false
	}
}

// Prefix returns the document prefix embedded in generated numbers.
func (k Kind) Prefix() string {
	switch k {
	case KindOrder:
		return "ORD"
	case KindInvoice:
		return "INV"
	case KindPayment:
		return "PAY"
	case KindDelivery:
		return "DLV"
	case KindReceipt:
		return "RCP"
	case KindFinancialTransaction:
		return "FIN"
	default:
		return ""
	}
}

// Monthly reports whether the series resets every month rather than every year.
func (k Kind) Monthly() bool {
	return k == KindInvoice || k == KindDelivery
}

// PeriodKey returns the counter period for a generation date.
func (k Kind) PeriodKey(at time.Time) string {
	if k.Monthly() {
		return at.Format("200601")
	}
	return at.Format("2006")
}

// Format renders the document number for a counter value. Yearly series use
// ORD-2026-0001; monthly series use INV2026080001. The layout is embedded in
// receipts and reports, so it must stay stable.
func (k Kind) Format(at time.Time, n int64) string {
	if k.Monthly() {
		return fmt.Sprintf("%s%s%04d", k.Prefix(), at.Format("200601"), n)
	}
	return fmt.Sprintf("%s-%s-%04d", k.Prefix(), at.Format("2006"), n)
}

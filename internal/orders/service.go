package orders

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pharmaflow/pharmaflow/internal/customers"
	"github.com/pharmaflow/pharmaflow/internal/sequence"
	"github.com/pharmaflow/pharmaflow/internal/shared"
)

type Service struct {
	repo Repository
	log  *slog.Logger
	now  func() time.Time
	inv  shared.Invalidator
}

func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log, now: time.Now}
}

// WithInvalidator registers a read-model cache to bump after writes.
func (s *Service) WithInvalidator(inv shared.Invalidator) *Service {
	s.inv = inv
	return s
}

func (s *Service) bumpCaches(ctx context.Context) {
	if s.inv == nil {
		return
	}
	if err := s.inv.Invalidate(ctx); err != nil {
		s.log.WarnContext(ctx, "cache invalidation failed", "error", err)
	}
}

func buildItems(inputs []OrderItemInput) ([]OrderItem, error) {
	items := make([]OrderItem, 0, len(inputs))
	for _, in := range inputs {
		if !in.Quantity.IsPositive() {
			return nil, fmt.Errorf("%w: item quantity must be positive", shared.ErrValidation)
		}
		if in.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: item unit price cannot be negative", shared.ErrValidation)
		}
		it := OrderItem{
			ProductID:       in.ProductID,
			ProductName:     in.ProductName,
			Quantity:        in.Quantity,
			UnitPrice:       in.UnitPrice,
			WholesalePrice:  in.WholesalePrice,
			DiscountPercent: in.DiscountPercent,
			TaxPercent:      in.TaxPercent,
		}
		ComputeItem(&it)
		items = append(items, it)
	}
	return items, nil
}

// Create opens a new draft order. The order number is allocated in the same
// transaction that inserts the row, so a failed insert never burns a number.
func (s *Service) Create(ctx context.Context, req CreateOrderRequest, actorID int64) (*Order, error) {
	items, err := buildItems(req.Items)
	if err != nil {
		return nil, err
	}
	if req.ShippingCost.IsNegative() {
		return nil, fmt.Errorf("%w: shipping cost cannot be negative", shared.ErrValidation)
	}

	var created *Order
	err = s.repo.WithTx(ctx, func(ctx context.Context, r Repository) error {
		terms, termsDays, err := r.GetCustomerTerms(ctx, req.CustomerID)
		if err != nil {
			return fmt.Errorf("resolve customer %d: %w", req.CustomerID, err)
		}
		if req.PaymentTerms == "pay_later" && terms != "pay_later" {
			return fmt.Errorf("%w: customer is not approved for credit terms", shared.ErrValidation)
		}

		now := s.now()
		number, err := r.NextNumber(ctx, sequence.KindOrder, now)
		if err != nil {
			return err
		}

		o := &Order{
			OrderNumber:          number,
			CustomerID:           req.CustomerID,
			Status:               StatusDraft,
			PaymentStatus:        PaymentPending,
			DeliveryType:         DeliveryType(req.DeliveryType),
			ShippingCost:         req.ShippingCost,
			PaidAmount:           decimal.Zero,
			PaymentTerms:         req.PaymentTerms,
			OrderDate:            now,
			ExpectedDeliveryDate: req.ExpectedDeliveryDate,
			Notes:                req.Notes,
			CreatedBy:            actorID,
			Items:                items,
		}
		if req.PaymentTerms == "pay_later" && termsDays > 0 {
			due := now.AddDate(0, 0, termsDays)
			o.DueDate = &due
		}
		SumTotals(o)
		if err := r.Create(ctx, o); err != nil {
			return err
		}
		created = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.bumpCaches(ctx)
	s.log.InfoContext(ctx, "order created",
		"order_id", created.ID, "order_number", created.OrderNumber,
		"customer_id", created.CustomerID, "total", created.TotalAmount)
	return created, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error) {
	return s.repo.List(ctx, req)
}

// UpdateDraft edits an order that has not been confirmed yet. Totals are
// recomputed from scratch after every edit.
func (s *Service) UpdateDraft(ctx context.Context, id int64, req UpdateOrderRequest) (*Order, error) {
	var updated *Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, r Repository) error {
		o, err := r.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o.Status != StatusDraft && o.Status != StatusPendingPayment {
			return shared.NewInvalidTransition("order", string(o.Status), string(o.Status), "only draft orders can be edited")
		}

		if req.DeliveryType != nil {
			o.DeliveryType = DeliveryType(*req.DeliveryType)
		}
		if req.ShippingCost != nil {
			o.ShippingCost = *req.ShippingCost
		}
		if req.ExpectedDeliveryDate != nil {
			o.ExpectedDeliveryDate = req.ExpectedDeliveryDate
		}
		if req.Notes != nil {
			o.Notes = *req.Notes
		}
		if req.Items != nil {
			items, err := buildItems(req.Items)
			if err != nil {
				return err
			}
			o.Items = items
		}
		if o.ShippingCost.IsNegative() {
			return fmt.Errorf("%w: shipping cost cannot be negative", shared.ErrValidation)
		}

		SumTotals(o)
		o.PaymentStatus = DerivePaymentStatus(o, s.now())

		if req.Items != nil {
			if err := r.ReplaceItems(ctx, o.ID, o.Items); err != nil {
				return err
			}
		}
		if err := r.Update(ctx, o.ID, map[string]any{
			"delivery_type":          o.DeliveryType,
			"shipping_cost":          o.ShippingCost,
			"expected_delivery_date": o.ExpectedDeliveryDate,
			"notes":                  o.Notes,
			"subtotal":               o.Subtotal,
			"tax_amount":             o.TaxAmount,
			"discount_amount":        o.DiscountAmount,
			"total_amount":           o.TotalAmount,
			"balance_due":            o.BalanceDue,
			"payment_status":         o.PaymentStatus,
		}); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.bumpCaches(ctx)
	return updated, nil
}

// Confirm moves a draft (or pending_payment) order into confirmed. It is
// the point of no return for pricing: credit is reserved for pay_later
// customers and stock is reserved for every line, all in one transaction.
func (s *Service) Confirm(ctx context.Context, id int64, actorID int64) (*Order, error) {
	var confirmed *Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, r Repository) error {
		o, err := r.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if len(o.Items) == 0 {
			return shared.NewInvalidTransition("order", string(o.Status), string(StatusConfirmed), "order has no items")
		}
		if err := o.Transition(StatusConfirmed); err != nil {
			return err
		}

		if o.PayLater() {
			acct, err := r.GetCreditAccountForUpdate(ctx, o.CustomerID)
			if err != nil {
				return err
			}
			if err := customers.CheckCredit(acct, o.TotalAmount); err != nil {
				return err
			}
			if err := r.AdjustCustomerBalance(ctx, o.CustomerID, o.TotalAmount); err != nil {
				return err
			}
		}

		if err := r.ReserveStock(ctx, o, actorID); err != nil {
			return err
		}
		o.InventoryReserved = true

		if err := r.Update(ctx, o.ID, map[string]any{
			"status":             o.Status,
			"inventory_reserved": true,
		}); err != nil {
			return err
		}
		confirmed = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.bumpCaches(ctx)
	s.log.InfoContext(ctx, "order confirmed", "order_id", id, "order_number", confirmed.OrderNumber)
	return confirmed, nil
}

// Advance moves an order one step along its lifecycle. Transitions tied
// to delivery handoff (assigned, out_for_delivery, delivered) are driven
// by the delivery workflow, not this endpoint.
func (s *Service) Advance(ctx context.Context, id int64, next OrderStatus, actorID int64) (*Order, error) {
	if !next.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", shared.ErrValidation, next)
	}
	switch next {
	case StatusConfirmed:
		return s.Confirm(ctx, id, actorID)
	case StatusCancelled:
		return s.Cancel(ctx, id, "", actorID)
	case StatusAssignedToDelivery, StatusOutForDelivery, StatusDelivered:
		return nil, fmt.Errorf("%w: status %q is set by the delivery workflow", shared.ErrValidation, next)
	}

	var out *Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, r Repository) error {
		o, err := r.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		fields := map[string]any{}
		switch next {
		case StatusReadyForDelivery:
			if !o.IsPaid() && !o.PayLater() {
				return shared.NewInvalidTransition("order", string(o.Status), string(next), "order must be paid or on credit terms before fulfillment")
			}
			if err := o.Transition(next); err != nil {
				return err
			}
		case StatusPickedByCustomer:
			if o.DeliveryType != DeliveryTypePickup {
				return shared.NewInvalidTransition("order", string(o.Status), string(next), "order is not a pickup order")
			}
			if !o.IsPaid() && !o.PayLater() {
				return shared.NewInvalidTransition("order", string(o.Status), string(next), "order must be paid or on credit terms before handover")
			}
			if err := o.Transition(next); err != nil {
				return err
			}
			if o.InventoryReserved && !o.InventoryDeducted {
				if err := r.DeductStock(ctx, o, actorID); err != nil {
					return err
				}
				o.InventoryDeducted = true
				fields["inventory_deducted"] = true
			}
			if err := r.MarkItemsDelivered(ctx, o.ID); err != nil {
				return err
			}
			handedOver := s.now()
			o.IsDelivered = true
			o.ActualDeliveryDate = &handedOver
			fields["is_delivered"] = true
			fields["actual_delivery_date"] = handedOver
		case StatusCompleted:
			if !o.IsPaid() && !o.PayLater() {
				return shared.NewInvalidTransition("order", string(o.Status), string(next), "order must be paid or on credit terms before completion")
			}
			if err := o.Transition(next); err != nil {
				return err
			}
		default:
			if err := o.Transition(next); err != nil {
				return err
			}
		}

		fields["status"] = o.Status
		if err := r.Update(ctx, o.ID, fields); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.bumpCaches(ctx)
	s.log.InfoContext(ctx, "order advanced", "order_id", id, "status", out.Status)
	return out, nil
}

// Cancel aborts an order that has not left the warehouse. Reserved stock
// is returned and the outstanding credit reservation is reversed. A fully
// paid order must be refunded instead; partial payments stay on record
// for the refund path.
func (s *Service) Cancel(ctx context.Context, id int64, reason string, actorID int64) (*Order, error) {
	var cancelled *Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, r Repository) error {
		o, err := r.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o.IsPaid() {
			return shared.NewInvalidTransition("order", string(o.Status), string(StatusCancelled), "paid orders must be refunded, not cancelled")
		}
		wasConfirmed := o.Status != StatusDraft && o.Status != StatusPendingPayment
		if err := o.Transition(StatusCancelled); err != nil {
			return err
		}

		fields := map[string]any{"status": o.Status}
		if o.InventoryReserved && !o.InventoryDeducted {
			if err := r.ReleaseStock(ctx, o, actorID); err != nil {
				return err
			}
			o.InventoryReserved = false
			fields["inventory_reserved"] = false
		}
		if o.PayLater() && wasConfirmed {
			// confirmation reserved the total; completed payments already
			// took their share back off the balance
			if err := r.AdjustCustomerBalance(ctx, o.CustomerID, o.BalanceDue.Neg()); err != nil {
				return err
			}
		}
		if reason != "" {
			o.Notes = appendNote(o.Notes, "cancelled: "+reason)
			fields["notes"] = o.Notes
		}
		if err := r.Update(ctx, o.ID, fields); err != nil {
			return err
		}
		cancelled = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.bumpCaches(ctx)
	s.log.InfoContext(ctx, "order cancelled", "order_id", id, "reason", reason)
	return cancelled, nil
}

// MarkInvoiced allocates an invoice number for a confirmed order. The
// operation is idempotent: invoicing an invoiced order returns it as-is.
func (s *Service) MarkInvoiced(ctx context.Context, id int64) (*Order, error) {
	var out *Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, r Repository) error {
		o, err := r.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o.IsInvoiced {
			out = o
			return nil
		}
		if o.Status == StatusDraft || o.Status == StatusPendingPayment || o.Status == StatusCancelled {
			return shared.NewInvalidTransition("order", string(o.Status), string(o.Status), "order must be confirmed before invoicing")
		}
		number, err := r.NextNumber(ctx, sequence.KindInvoice, s.now())
		if err != nil {
			return err
		}
		o.IsInvoiced = true
		o.InvoiceNumber = &number
		if err := r.Update(ctx, o.ID, map[string]any{
			"is_invoiced":    true,
			"invoice_number": number,
		}); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.bumpCaches(ctx)
	return out, nil
}

// ListOverdue returns unpaid orders whose due date has passed.
func (s *Service) ListOverdue(ctx context.Context) ([]Order, error) {
	return s.repo.ListOverdue(ctx, s.now())
}

func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return strings.TrimRight(existing, "\n") + "\n" + note
}

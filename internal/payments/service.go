package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pharmaflow/pharmaflow/internal/orders"
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

// WithInvalidator registers a cache to bump after each mutation.
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

// Record opens a pending payment. Order-linked payments settle an order
// in full or in part, or mark a credit order's balance as debt; a
// standalone payment pays a customer's accumulated debt down with no
// order attached. A client-supplied reference makes the call idempotent:
// replays with the same reference return the payment recorded the first
// time.
func (s *Service) Record(ctx context.Context, req RecordPaymentRequest, actorID int64) (*Payment, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: payment amount must be positive", shared.ErrValidation)
	}
	if !Method(req.Method).IsValid() {
		return nil, fmt.Errorf("%w: unknown payment method %q", shared.ErrValidation, req.Method)
	}
	if req.Category != "" && !Category(req.Category).IsValid() {
		return nil, fmt.Errorf("%w: unknown payment category %q", shared.ErrValidation, req.Category)
	}
	if req.OrderID == nil && req.CustomerID <= 0 {
		return nil, fmt.Errorf("%w: a payment needs an order or a customer", shared.ErrValidation)
	}
	reference := req.Reference
	if reference == "" {
		reference = uuid.NewString()
	} else if existing, err := s.repo.GetByReference(ctx, reference); err == nil {
		return existing, nil
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	var created *Payment
	err := s.repo.WithTx(ctx, func(ctx context.Context, r Repository) error {
		p := &Payment{
			Amount:         req.Amount,
			AmountReceived: req.Amount,
			Method:         Method(req.Method),
			Status:         StatusPending,
			Reference:      reference,
			Notes:          req.Notes,
			ProcessedBy:    actorID,
		}
		if req.OrderID != nil {
			o, err := r.GetOrderForUpdate(ctx, *req.OrderID)
			if err != nil {
				return err
			}
			if o.Status == orders.StatusCancelled {
				return fmt.Errorf("%w: order %s is cancelled", shared.ErrValidation, o.OrderNumber)
			}
			if req.Amount.GreaterThan(o.BalanceDue) {
				return fmt.Errorf("%w: amount exceeds balance due %s", shared.ErrValidation, o.BalanceDue)
			}
			p.OrderID = &o.ID
			p.CustomerID = o.CustomerID
			switch Category(req.Category) {
			case "":
				if req.Amount.Equal(o.BalanceDue) {
					p.Category = CategoryFull
				} else {
					p.Category = CategoryPartial
				}
			case CategoryFull:
				if !req.Amount.Equal(o.BalanceDue) {
					return fmt.Errorf("%w: a full payment must settle the balance due exactly", shared.ErrValidation)
				}
				p.Category = CategoryFull
			case CategoryPartial:
				p.Category = CategoryPartial
			case CategoryDebtMark:
				if !o.PayLater() {
					return fmt.Errorf("%w: debt can only be marked on credit orders", shared.ErrValidation)
				}
				if !req.Amount.Equal(o.BalanceDue) {
					return fmt.Errorf("%w: a debt mark must cover the balance due exactly", shared.ErrValidation)
				}
				p.Category = CategoryDebtMark
				p.AmountReceived = decimal.Zero
			case CategoryDebtPayment:
				return fmt.Errorf("%w: debt payments are recorded without an order", shared.ErrValidation)
			}
		} else {
			if req.Category != "" && Category(req.Category) != CategoryDebtPayment {
				return fmt.Errorf("%w: a payment without an order must be a debt payment", shared.ErrValidation)
			}
			if err := r.CustomerExists(ctx, req.CustomerID); err != nil {
				return err
			}
			p.CustomerID = req.CustomerID
			p.Category = CategoryDebtPayment
		}

		number, err := r.NextNumber(ctx, sequence.KindPayment, s.now())
		if err != nil {
			return err
		}
		p.PaymentNumber = number
		if err := r.Create(ctx, p); err != nil {
			return err
		}
		created = p
		return nil
	})
	if err != nil {
		// a concurrent replay can lose the race on the reference unique index
		if errors.Is(err, shared.ErrConflict) && req.Reference != "" {
			if existing, lookupErr := s.repo.GetByReference(ctx, req.Reference); lookupErr == nil {
				return existing, nil
			}
		}
		return nil, err
	}
	s.bumpCaches(ctx)
	s.log.InfoContext(ctx, "payment recorded",
		"payment_id", created.ID, "payment_number", created.PaymentNumber,
		"customer_id", created.CustomerID, "category", created.Category, "amount", created.Amount)
	return created, nil
}

// Complete applies a pending payment in one transaction. For an
// order-linked payment the paid amount and balance move, the payment
// status is re-derived, and a credit customer's balance comes down. A
// debt mark moves no money at all, the debt already sits on the
// customer's balance from confirmation. A standalone debt payment pays
// the customer's balance down directly. Every completion allocates a
// receipt number.
func (s *Service) Complete(ctx context.Context, id int64, actorID int64) (*Payment, error) {
	var completed *Payment
	err := s.repo.WithTx(ctx, func(ctx context.Context, r Repository) error {
		p, err := r.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := p.Transition(StatusCompleted); err != nil {
			return err
		}

		switch {
		case p.OrderID == nil:
			if err := r.AdjustCustomerBalance(ctx, p.CustomerID, p.Amount.Neg()); err != nil {
				return err
			}
		case p.Category == CategoryDebtMark:
			// acknowledged only, nothing moves
		default:
			o, err := r.GetOrderForUpdate(ctx, *p.OrderID)
			if err != nil {
				return err
			}
			o.PaidAmount = o.PaidAmount.Add(p.Amount)
			o.BalanceDue = o.TotalAmount.Sub(o.PaidAmount)
			o.PaymentStatus = orders.DerivePaymentStatus(o, s.now())
			o.IsPaymentProcessed = o.PaymentStatus == orders.PaymentPaid
			if err := r.UpdateOrderPayment(ctx, o); err != nil {
				return err
			}
			if o.PayLater() {
				if err := r.AdjustCustomerBalance(ctx, o.CustomerID, p.Amount.Neg()); err != nil {
					return err
				}
			}
		}

		now := s.now()
		receipt, err := r.NextNumber(ctx, sequence.KindReceipt, now)
		if err != nil {
			return err
		}
		p.ReceiptNumber = &receipt
		p.ProcessedBy = actorID
		p.ProcessedAt = &now
		if err := r.Update(ctx, p.ID, map[string]any{
			"status":         p.Status,
			"receipt_number": receipt,
			"processed_by":   actorID,
			"processed_at":   now,
		}); err != nil {
			return err
		}
		completed = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.bumpCaches(ctx)
	s.log.InfoContext(ctx, "payment completed",
		"payment_id", id, "receipt_number", *completed.ReceiptNumber,
		"customer_id", completed.CustomerID, "category", completed.Category)
	return completed, nil
}

// Fail marks a pending payment as failed. The order is untouched because
// pending payments never moved money.
func (s *Service) Fail(ctx context.Context, id int64, reason string, actorID int64) (*Payment, error) {
	var failed *Payment
	err := s.repo.WithTx(ctx, func(ctx context.Context, r Repository) error {
		p, err := r.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := p.Transition(StatusFailed); err != nil {
			return err
		}
		fields := map[string]any{"status": p.Status, "processed_by": actorID}
		if reason != "" {
			p.Notes = appendNote(p.Notes, "failed: "+reason)
			fields["notes"] = p.Notes
		}
		if err := r.Update(ctx, p.ID, fields); err != nil {
			return err
		}
		failed = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.bumpCaches(ctx)
	return failed, nil
}

// Cancel voids a pending payment before processing.
func (s *Service) Cancel(ctx context.Context, id int64, actorID int64) (*Payment, error) {
	var cancelled *Payment
	err := s.repo.WithTx(ctx, func(ctx context.Context, r Repository) error {
		p, err := r.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := p.Transition(StatusCancelled); err != nil {
			return err
		}
		if err := r.Update(ctx, p.ID, map[string]any{"status": p.Status, "processed_by": actorID}); err != nil {
			return err
		}
		cancelled = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.bumpCaches(ctx)
	return cancelled, nil
}

// Refund reverses a completed payment: whatever Complete moved comes
// back. Debt marks moved nothing, so refunding one only flips the
// status.
func (s *Service) Refund(ctx context.Context, id int64, reason string, actorID int64) (*Payment, error) {
	var refunded *Payment
	err := s.repo.WithTx(ctx, func(ctx context.Context, r Repository) error {
		p, err := r.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := p.Transition(StatusRefunded); err != nil {
			return err
		}

		switch {
		case p.OrderID == nil:
			if err := r.AdjustCustomerBalance(ctx, p.CustomerID, p.Amount); err != nil {
				return err
			}
		case p.Category == CategoryDebtMark:
			// nothing moved, nothing to put back
		default:
			o, err := r.GetOrderForUpdate(ctx, *p.OrderID)
			if err != nil {
				return err
			}
			o.PaidAmount = o.PaidAmount.Sub(p.Amount)
			o.BalanceDue = o.TotalAmount.Sub(o.PaidAmount)
			o.PaymentStatus = orders.DerivePaymentStatus(o, s.now())
			o.IsPaymentProcessed = o.PaymentStatus == orders.PaymentPaid
			if err := r.UpdateOrderPayment(ctx, o); err != nil {
				return err
			}
			if o.PayLater() {
				if err := r.AdjustCustomerBalance(ctx, o.CustomerID, p.Amount); err != nil {
					return err
				}
			}
		}

		fields := map[string]any{"status": p.Status, "processed_by": actorID}
		if reason != "" {
			p.Notes = appendNote(p.Notes, "refunded: "+reason)
			fields["notes"] = p.Notes
		}
		if err := r.Update(ctx, p.ID, fields); err != nil {
			return err
		}
		refunded = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.bumpCaches(ctx)
	s.log.InfoContext(ctx, "payment refunded",
		"payment_id", id, "customer_id", refunded.CustomerID, "reason", reason)
	return refunded, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Payment, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListPaymentsRequest) ([]Payment, int, error) {
	return s.repo.List(ctx, req)
}

func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}

package deliveries

import (
	"context"
	"fmt"
	"log/slog"
	"time"

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

// Schedule assigns a courier to a ready order. The order must be a
// delivery order, paid or on credit terms, and not already scheduled; it
// moves to assigned_to_delivery in the same transaction.
func (s *Service) Schedule(ctx context.Context, req ScheduleDeliveryRequest, actorID int64) (*Delivery, error) {
	var created *Delivery
	err := s.repo.WithTx(ctx, func(ctx context.Context, r Repository) error {
		o, err := r.GetOrderForUpdate(ctx, req.OrderID)
		if err != nil {
			return err
		}
		if o.DeliveryType != orders.DeliveryTypeDelivery {
			return fmt.Errorf("%w: order %s is a pickup order", shared.ErrValidation, o.OrderNumber)
		}
		if o.IsDeliveryScheduled {
			return fmt.Errorf("%w: order %s already has a delivery scheduled", shared.ErrValidation, o.OrderNumber)
		}
		if o.Status != orders.StatusReadyForDelivery {
			return shared.NewInvalidTransition("order", string(o.Status), string(orders.StatusAssignedToDelivery), "order is not ready for delivery")
		}
		if !o.IsPaid() && !o.PayLater() {
			return shared.NewInvalidTransition("order", string(o.Status), string(orders.StatusAssignedToDelivery), "order must be paid or on credit terms before delivery")
		}

		number, err := r.NextNumber(ctx, sequence.KindDelivery, s.now())
		if err != nil {
			return err
		}
		dl := &Delivery{
			DeliveryNumber:    number,
			OrderID:           o.ID,
			CustomerID:        o.CustomerID,
			Status:            StatusScheduled,
			CourierName:       req.CourierName,
			CourierPhone:      req.CourierPhone,
			Address:           req.Address,
			ScheduledDate:     req.ScheduledDate,
			IsPartialDelivery: req.IsPartialDelivery,
			Notes:             req.Notes,
			CreatedBy:         actorID,
		}
		if err := r.Create(ctx, dl); err != nil {
			return err
		}
		if err := r.UpdateOrder(ctx, o.ID, map[string]any{
			"status":                orders.StatusAssignedToDelivery,
			"is_delivery_scheduled": true,
		}); err != nil {
			return err
		}
		created = dl
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.bumpCaches(ctx)
	s.log.InfoContext(ctx, "delivery scheduled",
		"delivery_id", created.ID, "delivery_number", created.DeliveryNumber,
		"order_id", created.OrderID, "courier", created.CourierName)
	return created, nil
}

// MarkInTransit records that the courier picked up the goods. The order
// stays in assigned_to_delivery until the courier is out on the route.
func (s *Service) MarkInTransit(ctx context.Context, id int64) (*Delivery, error) {
	return s.transition(ctx, id, StatusInTransit, nil)
}

// MarkOutForDelivery moves both the delivery and its order to
// out_for_delivery.
func (s *Service) MarkOutForDelivery(ctx context.Context, id int64) (*Delivery, error) {
	return s.transition(ctx, id, StatusOutForDelivery, func(ctx context.Context, r Repository, dl *Delivery, _ int64) error {
		o, err := r.GetOrderForUpdate(ctx, dl.OrderID)
		if err != nil {
			return err
		}
		if err := o.Transition(orders.StatusOutForDelivery); err != nil {
			return err
		}
		return r.UpdateOrder(ctx, o.ID, map[string]any{"status": o.Status})
	})
}

// MarkDelivered closes out the route: the delivery gets its timestamp,
// the order moves to delivered, and reserved stock leaves the warehouse
// for good.
func (s *Service) MarkDelivered(ctx context.Context, id int64, actorID int64) (*Delivery, error) {
	now := s.now()
	dl, err := s.transition(ctx, id, StatusDelivered, func(ctx context.Context, r Repository, dl *Delivery, actorID int64) error {
		dl.DeliveredAt = &now
		o, err := r.GetOrderForUpdate(ctx, dl.OrderID)
		if err != nil {
			return err
		}
		if err := o.Transition(orders.StatusDelivered); err != nil {
			return err
		}
		fields := map[string]any{
			"status":               o.Status,
			"is_delivered":         true,
			"actual_delivery_date": now,
		}
		if o.InventoryReserved && !o.InventoryDeducted {
			if err := r.DeductOrderStock(ctx, o, actorID); err != nil {
				return err
			}
			fields["inventory_deducted"] = true
		}
		if !dl.IsPartialDelivery {
			if err := r.MarkOrderItemsDelivered(ctx, o.ID); err != nil {
				return err
			}
		}
		return r.UpdateOrder(ctx, o.ID, fields)
	}, withActor(actorID), withFields(map[string]any{"delivered_at": now}))
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "delivery completed", "delivery_id", id, "order_id", dl.OrderID)
	return dl, nil
}

// MarkFailed records a failed attempt. The order is left untouched so the
// delivery can be rescheduled.
func (s *Service) MarkFailed(ctx context.Context, id int64, reason string) (*Delivery, error) {
	dl, err := s.transition(ctx, id, StatusFailed, func(_ context.Context, _ Repository, dl *Delivery, _ int64) error {
		dl.Notes = appendNote(dl.Notes, "failed: "+reason)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WarnContext(ctx, "delivery failed", "delivery_id", id, "order_id", dl.OrderID, "reason", reason)
	return dl, nil
}

// Reschedule puts a failed delivery back on the board with a new date.
func (s *Service) Reschedule(ctx context.Context, id int64, req RescheduleRequest) (*Delivery, error) {
	return s.transition(ctx, id, StatusScheduled, func(_ context.Context, _ Repository, dl *Delivery, _ int64) error {
		dl.ScheduledDate = req.ScheduledDate
		if req.CourierName != "" {
			dl.CourierName = req.CourierName
		}
		return nil
	})
}

// MarkReturned records that the goods came back undeliverable. The
// delivery closes out and the order returns to ready_for_delivery so a
// new route can be scheduled; reserved stock stays reserved.
func (s *Service) MarkReturned(ctx context.Context, id int64, reason string) (*Delivery, error) {
	dl, err := s.transition(ctx, id, StatusReturned, func(ctx context.Context, r Repository, dl *Delivery, _ int64) error {
		dl.Notes = appendNote(dl.Notes, "returned: "+reason)
		o, err := r.GetOrderForUpdate(ctx, dl.OrderID)
		if err != nil {
			return err
		}
		if o.Status != orders.StatusAssignedToDelivery && o.Status != orders.StatusOutForDelivery {
			return nil
		}
		return r.UpdateOrder(ctx, o.ID, map[string]any{
			"status":                orders.StatusReadyForDelivery,
			"is_delivery_scheduled": false,
		})
	})
	if err != nil {
		return nil, err
	}
	s.log.WarnContext(ctx, "delivery returned", "delivery_id", id, "order_id", dl.OrderID, "reason", reason)
	return dl, nil
}

// Cancel voids a scheduled delivery before pickup and hands the order
// back to the warehouse.
func (s *Service) Cancel(ctx context.Context, id int64) (*Delivery, error) {
	return s.transition(ctx, id, StatusCancelled, func(ctx context.Context, r Repository, dl *Delivery, _ int64) error {
		o, err := r.GetOrderForUpdate(ctx, dl.OrderID)
		if err != nil {
			return err
		}
		if o.Status != orders.StatusAssignedToDelivery {
			return nil
		}
		return r.UpdateOrder(ctx, o.ID, map[string]any{
			"status":                orders.StatusReadyForDelivery,
			"is_delivery_scheduled": false,
		})
	})
}

type transitionOpt func(*transitionState)

type transitionState struct {
	actorID int64
	fields  map[string]any
}

func withActor(actorID int64) transitionOpt {
	return func(st *transitionState) { st.actorID = actorID }
}

func withFields(fields map[string]any) transitionOpt {
	return func(st *transitionState) {
		for k, v := range fields {
			st.fields[k] = v
		}
	}
}

func (s *Service) transition(ctx context.Context, id int64, next Status, hook func(ctx context.Context, r Repository, dl *Delivery, actorID int64) error, opts ...transitionOpt) (*Delivery, error) {
	st := transitionState{fields: map[string]any{}}
	for _, opt := range opts {
		opt(&st)
	}
	var out *Delivery
	err := s.repo.WithTx(ctx, func(ctx context.Context, r Repository) error {
		dl, err := r.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := dl.Transition(next); err != nil {
			return err
		}
		if hook != nil {
			if err := hook(ctx, r, dl, st.actorID); err != nil {
				return err
			}
		}
		st.fields["status"] = dl.Status
		st.fields["notes"] = dl.Notes
		st.fields["scheduled_date"] = dl.ScheduledDate
		st.fields["courier_name"] = dl.CourierName
		if err := r.Update(ctx, dl.ID, st.fields); err != nil {
			return err
		}
		out = dl
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.bumpCaches(ctx)
	return out, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Delivery, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListDeliveriesRequest) ([]Delivery, int, error) {
	return s.repo.List(ctx, req)
}

// ListOverdue returns undelivered routes whose scheduled date has passed.
func (s *Service) ListOverdue(ctx context.Context) ([]Delivery, error) {
	return s.repo.ListOverdue(ctx, s.now())
}

func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}

package finance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

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

// Record writes a ledger entry. Entries are approved on the spot unless
// the caller asks for review, in which case they sit pending until an
// approver resolves them. Adjustments may carry either sign; every other
// type is a positive amount.
func (s *Service) Record(ctx context.Context, req RecordActivityRequest, actorID int64) (*Activity, error) {
	if !ActivityType(req.Type).IsValid() {
		return nil, fmt.Errorf("%w: unknown activity type %q", shared.ErrValidation, req.Type)
	}
	if ActivityType(req.Type) == TypeAdjustment {
		if req.Amount.IsZero() {
			return nil, fmt.Errorf("%w: adjustment amount cannot be zero", shared.ErrValidation)
		}
	} else if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", shared.ErrValidation)
	}

	var created *Activity
	err := s.repo.WithTx(ctx, func(ctx context.Context, r Repository) error {
		now := s.now()
		txID, err := r.NextNumber(ctx, sequence.KindFinancialTransaction, now)
		if err != nil {
			return err
		}
		a := &Activity{
			TransactionID: txID,
			Type:          ActivityType(req.Type),
			Category:      req.Category,
			Amount:        req.Amount,
			Description:   req.Description,
			Status:        StatusApproved,
			ActivityDate:  req.ActivityDate,
			OrderID:       req.OrderID,
			CreatedBy:     actorID,
		}
		if a.ActivityDate.IsZero() {
			a.ActivityDate = now
		}
		if req.RequireApproval {
			a.Status = StatusPending
		} else {
			a.ApprovedBy = &actorID
			a.ApprovedAt = &now
		}
		if err := r.Create(ctx, a); err != nil {
			return err
		}
		created = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.bumpCaches(ctx)
	s.log.InfoContext(ctx, "financial activity recorded",
		"activity_id", created.ID, "transaction_id", created.TransactionID,
		"type", created.Type, "amount", created.Amount, "status", created.Status)
	return created, nil
}

func (s *Service) Approve(ctx context.Context, id int64, approverID int64) (*Activity, error) {
	return s.resolve(ctx, id, approverID, (*Activity).Approve)
}

func (s *Service) Reject(ctx context.Context, id int64, approverID int64) (*Activity, error) {
	return s.resolve(ctx, id, approverID, (*Activity).Reject)
}

func (s *Service) resolve(ctx context.Context, id, approverID int64, decide func(*Activity, int64, time.Time) error) (*Activity, error) {
	var out *Activity
	err := s.repo.WithTx(ctx, func(ctx context.Context, r Repository) error {
		a, err := r.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		now := s.now()
		if err := decide(a, approverID, now); err != nil {
			return err
		}
		if err := r.Update(ctx, a.ID, map[string]any{
			"status":      a.Status,
			"approved_by": approverID,
			"approved_at": now,
		}); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.bumpCaches(ctx)
	s.log.InfoContext(ctx, "financial activity resolved", "activity_id", id, "status", out.Status)
	return out, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Activity, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListActivitiesRequest) ([]Activity, int, error) {
	return s.repo.List(ctx, req)
}

// Summary aggregates approved entries over [from, to].
func (s *Service) Summary(ctx context.Context, from, to time.Time) (*Summary, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: range end precedes start", shared.ErrValidation)
	}
	entries, err := s.repo.ListApprovedInRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	sum := Summarize(entries, from, to)
	return &sum, nil
}

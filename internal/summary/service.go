package summary

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// Querier is the read surface the service aggregates over. The pg
// repository satisfies it; tests swap in a stub.
type Querier interface {
	OrdersByStatus(ctx context.Context) ([]StatusBucket, error)
	OverdueOrders(ctx context.Context, asOf time.Time) ([]OverdueOrder, error)
	OverdueDeliveries(ctx context.Context, asOf time.Time) ([]OverdueDelivery, error)
	OpenBalance(ctx context.Context) (decimal.Decimal, error)
	PaymentsCompletedSince(ctx context.Context, since time.Time) (decimal.Decimal, error)
}

type Service struct {
	repo  Querier
	cache *Cache
	log   *slog.Logger
	group singleflight.Group
	now   func() time.Time
}

func NewService(repo Querier, cache *Cache, log *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, log: log, now: time.Now}
}

// Dashboard assembles the operational snapshot. Concurrent requests for
// the same key collapse into one load, and the result is cached until
// the TTL expires or a writer bumps the cache version.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	key, err := s.cache.BuildKey(ctx, "summary", "dashboard")
	if err != nil {
		return nil, err
	}
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		var dash Dashboard
		err := s.cache.FetchJSON(ctx, key, &dash, func(ctx context.Context) (interface{}, error) {
			return s.build(ctx)
		})
		if err != nil {
			return nil, err
		}
		return &dash, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Dashboard), nil
}

func (s *Service) build(ctx context.Context) (*Dashboard, error) {
	now := s.now()
	dash := &Dashboard{GeneratedAt: now}

	var err error
	if dash.OrdersByStatus, err = s.repo.OrdersByStatus(ctx); err != nil {
		return nil, err
	}
	if dash.OverdueOrders, err = s.repo.OverdueOrders(ctx, now); err != nil {
		return nil, err
	}
	if dash.OverdueDeliveries, err = s.repo.OverdueDeliveries(ctx, now); err != nil {
		return nil, err
	}
	if dash.OpenBalance, err = s.repo.OpenBalance(ctx); err != nil {
		return nil, err
	}
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if dash.PaymentsToday, err = s.repo.PaymentsCompletedSince(ctx, startOfDay); err != nil {
		return nil, err
	}
	return dash, nil
}

// Warm precomputes the dashboard so the first request of the day does
// not pay the aggregation cost.
func (s *Service) Warm(ctx context.Context) error {
	_, err := s.Dashboard(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "summary warmup failed", "error", err)
	}
	return err
}

// Invalidate bumps the cache version after a write.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

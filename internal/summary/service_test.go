package summary

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubQuerier struct {
	calls int
}

func (s *stubQuerier) OrdersByStatus(context.Context) ([]StatusBucket, error) {
	s.calls++
	return []StatusBucket{
		{Status: "confirmed", Count: 3, TotalValue: decimal.NewFromInt(4500)},
		{Status: "draft", Count: 1, TotalValue: decimal.NewFromInt(120)},
	}, nil
}

func (s *stubQuerier) OverdueOrders(context.Context, time.Time) ([]OverdueOrder, error) {
	return []OverdueOrder{
		{OrderID: 9, OrderNumber: "ORD-2026-0009", CustomerID: 7, BalanceDue: decimal.NewFromInt(800), DaysOverdue: 4},
	}, nil
}

func (s *stubQuerier) OverdueDeliveries(context.Context, time.Time) ([]OverdueDelivery, error) {
	return nil, nil
}

func (s *stubQuerier) OpenBalance(context.Context) (decimal.Decimal, error) {
	return decimal.NewFromInt(5300), nil
}

func (s *stubQuerier) PaymentsCompletedSince(context.Context, time.Time) (decimal.Decimal, error) {
	return decimal.NewFromInt(1200), nil
}

func testCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), srv
}

func TestDashboardAggregates(t *testing.T) {
	cache, _ := testCache(t)
	q := &stubQuerier{}
	svc := NewService(q, cache, slog.New(slog.DiscardHandler))

	dash, err := svc.Dashboard(context.Background())
	require.NoError(t, err)

	require.Len(t, dash.OrdersByStatus, 2)
	assert.Equal(t, "confirmed", dash.OrdersByStatus[0].Status)
	require.Len(t, dash.OverdueOrders, 1)
	assert.EqualValues(t, 4, dash.OverdueOrders[0].DaysOverdue)
	assert.True(t, dash.OpenBalance.Equal(decimal.NewFromInt(5300)))
	assert.True(t, dash.PaymentsToday.Equal(decimal.NewFromInt(1200)))
}

func TestDashboardCachesUntilBump(t *testing.T) {
	cache, _ := testCache(t)
	q := &stubQuerier{}
	svc := NewService(q, cache, slog.New(slog.DiscardHandler))
	ctx := context.Background()

	_, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	_, err = svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, q.calls, "second read should come from cache")

	require.NoError(t, svc.Invalidate(ctx))
	_, err = svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, q.calls, "bump should force a reload")
}

func TestDashboardWithoutRedis(t *testing.T) {
	q := &stubQuerier{}
	svc := NewService(q, NewCache(nil, time.Minute), slog.New(slog.DiscardHandler))

	dash, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, dash)

	_, err = svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, q.calls, "no cache means every read loads")
}

func TestCacheVersionInitialises(t *testing.T) {
	cache, _ := testCache(t)
	ver, err := cache.Version(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, ver)

	require.NoError(t, cache.Bump(context.Background()))
	ver, err = cache.Version(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, ver)
}

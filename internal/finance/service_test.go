package finance

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmaflow/pharmaflow/internal/sequence"
	"github.com/pharmaflow/pharmaflow/internal/shared"
)

func d(v string) decimal.Decimal {
	out, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return out
}

type memRepo struct {
	nextID     int64
	activities map[int64]*Activity
	seq        map[string]int64
}

func newMemRepo() *memRepo {
	return &memRepo{activities: map[int64]*Activity{}, seq: map[string]int64{}}
}

func (m *memRepo) WithTx(ctx context.Context, fn func(ctx context.Context, r Repository) error) error {
	return fn(ctx, m)
}

func (m *memRepo) NextNumber(_ context.Context, kind sequence.Kind, at time.Time) (string, error) {
	key := string(kind) + ":" + kind.PeriodKey(at)
	m.seq[key]++
	return kind.Format(at, m.seq[key]), nil
}

func (m *memRepo) Create(_ context.Context, a *Activity) error {
	m.nextID++
	a.ID = m.nextID
	a.CreatedAt = time.Now()
	cp := *a
	m.activities[a.ID] = &cp
	return nil
}

func (m *memRepo) Get(_ context.Context, id int64) (*Activity, error) {
	a, ok := m.activities[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memRepo) GetForUpdate(ctx context.Context, id int64) (*Activity, error) {
	return m.Get(ctx, id)
}

func (m *memRepo) List(_ context.Context, req ListActivitiesRequest) ([]Activity, int, error) {
	var out []Activity
	for _, a := range m.activities {
		if req.Status != "" && string(a.Status) != req.Status {
			continue
		}
		out = append(out, *a)
	}
	return out, len(out), nil
}

func (m *memRepo) ListApprovedInRange(_ context.Context, from, to time.Time) ([]Activity, error) {
	var out []Activity
	for _, a := range m.activities {
		if a.Status != StatusApproved || a.ActivityDate.Before(from) || a.ActivityDate.After(to) {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (m *memRepo) Update(_ context.Context, id int64, fields map[string]any) error {
	a, ok := m.activities[id]
	if !ok {
		return shared.ErrNotFound
	}
	for col, v := range fields {
		switch col {
		case "status":
			a.Status = v.(ActivityStatus)
		case "approved_by":
			id := v.(int64)
			a.ApprovedBy = &id
		case "approved_at":
			ts := v.(time.Time)
			a.ApprovedAt = &ts
		}
	}
	return nil
}

func testService(repo *memRepo) *Service {
	return NewService(repo, slog.New(slog.DiscardHandler))
}

func TestRecordApprovedByDefault(t *testing.T) {
	repo := newMemRepo()
	svc := testService(repo)

	a, err := svc.Record(context.Background(), RecordActivityRequest{
		Type: "income", Category: "order_payment", Amount: d("1200"),
	}, 4)
	require.NoError(t, err)

	assert.Equal(t, StatusApproved, a.Status)
	assert.Regexp(t, `^FIN-\d{4}-0001$`, a.TransactionID)
	require.NotNil(t, a.ApprovedBy)
	assert.EqualValues(t, 4, *a.ApprovedBy)
	require.NotNil(t, a.ApprovedAt)
	assert.WithinDuration(t, time.Now(), *a.ApprovedAt, time.Minute)
	assert.False(t, a.ActivityDate.IsZero())
}

func TestRecordPendingWhenApprovalRequired(t *testing.T) {
	repo := newMemRepo()
	svc := testService(repo)

	a, err := svc.Record(context.Background(), RecordActivityRequest{
		Type: "expense", Category: "rent", Amount: d("5000"), RequireApproval: true,
	}, 4)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, a.Status)
	assert.Nil(t, a.ApprovedBy)
}

func TestRecordValidation(t *testing.T) {
	svc := testService(newMemRepo())
	ctx := context.Background()

	_, err := svc.Record(ctx, RecordActivityRequest{Type: "income", Category: "x", Amount: d("0")}, 1)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Record(ctx, RecordActivityRequest{Type: "transfer", Category: "x", Amount: d("10")}, 1)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestApproveAndRejectAreFinal(t *testing.T) {
	repo := newMemRepo()
	svc := testService(repo)
	ctx := context.Background()

	a, err := svc.Record(ctx, RecordActivityRequest{
		Type: "expense", Category: "rent", Amount: d("5000"), RequireApproval: true,
	}, 1)
	require.NoError(t, err)
	assert.Nil(t, a.ApprovedAt)

	got, err := svc.Approve(ctx, a.ID, 9)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)
	require.NotNil(t, got.ApprovedBy)
	assert.EqualValues(t, 9, *got.ApprovedBy)
	require.NotNil(t, got.ApprovedAt)

	_, err = svc.Reject(ctx, a.ID, 9)
	var ite *shared.InvalidTransitionError
	require.ErrorAs(t, err, &ite)
	_, err = svc.Approve(ctx, a.ID, 9)
	require.ErrorAs(t, err, &ite)
}

func TestSummaryCountsOnlyApproved(t *testing.T) {
	repo := newMemRepo()
	svc := testService(repo)
	ctx := context.Background()

	_, err := svc.Record(ctx, RecordActivityRequest{Type: "income", Category: "sales", Amount: d("10000")}, 1)
	require.NoError(t, err)
	_, err = svc.Record(ctx, RecordActivityRequest{Type: "expense", Category: "rent", Amount: d("4000")}, 1)
	require.NoError(t, err)
	// pending entry stays out of the totals
	_, err = svc.Record(ctx, RecordActivityRequest{Type: "expense", Category: "misc", Amount: d("9999"), RequireApproval: true}, 1)
	require.NoError(t, err)

	now := time.Now()
	sum, err := svc.Summary(ctx, now.AddDate(0, 0, -1), now.AddDate(0, 0, 1))
	require.NoError(t, err)

	assert.True(t, sum.TotalIncome.Equal(d("10000")))
	assert.True(t, sum.TotalExpenses.Equal(d("4000")))
	assert.True(t, sum.NetProfit.Equal(d("6000")))
	assert.True(t, sum.ProfitMargin.Equal(d("60")), "margin %s", sum.ProfitMargin)
}

func TestRecordAdjustmentAllowsEitherSign(t *testing.T) {
	repo := newMemRepo()
	svc := testService(repo)
	ctx := context.Background()

	neg, err := svc.Record(ctx, RecordActivityRequest{Type: "adjustment", Category: "write_off", Amount: d("-250")}, 1)
	require.NoError(t, err)
	assert.Equal(t, TypeAdjustment, neg.Type)

	_, err = svc.Record(ctx, RecordActivityRequest{Type: "adjustment", Category: "write_off", Amount: d("0")}, 1)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestSummaryBucketsRefundsAndAdjustments(t *testing.T) {
	repo := newMemRepo()
	svc := testService(repo)
	ctx := context.Background()

	for _, e := range []struct{ typ, cat, amt string }{
		{"income", "sales", "10000"},
		{"expense", "rent", "3000"},
		{"refund", "order_refund", "1000"},
		{"adjustment", "stock_recount", "-500"},
	} {
		_, err := svc.Record(ctx, RecordActivityRequest{Type: e.typ, Category: e.cat, Amount: d(e.amt)}, 1)
		require.NoError(t, err)
	}

	now := time.Now()
	sum, err := svc.Summary(ctx, now.AddDate(0, 0, -1), now.AddDate(0, 0, 1))
	require.NoError(t, err)

	assert.True(t, sum.TotalRefunds.Equal(d("1000")), "refunds %s", sum.TotalRefunds)
	assert.True(t, sum.TotalAdjustments.Equal(d("-500")), "adjustments %s", sum.TotalAdjustments)
	// 10000 - 3000 - 1000 - 500
	assert.True(t, sum.NetProfit.Equal(d("5500")), "net %s", sum.NetProfit)
	assert.True(t, sum.ProfitMargin.Equal(d("55")), "margin %s", sum.ProfitMargin)
}

func TestSummaryZeroIncome(t *testing.T) {
	repo := newMemRepo()
	svc := testService(repo)
	ctx := context.Background()

	_, err := svc.Record(ctx, RecordActivityRequest{Type: "expense", Category: "rent", Amount: d("4000")}, 1)
	require.NoError(t, err)

	now := time.Now()
	sum, err := svc.Summary(ctx, now.AddDate(0, 0, -1), now.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.True(t, sum.NetProfit.Equal(d("-4000")))
	assert.True(t, sum.ProfitMargin.IsZero())
}

func TestSummaryRejectsInvertedRange(t *testing.T) {
	svc := testService(newMemRepo())
	now := time.Now()
	_, err := svc.Summary(context.Background(), now, now.AddDate(0, 0, -1))
	require.ErrorIs(t, err, shared.ErrValidation)
}

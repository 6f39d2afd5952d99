package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/pharmaflow/pharmaflow/internal/deliveries"
	"github.com/pharmaflow/pharmaflow/internal/orders"
	"github.com/pharmaflow/pharmaflow/internal/summary"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSummaryWarmup precomputes the dashboard cache.
	TaskSummaryWarmup = "summary:warmup"
	// TaskOverdueScan reports orders and deliveries past their dates.
	TaskOverdueScan = "fulfillment:overdue_scan"
)

// OverdueScanPayload bounds how many entries the scan reports per run.
type OverdueScanPayload struct {
	Limit int `json:"limit"`
}

func NewSummaryWarmupTask() *asynq.Task {
	return asynq.NewTask(TaskSummaryWarmup, nil)
}

func NewOverdueScanTask(payload OverdueScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOverdueScan, data), nil
}

// SummaryWarmupJob refreshes the dashboard cache off the request path.
type SummaryWarmupJob struct {
	Summaries *summary.Service
	Logger    *slog.Logger
}

func NewSummaryWarmupJob(summaries *summary.Service, logger *slog.Logger) *SummaryWarmupJob {
	return &SummaryWarmupJob{Summaries: summaries, Logger: logger}
}

func (j *SummaryWarmupJob) Handle(ctx context.Context, _ *asynq.Task) error {
	start := time.Now()
	if err := j.Summaries.Warm(ctx); err != nil {
		return err
	}
	j.Logger.InfoContext(ctx, "summary warmup complete", "took", time.Since(start).String())
	return nil
}

// OverdueScanJob surfaces unpaid orders and stale deliveries. It only
// reads and reports; order and delivery state moves exclusively through
// the request-path services.
type OverdueScanJob struct {
	Orders     *orders.Service
	Deliveries *deliveries.Service
	Logger     *slog.Logger
}

func NewOverdueScanJob(orderSvc *orders.Service, deliverySvc *deliveries.Service, logger *slog.Logger) *OverdueScanJob {
	return &OverdueScanJob{Orders: orderSvc, Deliveries: deliverySvc, Logger: logger}
}

func (j *OverdueScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload OverdueScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.Limit <= 0 {
		payload.Limit = 100
	}

	overdueOrders, err := j.Orders.ListOverdue(ctx)
	if err != nil {
		return err
	}
	for i, o := range overdueOrders {
		if i >= payload.Limit {
			break
		}
		j.Logger.WarnContext(ctx, "order payment overdue",
			"order_id", o.ID, "order_number", o.OrderNumber,
			"customer_id", o.CustomerID, "balance_due", o.BalanceDue, "due_date", o.DueDate)
	}

	overdueDeliveries, err := j.Deliveries.ListOverdue(ctx)
	if err != nil {
		return err
	}
	for i, dl := range overdueDeliveries {
		if i >= payload.Limit {
			break
		}
		j.Logger.WarnContext(ctx, "delivery overdue",
			"delivery_id", dl.ID, "delivery_number", dl.DeliveryNumber,
			"order_id", dl.OrderID, "status", dl.Status, "scheduled_date", dl.ScheduledDate)
	}

	j.Logger.InfoContext(ctx, "overdue scan complete",
		"overdue_orders", len(overdueOrders), "overdue_deliveries", len(overdueDeliveries))
	return nil
}

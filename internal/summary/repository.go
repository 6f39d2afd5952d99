package summary

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository runs the aggregate queries behind the dashboard. Reads only.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) OrdersByStatus(ctx context.Context) ([]StatusBucket, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT status, count(*), COALESCE(sum(total_amount), 0)
		 FROM orders GROUP BY status ORDER BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StatusBucket
	for rows.Next() {
		var b StatusBucket
		if err := rows.Scan(&b.Status, &b.Count, &b.TotalValue); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repository) OverdueOrders(ctx context.Context, asOf time.Time) ([]OverdueOrder, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, order_number, customer_id, balance_due, due_date,
			GREATEST(0, EXTRACT(DAY FROM $1::timestamptz - due_date)::bigint)
		 FROM orders
		 WHERE payment_status <> 'paid' AND due_date IS NOT NULL AND due_date < $1
		   AND status <> 'cancelled'
		 ORDER BY due_date`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OverdueOrder
	for rows.Next() {
		var o OverdueOrder
		if err := rows.Scan(&o.OrderID, &o.OrderNumber, &o.CustomerID, &o.BalanceDue, &o.DueDate, &o.DaysOverdue); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *Repository) OverdueDeliveries(ctx context.Context, asOf time.Time) ([]OverdueDelivery, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, delivery_number, order_id, status, scheduled_date
		 FROM deliveries
		 WHERE status NOT IN ('delivered','cancelled','returned') AND scheduled_date < $1
		 ORDER BY scheduled_date`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OverdueDelivery
	for rows.Next() {
		var dl OverdueDelivery
		if err := rows.Scan(&dl.DeliveryID, &dl.DeliveryNumber, &dl.OrderID, &dl.Status, &dl.ScheduledDate); err != nil {
			return nil, err
		}
		out = append(out, dl)
	}
	return out, rows.Err()
}

func (r *Repository) OpenBalance(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(sum(balance_due), 0) FROM orders
		 WHERE payment_status <> 'paid' AND status NOT IN ('cancelled')`).Scan(&total)
	return total, err
}

func (r *Repository) PaymentsCompletedSince(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(sum(amount), 0) FROM payments
		 WHERE status = 'completed' AND processed_at >= $1`, since).Scan(&total)
	return total, err
}

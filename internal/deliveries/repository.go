package deliveries

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pharmaflow/pharmaflow/internal/inventory"
	"github.com/pharmaflow/pharmaflow/internal/orders"
	"github.com/pharmaflow/pharmaflow/internal/platform/db"
	"github.com/pharmaflow/pharmaflow/internal/sequence"
	"github.com/pharmaflow/pharmaflow/internal/shared"
)

// Repository is the persistence port for deliveries. Scheduling and
// completing a delivery move the linked order too, so the port carries
// the order reads and writes those transitions need.
type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, r Repository) error) error

	NextNumber(ctx context.Context, kind sequence.Kind, at time.Time) (string, error)

	Create(ctx context.Context, dl *Delivery) error
	Get(ctx context.Context, id int64) (*Delivery, error)
	GetForUpdate(ctx context.Context, id int64) (*Delivery, error)
	List(ctx context.Context, req ListDeliveriesRequest) ([]Delivery, int, error)
	ListOverdue(ctx context.Context, asOf time.Time) ([]Delivery, error)
	Update(ctx context.Context, id int64, fields map[string]any) error

	GetOrderForUpdate(ctx context.Context, orderID int64) (*orders.Order, error)
	UpdateOrder(ctx context.Context, orderID int64, fields map[string]any) error
	DeductOrderStock(ctx context.Context, o *orders.Order, actorID int64) error
	MarkOrderItemsDelivered(ctx context.Context, orderID int64) error
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type pgRepository struct {
	pool *pgxpool.Pool
	q    querier
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool, q: pool}
}

func (r *pgRepository) WithTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgRepository{pool: r.pool, q: tx})
	})
}

func (r *pgRepository) NextNumber(ctx context.Context, kind sequence.Kind, at time.Time) (string, error) {
	return sequence.NextTx(ctx, r.q, kind, at)
}

const deliveryColumns = `id, delivery_number, order_id, customer_id, status, courier_name, courier_phone,
	address, scheduled_date, delivered_at, is_partial_delivery, notes, created_by, created_at, updated_at`

func scanDelivery(row pgx.Row) (*Delivery, error) {
	var dl Delivery
	err := row.Scan(&dl.ID, &dl.DeliveryNumber, &dl.OrderID, &dl.CustomerID, &dl.Status, &dl.CourierName, &dl.CourierPhone,
		&dl.Address, &dl.ScheduledDate, &dl.DeliveredAt, &dl.IsPartialDelivery, &dl.Notes, &dl.CreatedBy, &dl.CreatedAt, &dl.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &dl, nil
}

func (r *pgRepository) Create(ctx context.Context, dl *Delivery) error {
	return r.q.QueryRow(ctx,
		`INSERT INTO deliveries (delivery_number, order_id, customer_id, status, courier_name, courier_phone,
			address, scheduled_date, is_partial_delivery, notes, created_by)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		 RETURNING id, created_at, updated_at`,
		dl.DeliveryNumber, dl.OrderID, dl.CustomerID, dl.Status, dl.CourierName, dl.CourierPhone,
		dl.Address, dl.ScheduledDate, dl.IsPartialDelivery, dl.Notes, dl.CreatedBy).
		Scan(&dl.ID, &dl.CreatedAt, &dl.UpdatedAt)
}

func (r *pgRepository) Get(ctx context.Context, id int64) (*Delivery, error) {
	return scanDelivery(r.q.QueryRow(ctx, `SELECT `+deliveryColumns+` FROM deliveries WHERE id = $1`, id))
}

func (r *pgRepository) GetForUpdate(ctx context.Context, id int64) (*Delivery, error) {
	dl, err := scanDelivery(r.q.QueryRow(ctx,
		`SELECT `+deliveryColumns+` FROM deliveries WHERE id = $1 FOR UPDATE NOWAIT`, id))
	if err != nil {
		return nil, db.MapLockError(err)
	}
	return dl, nil
}

func (r *pgRepository) List(ctx context.Context, req ListDeliveriesRequest) ([]Delivery, int, error) {
	where := []string{"1=1"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if req.Status != "" {
		where = append(where, "status = "+arg(req.Status))
	}
	if req.OrderID > 0 {
		where = append(where, "order_id = "+arg(req.OrderID))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM deliveries WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	perPage := req.PerPage
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}
	page := req.Page
	if page <= 0 {
		page = 1
	}
	rows, err := r.q.Query(ctx,
		`SELECT `+deliveryColumns+` FROM deliveries WHERE `+cond+
			` ORDER BY id DESC LIMIT `+arg(perPage)+` OFFSET `+arg((page-1)*perPage), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Delivery
	for rows.Next() {
		dl, err := scanDelivery(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *dl)
	}
	return out, total, rows.Err()
}

func (r *pgRepository) ListOverdue(ctx context.Context, asOf time.Time) ([]Delivery, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+deliveryColumns+` FROM deliveries
		 WHERE status IN ('scheduled','in_transit') AND scheduled_date < $1
		 ORDER BY scheduled_date`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Delivery
	for rows.Next() {
		dl, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *dl)
	}
	return out, rows.Err()
}

func (r *pgRepository) Update(ctx context.Context, id int64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	set := make([]string, 0, len(fields)+1)
	args := make([]any, 0, len(fields)+1)
	for col, v := range fields {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	set = append(set, "updated_at = now()")
	args = append(args, id)
	tag, err := r.q.Exec(ctx,
		fmt.Sprintf("UPDATE deliveries SET %s WHERE id = $%d", strings.Join(set, ", "), len(args)), args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *pgRepository) GetOrderForUpdate(ctx context.Context, orderID int64) (*orders.Order, error) {
	var o orders.Order
	err := r.q.QueryRow(ctx,
		`SELECT id, order_number, customer_id, status, payment_status, delivery_type, payment_terms,
			is_delivery_scheduled, is_delivered, inventory_reserved, inventory_deducted
		 FROM orders WHERE id = $1 FOR UPDATE NOWAIT`, orderID).
		Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.Status, &o.PaymentStatus, &o.DeliveryType, &o.PaymentTerms,
			&o.IsDeliveryScheduled, &o.IsDelivered, &o.InventoryReserved, &o.InventoryDeducted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, db.MapLockError(err)
	}

	rows, err := r.q.Query(ctx,
		`SELECT product_id, quantity FROM order_items WHERE order_id = $1 ORDER BY id`, o.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it orders.OrderItem
		if err := rows.Scan(&it.ProductID, &it.Quantity); err != nil {
			return nil, err
		}
		it.OrderID = o.ID
		o.Items = append(o.Items, it)
	}
	return &o, rows.Err()
}

func (r *pgRepository) UpdateOrder(ctx context.Context, orderID int64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	set := make([]string, 0, len(fields)+1)
	args := make([]any, 0, len(fields)+1)
	for col, v := range fields {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	set = append(set, "updated_at = now()")
	args = append(args, orderID)
	tag, err := r.q.Exec(ctx,
		fmt.Sprintf("UPDATE orders SET %s WHERE id = $%d", strings.Join(set, ", "), len(args)), args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *pgRepository) DeductOrderStock(ctx context.Context, o *orders.Order, actorID int64) error {
	mv := inventory.Movement{ReferenceType: "order", ReferenceID: o.ID, ActorID: actorID}
	for i := range o.Items {
		if err := inventory.Deduct(ctx, r.q, o.Items[i].ProductID, o.Items[i].Quantity, mv); err != nil {
			return err
		}
	}
	return nil
}

func (r *pgRepository) MarkOrderItemsDelivered(ctx context.Context, orderID int64) error {
	_, err := r.q.Exec(ctx,
		`UPDATE order_items SET quantity_delivered = quantity WHERE order_id = $1`, orderID)
	return err
}

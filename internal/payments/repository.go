package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/pharmaflow/pharmaflow/internal/orders"
	"github.com/pharmaflow/pharmaflow/internal/platform/db"
	"github.com/pharmaflow/pharmaflow/internal/sequence"
	"github.com/pharmaflow/pharmaflow/internal/shared"
)

// Repository is the persistence port for payments. Completing or refunding
// a payment rewrites the order's money columns and the customer's balance,
// so the port carries those cross-table writes and WithTx binds them to a
// single transaction.
type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, r Repository) error) error

	NextNumber(ctx context.Context, kind sequence.Kind, at time.Time) (string, error)

	Create(ctx context.Context, p *Payment) error
	Get(ctx context.Context, id int64) (*Payment, error)
	GetForUpdate(ctx context.Context, id int64) (*Payment, error)
	GetByReference(ctx context.Context, reference string) (*Payment, error)
	List(ctx context.Context, req ListPaymentsRequest) ([]Payment, int, error)
	Update(ctx context.Context, id int64, fields map[string]any) error

	GetOrderForUpdate(ctx context.Context, orderID int64) (*orders.Order, error)
	UpdateOrderPayment(ctx context.Context, o *orders.Order) error
	AdjustCustomerBalance(ctx context.Context, customerID int64, delta decimal.Decimal) error
	CustomerExists(ctx context.Context, customerID int64) error
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

const paymentColumns = `id, payment_number, order_id, customer_id, amount, amount_received, method,
	category, status, reference, receipt_number, notes, processed_by, processed_at, created_at, updated_at`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.PaymentNumber, &p.OrderID, &p.CustomerID, &p.Amount, &p.AmountReceived, &p.Method,
		&p.Category, &p.Status, &p.Reference, &p.ReceiptNumber, &p.Notes, &p.ProcessedBy, &p.ProcessedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *pgRepository) Create(ctx context.Context, p *Payment) error {
	err := r.q.QueryRow(ctx,
		`INSERT INTO payments (payment_number, order_id, customer_id, amount, amount_received, method,
			category, status, reference, notes, processed_by)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		 RETURNING id, created_at, updated_at`,
		p.PaymentNumber, p.OrderID, p.CustomerID, p.Amount, p.AmountReceived, p.Method,
		p.Category, p.Status, p.Reference, p.Notes, p.ProcessedBy).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("%w: payment reference %s already recorded", shared.ErrConflict, p.Reference)
		}
		return err
	}
	return nil
}

func (r *pgRepository) Get(ctx context.Context, id int64) (*Payment, error) {
	return scanPayment(r.q.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
}

func (r *pgRepository) GetForUpdate(ctx context.Context, id int64) (*Payment, error) {
	p, err := scanPayment(r.q.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE NOWAIT`, id))
	if err != nil {
		return nil, db.MapLockError(err)
	}
	return p, nil
}

func (r *pgRepository) GetByReference(ctx context.Context, reference string) (*Payment, error) {
	return scanPayment(r.q.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE reference = $1`, reference))
}

func (r *pgRepository) List(ctx context.Context, req ListPaymentsRequest) ([]Payment, int, error) {
	where := []string{"1=1"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if req.OrderID > 0 {
		where = append(where, "order_id = "+arg(req.OrderID))
	}
	if req.CustomerID > 0 {
		where = append(where, "customer_id = "+arg(req.CustomerID))
	}
	if req.Status != "" {
		where = append(where, "status = "+arg(req.Status))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM payments WHERE `+cond, args...).Scan(&total); err != nil {
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
		`SELECT `+paymentColumns+` FROM payments WHERE `+cond+
			` ORDER BY id DESC LIMIT `+arg(perPage)+` OFFSET `+arg((page-1)*perPage), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	return out, total, rows.Err()
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
		fmt.Sprintf("UPDATE payments SET %s WHERE id = $%d", strings.Join(set, ", "), len(args)), args...)
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
		`SELECT id, order_number, customer_id, status, payment_status, total_amount, paid_amount, balance_due,
			payment_terms, due_date, is_payment_processed
		 FROM orders WHERE id = $1 FOR UPDATE NOWAIT`, orderID).
		Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.Status, &o.PaymentStatus, &o.TotalAmount, &o.PaidAmount, &o.BalanceDue,
			&o.PaymentTerms, &o.DueDate, &o.IsPaymentProcessed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, db.MapLockError(err)
	}
	return &o, nil
}

func (r *pgRepository) UpdateOrderPayment(ctx context.Context, o *orders.Order) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE orders SET paid_amount = $1, balance_due = $2, payment_status = $3,
			is_payment_processed = $4, updated_at = now()
		 WHERE id = $5`,
		o.PaidAmount, o.BalanceDue, o.PaymentStatus, o.IsPaymentProcessed, o.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *pgRepository) CustomerExists(ctx context.Context, customerID int64) error {
	var exists bool
	if err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1 AND deleted_at IS NULL)`, customerID).
		Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return shared.ErrNotFound
	}
	return nil
}

func (r *pgRepository) AdjustCustomerBalance(ctx context.Context, customerID int64, delta decimal.Decimal) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE customers SET current_balance = current_balance + $1, updated_at = now()
		 WHERE id = $2 AND deleted_at IS NULL`, delta, customerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

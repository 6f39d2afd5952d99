package orders

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

	"github.com/pharmaflow/pharmaflow/internal/customers"
	"github.com/pharmaflow/pharmaflow/internal/inventory"
	"github.com/pharmaflow/pharmaflow/internal/platform/db"
	"github.com/pharmaflow/pharmaflow/internal/sequence"
	"github.com/pharmaflow/pharmaflow/internal/shared"
)

// Repository is the persistence port for orders. WithTx runs fn against a
// repository bound to a single transaction; every state transition that
// touches money or stock goes through it.
type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, r Repository) error) error

	NextNumber(ctx context.Context, kind sequence.Kind, at time.Time) (string, error)

	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id int64) (*Order, error)
	GetForUpdate(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error)
	ListOverdue(ctx context.Context, asOf time.Time) ([]Order, error)
	Update(ctx context.Context, id int64, fields map[string]any) error
	ReplaceItems(ctx context.Context, orderID int64, items []OrderItem) error
	MarkItemsDelivered(ctx context.Context, orderID int64) error

	GetCreditAccountForUpdate(ctx context.Context, customerID int64) (*customers.CreditAccount, error)
	GetCustomerTerms(ctx context.Context, customerID int64) (paymentTerms string, termsDays int, err error)
	AdjustCustomerBalance(ctx context.Context, customerID int64, delta decimal.Decimal) error

	ReserveStock(ctx context.Context, o *Order, actorID int64) error
	ReleaseStock(ctx context.Context, o *Order, actorID int64) error
	DeductStock(ctx context.Context, o *Order, actorID int64) error
}

// querier is the subset of pgxpool.Pool and pgx.Tx the repository needs.
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

const orderColumns = `id, order_number, customer_id, status, payment_status, delivery_type,
	subtotal, tax_amount, discount_amount, shipping_cost, total_amount, paid_amount, balance_due,
	payment_terms, due_date, order_date, expected_delivery_date, actual_delivery_date,
	is_invoiced, invoice_number, is_payment_processed,
	is_delivery_scheduled, is_delivered, inventory_reserved, inventory_deducted,
	notes, created_by, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.Status, &o.PaymentStatus, &o.DeliveryType,
		&o.Subtotal, &o.TaxAmount, &o.DiscountAmount, &o.ShippingCost, &o.TotalAmount, &o.PaidAmount, &o.BalanceDue,
		&o.PaymentTerms, &o.DueDate, &o.OrderDate, &o.ExpectedDeliveryDate, &o.ActualDeliveryDate,
		&o.IsInvoiced, &o.InvoiceNumber, &o.IsPaymentProcessed,
		&o.IsDeliveryScheduled, &o.IsDelivered, &o.InventoryReserved, &o.InventoryDeducted,
		&o.Notes, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *pgRepository) Create(ctx context.Context, o *Order) error {
	err := r.q.QueryRow(ctx,
		`INSERT INTO orders (order_number, customer_id, status, payment_status, delivery_type,
			subtotal, tax_amount, discount_amount, shipping_cost, total_amount, paid_amount, balance_due,
			payment_terms, due_date, order_date, expected_delivery_date, notes, created_by)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		 RETURNING id, created_at, updated_at`,
		o.OrderNumber, o.CustomerID, o.Status, o.PaymentStatus, o.DeliveryType,
		o.Subtotal, o.TaxAmount, o.DiscountAmount, o.ShippingCost, o.TotalAmount, o.PaidAmount, o.BalanceDue,
		o.PaymentTerms, o.DueDate, o.OrderDate, o.ExpectedDeliveryDate, o.Notes, o.CreatedBy).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("%w: order number %s already exists", shared.ErrConflict, o.OrderNumber)
		}
		return err
	}
	return r.insertItems(ctx, o.ID, o.Items)
}

func (r *pgRepository) insertItems(ctx context.Context, orderID int64, items []OrderItem) error {
	for i := range items {
		it := &items[i]
		it.OrderID = orderID
		err := r.q.QueryRow(ctx,
			`INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price,
				wholesale_price, discount_percent, tax_percent, subtotal, discount_amount, tax_amount, total)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
			 RETURNING id`,
			it.OrderID, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice,
			it.WholesalePrice, it.DiscountPercent, it.TaxPercent, it.Subtotal, it.DiscountAmount, it.TaxAmount, it.Total).
			Scan(&it.ID)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *pgRepository) loadItems(ctx context.Context, o *Order) error {
	rows, err := r.q.Query(ctx,
		`SELECT id, order_id, product_id, product_name, quantity, quantity_delivered, unit_price,
			wholesale_price, discount_percent, tax_percent, subtotal, discount_amount, tax_amount, total
		 FROM order_items WHERE order_id = $1 ORDER BY id`, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.QuantityDelivered, &it.UnitPrice,
			&it.WholesalePrice, &it.DiscountPercent, &it.TaxPercent, &it.Subtotal, &it.DiscountAmount, &it.TaxAmount, &it.Total); err != nil {
			return err
		}
		o.Items = append(o.Items, it)
	}
	return rows.Err()
}

func (r *pgRepository) Get(ctx context.Context, id int64) (*Order, error) {
	o, err := scanOrder(r.q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *pgRepository) GetForUpdate(ctx context.Context, id int64) (*Order, error) {
	o, err := scanOrder(r.q.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE NOWAIT`, id))
	if err != nil {
		return nil, db.MapLockError(err)
	}
	if err := r.loadItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *pgRepository) List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error) {
	where := []string{"1=1"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if req.Status != "" {
		where = append(where, "status = "+arg(req.Status))
	}
	if req.PaymentStatus != "" {
		where = append(where, "payment_status = "+arg(req.PaymentStatus))
	}
	if req.CustomerID > 0 {
		where = append(where, "customer_id = "+arg(req.CustomerID))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM orders WHERE `+cond, args...).Scan(&total); err != nil {
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
	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` + cond +
		` ORDER BY id DESC LIMIT ` + arg(perPage) + ` OFFSET ` + arg((page-1)*perPage)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *o)
	}
	return out, total, rows.Err()
}

func (r *pgRepository) ListOverdue(ctx context.Context, asOf time.Time) ([]Order, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE payment_status NOT IN ('paid') AND due_date IS NOT NULL AND due_date < $1
		   AND status NOT IN ('cancelled')
		 ORDER BY due_date`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
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
		fmt.Sprintf("UPDATE orders SET %s WHERE id = $%d", strings.Join(set, ", "), len(args)), args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *pgRepository) ReplaceItems(ctx context.Context, orderID int64, items []OrderItem) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID); err != nil {
		return err
	}
	return r.insertItems(ctx, orderID, items)
}

func (r *pgRepository) MarkItemsDelivered(ctx context.Context, orderID int64) error {
	_, err := r.q.Exec(ctx,
		`UPDATE order_items SET quantity_delivered = quantity WHERE order_id = $1`, orderID)
	return err
}

func (r *pgRepository) GetCreditAccountForUpdate(ctx context.Context, customerID int64) (*customers.CreditAccount, error) {
	var acct customers.CreditAccount
	err := r.q.QueryRow(ctx,
		`SELECT id, credit_limit_type, credit_limit, current_balance
		 FROM customers WHERE id = $1 AND deleted_at IS NULL FOR UPDATE NOWAIT`, customerID).
		Scan(&acct.ID, &acct.CreditLimitType, &acct.CreditLimit, &acct.CurrentBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, db.MapLockError(err)
	}
	return &acct, nil
}

func (r *pgRepository) GetCustomerTerms(ctx context.Context, customerID int64) (string, int, error) {
	var terms string
	var days int
	err := r.q.QueryRow(ctx,
		`SELECT payment_terms, payment_terms_days FROM customers WHERE id = $1 AND deleted_at IS NULL`, customerID).
		Scan(&terms, &days)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", 0, shared.ErrNotFound
		}
		return "", 0, err
	}
	return terms, days, nil
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

func (r *pgRepository) eachItem(ctx context.Context, o *Order, actorID int64, fn func(ctx context.Context, q inventory.Querier, productID int64, qty decimal.Decimal, mv inventory.Movement) error) error {
	mv := inventory.Movement{ReferenceType: "order", ReferenceID: o.ID, ActorID: actorID}
	for i := range o.Items {
		if err := fn(ctx, r.q, o.Items[i].ProductID, o.Items[i].Quantity, mv); err != nil {
			return err
		}
	}
	return nil
}

func (r *pgRepository) ReserveStock(ctx context.Context, o *Order, actorID int64) error {
	return r.eachItem(ctx, o, actorID, inventory.Reserve)
}

func (r *pgRepository) ReleaseStock(ctx context.Context, o *Order, actorID int64) error {
	return r.eachItem(ctx, o, actorID, inventory.Release)
}

func (r *pgRepository) DeductStock(ctx context.Context, o *Order, actorID int64) error {
	return r.eachItem(ctx, o, actorID, inventory.Deduct)
}

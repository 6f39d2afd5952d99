package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/pharmaflow/pharmaflow/internal/platform/db"
	"github.com/pharmaflow/pharmaflow/internal/shared"
)

var (
	ErrAlreadyExists = errors.New("record already exists")
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Customer, error)
	// GetForUpdate row-locks the customer with NOWAIT; contention maps to
	// shared.ErrConflict so callers can retry instead of blocking.
	GetForUpdate(ctx context.Context, id int64) (*Customer, error)
	GetByCode(ctx context.Context, code string) (*Customer, error)
	List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error)
	Create(ctx context.Context, customer Customer) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) error
	// AdjustBalance adds delta to current_balance (negative delta reduces debt).
	AdjustBalance(ctx context.Context, id int64, delta decimal.Decimal) error
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const customerColumns = `id, code, name, email, phone, tax_id, credit_limit_type, credit_limit,
current_balance, payment_terms, payment_terms_days, address_line1, city, country,
is_active, notes, created_by, created_at, updated_at`

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	err := row.Scan(
		&c.ID, &c.Code, &c.Name, &c.Email, &c.Phone, &c.TaxID, &c.CreditLimitType,
		&c.CreditLimit, &c.CurrentBalance, &c.PaymentTerms, &c.PaymentTermsDays,
		&c.AddressLine1, &c.City, &c.Country, &c.IsActive, &c.Notes,
		&c.CreatedBy, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Customer, error) {
	query := fmt.Sprintf(`SELECT %s FROM customers WHERE id = $1 AND deleted_at IS NULL`, customerColumns)
	return scanCustomer(r.db.QueryRow(ctx, query, id))
}

func (r *repository) GetForUpdate(ctx context.Context, id int64) (*Customer, error) {
	query := fmt.Sprintf(`SELECT %s FROM customers WHERE id = $1 AND deleted_at IS NULL FOR UPDATE NOWAIT`, customerColumns)
	c, err := scanCustomer(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, db.MapLockError(err)
	}
	return c, nil
}

func (r *repository) GetByCode(ctx context.Context, code string) (*Customer, error) {
	query := fmt.Sprintf(`SELECT %s FROM customers WHERE code = $1 AND deleted_at IS NULL`, customerColumns)
	return scanCustomer(r.db.QueryRow(ctx, query, code))
}

func (r *repository) List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error) {
	conditions := []string{"deleted_at IS NULL"}
	args := []interface{}{}
	argPos := 1

	if req.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argPos))
		args = append(args, *req.IsActive)
		argPos++
	}
	if req.Search != nil && *req.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(code ILIKE $%d OR name ILIKE $%d)", argPos, argPos))
		args = append(args, "%"+*req.Search+"%")
		argPos++
	}
	where := "WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, "SELECT count(*) FROM customers "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM customers %s ORDER BY code LIMIT $%d OFFSET $%d`,
		customerColumns, where, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(
			&c.ID, &c.Code, &c.Name, &c.Email, &c.Phone, &c.TaxID, &c.CreditLimitType,
			&c.CreditLimit, &c.CurrentBalance, &c.PaymentTerms, &c.PaymentTermsDays,
			&c.AddressLine1, &c.City, &c.Country, &c.IsActive, &c.Notes,
			&c.CreatedBy, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		result = append(result, c)
	}
	return result, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, c Customer) (int64, error) {
	query := `
		INSERT INTO customers (code, name, email, phone, tax_id, credit_limit_type,
			credit_limit, current_balance, payment_terms, payment_terms_days,
			address_line1, city, country, is_active, notes, created_by, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,NOW(),NOW())
		RETURNING id
	`
	var id int64
	err := r.db.QueryRow(ctx, query,
		c.Code, c.Name, c.Email, c.Phone, c.TaxID, string(c.CreditLimitType),
		c.CreditLimit, c.CurrentBalance, string(c.PaymentTerms), c.PaymentTermsDays,
		c.AddressLine1, c.City, c.Country, c.IsActive, c.Notes, c.CreatedBy,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, fmt.Errorf("%w: customer code %s", ErrAlreadyExists, c.Code)
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	setClauses := make([]string, 0, len(updates)+1)
	args := make([]interface{}, 0, len(updates)+1)
	argPos := 1
	for col, val := range updates {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", col, argPos))
		args = append(args, val)
		argPos++
	}
	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE customers SET %s WHERE id = $%d AND deleted_at IS NULL`,
		strings.Join(setClauses, ", "), argPos)
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) AdjustBalance(ctx context.Context, id int64, delta decimal.Decimal) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE customers SET current_balance = current_balance + $1, updated_at = NOW()
		 WHERE id = $2 AND deleted_at IS NULL`, delta, id)
	if err != nil {
		return db.MapLockError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

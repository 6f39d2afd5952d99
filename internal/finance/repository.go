package finance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pharmaflow/pharmaflow/internal/platform/db"
	"github.com/pharmaflow/pharmaflow/internal/sequence"
	"github.com/pharmaflow/pharmaflow/internal/shared"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, r Repository) error) error

	NextNumber(ctx context.Context, kind sequence.Kind, at time.Time) (string, error)

	Create(ctx context.Context, a *Activity) error
	Get(ctx context.Context, id int64) (*Activity, error)
	GetForUpdate(ctx context.Context, id int64) (*Activity, error)
	List(ctx context.Context, req ListActivitiesRequest) ([]Activity, int, error)
	ListApprovedInRange(ctx context.Context, from, to time.Time) ([]Activity, error)
	Update(ctx context.Context, id int64, fields map[string]any) error
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

const activityColumns = `id, transaction_id, type, category, amount, description, status,
	activity_date, order_id, created_by, approved_by, approved_at, created_at, updated_at`

func scanActivity(row pgx.Row) (*Activity, error) {
	var a Activity
	err := row.Scan(&a.ID, &a.TransactionID, &a.Type, &a.Category, &a.Amount, &a.Description, &a.Status,
		&a.ActivityDate, &a.OrderID, &a.CreatedBy, &a.ApprovedBy, &a.ApprovedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *pgRepository) Create(ctx context.Context, a *Activity) error {
	return r.q.QueryRow(ctx,
		`INSERT INTO financial_activities (transaction_id, type, category, amount, description, status,
			activity_date, order_id, created_by, approved_by, approved_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		 RETURNING id, created_at, updated_at`,
		a.TransactionID, a.Type, a.Category, a.Amount, a.Description, a.Status,
		a.ActivityDate, a.OrderID, a.CreatedBy, a.ApprovedBy, a.ApprovedAt).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (r *pgRepository) Get(ctx context.Context, id int64) (*Activity, error) {
	return scanActivity(r.q.QueryRow(ctx, `SELECT `+activityColumns+` FROM financial_activities WHERE id = $1`, id))
}

func (r *pgRepository) GetForUpdate(ctx context.Context, id int64) (*Activity, error) {
	a, err := scanActivity(r.q.QueryRow(ctx,
		`SELECT `+activityColumns+` FROM financial_activities WHERE id = $1 FOR UPDATE NOWAIT`, id))
	if err != nil {
		return nil, db.MapLockError(err)
	}
	return a, nil
}

func (r *pgRepository) List(ctx context.Context, req ListActivitiesRequest) ([]Activity, int, error) {
	where := []string{"1=1"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if req.Type != "" {
		where = append(where, "type = "+arg(req.Type))
	}
	if req.Status != "" {
		where = append(where, "status = "+arg(req.Status))
	}
	if req.Category != "" {
		where = append(where, "category = "+arg(req.Category))
	}
	if req.From != nil {
		where = append(where, "activity_date >= "+arg(*req.From))
	}
	if req.To != nil {
		where = append(where, "activity_date <= "+arg(*req.To))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM financial_activities WHERE `+cond, args...).Scan(&total); err != nil {
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
		`SELECT `+activityColumns+` FROM financial_activities WHERE `+cond+
			` ORDER BY activity_date DESC, id DESC LIMIT `+arg(perPage)+` OFFSET `+arg((page-1)*perPage), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *a)
	}
	return out, total, rows.Err()
}

func (r *pgRepository) ListApprovedInRange(ctx context.Context, from, to time.Time) ([]Activity, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+activityColumns+` FROM financial_activities
		 WHERE status = 'approved' AND activity_date >= $1 AND activity_date <= $2
		 ORDER BY activity_date`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
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
		fmt.Sprintf("UPDATE financial_activities SET %s WHERE id = $%d", strings.Join(set, ", "), len(args)), args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

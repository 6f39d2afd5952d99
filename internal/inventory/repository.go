package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pharmaflow/pharmaflow/internal/shared"
)

// Repository serves the read-only stock views consumed by dashboards.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) GetLevel(ctx context.Context, productID int64) (*StockLevel, error) {
	var lvl StockLevel
	err := r.pool.QueryRow(ctx,
		`SELECT product_id, product_name, on_hand, reserved, updated_at
		 FROM stock_levels WHERE product_id = $1`, productID).
		Scan(&lvl.ProductID, &lvl.ProductName, &lvl.OnHand, &lvl.Reserved, &lvl.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &lvl, nil
}

func (r *Repository) ListLevels(ctx context.Context, limit, offset int) ([]StockLevel, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx,
		`SELECT product_id, product_name, on_hand, reserved, updated_at
		 FROM stock_levels ORDER BY product_id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var levels []StockLevel
	for rows.Next() {
		var lvl StockLevel
		if err := rows.Scan(&lvl.ProductID, &lvl.ProductName, &lvl.OnHand, &lvl.Reserved, &lvl.UpdatedAt); err != nil {
			return nil, err
		}
		levels = append(levels, lvl)
	}
	return levels, rows.Err()
}

func (r *Repository) ListMovements(ctx context.Context, productID int64, limit int) ([]StockMovement, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, product_id, type, quantity, reference_type, reference_id, actor_id, created_at
		 FROM stock_movements WHERE product_id = $1 ORDER BY id DESC LIMIT $2`, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var moves []StockMovement
	for rows.Next() {
		var m StockMovement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Type, &m.Quantity, &m.ReferenceType, &m.ReferenceID, &m.ActorID, &m.CreatedAt); err != nil {
			return nil, err
		}
		moves = append(moves, m)
	}
	return moves, rows.Err()
}

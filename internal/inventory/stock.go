package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/pharmaflow/pharmaflow/internal/platform/db"
	"github.com/pharmaflow/pharmaflow/internal/shared"
)

// Querier is the pgx surface the stock operations need. Both pgx.Tx and
// *pgxpool.Pool satisfy it, so order and delivery transitions run stock
// changes inside their own transaction: a failed reservation aborts the
// whole transition with nothing persisted.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Movement describes the workflow document driving a stock change.
type Movement struct {
	ReferenceType string
	ReferenceID   int64
	ActorID       int64
}

func lockLevel(ctx context.Context, q Querier, productID int64) (*StockLevel, error) {
	var lvl StockLevel
	err := q.QueryRow(ctx,
		`SELECT product_id, product_name, on_hand, reserved, updated_at
		 FROM stock_levels WHERE product_id = $1 FOR UPDATE NOWAIT`, productID).
		Scan(&lvl.ProductID, &lvl.ProductName, &lvl.OnHand, &lvl.Reserved, &lvl.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: product %d has no stock record", shared.ErrInsufficientStock, productID)
		}
		return nil, db.MapLockError(err)
	}
	return &lvl, nil
}

func writeLevel(ctx context.Context, q Querier, lvl *StockLevel, mt MovementType, qty decimal.Decimal, mv Movement) error {
	if _, err := q.Exec(ctx,
		`UPDATE stock_levels SET on_hand = $1, reserved = $2, updated_at = NOW() WHERE product_id = $3`,
		lvl.OnHand, lvl.Reserved, lvl.ProductID); err != nil {
		return err
	}
	_, err := q.Exec(ctx,
		`INSERT INTO stock_movements (product_id, type, quantity, reference_type, reference_id, actor_id, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,NOW())`,
		lvl.ProductID, string(mt), qty, mv.ReferenceType, mv.ReferenceID, mv.ActorID)
	return err
}

// Reserve places a hold on qty units for an order being confirmed.
func Reserve(ctx context.Context, q Querier, productID int64, qty decimal.Decimal, mv Movement) error {
	lvl, err := lockLevel(ctx, q, productID)
	if err != nil {
		return err
	}
	if lvl.Available().LessThan(qty) {
		return fmt.Errorf("%w: product %d available %s, requested %s",
			shared.ErrInsufficientStock, productID, lvl.Available(), qty)
	}
	lvl.Reserved = lvl.Reserved.Add(qty)
	return writeLevel(ctx, q, lvl, MovementReserve, qty, mv)
}

// Release drops a hold, e.g. when a confirmed order is cancelled.
func Release(ctx context.Context, q Querier, productID int64, qty decimal.Decimal, mv Movement) error {
	lvl, err := lockLevel(ctx, q, productID)
	if err != nil {
		return err
	}
	lvl.Reserved = lvl.Reserved.Sub(qty)
	if lvl.Reserved.IsNegative() {
		lvl.Reserved = decimal.Zero
	}
	return writeLevel(ctx, q, lvl, MovementRelease, qty, mv)
}

// Deduct consumes reserved stock when goods leave the warehouse.
func Deduct(ctx context.Context, q Querier, productID int64, qty decimal.Decimal, mv Movement) error {
	lvl, err := lockLevel(ctx, q, productID)
	if err != nil {
		return err
	}
	if lvl.OnHand.LessThan(qty) {
		return fmt.Errorf("%w: product %d on hand %s, requested %s",
			shared.ErrInsufficientStock, productID, lvl.OnHand, qty)
	}
	lvl.OnHand = lvl.OnHand.Sub(qty)
	lvl.Reserved = lvl.Reserved.Sub(qty)
	if lvl.Reserved.IsNegative() {
		lvl.Reserved = decimal.Zero
	}
	return writeLevel(ctx, q, lvl, MovementDeduct, qty, mv)
}

// Receive adds qty units to on-hand stock.
func Receive(ctx context.Context, q Querier, productID int64, qty decimal.Decimal, mv Movement) error {
	lvl, err := lockLevel(ctx, q, productID)
	if err != nil {
		return err
	}
	lvl.OnHand = lvl.OnHand.Add(qty)
	return writeLevel(ctx, q, lvl, MovementReceive, qty, mv)
}

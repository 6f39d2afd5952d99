package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pharmaflow/pharmaflow/internal/shared"
)

// Querier is the subset of pgx connections the generator needs. Both
// *pgxpool.Pool and pgx.Tx satisfy it, so a number can be assigned inside
// the transaction that creates the document.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// incrementSQL bumps the persisted counter for (kind, period) atomically.
// The upsert serializes concurrent callers on the counter row; the series is
// unique and gapless without ever reading the previous value first.
const incrementSQL = `
INSERT INTO sequence_counters (kind, period, last_number)
VALUES ($1, $2, 1)
ON CONFLICT (kind, period)
DO UPDATE SET last_number = sequence_counters.last_number + 1
RETURNING last_number
`

// NextTx issues the next number for kind within the caller's transaction.
// If the counter store is unreachable the caller's whole create aborts, so
// no document is ever persisted with a missing or duplicate number.
func NextTx(ctx context.Context, q Querier, kind Kind, at time.Time) (string, error) {
	if !kind.IsValid() {
		return "", fmt.Errorf("%w: unknown sequence kind %q", shared.ErrValidation, kind)
	}
	var n int64
	if err := q.QueryRow(ctx, incrementSQL, string(kind), kind.PeriodKey(at)).Scan(&n); err != nil {
		return "", fmt.Errorf("%w: increment %s/%s: %v", shared.ErrSequenceUnavailable, kind, kind.PeriodKey(at), err)
	}
	return kind.Format(at, n), nil
}

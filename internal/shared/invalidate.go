package shared

import "context"

// Invalidator marks derived read models stale after a write. Services
// call it best-effort; a failed bump only delays freshness until the
// cache TTL.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

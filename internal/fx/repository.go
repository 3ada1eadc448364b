package fx

import (
	"context"
	"time"
)

type Repository interface {
	// Save upserts by (base, quote, source).
	Save(ctx context.Context, r Rate) error
	// Fresh returns a non-expired rate for the pair, or nil when none.
	Fresh(ctx context.Context, base, quote string, now time.Time) (*Rate, error)
	// LatestAny returns the most recently fetched rate regardless of
	// expiry, or nil when none.
	LatestAny(ctx context.Context, base, quote string) (*Rate, error)
}

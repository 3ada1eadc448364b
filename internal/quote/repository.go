package quote

import (
	"context"
	"time"
)

type Repository interface {
	// Save upserts by the natural key (ticker, market, source, as_of).
	Save(ctx context.Context, q Quote) error
	// Fresh returns the freshest non-expired quote, or nil when none.
	Fresh(ctx context.Context, ticker, mkt string, now time.Time) (*Quote, error)
	// LatestAny returns the most recent quote regardless of expiry,
	// ordered by as_of then fetched_at, or nil when none.
	LatestAny(ctx context.Context, ticker, mkt string) (*Quote, error)
}

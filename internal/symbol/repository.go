package symbol

import "context"

type Repository interface {
	// Save upserts by (ticker, market, provider).
	Save(ctx context.Context, rec Record) error
	// Get returns the most recently verified record for (ticker, market)
	// across providers, or nil when none exists.
	Get(ctx context.Context, ticker, mkt string) (*Record, error)
}

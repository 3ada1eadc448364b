package history

import (
	"context"
	"time"
)

type Repository interface {
	// Save upserts points by their natural key and returns the number of
	// rows written.
	Save(ctx context.Context, points []Point) (int64, error)
	// ListRange returns points strictly inside [from, to], ascending by
	// date.
	ListRange(ctx context.Context, ticker, mkt, interval string, from, to time.Time) ([]Point, error)
	// Latest returns the most recent point for (ticker, market, interval),
	// or nil when none exists.
	Latest(ctx context.Context, ticker, mkt, interval string) (*Point, error)
}

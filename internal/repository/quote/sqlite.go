package quote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domain "github.com/DominikIlski/Finansista/internal/quote"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Save(ctx context.Context, q domain.Quote) error {
	const query = `INSERT INTO quotes (ticker, market, price, currency, as_of, source, fetched_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (ticker, market, source, as_of) DO UPDATE SET
			price = excluded.price,
			currency = excluded.currency,
			fetched_at = excluded.fetched_at,
			expires_at = excluded.expires_at`

	_, err := r.db.ExecContext(ctx, query,
		q.Ticker, q.Market, q.Price, q.Currency,
		q.AsOf.UTC().Format(time.RFC3339),
		q.Source,
		q.FetchedAt.UTC().Format(time.RFC3339),
		q.ExpiresAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save quote: %w", err)
	}
	return nil
}

func (r *Repository) Fresh(ctx context.Context, ticker, mkt string, now time.Time) (*domain.Quote, error) {
	const query = `SELECT id, ticker, market, price, currency, as_of, source, fetched_at, expires_at
		FROM quotes
		WHERE ticker = ? AND market = ? AND expires_at > ?
		ORDER BY as_of DESC, fetched_at DESC
		LIMIT 1`

	return r.queryOne(ctx, query, ticker, mkt, now.UTC().Format(time.RFC3339))
}

func (r *Repository) LatestAny(ctx context.Context, ticker, mkt string) (*domain.Quote, error) {
	const query = `SELECT id, ticker, market, price, currency, as_of, source, fetched_at, expires_at
		FROM quotes
		WHERE ticker = ? AND market = ?
		ORDER BY as_of DESC, fetched_at DESC
		LIMIT 1`

	return r.queryOne(ctx, query, ticker, mkt)
}

func (r *Repository) queryOne(ctx context.Context, query string, args ...any) (*domain.Quote, error) {
	var q domain.Quote
	var asOf, fetchedAt, expiresAt string

	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&q.ID, &q.Ticker, &q.Market, &q.Price, &q.Currency, &asOf, &q.Source, &fetchedAt, &expiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query quote: %w", err)
	}

	q.AsOf, _ = time.Parse(time.RFC3339, asOf)
	q.FetchedAt, _ = time.Parse(time.RFC3339, fetchedAt)
	q.ExpiresAt, _ = time.Parse(time.RFC3339, expiresAt)
	return &q, nil
}

package fx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domain "github.com/DominikIlski/Finansista/internal/fx"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Save(ctx context.Context, rate domain.Rate) error {
	const query = `INSERT INTO fx_rates (base, quote, rate, source, fetched_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (base, quote, source) DO UPDATE SET
			rate = excluded.rate,
			fetched_at = excluded.fetched_at,
			expires_at = excluded.expires_at`

	_, err := r.db.ExecContext(ctx, query,
		rate.Base, rate.Quote, rate.Rate, rate.Source,
		rate.FetchedAt.UTC().Format(time.RFC3339),
		rate.ExpiresAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save fx rate: %w", err)
	}
	return nil
}

func (r *Repository) Fresh(ctx context.Context, base, quote string, now time.Time) (*domain.Rate, error) {
	const query = `SELECT id, base, quote, rate, source, fetched_at, expires_at
		FROM fx_rates
		WHERE base = ? AND quote = ? AND expires_at > ?
		ORDER BY fetched_at DESC
		LIMIT 1`

	return r.queryOne(ctx, query, base, quote, now.UTC().Format(time.RFC3339))
}

func (r *Repository) LatestAny(ctx context.Context, base, quote string) (*domain.Rate, error) {
	const query = `SELECT id, base, quote, rate, source, fetched_at, expires_at
		FROM fx_rates
		WHERE base = ? AND quote = ?
		ORDER BY fetched_at DESC
		LIMIT 1`

	return r.queryOne(ctx, query, base, quote)
}

func (r *Repository) queryOne(ctx context.Context, query string, args ...any) (*domain.Rate, error) {
	var rate domain.Rate
	var fetchedAt, expiresAt string

	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&rate.ID, &rate.Base, &rate.Quote, &rate.Rate, &rate.Source, &fetchedAt, &expiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query fx rate: %w", err)
	}

	rate.FetchedAt, _ = time.Parse(time.RFC3339, fetchedAt)
	rate.ExpiresAt, _ = time.Parse(time.RFC3339, expiresAt)
	return &rate, nil
}

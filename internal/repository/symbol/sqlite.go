package symbol

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domain "github.com/DominikIlski/Finansista/internal/symbol"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Save(ctx context.Context, rec domain.Record) error {
	const query = `INSERT INTO symbols (ticker, market, name, currency, exchange, provider, verified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (ticker, market, provider) DO UPDATE SET
			name = excluded.name,
			currency = excluded.currency,
			exchange = excluded.exchange,
			verified_at = excluded.verified_at`

	_, err := r.db.ExecContext(ctx, query,
		rec.Ticker, rec.Market, rec.Name, rec.Currency, rec.Exchange, rec.Provider,
		rec.VerifiedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save symbol: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, ticker, mkt string) (*domain.Record, error) {
	const query = `SELECT id, ticker, market, name, currency, exchange, provider, verified_at
		FROM symbols
		WHERE ticker = ? AND market = ?
		ORDER BY verified_at DESC
		LIMIT 1`

	var rec domain.Record
	var verifiedAt string

	err := r.db.QueryRowContext(ctx, query, ticker, mkt).Scan(
		&rec.ID, &rec.Ticker, &rec.Market, &rec.Name, &rec.Currency, &rec.Exchange, &rec.Provider, &verifiedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query symbol: %w", err)
	}

	rec.VerifiedAt, _ = time.Parse(time.RFC3339, verifiedAt)
	return &rec, nil
}

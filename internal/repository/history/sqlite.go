package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/DominikIlski/Finansista/internal/history"
)

const dateFormat = "2006-01-02"

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Save(ctx context.Context, points []domain.Point) (int64, error) {
	if len(points) == 0 {
		return 0, nil
	}

	const batchSize = 500
	var total int64

	for i := 0; i < len(points); i += batchSize {
		end := min(i+batchSize, len(points))
		batch := points[i:end]

		placeholders := make([]string, len(batch))
		args := make([]any, 0, len(batch)*8)
		for j, p := range batch {
			placeholders[j] = "(?, ?, ?, ?, ?, ?, ?, ?)"
			args = append(args,
				p.Ticker, p.Market, p.Interval,
				p.Date.Format(dateFormat),
				p.Price, p.Currency, p.Source,
				p.FetchedAt.UTC().Format(time.RFC3339),
			)
		}

		query := fmt.Sprintf( //nolint:gosec // placeholders are not user input
			`INSERT INTO history_prices (ticker, market, interval, date, price, currency, source, fetched_at)
			VALUES %s
			ON CONFLICT (ticker, market, source, interval, date) DO UPDATE SET
				price = excluded.price,
				currency = excluded.currency,
				fetched_at = excluded.fetched_at`,
			strings.Join(placeholders, ", "),
		)

		res, err := r.db.ExecContext(ctx, query, args...)
		if err != nil {
			return total, fmt.Errorf("save history: %w", err)
		}
		n, _ := res.RowsAffected()
		total += n
	}

	return total, nil
}

func (r *Repository) ListRange(ctx context.Context, ticker, mkt, interval string, from, to time.Time) ([]domain.Point, error) {
	const query = `SELECT id, ticker, market, interval, date, price, currency, source, fetched_at
		FROM history_prices
		WHERE ticker = ? AND market = ? AND interval = ? AND date >= ? AND date <= ?
		ORDER BY date ASC, fetched_at ASC`

	rows, err := r.db.QueryContext(ctx, query,
		ticker, mkt, interval,
		from.Format(dateFormat), to.Format(dateFormat),
	)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	// Rows from multiple sources may cover the same date; the most recently
	// fetched one wins, so the caller sees one point per day.
	var points []domain.Point
	for rows.Next() {
		p, err := scanPoint(rows)
		if err != nil {
			return nil, err
		}
		if n := len(points); n > 0 && points[n-1].Date.Equal(p.Date) {
			points[n-1] = p
			continue
		}
		points = append(points, p)
	}

	return points, rows.Err()
}

func (r *Repository) Latest(ctx context.Context, ticker, mkt, interval string) (*domain.Point, error) {
	const query = `SELECT id, ticker, market, interval, date, price, currency, source, fetched_at
		FROM history_prices
		WHERE ticker = ? AND market = ? AND interval = ?
		ORDER BY date DESC, fetched_at DESC
		LIMIT 1`

	row := r.db.QueryRowContext(ctx, query, ticker, mkt, interval)
	p, err := scanPoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPoint(s scanner) (domain.Point, error) {
	var p domain.Point
	var dateStr, fetchedStr string
	if err := s.Scan(&p.ID, &p.Ticker, &p.Market, &p.Interval, &dateStr, &p.Price, &p.Currency, &p.Source, &fetchedStr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("scan history point: %w", err)
	}
	p.Date, _ = time.Parse(dateFormat, dateStr)
	p.FetchedAt, _ = time.Parse(time.RFC3339, fetchedStr)
	return p, nil
}

package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DominikIlski/Finansista/internal/apperror"
	"github.com/DominikIlski/Finansista/internal/market"
	"github.com/DominikIlski/Finansista/internal/provider"
)

// Chain is the slice of the provider chain the history path needs.
type Chain interface {
	History(ctx context.Context, ticker string, mkt market.Definition, from, to time.Time, interval provider.Interval) ([]provider.HistoryPoint, string, error)
}

type Service struct {
	repo     Repository
	chain    Chain
	registry *market.Registry
	now      func() time.Time
}

func NewService(repo Repository, chain Chain, registry *market.Registry) *Service {
	return &Service{
		repo:     repo,
		chain:    chain,
		registry: registry,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetNow overrides the clock; used by tests.
func (s *Service) SetNow(fn func() time.Time) { s.now = fn }

// Get returns the daily series for [from, to] inclusive. Coverage is
// all-or-nothing: the cache only satisfies the request when its rows span
// the whole range; partial overlap triggers a full refetch rather than a
// merge.
func (s *Service) Get(ctx context.Context, ticker, mkt string, from, to time.Time, interval provider.Interval, forceRefresh bool) (Series, error) {
	mdef, ok := s.registry.Get(mkt)
	if !ok {
		return Series{}, apperror.New(apperror.BadRequest, fmt.Sprintf("unsupported market: %s", mkt))
	}
	ticker = mdef.NormalizeTicker(ticker)
	from = truncateDay(from)
	to = truncateDay(to)
	if from.After(to) {
		return Series{}, apperror.New(apperror.BadRequest, "from must not be after to")
	}

	if !forceRefresh {
		rows, err := s.repo.ListRange(ctx, ticker, mdef.Code, string(interval), from, to)
		if err != nil {
			return Series{}, fmt.Errorf("read history cache: %w", err)
		}
		if covers(rows, from, to) {
			return Series{Rows: rows, Source: rows[len(rows)-1].Source}, nil
		}
	}

	fetched, source, err := s.chain.History(ctx, ticker, mdef, from, to, interval)
	if err != nil {
		return Series{}, err
	}

	now := s.now()
	points := make([]Point, 0, len(fetched))
	for _, f := range fetched {
		currency := f.Currency
		if currency == "" {
			currency = mdef.Currency
		}
		points = append(points, Point{
			Ticker:    ticker,
			Market:    mdef.Code,
			Interval:  string(interval),
			Date:      truncateDay(f.Date),
			Price:     f.Price,
			Currency:  currency,
			Source:    source,
			FetchedAt: now,
		})
	}

	n, err := s.repo.Save(ctx, points)
	if err != nil {
		return Series{}, fmt.Errorf("save history: %w", err)
	}
	slog.Info("saved history", "ticker", ticker, "market", mdef.Code, "source", source, "rows", n)

	// Re-read so the result reflects persisted state, including rows cached
	// earlier that fall outside the provider's fresh window.
	rows, err := s.repo.ListRange(ctx, ticker, mdef.Code, string(interval), from, to)
	if err != nil {
		return Series{}, fmt.Errorf("re-read history: %w", err)
	}
	if covers(rows, from, to) {
		return Series{Rows: rows, Source: source}, nil
	}
	return Series{Rows: points, Source: source}, nil
}

// covers reports whether rows span the whole closed interval [from, to].
func covers(rows []Point, from, to time.Time) bool {
	if len(rows) == 0 {
		return false
	}
	return !rows[0].Date.After(from) && !rows[len(rows)-1].Date.Before(to)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

package quote

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DominikIlski/Finansista/internal/apperror"
	"github.com/DominikIlski/Finansista/internal/history"
	"github.com/DominikIlski/Finansista/internal/market"
	"github.com/DominikIlski/Finansista/internal/provider"
)

// Chain is the slice of the provider chain the quote path needs.
type Chain interface {
	Quote(ctx context.Context, ticker string, mkt market.Definition) (provider.Quote, string, error)
}

type Service struct {
	repo      Repository
	histories history.Repository
	chain     Chain
	registry  *market.Registry
	ttl       time.Duration
	now       func() time.Time
}

func NewService(repo Repository, histories history.Repository, chain Chain, registry *market.Registry, ttl time.Duration) *Service {
	return &Service{
		repo:      repo,
		histories: histories,
		chain:     chain,
		registry:  registry,
		ttl:       ttl,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetNow overrides the clock; used by tests.
func (s *Service) SetNow(fn func() time.Time) { s.now = fn }

// GetLatest returns the latest price for (ticker, market), degrading through
// fresh cache, live fetch, stale cache and history-derived tiers. Only when
// every tier is empty does the provider error reach the caller.
func (s *Service) GetLatest(ctx context.Context, ticker, mkt string, forceRefresh bool) (Latest, error) {
	mdef, ok := s.registry.Get(mkt)
	if !ok {
		return Latest{}, apperror.New(apperror.BadRequest, fmt.Sprintf("unsupported market: %s", mkt))
	}
	ticker = mdef.NormalizeTicker(ticker)
	now := s.now()

	if !forceRefresh {
		cached, err := s.repo.Fresh(ctx, ticker, mdef.Code, now)
		if err != nil {
			return Latest{}, fmt.Errorf("read quote cache: %w", err)
		}
		if cached != nil {
			return toLatest(*cached, true), nil
		}
	}

	pq, source, fetchErr := s.chain.Quote(ctx, ticker, mdef)
	if fetchErr == nil {
		q := Quote{
			Ticker:    ticker,
			Market:    mdef.Code,
			Price:     pq.Price,
			Currency:  currencyOr(pq.Currency, mdef),
			AsOf:      asOfOr(pq.AsOf, now),
			Source:    source,
			FetchedAt: now,
			ExpiresAt: now.Add(s.ttl),
		}
		if err := s.repo.Save(ctx, q); err != nil {
			return Latest{}, fmt.Errorf("save quote: %w", err)
		}
		return toLatest(q, false), nil
	}

	slog.Warn("quote providers exhausted, falling back to cache",
		"ticker", ticker, "market", mdef.Code, "error", fetchErr)

	stale, err := s.repo.LatestAny(ctx, ticker, mdef.Code)
	if err != nil {
		return Latest{}, fmt.Errorf("read stale quote: %w", err)
	}
	if stale != nil {
		return toLatest(*stale, true), nil
	}

	point, err := s.histories.Latest(ctx, ticker, mdef.Code, string(provider.IntervalDaily))
	if err != nil {
		return Latest{}, fmt.Errorf("read history fallback: %w", err)
	}
	if point != nil {
		src := point.Source
		if src == "" {
			src = SourceHistory
		}
		return Latest{
			Price:    point.Price,
			Currency: currencyOr(point.Currency, mdef),
			AsOf:     point.Date,
			Source:   src,
			Cached:   true,
		}, nil
	}

	return Latest{}, fetchErr
}

func toLatest(q Quote, cached bool) Latest {
	return Latest{
		Price:    q.Price,
		Currency: q.Currency,
		AsOf:     q.AsOf,
		Source:   q.Source,
		Cached:   cached,
	}
}

func currencyOr(currency string, mdef market.Definition) string {
	if currency != "" {
		return currency
	}
	return mdef.Currency
}

func asOfOr(asOf, now time.Time) time.Time {
	if asOf.IsZero() {
		return now
	}
	return asOf.UTC()
}

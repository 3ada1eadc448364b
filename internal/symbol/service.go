package symbol

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DominikIlski/Finansista/internal/market"
	"github.com/DominikIlski/Finansista/internal/provider"
)

// Chain is the slice of the provider chain the symbol path needs. Unlike the
// quote/history paths the service iterates providers itself, because a
// classified provider error is skipped while any other error is fatal.
type Chain interface {
	ForMarket(mkt market.Definition) []provider.Provider
	NameOrder(mkt market.Definition) []provider.Provider
}

type Service struct {
	repo      Repository
	chain     Chain
	registry  *market.Registry
	overrides market.Overrides
	ttlDays   int
	now       func() time.Time
}

func NewService(repo Repository, chain Chain, registry *market.Registry, overrides market.Overrides, ttlDays int) *Service {
	return &Service{
		repo:      repo,
		chain:     chain,
		registry:  registry,
		overrides: overrides,
		ttlDays:   ttlDays,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetNow overrides the clock; used by tests.
func (s *Service) SetNow(fn func() time.Time) { s.now = fn }

// Normalize canonicalizes a ticker for its market; see
// market.Definition.NormalizeTicker.
func Normalize(ticker string, mdef market.Definition) string {
	return mdef.NormalizeTicker(ticker)
}

// Validate checks that (ticker, market) exists. It never calls a provider
// for an unsupported market, and chain exhaustion yields a structured
// not-found result rather than an error.
func (s *Service) Validate(ctx context.Context, ticker, mkt string) (Result, error) {
	mdef, ok := s.registry.Get(mkt)
	if !ok {
		return Result{
			Valid:            false,
			Reason:           ReasonUnsupportedMarket,
			SupportedMarkets: s.registry.Codes(),
		}, nil
	}
	normalized := Normalize(ticker, mdef)
	now := s.now()

	cached, err := s.repo.Get(ctx, normalized, mdef.Code)
	if err != nil {
		return Result{}, fmt.Errorf("read symbol cache: %w", err)
	}
	if cached != nil && s.fresh(cached, now) {
		return Result{Valid: true, Source: cached.Provider, Symbol: cached, Normalized: normalized}, nil
	}

	lastTried := ""
	for _, p := range s.chain.ForMarket(mdef) {
		lastTried = p.Name()
		info, err := p.SearchSymbol(ctx, normalized, mdef)
		if err != nil {
			if provider.IsProviderError(err) {
				slog.Debug("symbol search failed, trying next provider",
					"provider", p.Name(), "ticker", normalized, "market", mdef.Code, "error", err)
				continue
			}
			return Result{}, err
		}
		if info == nil {
			continue
		}

		rec := s.persist(ctx, *info, cached, mdef, normalized, p.Name(), now)
		return Result{Valid: true, Source: p.Name(), Symbol: &rec, Normalized: normalized}, nil
	}

	return Result{
		Valid:      false,
		Reason:     ReasonNotFound,
		Source:     lastTried,
		Normalized: normalized,
	}, nil
}

// ResolveName returns a display name for (ticker, market), or "" when none
// can be found. Providers are ordered to prefer the global provider, which
// actually knows company names; the override table acts as a zero-cost
// warm-up when nothing is cached yet.
func (s *Service) ResolveName(ctx context.Context, ticker, mkt string) (string, error) {
	mdef, ok := s.registry.Get(mkt)
	if !ok {
		return "", nil
	}
	normalized := Normalize(ticker, mdef)
	now := s.now()

	cached, err := s.repo.Get(ctx, normalized, mdef.Code)
	if err != nil {
		return "", fmt.Errorf("read symbol cache: %w", err)
	}
	if cached != nil && cached.Name != "" {
		return cached.Name, nil
	}

	if name, ok := s.overrides.Get(mdef.Code, normalized); ok {
		rec := Record{
			Ticker:     normalized,
			Market:     mdef.Code,
			Name:       name,
			Currency:   mdef.Currency,
			Provider:   "override",
			VerifiedAt: now,
		}
		if err := s.repo.Save(ctx, rec); err != nil {
			return "", fmt.Errorf("save override name: %w", err)
		}
		return name, nil
	}

	for _, p := range s.chain.NameOrder(mdef) {
		info, err := p.SearchSymbol(ctx, normalized, mdef)
		if err != nil {
			if provider.IsProviderError(err) {
				continue
			}
			return "", err
		}
		if info == nil || info.Name == "" {
			continue
		}
		s.persist(ctx, *info, cached, mdef, normalized, p.Name(), now)
		return info.Name, nil
	}

	return "", nil
}

// persist saves the provider's result, preserving an already-cached display
// name over an empty provider-returned one and falling back to the override
// table when the name is still empty.
func (s *Service) persist(ctx context.Context, info provider.SymbolInfo, cached *Record, mdef market.Definition, normalized, providerName string, now time.Time) Record {
	name := info.Name
	if name == "" && cached != nil {
		name = cached.Name
	}
	if name == "" {
		if override, ok := s.overrides.Get(mdef.Code, normalized); ok {
			name = override
		}
	}

	currency := info.Currency
	if currency == "" {
		currency = mdef.Currency
	}

	rec := Record{
		Ticker:     normalized,
		Market:     mdef.Code,
		Name:       name,
		Currency:   currency,
		Exchange:   info.Exchange,
		Provider:   providerName,
		VerifiedAt: now,
	}
	if err := s.repo.Save(ctx, rec); err != nil {
		slog.Error("failed to cache symbol validation",
			"ticker", normalized, "market", mdef.Code, "error", err)
	}
	return rec
}

func (s *Service) fresh(rec *Record, now time.Time) bool {
	return now.Before(rec.VerifiedAt.AddDate(0, 0, s.ttlDays))
}

package fx

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/DominikIlski/Finansista/internal/provider"
)

// Chain is the slice of the provider chain the FX path needs; it dispatches
// to the FX-capable subchain.
type Chain interface {
	Rate(ctx context.Context, base, quote string) (provider.ExchangeRate, string, error)
}

type Service struct {
	repo  Repository
	chain Chain
	ttl   time.Duration
	now   func() time.Time
}

func NewService(repo Repository, chain Chain, ttl time.Duration) *Service {
	return &Service{
		repo:  repo,
		chain: chain,
		ttl:   ttl,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// SetNow overrides the clock; used by tests.
func (s *Service) SetNow(fn func() time.Time) { s.now = fn }

// GetRate returns how many quote units one base unit buys.
func (s *Service) GetRate(ctx context.Context, base, quote string) (float64, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	quote = strings.ToUpper(strings.TrimSpace(quote))
	if base == quote {
		return 1, nil
	}
	now := s.now()

	cached, err := s.repo.Fresh(ctx, base, quote, now)
	if err != nil {
		return 0, fmt.Errorf("read fx cache: %w", err)
	}
	if cached != nil {
		return cached.Rate, nil
	}

	er, source, fetchErr := s.chain.Rate(ctx, base, quote)
	if fetchErr == nil {
		r := Rate{
			Base:      base,
			Quote:     quote,
			Rate:      er.Rate,
			Source:    source,
			FetchedAt: now,
			ExpiresAt: now.Add(s.ttl),
		}
		if err := s.repo.Save(ctx, r); err != nil {
			return 0, fmt.Errorf("save fx rate: %w", err)
		}
		return er.Rate, nil
	}

	slog.Warn("fx providers exhausted, falling back to stale rate",
		"base", base, "quote", quote, "error", fetchErr)

	stale, err := s.repo.LatestAny(ctx, base, quote)
	if err != nil {
		return 0, fmt.Errorf("read stale fx rate: %w", err)
	}
	if stale != nil {
		return stale.Rate, nil
	}

	return 0, fetchErr
}

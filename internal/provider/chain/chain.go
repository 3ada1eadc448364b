// Package chain holds the ordered provider list and the first-success fetch
// loop shared by every cache-aside path. Providers are tried strictly
// sequentially to respect external rate limits; they are never raced.
package chain

import (
	"context"
	"log/slog"
	"time"

	"github.com/DominikIlski/Finansista/internal/market"
	"github.com/DominikIlski/Finansista/internal/provider"
	"github.com/DominikIlski/Finansista/internal/provider/frankfurter"
	"github.com/DominikIlski/Finansista/internal/provider/stooq"
)

// Markets where the paid tier has poor coverage; the daily-equities source
// is moved to the front of the chain for these.
var dailyFirstMarkets = map[string]bool{
	"GPW":        true,
	"NEWCONNECT": true,
}

type Chain struct {
	providers []provider.Provider
	fxTail    provider.Provider
}

// New builds the chain from the configured ordered source list,
// de-duplicating by name. The keyless daily-equities source is always
// appended as universal last resort, even when not configured, so the chain
// is never empty for history-class data.
func New(configured ...provider.Provider) *Chain {
	c := &Chain{}
	seen := make(map[string]bool, len(configured)+1)
	for _, p := range configured {
		if p == nil || seen[p.Name()] {
			continue
		}
		seen[p.Name()] = true
		c.providers = append(c.providers, p)
	}
	if !seen[stooq.Name] {
		c.providers = append(c.providers, stooq.New())
	}
	if !seen[frankfurter.Name] {
		c.fxTail = frankfurter.New()
	}
	return c
}

// ForMarket returns the providers to try for a market, in order: providers
// restricted to other markets are dropped, and the daily-equities source is
// moved to position 0 for markets it serves better. Order is otherwise
// stable.
func (c *Chain) ForMarket(mkt market.Definition) []provider.Provider {
	out := make([]provider.Provider, 0, len(c.providers))
	for _, p := range c.providers {
		if r, ok := p.(provider.MarketRestricted); ok && !r.SupportsMarket(mkt.Code) {
			continue
		}
		out = append(out, p)
	}
	if dailyFirstMarkets[mkt.Code] {
		for i, p := range out {
			if p.Name() == stooq.Name && i > 0 {
				out = append([]provider.Provider{p}, append(out[:i:i], out[i+1:]...)...)
				break
			}
		}
	}
	return out
}

// NameOrder returns the market-adapted providers reordered to prefer the
// global provider for display names over the daily-equities source, which
// returns none.
func (c *Chain) NameOrder(mkt market.Definition) []provider.Provider {
	ps := c.ForMarket(mkt)
	out := make([]provider.Provider, 0, len(ps))
	var tail []provider.Provider
	for _, p := range ps {
		if p.Name() == stooq.Name {
			tail = append(tail, p)
			continue
		}
		out = append(out, p)
	}
	return append(out, tail...)
}

// fxProviders is the FX-capable subchain: every configured provider except
// the daily-equities source, with the dedicated currency-only provider
// appended last.
func (c *Chain) fxProviders() []provider.Provider {
	out := make([]provider.Provider, 0, len(c.providers)+1)
	for _, p := range c.providers {
		if p.Name() == stooq.Name {
			continue
		}
		out = append(out, p)
	}
	if c.fxTail != nil {
		out = append(out, c.fxTail)
	}
	return out
}

// fetchWith tries each provider in order and returns the first success
// together with the winning provider's name. Failures are recorded and the
// last one is raised if the chain is exhausted; an empty chain raises
// ErrNoProviders.
func fetchWith[T any](ctx context.Context, providers []provider.Provider, op string, fn func(context.Context, provider.Provider) (T, error)) (T, string, error) {
	var zero T
	var lastErr error
	for _, p := range providers {
		res, err := fn(ctx, p)
		if err != nil {
			slog.Debug("provider failed, trying next", "provider", p.Name(), "op", op, "error", err)
			lastErr = err
			continue
		}
		return res, p.Name(), nil
	}
	if lastErr == nil {
		lastErr = provider.ErrNoProviders
	}
	return zero, "", lastErr
}

// Quote fetches the latest price via the market-adapted chain.
func (c *Chain) Quote(ctx context.Context, ticker string, mkt market.Definition) (provider.Quote, string, error) {
	return fetchWith(ctx, c.ForMarket(mkt), "quote", func(ctx context.Context, p provider.Provider) (provider.Quote, error) {
		return p.GetQuote(ctx, ticker, mkt)
	})
}

// History fetches a daily series via the market-adapted chain.
func (c *Chain) History(ctx context.Context, ticker string, mkt market.Definition, from, to time.Time, interval provider.Interval) ([]provider.HistoryPoint, string, error) {
	return fetchWith(ctx, c.ForMarket(mkt), "history", func(ctx context.Context, p provider.Provider) ([]provider.HistoryPoint, error) {
		return p.GetHistory(ctx, ticker, mkt, from, to, interval)
	})
}

// Rate fetches a currency-pair rate via the FX subchain.
func (c *Chain) Rate(ctx context.Context, base, quote string) (provider.ExchangeRate, string, error) {
	return fetchWith(ctx, c.fxProviders(), "fx", func(ctx context.Context, p provider.Provider) (provider.ExchangeRate, error) {
		return p.GetExchangeRate(ctx, base, quote)
	})
}

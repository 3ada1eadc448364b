// Package refresh warms the quote cache for every held symbol on a cron
// schedule, so interactive holdings views stay on the cached path.
package refresh

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/DominikIlski/Finansista/internal/holding"
	"github.com/DominikIlski/Finansista/internal/quote"
)

const runTimeout = 2 * time.Minute

// QuoteGetter is the slice of the quote service the refresher needs.
type QuoteGetter interface {
	GetLatest(ctx context.Context, ticker, mkt string, forceRefresh bool) (quote.Latest, error)
}

type Refresher struct {
	holdings holding.Repository
	quotes   QuoteGetter
	cron     *cron.Cron
	baseCtx  context.Context
}

func New(holdings holding.Repository, quotes QuoteGetter) *Refresher {
	return &Refresher{
		holdings: holdings,
		quotes:   quotes,
		cron:     cron.New(),
	}
}

// Start schedules the refresher. The base context bounds every run; cancel
// it (and call Stop) during shutdown.
func (r *Refresher) Start(ctx context.Context, schedule string) error {
	r.baseCtx = ctx
	if _, err := r.cron.AddFunc(schedule, r.run); err != nil {
		return err
	}
	r.cron.Start()
	slog.Info("quote refresher scheduled", "schedule", schedule)
	return nil
}

// Stop halts the schedule and waits for an in-flight run to finish.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
}

func (r *Refresher) run() {
	ctx, cancel := context.WithTimeout(r.baseCtx, runTimeout)
	defer cancel()

	symbols, err := r.holdings.ListHeldSymbols(ctx)
	if err != nil {
		slog.Error("refresh: list held symbols", "error", err)
		return
	}

	refreshed := 0
	for _, s := range symbols {
		if ctx.Err() != nil {
			return
		}
		// Sequential on purpose: the refresher is a background warmer and
		// must not compete with interactive requests for rate limits.
		if _, err := r.quotes.GetLatest(ctx, s.Ticker, s.Market, true); err != nil {
			slog.Warn("refresh: quote failed", "ticker", s.Ticker, "market", s.Market, "error", err)
			continue
		}
		refreshed++
	}
	slog.Info("quote refresh complete", "symbols", len(symbols), "refreshed", refreshed)
}

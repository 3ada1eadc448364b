package performance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/DominikIlski/Finansista/internal/apperror"
	"github.com/DominikIlski/Finansista/internal/history"
	"github.com/DominikIlski/Finansista/internal/holding"
	"github.com/DominikIlski/Finansista/internal/market"
	"github.com/DominikIlski/Finansista/internal/provider"
)

const dateFormat = "2006-01-02"

// maxConcurrentHoldings bounds the per-holding fan-out so a large portfolio
// does not open one provider connection per row at once.
const maxConcurrentHoldings = 8

// HistorySource is the slice of the history cache the builder needs.
type HistorySource interface {
	Get(ctx context.Context, ticker, mkt string, from, to time.Time, interval provider.Interval, forceRefresh bool) (history.Series, error)
}

// RateSource is the slice of the FX cache the builder needs.
type RateSource interface {
	GetRate(ctx context.Context, base, quote string) (float64, error)
}

type Service struct {
	holdings  holding.Repository
	histories HistorySource
	rates     RateSource
	registry  *market.Registry
	now       func() time.Time
}

func NewService(holdings holding.Repository, histories HistorySource, rates RateSource, registry *market.Registry) *Service {
	return &Service{
		holdings:  holdings,
		histories: histories,
		rates:     rates,
		registry:  registry,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetNow overrides the clock; used by tests.
func (s *Service) SetNow(fn func() time.Time) { s.now = fn }

// holdingSeries is one holding's contribution: converted prices keyed by
// date string, plus the buy-price anchor used before any price is observed.
type holdingSeries struct {
	h      holding.Holding
	buy    time.Time
	prices map[string]float64
	anchor float64
}

// GetSeries reconstructs the daily total-portfolio-value curve over
// [from, to] in baseCurrency. Every calendar day in the window gets exactly
// one point; gaps in provider calendars are forward-filled, and a holding
// with no usable history contributes a flat buy-price line instead of
// failing the request.
func (s *Service) GetSeries(ctx context.Context, portfolioID int64, from, to time.Time, baseCurrency string, forceRefresh bool) (Series, error) {
	baseCurrency = strings.ToUpper(strings.TrimSpace(baseCurrency))
	if baseCurrency == "" {
		return Series{}, apperror.New(apperror.BadRequest, "base currency is required")
	}

	holdings, err := s.holdings.ListByPortfolio(ctx, portfolioID)
	if err != nil {
		return Series{}, fmt.Errorf("list holdings: %w", err)
	}
	if len(holdings) == 0 {
		return Series{Points: []Point{}, From: truncateDay(from), To: truncateDay(to)}, nil
	}

	from, to, err = s.resolveWindow(holdings, from, to)
	if err != nil {
		return Series{}, err
	}

	rates := s.resolveRates(ctx, holdings, baseCurrency)

	built := make([]holdingSeries, len(holdings))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentHoldings)
	for i, h := range holdings {
		g.Go(func() error {
			// Failures are absorbed into the holding's local fallback;
			// one bad symbol must not sink the whole portfolio.
			built[i] = s.buildHolding(gctx, h, from, to, rates[s.currencyOf(h)], forceRefresh)
			return nil
		})
	}
	_ = g.Wait()

	return Series{Points: s.aggregate(built, from, to), From: from, To: to}, nil
}

// resolveWindow defaults from to the earliest buy date and to to today, both
// normalized to UTC calendar dates.
func (s *Service) resolveWindow(holdings []holding.Holding, from, to time.Time) (time.Time, time.Time, error) {
	if from.IsZero() {
		for _, h := range holdings {
			bd := truncateDay(h.BuyDate)
			if from.IsZero() || bd.Before(from) {
				from = bd
			}
		}
	}
	if to.IsZero() {
		to = s.now()
	}
	from = truncateDay(from)
	to = truncateDay(to)
	if from.After(to) {
		return time.Time{}, time.Time{}, apperror.New(apperror.BadRequest, "from must not be after to")
	}
	return from, to, nil
}

// resolveRates memoizes one conversion rate per distinct holding currency.
// A failed lookup degrades to 1 rather than failing the series; the curve
// stays plottable and the log records the gap.
func (s *Service) resolveRates(ctx context.Context, holdings []holding.Holding, baseCurrency string) map[string]float64 {
	rates := make(map[string]float64)
	for _, h := range holdings {
		cur := s.currencyOf(h)
		if _, done := rates[cur]; done {
			continue
		}
		rate, err := s.rates.GetRate(ctx, cur, baseCurrency)
		if err != nil {
			slog.Warn("fx rate unavailable for performance series, using 1",
				"from", cur, "to", baseCurrency, "error", err)
			rate = 1
		}
		rates[cur] = rate
	}
	return rates
}

// currencyOf centralizes the market -> currency lookup so the quote,
// history and performance paths cannot drift apart.
func (s *Service) currencyOf(h holding.Holding) string {
	if mdef, ok := s.registry.Get(h.Market); ok {
		return mdef.Currency
	}
	return ""
}

func (s *Service) buildHolding(ctx context.Context, h holding.Holding, from, to time.Time, rate float64, forceRefresh bool) holdingSeries {
	buy := truncateDay(h.BuyDate)
	start := buy
	if start.Before(from) {
		start = from
	}

	hs := holdingSeries{
		h:      h,
		buy:    buy,
		prices: make(map[string]float64),
		anchor: h.BuyPrice * rate,
	}

	series, err := s.histories.Get(ctx, h.Ticker, h.Market, from, to, provider.IntervalDaily, forceRefresh)
	if err != nil || len(series.Rows) == 0 {
		if err != nil {
			slog.Warn("history unavailable for holding, synthesizing buy-price point",
				"ticker", h.Ticker, "market", h.Market, "error", err)
		}
		hs.prices[start.Format(dateFormat)] = hs.anchor
		return hs
	}

	for _, row := range series.Rows {
		hs.prices[row.Date.Format(dateFormat)] = row.Price * rate
	}
	// Anchor the holding at buy price when history starts later than its
	// first owned day, so it is valued from day one.
	if series.Rows[0].Date.After(start) {
		hs.prices[start.Format(dateFormat)] = hs.anchor
	}
	return hs
}

// aggregate walks dates in ascending order carrying each holding's last
// known converted price forward. The holdings slice order is stable, so the
// per-date sum (and therefore the whole series) is reproducible bit for bit
// from identical cached inputs.
func (s *Service) aggregate(built []holdingSeries, from, to time.Time) []Point {
	n := int(to.Sub(from).Hours()/24) + 1
	points := make([]Point, 0, n)

	last := make([]float64, len(built))
	seen := make([]bool, len(built))

	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		key := d.Format(dateFormat)
		total := 0.0
		for i := range built {
			hs := &built[i]
			if d.Before(hs.buy) {
				continue
			}
			if p, ok := hs.prices[key]; ok {
				last[i] = p
				seen[i] = true
			}
			value := last[i]
			if !seen[i] {
				value = hs.anchor
			}
			total += value * hs.h.Quantity
		}
		points = append(points, Point{Date: d, Value: total})
	}
	return points
}

func truncateDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

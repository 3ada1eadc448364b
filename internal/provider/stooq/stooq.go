// Package stooq implements the free, keyless daily-equities provider. It
// serves CSV snapshots and daily history; it is the universal last resort of
// the chain and the preferred source for Polish markets, where its coverage
// beats the paid tier.
package stooq

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/DominikIlski/Finansista/internal/market"
	"github.com/DominikIlski/Finansista/internal/provider"
)

const (
	Name = "stooq"

	defaultQuoteEndpoint   = "https://stooq.com/q/l/"
	defaultHistoryEndpoint = "https://stooq.com/q/d/l/"
	historyDateFormat      = "20060102"
	dateFormat             = "2006-01-02"
	userAgent              = "Mozilla/5.0"
)

type Provider struct {
	client          *http.Client
	quoteEndpoint   string
	historyEndpoint string
}

func New(opts ...Option) *Provider {
	p := &Provider{
		client:          http.DefaultClient,
		quoteEndpoint:   defaultQuoteEndpoint,
		historyEndpoint: defaultHistoryEndpoint,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

type Option func(*Provider)

func WithClient(c *http.Client) Option {
	return func(p *Provider) { p.client = c }
}

func WithQuoteEndpoint(ep string) Option {
	return func(p *Provider) { p.quoteEndpoint = ep }
}

func WithHistoryEndpoint(ep string) Option {
	return func(p *Provider) { p.historyEndpoint = ep }
}

func (p *Provider) Name() string { return Name }

// symbolFor maps (ticker, market) to the stooq symbol: lower-case ticker
// plus the market's exchange suffix. Polish tickers carry no suffix.
func symbolFor(ticker string, mkt market.Definition) string {
	return strings.ToLower(ticker) + mkt.Suffix
}

func (p *Provider) GetQuote(ctx context.Context, ticker string, mkt market.Definition) (provider.Quote, error) {
	if mkt.IsCrypto() {
		return provider.Quote{}, provider.Errorf(Name, "quote", fmt.Errorf("market %s: %w", mkt.Code, provider.ErrUnsupportedOp))
	}

	row, ok, err := p.fetchLatest(ctx, symbolFor(ticker, mkt))
	if err != nil {
		return provider.Quote{}, provider.Errorf(Name, "quote", err)
	}
	if !ok {
		return provider.Quote{}, provider.Errorf(Name, "quote", fmt.Errorf("no data for %s on %s", ticker, mkt.Code))
	}
	return provider.Quote{Price: row.close, Currency: mkt.Currency, AsOf: row.asOf}, nil
}

func (p *Provider) GetHistory(ctx context.Context, ticker string, mkt market.Definition, from, to time.Time, interval provider.Interval) ([]provider.HistoryPoint, error) {
	if mkt.IsCrypto() {
		return nil, provider.Errorf(Name, "history", fmt.Errorf("market %s: %w", mkt.Code, provider.ErrUnsupportedOp))
	}
	if interval != provider.IntervalDaily {
		return nil, provider.Errorf(Name, "history", fmt.Errorf("interval %s: %w", interval, provider.ErrUnsupportedOp))
	}

	reqURL := fmt.Sprintf("%s?s=%s&d1=%s&d2=%s&i=d",
		p.historyEndpoint,
		symbolFor(ticker, mkt),
		from.Format(historyDateFormat),
		to.Format(historyDateFormat),
	)

	records, err := p.fetchCSV(ctx, reqURL)
	if err != nil {
		return nil, provider.Errorf(Name, "history", err)
	}

	// Header: Date,Open,High,Low,Close,Volume. Rows come back ascending.
	points := make([]provider.HistoryPoint, 0, len(records))
	for i, rec := range records {
		if i == 0 || len(rec) < 5 {
			continue
		}
		date, err := time.Parse(dateFormat, rec[0])
		if err != nil {
			continue
		}
		closePrice, err := strconv.ParseFloat(rec[4], 64)
		if err != nil {
			continue
		}
		points = append(points, provider.HistoryPoint{
			Date:     date.UTC(),
			Price:    closePrice,
			Currency: mkt.Currency,
		})
	}
	return points, nil
}

// SearchSymbol checks existence via the latest-quote snapshot. Stooq has no
// search API and returns no display name; the symbol cache keeps whatever
// name it already has.
func (p *Provider) SearchSymbol(ctx context.Context, ticker string, mkt market.Definition) (*provider.SymbolInfo, error) {
	if mkt.IsCrypto() {
		return nil, provider.Errorf(Name, "search", fmt.Errorf("market %s: %w", mkt.Code, provider.ErrUnsupportedOp))
	}

	_, ok, err := p.fetchLatest(ctx, symbolFor(ticker, mkt))
	if err != nil {
		return nil, provider.Errorf(Name, "search", err)
	}
	if !ok {
		return nil, nil
	}
	return &provider.SymbolInfo{
		Ticker:   strings.ToUpper(ticker),
		Market:   mkt.Code,
		Currency: mkt.Currency,
		Exchange: mkt.Code,
	}, nil
}

func (p *Provider) GetExchangeRate(_ context.Context, base, quote string) (provider.ExchangeRate, error) {
	return provider.ExchangeRate{}, provider.Errorf(Name, "fx", fmt.Errorf("%s/%s: %w", base, quote, provider.ErrUnsupportedOp))
}

type latestRow struct {
	close float64
	asOf  time.Time
}

// fetchLatest returns ok=false when stooq responds cleanly but has no data
// for the symbol (the snapshot row carries "N/D" fields).
func (p *Provider) fetchLatest(ctx context.Context, symbol string) (latestRow, bool, error) {
	reqURL := fmt.Sprintf("%s?s=%s&f=sd2t2ohlcv&h&e=csv", p.quoteEndpoint, symbol)

	records, err := p.fetchCSV(ctx, reqURL)
	if err != nil {
		return latestRow{}, false, err
	}
	if len(records) < 2 {
		return latestRow{}, false, errors.New("empty snapshot response")
	}

	// Header: Symbol,Date,Time,Open,High,Low,Close,Volume
	rec := records[1]
	if len(rec) < 7 {
		return latestRow{}, false, fmt.Errorf("malformed snapshot row for %s", symbol)
	}
	if rec[6] == "N/D" || rec[1] == "N/D" {
		return latestRow{}, false, nil
	}

	closePrice, err := strconv.ParseFloat(rec[6], 64)
	if err != nil {
		return latestRow{}, false, fmt.Errorf("parse close %q: %w", rec[6], err)
	}

	asOf, err := time.Parse(dateFormat+" 15:04:05", rec[1]+" "+rec[2])
	if err != nil {
		// Some instruments report date only.
		asOf, err = time.Parse(dateFormat, rec[1])
		if err != nil {
			return latestRow{}, false, fmt.Errorf("parse as-of %q %q: %w", rec[1], rec[2], err)
		}
	}

	return latestRow{close: closePrice, asOf: asOf.UTC()}, true, nil
}

func (p *Provider) fetchCSV(ctx context.Context, reqURL string) ([][]string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	res, err := p.client.Do(req) //nolint:gosec // URL built from internal config
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stooq returned HTTP %d", res.StatusCode)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(strings.NewReader(string(body)))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return records, nil
}

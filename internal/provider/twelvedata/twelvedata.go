// Package twelvedata implements the paid global provider. The free plan only
// covers a fixed market set, so the provider is market-restricted and the
// chain drops it outside that set.
package twelvedata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/DominikIlski/Finansista/internal/market"
	"github.com/DominikIlski/Finansista/internal/provider"
)

const (
	Name = "twelvedata"

	defaultBaseURL = "https://api.twelvedata.com"
	dateFormat     = "2006-01-02"
)

// Markets covered by the free plan. GPW and NewConnect are notably absent,
// which is why the chain prefers the daily-equities source there.
var supportedMarkets = map[string]bool{
	"NASDAQ":  true,
	"NYSE":    true,
	"LSE":     true,
	"XETRA":   true,
	"BINANCE": true,
}

type Provider struct {
	apiKey  string
	client  *http.Client
	baseURL string
}

func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		apiKey:  apiKey,
		client:  http.DefaultClient,
		baseURL: defaultBaseURL,
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

func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = u }
}

func (p *Provider) Name() string { return Name }

func (p *Provider) SupportsMarket(code string) bool { return supportedMarkets[code] }

type searchResponse struct {
	Data []struct {
		Symbol         string `json:"symbol"`
		InstrumentName string `json:"instrument_name"`
		Exchange       string `json:"exchange"`
		Currency       string `json:"currency"`
	} `json:"data"`
}

func (p *Provider) SearchSymbol(ctx context.Context, ticker string, mkt market.Definition) (*provider.SymbolInfo, error) {
	q := url.Values{}
	q.Set("symbol", ticker)

	var sr searchResponse
	if err := p.get(ctx, "/symbol_search", q, &sr); err != nil {
		return nil, provider.Errorf(Name, "search", err)
	}

	for _, d := range sr.Data {
		if !strings.EqualFold(d.Exchange, mkt.ProviderExchange) {
			continue
		}
		return &provider.SymbolInfo{
			Ticker:   strings.ToUpper(d.Symbol),
			Market:   mkt.Code,
			Name:     d.InstrumentName,
			Currency: d.Currency,
			Exchange: d.Exchange,
		}, nil
	}
	return nil, nil
}

type quoteResponse struct {
	Close     string `json:"close"`
	Currency  string `json:"currency"`
	Timestamp int64  `json:"timestamp"`
	apiError
}

func (p *Provider) GetQuote(ctx context.Context, ticker string, mkt market.Definition) (provider.Quote, error) {
	q := url.Values{}
	q.Set("symbol", ticker)
	if !mkt.IsCrypto() {
		q.Set("exchange", mkt.ProviderExchange)
	}

	var qr quoteResponse
	if err := p.get(ctx, "/quote", q, &qr); err != nil {
		return provider.Quote{}, provider.Errorf(Name, "quote", err)
	}
	if err := qr.err(); err != nil {
		return provider.Quote{}, provider.Errorf(Name, "quote", err)
	}
	if qr.Close == "" {
		return provider.Quote{}, provider.Errorf(Name, "quote", fmt.Errorf("missing close price for %s", ticker))
	}

	price, err := strconv.ParseFloat(qr.Close, 64)
	if err != nil {
		return provider.Quote{}, provider.Errorf(Name, "quote", fmt.Errorf("non-numeric close %q: %w", qr.Close, err))
	}

	currency := qr.Currency
	if currency == "" {
		currency = mkt.Currency
	}

	asOf := time.Unix(qr.Timestamp, 0).UTC()
	if qr.Timestamp == 0 {
		asOf = time.Now().UTC()
	}

	return provider.Quote{Price: price, Currency: currency, AsOf: asOf}, nil
}

type timeSeriesResponse struct {
	Values []struct {
		Datetime string `json:"datetime"`
		Close    string `json:"close"`
	} `json:"values"`
	Currency string `json:"currency"`
	apiError
}

func (p *Provider) GetHistory(ctx context.Context, ticker string, mkt market.Definition, from, to time.Time, interval provider.Interval) ([]provider.HistoryPoint, error) {
	if interval != provider.IntervalDaily {
		return nil, provider.Errorf(Name, "history", fmt.Errorf("interval %s: %w", interval, provider.ErrUnsupportedOp))
	}

	q := url.Values{}
	q.Set("symbol", ticker)
	q.Set("interval", "1day")
	q.Set("start_date", from.Format(dateFormat))
	q.Set("end_date", to.Format(dateFormat))
	if !mkt.IsCrypto() {
		q.Set("exchange", mkt.ProviderExchange)
	}

	var tr timeSeriesResponse
	if err := p.get(ctx, "/time_series", q, &tr); err != nil {
		return nil, provider.Errorf(Name, "history", err)
	}
	if err := tr.err(); err != nil {
		return nil, provider.Errorf(Name, "history", err)
	}

	currency := tr.Currency
	if currency == "" {
		currency = mkt.Currency
	}

	points := make([]provider.HistoryPoint, 0, len(tr.Values))
	for _, v := range tr.Values {
		date, err := time.Parse(dateFormat, v.Datetime)
		if err != nil {
			continue
		}
		price, err := strconv.ParseFloat(v.Close, 64)
		if err != nil {
			continue
		}
		points = append(points, provider.HistoryPoint{Date: date.UTC(), Price: price, Currency: currency})
	}

	// The API returns newest first.
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}

type exchangeRateResponse struct {
	Rate      float64 `json:"rate"`
	Timestamp int64   `json:"timestamp"`
	apiError
}

func (p *Provider) GetExchangeRate(ctx context.Context, base, quote string) (provider.ExchangeRate, error) {
	q := url.Values{}
	q.Set("symbol", base+"/"+quote)

	var er exchangeRateResponse
	if err := p.get(ctx, "/exchange_rate", q, &er); err != nil {
		return provider.ExchangeRate{}, provider.Errorf(Name, "fx", err)
	}
	if err := er.err(); err != nil {
		return provider.ExchangeRate{}, provider.Errorf(Name, "fx", err)
	}
	if er.Rate == 0 {
		return provider.ExchangeRate{}, provider.Errorf(Name, "fx", fmt.Errorf("missing rate for %s/%s", base, quote))
	}

	asOf := time.Unix(er.Timestamp, 0).UTC()
	if er.Timestamp == 0 {
		asOf = time.Now().UTC()
	}
	return provider.ExchangeRate{Rate: er.Rate, AsOf: asOf}, nil
}

// apiError is the error envelope the API embeds in otherwise-200 responses.
type apiError struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e apiError) err() error {
	if e.Status == "error" {
		return fmt.Errorf("api error %d: %s", e.Code, e.Message)
	}
	return nil
}

func (p *Provider) get(ctx context.Context, path string, q url.Values, out any) error {
	q.Set("apikey", p.apiKey)
	reqURL := p.baseURL + path + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return err
	}

	res, err := p.client.Do(req) //nolint:gosec // URL built from internal config
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("twelvedata returned HTTP %d", res.StatusCode)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

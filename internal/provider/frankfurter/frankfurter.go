// Package frankfurter implements the currency-only provider backed by the
// ECB reference rates. It refuses everything except exchange rates and is
// appended to the end of the FX subchain.
package frankfurter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DominikIlski/Finansista/internal/market"
	"github.com/DominikIlski/Finansista/internal/provider"
)

const (
	Name = "frankfurter"

	defaultBaseURL = "https://api.frankfurter.dev/v1"
	dateFormat     = "2006-01-02"
)

type Provider struct {
	client  *http.Client
	baseURL string
}

func New(opts ...Option) *Provider {
	p := &Provider{
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

type latestResponse struct {
	Date  string             `json:"date"`
	Rates map[string]float64 `json:"rates"`
}

func (p *Provider) GetExchangeRate(ctx context.Context, base, quote string) (provider.ExchangeRate, error) {
	base = strings.ToUpper(base)
	quote = strings.ToUpper(quote)

	q := url.Values{}
	q.Set("base", base)
	q.Set("symbols", quote)
	reqURL := p.baseURL + "/latest?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return provider.ExchangeRate{}, provider.Errorf(Name, "fx", err)
	}

	res, err := p.client.Do(req) //nolint:gosec // URL built from internal config
	if err != nil {
		return provider.ExchangeRate{}, provider.Errorf(Name, "fx", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return provider.ExchangeRate{}, provider.Errorf(Name, "fx", fmt.Errorf("frankfurter returned HTTP %d", res.StatusCode))
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return provider.ExchangeRate{}, provider.Errorf(Name, "fx", err)
	}

	var lr latestResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return provider.ExchangeRate{}, provider.Errorf(Name, "fx", fmt.Errorf("parse response: %w", err))
	}

	rate, ok := lr.Rates[quote]
	if !ok || rate == 0 {
		return provider.ExchangeRate{}, provider.Errorf(Name, "fx", fmt.Errorf("no rate for %s/%s", base, quote))
	}

	asOf, err := time.Parse(dateFormat, lr.Date)
	if err != nil {
		asOf = time.Now().UTC()
	}
	return provider.ExchangeRate{Rate: rate, AsOf: asOf.UTC()}, nil
}

func (p *Provider) SearchSymbol(_ context.Context, ticker string, mkt market.Definition) (*provider.SymbolInfo, error) {
	return nil, provider.Errorf(Name, "search", fmt.Errorf("%s on %s: %w", ticker, mkt.Code, provider.ErrUnsupportedOp))
}

func (p *Provider) GetQuote(_ context.Context, ticker string, mkt market.Definition) (provider.Quote, error) {
	return provider.Quote{}, provider.Errorf(Name, "quote", fmt.Errorf("%s on %s: %w", ticker, mkt.Code, provider.ErrUnsupportedOp))
}

func (p *Provider) GetHistory(_ context.Context, ticker string, mkt market.Definition, _, _ time.Time, _ provider.Interval) ([]provider.HistoryPoint, error) {
	return nil, provider.Errorf(Name, "history", fmt.Errorf("%s on %s: %w", ticker, mkt.Code, provider.ErrUnsupportedOp))
}

// Package market holds the registry of supported markets. It is the single
// source of the market -> currency mapping used by the quote, history and
// performance paths.
package market

import (
	"sort"
	"strings"
)

type AssetType string

const (
	AssetTypeEquity AssetType = "equity"
	AssetTypeCrypto AssetType = "crypto"
)

// Definition describes one supported market.
type Definition struct {
	Code string `json:"code"`
	// Currency is the currency securities on this market trade in. For
	// crypto markets it is the default quote currency of the pair.
	Currency string `json:"currency"`
	// ProviderExchange is the exchange name recognised by the global
	// data provider.
	ProviderExchange string `json:"providerExchange"`
	// Suffix is appended to tickers for the daily-equities provider
	// (e.g. ".us" for NASDAQ). Empty for Polish markets, which are the
	// provider's home exchange.
	Suffix    string    `json:"-"`
	AssetType AssetType `json:"assetType"`
	Aliases   []string  `json:"aliases,omitempty"`
	// DefaultQuote is the quote currency appended to bare crypto tickers
	// during validation (BTC -> BTC/USDT).
	DefaultQuote string `json:"-"`
}

func (d Definition) IsCrypto() bool { return d.AssetType == AssetTypeCrypto }

// pairSeparator splits a crypto pair into base and quote.
const pairSeparator = "/"

// NormalizeTicker uppercases and trims a ticker and appends the market's
// default quote currency to bare crypto tickers (BTC -> BTC/USDT). Tickers
// that already carry a pair separator are left alone. Every cache entry
// point normalizes through this before touching storage or providers.
func (d Definition) NormalizeTicker(ticker string) string {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if d.IsCrypto() && !strings.Contains(t, pairSeparator) && d.DefaultQuote != "" {
		t = t + pairSeparator + d.DefaultQuote
	}
	return t
}

type Registry struct {
	byCode map[string]Definition
	codes  []string
}

// NewRegistry builds the registry with the built-in market set.
func NewRegistry() *Registry {
	defs := []Definition{
		{Code: "NASDAQ", Currency: "USD", ProviderExchange: "NASDAQ", Suffix: ".us", AssetType: AssetTypeEquity},
		{Code: "NYSE", Currency: "USD", ProviderExchange: "NYSE", Suffix: ".us", AssetType: AssetTypeEquity},
		{Code: "GPW", Currency: "PLN", ProviderExchange: "WSE", AssetType: AssetTypeEquity, Aliases: []string{"WSE", "WARSAW"}},
		{Code: "NEWCONNECT", Currency: "PLN", ProviderExchange: "NEWCONNECT", AssetType: AssetTypeEquity, Aliases: []string{"NC"}},
		{Code: "LSE", Currency: "GBP", ProviderExchange: "LSE", Suffix: ".uk", AssetType: AssetTypeEquity},
		{Code: "XETRA", Currency: "EUR", ProviderExchange: "XETR", Suffix: ".de", AssetType: AssetTypeEquity, Aliases: []string{"FRA"}},
		{Code: "BINANCE", Currency: "USDT", ProviderExchange: "Binance", AssetType: AssetTypeCrypto, DefaultQuote: "USDT"},
	}
	return NewRegistryWith(defs)
}

// NewRegistryWith builds a registry from an explicit market set.
func NewRegistryWith(defs []Definition) *Registry {
	r := &Registry{byCode: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		r.byCode[d.Code] = d
		r.codes = append(r.codes, d.Code)
		for _, a := range d.Aliases {
			r.byCode[strings.ToUpper(a)] = d
		}
	}
	sort.Strings(r.codes)
	return r
}

// Get resolves a market code or alias, case-insensitively.
func (r *Registry) Get(code string) (Definition, bool) {
	d, ok := r.byCode[strings.ToUpper(strings.TrimSpace(code))]
	return d, ok
}

// Codes returns the canonical codes of all supported markets, sorted.
func (r *Registry) Codes() []string {
	out := make([]string, len(r.codes))
	copy(out, r.codes)
	return out
}

// Definitions returns the canonical definitions of all supported markets.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, 0, len(r.codes))
	for _, c := range r.codes {
		out = append(out, r.byCode[c])
	}
	return out
}

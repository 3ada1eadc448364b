// Package provider defines the capability contract implemented by every
// market-data source and the classified error type that lets the chain skip
// a failing source and move on.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DominikIlski/Finansista/internal/market"
)

type Interval string

const IntervalDaily Interval = "1d"

// Quote is a latest-price result in the source's native currency.
type Quote struct {
	Price    float64
	Currency string
	AsOf     time.Time
}

// HistoryPoint is one daily close in a historical series.
type HistoryPoint struct {
	Date     time.Time
	Price    float64
	Currency string
}

// SymbolInfo is the display metadata a source knows about a ticker.
type SymbolInfo struct {
	Ticker   string
	Market   string
	Name     string
	Currency string
	Exchange string
}

// ExchangeRate is a currency-pair conversion rate.
type ExchangeRate struct {
	Rate float64
	AsOf time.Time
}

// Provider is implemented by each data source. A source may refuse a whole
// operation category by always returning a *Error (wrapping ErrUnsupportedOp);
// the chain treats that like any other recoverable failure and moves on.
type Provider interface {
	Name() string

	// SearchSymbol returns (nil, nil) when the source responds cleanly
	// but has no match, and a *Error on any recoverable fetch or parse
	// failure.
	SearchSymbol(ctx context.Context, ticker string, mkt market.Definition) (*SymbolInfo, error)

	GetQuote(ctx context.Context, ticker string, mkt market.Definition) (Quote, error)

	// GetHistory returns daily points ascending by date; an empty slice
	// is a valid result.
	GetHistory(ctx context.Context, ticker string, mkt market.Definition, from, to time.Time, interval Interval) ([]HistoryPoint, error)

	GetExchangeRate(ctx context.Context, base, quote string) (ExchangeRate, error)
}

// MarketRestricted is implemented by providers whose plan only covers a
// subset of markets. The chain drops them entirely for other markets.
type MarketRestricted interface {
	SupportsMarket(code string) bool
}

var (
	// ErrUnsupportedOp marks an operation category a provider refuses.
	ErrUnsupportedOp = errors.New("operation not supported by provider")
	// ErrNoProviders is returned when a chain has no provider left to try.
	ErrNoProviders = errors.New("no providers configured")
)

// Error is the classified, recoverable provider error. Raw transport and
// parse errors never leave a provider un-wrapped.
type Error struct {
	Provider string
	Op       string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf wraps err as a classified provider error.
func Errorf(providerName, op string, err error) *Error {
	return &Error{Provider: providerName, Op: op, Err: err}
}

// IsProviderError reports whether err is (or wraps) a classified provider
// error, i.e. a failure the chain may skip past.
func IsProviderError(err error) bool {
	var pe *Error
	return errors.As(err, &pe)
}

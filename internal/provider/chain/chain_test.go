package chain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DominikIlski/Finansista/internal/market"
	"github.com/DominikIlski/Finansista/internal/provider"
)

// fakeProvider records calls and returns canned results per operation.
type fakeProvider struct {
	name       string
	markets    map[string]bool // nil means unrestricted
	quote      provider.Quote
	quoteErr   error
	rate       provider.ExchangeRate
	rateErr    error
	quoteCalls int
	rateCalls  int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) SupportsMarket(code string) bool {
	if f.markets == nil {
		return true
	}
	return f.markets[code]
}

func (f *fakeProvider) SearchSymbol(context.Context, string, market.Definition) (*provider.SymbolInfo, error) {
	return nil, nil
}

func (f *fakeProvider) GetQuote(context.Context, string, market.Definition) (provider.Quote, error) {
	f.quoteCalls++
	return f.quote, f.quoteErr
}

func (f *fakeProvider) GetHistory(context.Context, string, market.Definition, time.Time, time.Time, provider.Interval) ([]provider.HistoryPoint, error) {
	return nil, nil
}

func (f *fakeProvider) GetExchangeRate(context.Context, string, string) (provider.ExchangeRate, error) {
	f.rateCalls++
	return f.rate, f.rateErr
}

// stooqStub blocks the chain from appending the real network-backed
// daily-equities provider during tests.
func stooqStub() *fakeProvider {
	return &fakeProvider{name: "stooq"}
}

func mkt(code string) market.Definition {
	return market.Definition{Code: code, Currency: "USD"}
}

func TestNew_DedupesAndAppendsDailySource(t *testing.T) {
	a := &fakeProvider{name: "twelvedata"}
	dup := &fakeProvider{name: "twelvedata"}

	c := New(a, dup)

	ps := c.ForMarket(mkt("NASDAQ"))
	require.Len(t, ps, 2)
	assert.Equal(t, "twelvedata", ps[0].Name())
	assert.Equal(t, "stooq", ps[1].Name())
}

func TestForMarket_FiltersRestrictedProvider(t *testing.T) {
	restricted := &fakeProvider{name: "twelvedata", markets: map[string]bool{"NASDAQ": true}}

	c := New(restricted, stooqStub())

	ps := c.ForMarket(mkt("GPW"))
	require.Len(t, ps, 1)
	assert.Equal(t, "stooq", ps[0].Name())

	ps = c.ForMarket(mkt("NASDAQ"))
	require.Len(t, ps, 2)
	assert.Equal(t, "twelvedata", ps[0].Name())
}

func TestForMarket_DailySourceMovedToFrontForDenylistedMarkets(t *testing.T) {
	a := &fakeProvider{name: "twelvedata"}
	b := stooqStub()

	c := New(a, b)

	ps := c.ForMarket(mkt("GPW"))
	require.Len(t, ps, 2)
	assert.Equal(t, "stooq", ps[0].Name())
	assert.Equal(t, "twelvedata", ps[1].Name())

	// Order is stable elsewhere.
	ps = c.ForMarket(mkt("NASDAQ"))
	assert.Equal(t, "twelvedata", ps[0].Name())
}

func TestQuote_FirstSuccessWins(t *testing.T) {
	failing := &fakeProvider{name: "twelvedata", quoteErr: provider.Errorf("twelvedata", "quote", errors.New("rate limited"))}
	working := stooqStub()
	working.quote = provider.Quote{Price: 42, Currency: "USD", AsOf: time.Now()}

	c := New(failing, working)

	q, source, err := c.Quote(context.Background(), "TSLA", mkt("NASDAQ"))
	require.NoError(t, err)
	assert.Equal(t, "stooq", source)
	assert.Equal(t, 42.0, q.Price)
	assert.Equal(t, 1, failing.quoteCalls, "failing provider tried exactly once")
	assert.Equal(t, 1, working.quoteCalls)
}

func TestQuote_ExhaustionRaisesLastError(t *testing.T) {
	err1 := provider.Errorf("twelvedata", "quote", errors.New("boom"))
	err2 := provider.Errorf("stooq", "quote", errors.New("no data"))
	a := &fakeProvider{name: "twelvedata", quoteErr: err1}
	b := stooqStub()
	b.quoteErr = err2

	c := New(a, b)

	_, _, err := c.Quote(context.Background(), "TSLA", mkt("NASDAQ"))
	require.Error(t, err)
	assert.ErrorIs(t, err, err2)
}

func TestQuote_EmptyChainReturnsNoProviders(t *testing.T) {
	restricted := &fakeProvider{name: "twelvedata", markets: map[string]bool{"NASDAQ": true}}
	restrictedDaily := stooqStub()
	restrictedDaily.markets = map[string]bool{"NASDAQ": true}

	c := New(restricted, restrictedDaily)

	_, _, err := c.Quote(context.Background(), "CDR", mkt("GPW"))
	assert.ErrorIs(t, err, provider.ErrNoProviders)
}

func TestRate_FxSubchainSkipsDailySourceAndAppendsCurrencyProvider(t *testing.T) {
	daily := stooqStub()
	daily.rateErr = provider.Errorf("stooq", "fx", provider.ErrUnsupportedOp)
	global := &fakeProvider{name: "twelvedata", rateErr: provider.Errorf("twelvedata", "fx", errors.New("down"))}
	currency := &fakeProvider{name: "frankfurter", rate: provider.ExchangeRate{Rate: 4.3, AsOf: time.Now()}}

	c := New(global, daily, currency)

	r, source, err := c.Rate(context.Background(), "EUR", "PLN")
	require.NoError(t, err)
	assert.Equal(t, "frankfurter", source)
	assert.Equal(t, 4.3, r.Rate)
	assert.Zero(t, daily.rateCalls, "daily-equities source must not be in the FX subchain")
}

func TestNameOrder_PrefersGlobalProvider(t *testing.T) {
	daily := stooqStub()
	global := &fakeProvider{name: "twelvedata"}

	c := New(daily, global)

	// GPW normally puts the daily source first; name resolution flips that.
	ps := c.NameOrder(mkt("GPW"))
	require.Len(t, ps, 2)
	assert.Equal(t, "twelvedata", ps[0].Name())
	assert.Equal(t, "stooq", ps[1].Name())
}

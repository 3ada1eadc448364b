package test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DominikIlski/Finansista/internal/fx"
	"github.com/DominikIlski/Finansista/internal/history"
	"github.com/DominikIlski/Finansista/internal/market"
	"github.com/DominikIlski/Finansista/internal/performance"
	"github.com/DominikIlski/Finansista/internal/platform/sqlite"
	"github.com/DominikIlski/Finansista/internal/provider/chain"
	"github.com/DominikIlski/Finansista/internal/provider/frankfurter"
	"github.com/DominikIlski/Finansista/internal/provider/stooq"
	"github.com/DominikIlski/Finansista/internal/quote"
	fxrepo "github.com/DominikIlski/Finansista/internal/repository/fx"
	historyrepo "github.com/DominikIlski/Finansista/internal/repository/history"
	holdingrepo "github.com/DominikIlski/Finansista/internal/repository/holding"
	quoterepo "github.com/DominikIlski/Finansista/internal/repository/quote"
	symbolrepo "github.com/DominikIlski/Finansista/internal/repository/symbol"
	"github.com/DominikIlski/Finansista/internal/server"
	"github.com/DominikIlski/Finansista/internal/symbol"
)

const stooqQuoteCSV = "Symbol,Date,Time,Open,High,Low,Close,Volume\ncdr,2024-06-03,17:00:05,120.5,124.0,119.8,123.45,350000\n"

const stooqHistoryCSV = `Date,Open,High,Low,Close,Volume
2024-01-02,100.0,102.0,99.0,101.5,120000
2024-01-03,101.5,103.0,100.5,102.2,98000
`

type upstreamCalls struct {
	quotes    atomic.Int64
	histories atomic.Int64
	rates     atomic.Int64
}

// setupE2E wires the full stack against an in-memory store and mock upstream
// servers, and returns the API server plus upstream call counters.
func setupE2E(t *testing.T) (*httptest.Server, *sqlite.DB, *upstreamCalls) {
	t.Helper()

	db, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	calls := &upstreamCalls{}

	mockStooq := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/q/l/":
			calls.quotes.Add(1)
			_, _ = w.Write([]byte(stooqQuoteCSV))
		case "/q/d/l/":
			calls.histories.Add(1)
			_, _ = w.Write([]byte(stooqHistoryCSV))
		default:
			t.Errorf("unexpected stooq path %s", r.URL.Path)
		}
	}))
	t.Cleanup(mockStooq.Close)

	mockFrankfurter := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.rates.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"base":  "PLN",
			"date":  "2024-06-03",
			"rates": map[string]float64{"EUR": 0.2315, "PLN": 1},
		})
	}))
	t.Cleanup(mockFrankfurter.Close)

	// Configured providers shadow the real defaults by name, so nothing in
	// the test ever reaches the network.
	providers := chain.New(
		stooq.New(
			stooq.WithClient(mockStooq.Client()),
			stooq.WithQuoteEndpoint(mockStooq.URL+"/q/l/"),
			stooq.WithHistoryEndpoint(mockStooq.URL+"/q/d/l/"),
		),
		frankfurter.New(
			frankfurter.WithClient(mockFrankfurter.Client()),
			frankfurter.WithBaseURL(mockFrankfurter.URL),
		),
	)

	registry := market.NewRegistry()
	historyRepo := historyrepo.NewRepository(db.DB)

	historySvc := history.NewService(historyRepo, providers, registry)
	quoteSvc := quote.NewService(quoterepo.NewRepository(db.DB), historyRepo, providers, registry, time.Minute)
	fxSvc := fx.NewService(fxrepo.NewRepository(db.DB), providers, time.Hour)
	symbolSvc := symbol.NewService(symbolrepo.NewRepository(db.DB), providers, registry, market.DefaultOverrides(), 7)
	perfSvc := performance.NewService(holdingrepo.NewRepository(db.DB), historySvc, fxSvc, registry)

	ts := httptest.NewServer(server.NewHandler(server.Services{
		Quotes:      quoteSvc,
		Histories:   historySvc,
		Fx:          fxSvc,
		Symbols:     symbolSvc,
		Performance: perfSvc,
		Markets:     registry,
	}))
	t.Cleanup(ts.Close)

	return ts, db, calls
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url) //nolint:gosec // test URL
	if err != nil {
		t.Fatalf("request %s: %v", url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp
}

func TestE2E_Health(t *testing.T) {
	ts, _, _ := setupE2E(t)

	resp := getJSON(t, ts.URL+"/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestE2E_ListMarkets(t *testing.T) {
	ts, _, _ := setupE2E(t)

	var result struct {
		Data []market.Definition `json:"data"`
	}
	resp := getJSON(t, ts.URL+"/api/v1/markets", &result)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if len(result.Data) == 0 {
		t.Fatal("expected a non-empty market list")
	}
}

func TestE2E_Quote_SecondCallIsCached(t *testing.T) {
	ts, _, calls := setupE2E(t)
	url := ts.URL + "/api/v1/quotes/GPW/CDR"

	var first struct {
		Data quote.Latest `json:"data"`
	}
	resp := getJSON(t, url, &first)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if first.Data.Price != 123.45 {
		t.Errorf("expected price 123.45, got %f", first.Data.Price)
	}
	if first.Data.Currency != "PLN" {
		t.Errorf("expected currency PLN, got %s", first.Data.Currency)
	}
	if first.Data.Cached {
		t.Error("first call must not be served from cache")
	}

	var second struct {
		Data quote.Latest `json:"data"`
	}
	getJSON(t, url, &second)
	if !second.Data.Cached {
		t.Error("second call must be served from cache")
	}
	if second.Data.Price != first.Data.Price {
		t.Errorf("cached price drifted: %f vs %f", second.Data.Price, first.Data.Price)
	}
	if n := calls.quotes.Load(); n != 1 {
		t.Errorf("expected exactly 1 upstream quote call, got %d", n)
	}
}

func TestE2E_History_CachedAndCSV(t *testing.T) {
	ts, _, calls := setupE2E(t)
	url := ts.URL + "/api/v1/history/GPW/CDR?from=2024-01-02&to=2024-01-03"

	var result struct {
		Data history.Series `json:"data"`
	}
	resp := getJSON(t, url, &result)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if len(result.Data.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(result.Data.Rows))
	}
	if result.Data.Source != "stooq" {
		t.Errorf("expected source stooq, got %s", result.Data.Source)
	}

	// Covered range: no second upstream call.
	getJSON(t, url, &result)
	if n := calls.histories.Load(); n != 1 {
		t.Errorf("expected exactly 1 upstream history call, got %d", n)
	}

	respCSV := getJSON(t, url+"&format=csv", nil)
	if got := respCSV.Header.Get("Content-Type"); got != "text/csv" {
		t.Errorf("expected text/csv, got %s", got)
	}
}

func TestE2E_ValidateSymbol_UnsupportedMarket(t *testing.T) {
	ts, _, calls := setupE2E(t)

	var result struct {
		Data symbol.Result `json:"data"`
	}
	resp := getJSON(t, ts.URL+"/api/v1/symbols/MOON/AAPL/validate", &result)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if result.Data.Valid {
		t.Error("expected valid=false")
	}
	if result.Data.Reason != symbol.ReasonUnsupportedMarket {
		t.Errorf("expected reason %s, got %s", symbol.ReasonUnsupportedMarket, result.Data.Reason)
	}
	if len(result.Data.SupportedMarkets) == 0 {
		t.Error("expected the supported market list")
	}
	if n := calls.quotes.Load(); n != 0 {
		t.Errorf("unsupported market must not hit providers, got %d calls", n)
	}
}

func TestE2E_ValidateSymbol_Found(t *testing.T) {
	ts, _, _ := setupE2E(t)

	var result struct {
		Data symbol.Result `json:"data"`
	}
	resp := getJSON(t, ts.URL+"/api/v1/symbols/GPW/CDR/validate", &result)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !result.Data.Valid {
		t.Fatal("expected valid=true")
	}
	if result.Data.Source != "stooq" {
		t.Errorf("expected source stooq, got %s", result.Data.Source)
	}
}

func TestE2E_ResolveName_Override(t *testing.T) {
	ts, _, _ := setupE2E(t)

	var result struct {
		Data map[string]string `json:"data"`
	}
	resp := getJSON(t, ts.URL+"/api/v1/symbols/GPW/CDR/name", &result)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if result.Data["name"] != "CD Projekt" {
		t.Errorf("expected override name, got %q", result.Data["name"])
	}
}

func TestE2E_FxRate(t *testing.T) {
	ts, _, calls := setupE2E(t)

	var result struct {
		Data map[string]any `json:"data"`
	}
	resp := getJSON(t, ts.URL+"/api/v1/fx/PLN/EUR", &result)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if rate, _ := result.Data["rate"].(float64); rate != 0.2315 {
		t.Errorf("expected rate 0.2315, got %v", result.Data["rate"])
	}

	// Second call is served from cache.
	getJSON(t, ts.URL+"/api/v1/fx/PLN/EUR", &result)
	if n := calls.rates.Load(); n != 1 {
		t.Errorf("expected exactly 1 upstream fx call, got %d", n)
	}

	// Identity pair short-circuits.
	getJSON(t, ts.URL+"/api/v1/fx/PLN/PLN", &result)
	if rate, _ := result.Data["rate"].(float64); rate != 1 {
		t.Errorf("expected identity rate 1, got %v", result.Data["rate"])
	}
	if n := calls.rates.Load(); n != 1 {
		t.Errorf("identity pair must not hit providers, got %d calls", n)
	}
}

func TestE2E_Performance(t *testing.T) {
	ts, db, _ := setupE2E(t)

	// Portfolio 1 is seeded by the schema.
	_, err := db.Exec(
		`INSERT INTO holdings (portfolio_id, ticker, market, buy_date, buy_price, quantity) VALUES (1, 'CDR', 'GPW', '2024-01-02', 100.0, 2)`,
	)
	if err != nil {
		t.Fatalf("insert holding: %v", err)
	}

	var result struct {
		Data performance.Series `json:"data"`
	}
	url := fmt.Sprintf("%s/api/v1/portfolios/1/performance?from=2024-01-02&to=2024-01-03&currency=PLN", ts.URL)
	resp := getJSON(t, url, &result)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if len(result.Data.Points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(result.Data.Points))
	}
	if result.Data.Points[0].Value != 203 {
		t.Errorf("expected value 203 (2 x 101.5), got %f", result.Data.Points[0].Value)
	}
	if result.Data.Points[1].Value != 204.4 {
		t.Errorf("expected value 204.4 (2 x 102.2), got %f", result.Data.Points[1].Value)
	}
}

func TestE2E_Quote_UnknownMarketIsBadRequest(t *testing.T) {
	ts, _, _ := setupE2E(t)

	resp := getJSON(t, ts.URL+"/api/v1/quotes/MOON/AAPL", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

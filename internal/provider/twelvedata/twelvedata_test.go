package twelvedata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DominikIlski/Finansista/internal/market"
	"github.com/DominikIlski/Finansista/internal/provider"
)

const testAPIKey = "test-key-123"

// newTestServer returns a mock API server and a Provider pointed at it. Every
// handler checks that the API key rides along as a query parameter.
func newTestServer(t *testing.T, handlers map[string]string) (*httptest.Server, *Provider) {
	t.Helper()

	mux := http.NewServeMux()
	for path, body := range handlers {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("apikey"); got != testAPIKey {
				t.Errorf("expected apikey=%s, got %s", testAPIKey, got)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
		})
	}

	ts := httptest.NewServer(mux)
	p := New(testAPIKey, WithClient(ts.Client()), WithBaseURL(ts.URL))
	return ts, p
}

func nasdaq(t *testing.T) market.Definition {
	t.Helper()
	mkt, ok := market.NewRegistry().Get("NASDAQ")
	if !ok {
		t.Fatal("NASDAQ not in registry")
	}
	return mkt
}

func TestSupportsMarket(t *testing.T) {
	p := New(testAPIKey)

	tests := []struct {
		code string
		want bool
	}{
		{"NASDAQ", true},
		{"LSE", true},
		{"BINANCE", true},
		{"GPW", false},
		{"NEWCONNECT", false},
	}
	for _, tt := range tests {
		if got := p.SupportsMarket(tt.code); got != tt.want {
			t.Errorf("SupportsMarket(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestSearchSymbol(t *testing.T) {
	body := `{"data":[
		{"symbol":"AAPL","instrument_name":"Apple Inc","exchange":"LSE","currency":"GBP"},
		{"symbol":"AAPL","instrument_name":"Apple Inc","exchange":"NASDAQ","currency":"USD"}
	]}`
	ts, p := newTestServer(t, map[string]string{"/symbol_search": body})
	defer ts.Close()

	info, err := p.SearchSymbol(context.Background(), "AAPL", nasdaq(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info == nil {
		t.Fatal("expected a match, got nil")
	}
	if info.Exchange != "NASDAQ" || info.Currency != "USD" {
		t.Errorf("expected the NASDAQ listing, got %+v", info)
	}
	if info.Name != "Apple Inc" {
		t.Errorf("expected instrument name, got %q", info.Name)
	}
}

func TestSearchSymbol_NoExchangeMatchIsNilNil(t *testing.T) {
	body := `{"data":[{"symbol":"AAPL","instrument_name":"Apple Inc","exchange":"LSE","currency":"GBP"}]}`
	ts, p := newTestServer(t, map[string]string{"/symbol_search": body})
	defer ts.Close()

	info, err := p.SearchSymbol(context.Background(), "AAPL", nasdaq(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info != nil {
		t.Fatalf("expected nil for wrong-exchange match, got %+v", info)
	}
}

func TestGetQuote(t *testing.T) {
	body := `{"close":"187.53","currency":"USD","timestamp":1717426800}`
	ts, p := newTestServer(t, map[string]string{"/quote": body})
	defer ts.Close()

	q, err := p.GetQuote(context.Background(), "AAPL", nasdaq(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Price != 187.53 {
		t.Errorf("expected price 187.53, got %f", q.Price)
	}
	if q.Currency != "USD" {
		t.Errorf("expected currency USD, got %s", q.Currency)
	}
	if !q.AsOf.Equal(time.Unix(1717426800, 0).UTC()) {
		t.Errorf("unexpected as-of %v", q.AsOf)
	}
}

func TestGetQuote_APIErrorEnvelope(t *testing.T) {
	// Errors come back with HTTP 200 and an error envelope.
	body := `{"status":"error","code":429,"message":"You have run out of API credits"}`
	ts, p := newTestServer(t, map[string]string{"/quote": body})
	defer ts.Close()

	_, err := p.GetQuote(context.Background(), "AAPL", nasdaq(t))
	if err == nil {
		t.Fatal("expected error for api error envelope")
	}
	if !provider.IsProviderError(err) {
		t.Errorf("expected a classified provider error, got %v", err)
	}
}

func TestGetHistory_SortedAscending(t *testing.T) {
	// The API returns newest first; the provider must flip it.
	body := `{"currency":"USD","values":[
		{"datetime":"2024-01-03","close":"186.10"},
		{"datetime":"2024-01-02","close":"185.01"}
	]}`
	ts, p := newTestServer(t, map[string]string{"/time_series": body})
	defer ts.Close()

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	points, err := p.GetHistory(context.Background(), "AAPL", nasdaq(t), from, to, provider.IntervalDaily)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if !points[0].Date.Before(points[1].Date) {
		t.Errorf("expected ascending dates, got %v then %v", points[0].Date, points[1].Date)
	}
	if points[0].Price != 185.01 {
		t.Errorf("expected first close 185.01, got %f", points[0].Price)
	}
}

func TestGetExchangeRate(t *testing.T) {
	body := `{"rate":4.3215,"timestamp":1717426800}`
	ts, p := newTestServer(t, map[string]string{"/exchange_rate": body})
	defer ts.Close()

	er, err := p.GetExchangeRate(context.Background(), "EUR", "PLN")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if er.Rate != 4.3215 {
		t.Errorf("expected rate 4.3215, got %f", er.Rate)
	}
}

func TestGetQuote_HTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	p := New(testAPIKey, WithClient(ts.Client()), WithBaseURL(ts.URL))
	_, err := p.GetQuote(context.Background(), "AAPL", nasdaq(t))
	if err == nil {
		t.Fatal("expected error for HTTP 503")
	}
	if !provider.IsProviderError(err) {
		t.Errorf("expected a classified provider error, got %v", err)
	}
}

package quote

import "time"

// SourceHistory marks a quote derived from the most recent daily history row
// when no live or cached quote was available.
const SourceHistory = "history"

// Quote is one cached latest-price row. Multiple sources and as-of
// timestamps may coexist for a (ticker, market); the freshest non-expired
// row wins on read.
type Quote struct {
	ID        int64     `json:"id"`
	Ticker    string    `json:"ticker"`
	Market    string    `json:"market"`
	Price     float64   `json:"price"`
	Currency  string    `json:"currency"`
	AsOf      time.Time `json:"asOf"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetchedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Latest is the result of a latest-quote lookup. Cached is true whenever the
// price did not come from a live provider call on this request, so the UI
// can signal staleness.
type Latest struct {
	Price    float64   `json:"price"`
	Currency string    `json:"currency"`
	AsOf     time.Time `json:"as_of"`
	Source   string    `json:"source"`
	Cached   bool      `json:"cached"`
}

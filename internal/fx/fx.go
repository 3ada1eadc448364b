package fx

import "time"

// Rate is one cached currency-pair conversion rate, keyed
// (base, quote, source). Same-currency pairs short-circuit to 1 and are
// never cached.
type Rate struct {
	ID        int64     `json:"id"`
	Base      string    `json:"base"`
	Quote     string    `json:"quote"`
	Rate      float64   `json:"rate"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetchedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

package symbol

import "time"

// Validation failure reasons returned as structured results, not errors.
const (
	ReasonUnsupportedMarket = "unsupported_market"
	ReasonNotFound          = "not_found"
)

// Record is one cached symbol validation, keyed (ticker, market, provider).
// Its TTL is measured in days; names and currencies rarely change.
type Record struct {
	ID         int64     `json:"id"`
	Ticker     string    `json:"ticker"`
	Market     string    `json:"market"`
	Name       string    `json:"name"`
	Currency   string    `json:"currency"`
	Exchange   string    `json:"exchange"`
	Provider   string    `json:"provider"`
	VerifiedAt time.Time `json:"verifiedAt"`
}

// Result is the outcome of a validation request. Invalid results are part of
// the normal flow (unknown market, ticker not found) and carry enough
// context for caller display.
type Result struct {
	Valid            bool     `json:"valid"`
	Source           string   `json:"source,omitempty"`
	Symbol           *Record  `json:"symbol,omitempty"`
	Normalized       string   `json:"normalized,omitempty"`
	Reason           string   `json:"reason,omitempty"`
	SupportedMarkets []string `json:"supported_markets,omitempty"`
}

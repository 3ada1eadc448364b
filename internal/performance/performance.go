package performance

import "time"

// Point is one day of the valuation curve, in the requested base currency.
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Series is a dense daily valuation curve: exactly one point per calendar
// day in [From, To], no gaps. It is recomputed per request and never
// persisted.
type Series struct {
	Points []Point   `json:"series"`
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`
}

package history

import "time"

// Point is one cached daily close. Natural key
// (ticker, market, source, interval, date); a later fetch overwrites it.
type Point struct {
	ID        int64     `json:"id"`
	Ticker    string    `json:"ticker"`
	Market    string    `json:"market"`
	Interval  string    `json:"interval"`
	Date      time.Time `json:"date"`
	Price     float64   `json:"price"`
	Currency  string    `json:"currency"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// Series is a historical range read, tagged with the source that produced
// the most recent rows.
type Series struct {
	Rows   []Point `json:"rows"`
	Source string  `json:"source"`
}

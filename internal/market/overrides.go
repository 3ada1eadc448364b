package market

import "strings"

// Overrides is a manual (market, ticker) -> display name table. It fills in
// names for tickers whose providers return no usable display name. An
// override never replaces a name that is already cached.
type Overrides map[string]string

func overrideKey(mkt, ticker string) string {
	return strings.ToUpper(mkt) + ":" + strings.ToUpper(ticker)
}

func (o Overrides) Get(mkt, ticker string) (string, bool) {
	name, ok := o[overrideKey(mkt, ticker)]
	return name, ok
}

// DefaultOverrides covers tickers known to come back nameless from the
// daily-equities provider.
func DefaultOverrides() Overrides {
	return Overrides{
		"GPW:CDR":        "CD Projekt",
		"GPW:PKO":        "PKO Bank Polski",
		"GPW:PKN":        "Orlen",
		"GPW:ALE":        "Allegro.eu",
		"NEWCONNECT:BDZ": "Bedzin",
	}
}

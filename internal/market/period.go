// Package market maintains a live per-symbol view of price, volume, and
// holdings, refreshed on a fixed polling cadence, and mediates buy/sell
// intents against the backend.
package market

// DefaultPeriod is the historical window a fresh view opens with.
const DefaultPeriod = "1mo"

// Periods is the fixed set of selectable historical windows, in display
// order.
var Periods = []string{"1d", "5d", "1mo", "3mo", "6mo", "1y", "2y", "5y", "10y", "ytd", "max"}

// ValidPeriod reports whether p is one of the selectable periods.
func ValidPeriod(p string) bool {
	for _, known := range Periods {
		if p == known {
			return true
		}
	}
	return false
}

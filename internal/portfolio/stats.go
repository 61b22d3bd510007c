// Package portfolio computes dashboard valuation figures from the
// portfolio history and holdings returned by the backend.
package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/adirathodd/titan-trading/internal/api"
)

// Summary is the headline valuation shown on the dashboard.
type Summary struct {
	// CurrentValue is the most recent total account value.
	CurrentValue decimal.Decimal
	// ChangePercent is the day-over-day change, in percent.
	ChangePercent decimal.Decimal
}

// Summarize derives the current value and day-over-day percentage change
// from the portfolio history. History entries may arrive unsorted; they are
// ordered by date (ISO strings sort chronologically) before comparison. An
// empty history yields a zero summary; a zero previous value yields a zero
// change rather than a division error.
func Summarize(history []api.PortfolioPoint) Summary {
	if len(history) == 0 {
		return Summary{}
	}

	sorted := make([]api.PortfolioPoint, len(history))
	copy(sorted, history)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Date < sorted[j].Date
	})

	latest := decimal.NewFromFloat(sorted[len(sorted)-1].TotalValue)

	var previous decimal.Decimal
	if len(sorted) > 1 {
		previous = decimal.NewFromFloat(sorted[len(sorted)-2].TotalValue)
	}

	var change decimal.Decimal
	if !previous.IsZero() {
		hundred := decimal.NewFromInt(100)
		change = latest.Sub(previous).Div(previous).Mul(hundred)
	}

	return Summary{
		CurrentValue:  latest,
		ChangePercent: change,
	}
}

// HoldingsValue totals the market value of the current holdings.
func HoldingsValue(holdings []api.DashboardHolding) decimal.Decimal {
	total := decimal.Zero
	for _, h := range holdings {
		total = total.Add(decimal.NewFromFloat(h.TotalValue))
	}
	return total
}

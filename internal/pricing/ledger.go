package pricing

import (
	"strings"

	"github.com/boddenberg/otd-engine/internal/domain"
	"github.com/boddenberg/otd-engine/internal/money"

	"gonum.org/v1/gonum/floats"
)

// SumLineItems adds up item amounts; negative or non-finite amounts count as 0.
func SumLineItems(items []domain.LineItem) float64 {
	amounts := make([]float64, 0, len(items))
	for _, it := range items {
		amounts = append(amounts, money.NonNegative(it.Amount))
	}
	return floats.Sum(amounts)
}

// SplitAddons returns the taxable and non-taxable add-on totals.
func SplitAddons(addons []domain.LineItem) (taxable, nonTaxable float64) {
	var t, n []float64
	for _, a := range addons {
		amt := money.NonNegative(a.Amount)
		if a.Taxable {
			t = append(t, amt)
		} else {
			n = append(n, amt)
		}
	}
	return floats.Sum(t), floats.Sum(n)
}

// SplitFees returns the taxable and non-taxable fee totals. A fee bound to a
// county is only charged when county matches it.
func SplitFees(fees []domain.Fee, county string) (taxable, nonTaxable float64) {
	var t, n []float64
	for _, f := range fees {
		if !FeeApplies(f, county) {
			continue
		}
		amt := money.NonNegative(f.Amount)
		if f.Taxable {
			t = append(t, amt)
		} else {
			n = append(n, amt)
		}
	}
	return floats.Sum(t), floats.Sum(n)
}

// FeeApplies reports whether f is charged for a transaction in county.
func FeeApplies(f domain.Fee, county string) bool {
	if f.County == "" {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(f.County), strings.TrimSpace(county))
}

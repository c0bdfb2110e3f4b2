package decision

import (
	"math"

	"github.com/boddenberg/otd-engine/internal/money"

	"gonum.org/v1/gonum/floats"
)

// Investment is the projected outcome of investing the cash not put down.
type Investment struct {
	Principal float64
	Value     float64
	Gain      float64
	Tax       float64
	Net       float64
	// GainNet is Net minus Principal: the after-tax profit.
	GainNet float64
}

// Invest compounds principal annually at annualReturn over termMonths/12
// years. Only the gain is taxed. A principal <= 0 produces a zero projection.
func Invest(principal, annualReturn, gainsTaxRate float64, termMonths int) Investment {
	if principal <= 0 || termMonths <= 0 {
		return Investment{Principal: principal}
	}

	years := float64(termMonths) / 12
	value := money.Finite(principal * math.Pow(1+annualReturn, years))
	if value < 0 {
		value = 0
	}
	gain := math.Max(0, value-principal)
	tax := gain * clampUnit(gainsTaxRate)
	net := value - tax

	return Investment{
		Principal: principal,
		Value:     value,
		Gain:      gain,
		Tax:       tax,
		Net:       net,
		GainNet:   net - principal,
	}
}

// Maintenance sums the per-year maintenance schedule over termMonths. Years
// past the end of the schedule cost the same as its last year; a partial
// final year is pro-rated.
func Maintenance(schedule []float64, termMonths int) float64 {
	if len(schedule) == 0 || termMonths <= 0 {
		return 0
	}

	years := float64(termMonths) / 12
	whole := termMonths / 12

	costs := make([]float64, 0, whole+1)
	for y := 1; y <= whole; y++ {
		costs = append(costs, yearCost(schedule, y))
	}
	if frac := years - float64(whole); frac > 0 {
		costs = append(costs, yearCost(schedule, whole+1)*frac)
	}
	return floats.Sum(costs)
}

func yearCost(schedule []float64, year int) float64 {
	return money.NonNegative(schedule[min(year, len(schedule))-1])
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

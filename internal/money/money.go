// Package money normalizes user-entered currency amounts and rates before they
// reach the engines. Anything non-numeric, non-finite or negative becomes 0.
package money

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a non-negative currency amount or rate decoded leniently from JSON.
// It accepts numbers, numeric strings ("$25,000.50", "7%") and null.
type Amount float64

// UnmarshalJSON never fails: unparseable input normalizes to 0.
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*a = 0
		return nil
	}
	if b[0] == '"' {
		s, err := strconv.Unquote(string(b))
		if err != nil {
			*a = 0
			return nil
		}
		*a = Amount(Parse(s))
		return nil
	}
	*a = Amount(Parse(string(b)))
	return nil
}

// Float returns the amount as a float64.
func (a Amount) Float() float64 {
	return float64(a)
}

// Ptr returns nil for a nil Amount pointer and the float value otherwise.
func Ptr(a *Amount) *float64 {
	if a == nil {
		return nil
	}
	v := a.Float()
	return &v
}

// Parse reads a user-entered amount. Currency symbols, thousands separators,
// whitespace and a trailing percent sign are ignored; the percent sign does not
// rescale the value.
func Parse(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	s = strings.NewReplacer("$", "", ",", "", " ", "", "_", "").Replace(s)
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return NonNegative(d.InexactFloat64())
}

// MaxAmount is the largest amount the engines accept. Sums of amounts at or
// below it stay finite.
const MaxAmount = 1e12

// InRange reports whether v is a finite amount in [0, MaxAmount].
func InRange(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= MaxAmount
}

// NonNegative clamps NaN, infinities and negatives to 0.
func NonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// Finite returns v, or 0 when v is NaN or infinite.
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// RoundCents rounds half away from zero to two decimal places.
func RoundCents(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

package money_test

import (
	"math"
	"testing"

	"github.com/boddenberg/otd-engine/internal/money"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{name: "plain number", input: "25000", want: 25000},
		{name: "currency formatted", input: "$25,000.50", want: 25000.50},
		{name: "whitespace", input: "  1200 ", want: 1200},
		{name: "percent sign kept as-is", input: "7%", want: 7},
		{name: "negative clamps to zero", input: "-500", want: 0},
		{name: "garbage", input: "abc", want: 0},
		{name: "empty", input: "", want: 0},
		{name: "exponent", input: "1e3", want: 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, money.Parse(tt.input))
		})
	}
}

func TestAmount_UnmarshalJSON(t *testing.T) {
	var payload struct {
		Number  money.Amount  `json:"number"`
		String  money.Amount  `json:"string"`
		Null    money.Amount  `json:"null"`
		Bad     money.Amount  `json:"bad"`
		Neg     money.Amount  `json:"neg"`
		Missing *money.Amount `json:"missing"`
	}

	raw := `{"number": 31999.99, "string": "$2,500", "null": null, "bad": "n/a", "neg": -10}`
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))

	assert.Equal(t, 31999.99, payload.Number.Float())
	assert.Equal(t, 2500.0, payload.String.Float())
	assert.Zero(t, payload.Null.Float())
	assert.Zero(t, payload.Bad.Float())
	assert.Zero(t, payload.Neg.Float())
	assert.Nil(t, money.Ptr(payload.Missing))
}

func TestNonNegative(t *testing.T) {
	assert.Zero(t, money.NonNegative(math.NaN()))
	assert.Zero(t, money.NonNegative(math.Inf(1)))
	assert.Zero(t, money.NonNegative(-1))
	assert.Equal(t, 3.5, money.NonNegative(3.5))
}

func TestRoundCents(t *testing.T) {
	assert.Equal(t, 333.33, money.RoundCents(20000.0/60))
	assert.Equal(t, 0.13, money.RoundCents(0.125))
	assert.Zero(t, money.RoundCents(math.NaN()))
}

func TestInRange(t *testing.T) {
	assert.True(t, money.InRange(0))
	assert.True(t, money.InRange(money.MaxAmount))
	assert.False(t, money.InRange(money.MaxAmount*1.0001))
	assert.False(t, money.InRange(1.7e308))
	assert.False(t, money.InRange(-0.01))
	assert.False(t, money.InRange(math.NaN()))
	assert.False(t, money.InRange(math.Inf(1)))
}

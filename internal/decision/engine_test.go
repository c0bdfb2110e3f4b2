package decision_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/boddenberg/otd-engine/internal/amortization"
	"github.com/boddenberg/otd-engine/internal/decision"
	"github.com/boddenberg/otd-engine/internal/domain"
	"github.com/boddenberg/otd-engine/internal/pricing"
	"github.com/boddenberg/otd-engine/internal/taxrate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flatTax float64

func (f flatTax) Resolve(zip string) domain.TaxResult {
	return domain.TaxResult{ZIP: zip, Rate: float64(f), Match: domain.MatchDefault, IsEstimate: true}
}

func zeroRateEngine() *decision.Engine {
	rates := amortization.RateCard{
		Tiers: domain.CreditTierTable{
			DefaultTier: "good",
			Tiers:       map[string]map[int]float64{"good": {36: 0, 60: 0}},
		},
	}
	return decision.New(flatTax(0), pricing.NewEngine(nil, []int{36, 60}, rates))
}

func TestDecide_WorkedExample(t *testing.T) {
	tx := domain.TransactionSnapshot{VehiclePrice: 30000, DownPayment: 10000, CreditTier: "good"}
	params := domain.DecisionParams{
		SelectedTerm:      60,
		InvestmentReturn:  0.05,
		ResidualByTerm:    map[int]float64{60: 0.4},
		MaintenanceByYear: []float64{1000},
	}

	otd, d := zeroRateEngine().Decide(tx, params)

	assert.Equal(t, 30000.0, otd.OutTheDoor)
	assert.Equal(t, 10000.0, d.DownPayment)
	assert.Equal(t, 20000.0, d.AmountFinanced)
	assert.Equal(t, 20000.0, d.CashInvested)
	assert.InDelta(t, 20000.0/60, d.MonthlyPayment, 1e-9)
	assert.Zero(t, d.TotalInterest)

	fv := 20000 * math.Pow(1.05, 5)
	assert.InDelta(t, fv, d.InvestmentValue, 1e-6)
	assert.InDelta(t, fv-20000, d.InvestmentGainNet, 1e-6)
	assert.Zero(t, d.InvestmentTax)

	assert.Equal(t, 5000.0, d.TotalMaintenance)
	assert.Equal(t, 12000.0, d.ResidualValue)
	assert.InDelta(t, 35000.0, d.TotalCashOut, 1e-6)
	assert.InDelta(t, 12000+fv-35000, d.NetPosition, 1e-6)
	assert.Equal(t, domain.VerdictFinance, d.Verdict)
	assert.InDelta(t, fv-20000, d.FinancingAdvantage, 1e-6)
}

func TestDecide_Idempotent(t *testing.T) {
	idx, _ := taxrate.NewIndex(taxrate.DefaultDocument(), taxrate.IllinoisPrefixes())
	rates := amortization.RateCard{
		Tiers: domain.CreditTierTable{
			DefaultTier: "good",
			Tiers:       map[string]map[int]float64{"good": {36: 5.9, 48: 6.4, 60: 6.9, 72: 7.4}},
		},
	}
	fees := []domain.Fee{{ID: "doc", Amount: 358.03, Taxable: true}, {ID: "title", Amount: 165}}
	engine := decision.New(taxrate.NewResolver(idx), pricing.NewEngine(fees, []int{36, 48, 60, 72}, rates))

	residual := 0.42
	tx := domain.TransactionSnapshot{
		VehiclePrice: 41250,
		ZIP:          "60025",
		TradeValue:   7000,
		TradeOwed:    9500,
		Addons:       []domain.LineItem{{Amount: 895, Taxable: true}},
		CreditTier:   "good",
		DownPayment:  6000,
	}
	params := domain.DecisionParams{
		SelectedTerm:        66,
		InvestmentReturn:    0.07,
		CapitalGainsTaxRate: 0.15,
		ResidualPct:         &residual,
		MaintenanceByYear:   []float64{400, 600, 900, 1200, 1500},
	}

	otd1, d1 := engine.Decide(tx, params)
	otd2, d2 := engine.Decide(tx, params)
	assert.Equal(t, otd1, otd2)
	assert.Equal(t, d1, d2)
	assert.Equal(t, 0.42, *params.ResidualPct)
}

func TestDecide_VerdictMatchesComparison(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	rates := amortization.RateCard{
		Tiers: domain.CreditTierTable{
			DefaultTier: "fair",
			Tiers:       map[string]map[int]float64{"fair": {24: 3.9, 48: 8.9, 72: 12.9}},
		},
	}
	engine := decision.New(flatTax(0.0625), pricing.NewEngine(nil, []int{24, 48, 72}, rates))

	terms := []int{24, 48, 72}
	for i := 0; i < 1000; i++ {
		tx := domain.TransactionSnapshot{
			VehiclePrice: 5000 + r.Float64()*70000,
			DownPayment:  r.Float64() * 40000,
			TradeValue:   r.Float64() * 10000,
			TradeOwed:    r.Float64() * 10000,
		}
		params := domain.DecisionParams{
			SelectedTerm:        terms[r.Intn(len(terms))],
			InvestmentReturn:    r.Float64() * 0.12,
			CapitalGainsTaxRate: r.Float64() * 0.3,
		}

		_, d := engine.Decide(tx, params)
		switch {
		case d.CashInvested <= 0 || d.AmountFinanced <= 0:
			require.Equal(t, domain.VerdictNone, d.Verdict)
		case d.InvestmentGainNet >= d.TotalInterest:
			require.Equal(t, domain.VerdictFinance, d.Verdict)
		default:
			require.Equal(t, domain.VerdictCashDown, d.Verdict)
		}
	}
}

func TestVerdictFor_PartitionsAtEquality(t *testing.T) {
	assert.Equal(t, domain.VerdictFinance, decision.VerdictFor(500, 500))
	assert.Equal(t, domain.VerdictFinance, decision.VerdictFor(500.01, 500))
	assert.Equal(t, domain.VerdictCashDown, decision.VerdictFor(499.99, 500))
	assert.Equal(t, domain.VerdictCashDown, decision.VerdictFor(-10, 0))
}

func TestDecide_NoTradeOff(t *testing.T) {
	engine := zeroRateEngine()

	t.Run("paid in full", func(t *testing.T) {
		_, d := engine.Decide(domain.TransactionSnapshot{VehiclePrice: 20000, DownPayment: 50000}, domain.DecisionParams{SelectedTerm: 36})
		assert.Equal(t, 20000.0, d.DownPayment)
		assert.Zero(t, d.AmountFinanced)
		assert.Zero(t, d.CashInvested)
		assert.Zero(t, d.InvestmentValue)
		assert.Equal(t, domain.VerdictNone, d.Verdict)
		assert.Zero(t, d.FinancingAdvantage)
	})

	t.Run("trade equity covers the car", func(t *testing.T) {
		tx := domain.TransactionSnapshot{VehiclePrice: 10000, TradeValue: 15000}
		otd, d := engine.Decide(tx, domain.DecisionParams{SelectedTerm: 36})
		require.Less(t, otd.OutTheDoor, 0.0)
		assert.Zero(t, d.DownPayment)
		assert.Zero(t, d.AmountFinanced)
		assert.Zero(t, d.InvestmentGainNet)
		assert.Equal(t, domain.VerdictNone, d.Verdict)
	})

	t.Run("trade equity above the deal is refunded", func(t *testing.T) {
		tx := domain.TransactionSnapshot{VehiclePrice: 10000, TradeValue: 20000, DownPayment: 3000}
		params := domain.DecisionParams{SelectedTerm: 60, ResidualByTerm: map[int]float64{60: 0.4}}

		otd, d := engine.Decide(tx, params)
		require.Equal(t, -10000.0, otd.OutTheDoor)
		assert.Zero(t, d.DownPayment)
		assert.Zero(t, d.AmountFinanced)
		assert.Zero(t, d.CashInvested)
		assert.Zero(t, d.InvestmentValue)
		assert.Equal(t, -10000.0, d.TotalCashOut)
		assert.Equal(t, 4000.0, d.EndingAssets)
		assert.Equal(t, 14000.0, d.NetPosition)
		assert.Equal(t, domain.VerdictNone, d.Verdict)
		assert.Zero(t, d.FinancingAdvantage)
	})
}

func TestDecide_FallsBackToSnapshotTerm(t *testing.T) {
	_, d := zeroRateEngine().Decide(domain.TransactionSnapshot{VehiclePrice: 12000, SelectedTerm: 36}, domain.DecisionParams{})
	assert.Equal(t, 36, d.TermMonths)
	assert.InDelta(t, 12000.0/36, d.MonthlyPayment, 1e-9)
}

func TestCompare_PicksBestNetPosition(t *testing.T) {
	tx := domain.TransactionSnapshot{VehiclePrice: 30000, CreditTier: "good"}
	params := domain.DecisionParams{
		InvestmentReturn:  0.06,
		ResidualByTerm:    map[int]float64{36: 0.55, 60: 0.45},
		MaintenanceByYear: []float64{500},
	}

	otd, cmp := zeroRateEngine().Compare(tx, params, []int{36, 60})
	require.Len(t, cmp.Decisions, 2)
	assert.Equal(t, 36, cmp.Decisions[0].TermMonths)
	assert.Equal(t, 60, cmp.Decisions[1].TermMonths)

	best := cmp.Decisions[0]
	if cmp.Decisions[1].NetPosition > best.NetPosition {
		best = cmp.Decisions[1]
	}
	assert.Equal(t, best.TermMonths, cmp.BestTerm)
	assert.Equal(t, otd.OutTheDoor, cmp.Decisions[0].OutTheDoor)
}

func TestCompare_NoTerms(t *testing.T) {
	_, cmp := zeroRateEngine().Compare(domain.TransactionSnapshot{VehiclePrice: 1000}, domain.DecisionParams{}, nil)
	assert.Empty(t, cmp.Decisions)
	assert.Zero(t, cmp.BestTerm)
}

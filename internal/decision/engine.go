// Package decision compares financing a vehicle against putting more cash
// down. The cash not put down is assumed invested for the loan term; the
// after-tax investment gain is weighed against the total loan interest.
package decision

import (
	"math"

	"github.com/boddenberg/otd-engine/internal/amortization"
	"github.com/boddenberg/otd-engine/internal/domain"
	"github.com/boddenberg/otd-engine/internal/pricing"
)

// TaxResolver resolves the sales-tax rate for a ZIP code. It must be total.
type TaxResolver interface {
	Resolve(zip string) domain.TaxResult
}

// Engine composes tax resolution, pricing and amortization into a decision.
// It holds no mutable state.
type Engine struct {
	tax    TaxResolver
	pricer *pricing.Engine
}

// New creates a decision engine.
func New(tax TaxResolver, pricer *pricing.Engine) *Engine {
	return &Engine{tax: tax, pricer: pricer}
}

// Decide prices tx and evaluates the decision for params.SelectedTerm.
func (e *Engine) Decide(tx domain.TransactionSnapshot, params domain.DecisionParams) (domain.OTDResult, domain.DecisionResult) {
	otd := e.pricer.Quote(tx, e.tax.Resolve(tx.ZIP))
	return otd, e.Evaluate(tx, otd, params)
}

// Compare prices tx once and evaluates a decision for every term. BestTerm is
// the term with the highest net position; ties go to the earlier term.
func (e *Engine) Compare(tx domain.TransactionSnapshot, params domain.DecisionParams, terms []int) (domain.OTDResult, domain.DecisionComparison) {
	otd := e.pricer.Quote(tx, e.tax.Resolve(tx.ZIP))

	cmp := domain.DecisionComparison{Decisions: make([]domain.DecisionResult, 0, len(terms))}
	best := math.Inf(-1)
	for _, term := range terms {
		p := params
		p.SelectedTerm = term
		d := e.Evaluate(tx, otd, p)
		cmp.Decisions = append(cmp.Decisions, d)
		if d.NetPosition > best {
			best = d.NetPosition
			cmp.BestTerm = term
		}
	}
	return otd, cmp
}

// Evaluate computes the decision for an already priced transaction.
func (e *Engine) Evaluate(tx domain.TransactionSnapshot, otd domain.OTDResult, params domain.DecisionParams) domain.DecisionResult {
	return Evaluate(tx, otd, e.pricer.Rates(), params)
}

// Evaluate is the pure form of Engine.Evaluate. When params.SelectedTerm is
// not set the snapshot's term is used.
func Evaluate(tx domain.TransactionSnapshot, otd domain.OTDResult, rates amortization.RateCard, params domain.DecisionParams) domain.DecisionResult {
	term := params.SelectedTerm
	if term <= 0 {
		term = tx.SelectedTerm
	}

	down := pricing.DownPayment(tx.DownPayment, otd.OutTheDoor)
	financed := math.Max(0, otd.OutTheDoor-down)
	cashInvested := math.Max(0, otd.OutTheDoor-down)
	// Trade equity above the deal comes back to the buyer.
	refund := math.Min(0, otd.OutTheDoor)

	apr := rates.APRFor(term, tx.CreditTier, tx.SpecialAPRs)
	loan := amortization.Summarize(financed, apr.RatePct, term)

	inv := Invest(cashInvested, params.InvestmentReturn, params.CapitalGainsTaxRate, term)
	maintenance := Maintenance(params.MaintenanceByYear, term)

	residualPct := ResidualPct(term, params.ResidualPct, params.ResidualByTerm)
	residual := tx.VehiclePrice * residualPct

	totalCashOut := down + loan.TotalPayments + maintenance + refund
	endingAssets := residual + inv.Net

	res := domain.DecisionResult{
		TermMonths:         term,
		APR:                apr,
		OutTheDoor:         otd.OutTheDoor,
		DownPayment:        down,
		AmountFinanced:     financed,
		MonthlyPayment:     loan.MonthlyPayment,
		TotalPayments:      loan.TotalPayments,
		TotalInterest:      loan.TotalInterest,
		CashInvested:       cashInvested,
		InvestmentValue:    inv.Value,
		InvestmentGain:     inv.Gain,
		InvestmentTax:      inv.Tax,
		NetInvestmentValue: inv.Net,
		InvestmentGainNet:  inv.GainNet,
		TotalMaintenance:   maintenance,
		ResidualPct:        residualPct,
		ResidualValue:      residual,
		TotalCashOut:       totalCashOut,
		EndingAssets:       endingAssets,
		NetPosition:        endingAssets - totalCashOut,
		Verdict:            domain.VerdictNone,
	}

	if cashInvested <= 0 || financed <= 0 {
		return res
	}
	res.FinancingAdvantage = inv.GainNet - loan.TotalInterest
	res.Verdict = VerdictFor(inv.GainNet, loan.TotalInterest)
	return res
}

// VerdictFor returns finance when the after-tax investment gain covers the
// loan interest, cash_down otherwise. Equality favors financing.
func VerdictFor(investmentGainNet, totalInterest float64) domain.Verdict {
	if investmentGainNet-totalInterest >= 0 {
		return domain.VerdictFinance
	}
	return domain.VerdictCashDown
}

package amortization

import (
	"math"

	"github.com/boddenberg/otd-engine/internal/domain"
)

// RateCard bundles the credit-tier table with catalog-wide promotional rates.
type RateCard struct {
	Tiers    domain.CreditTierTable
	Specials []domain.SpecialAPR
}

// APRFor resolves the APR for term. Per-transaction overrides are checked
// first, then the card's specials, then the tier table; an unknown tier falls
// back to the default tier. When nothing defines the term the rate is 0 with
// source "none".
func (c RateCard) APRFor(term int, tier string, overrides []domain.SpecialAPR) domain.APR {
	if apr, ok := specialFor(term, overrides); ok {
		return apr
	}
	if apr, ok := specialFor(term, c.Specials); ok {
		return apr
	}

	rates, ok := c.Tiers.Tiers[tier]
	if !ok {
		rates = c.Tiers.Tiers[c.Tiers.DefaultTier]
	}
	if r, ok := rates[term]; ok && validPct(r) {
		return domain.APR{RatePct: r, Source: domain.APRSourceTier}
	}
	return domain.APR{Source: domain.APRSourceNone}
}

// APRFor is the function form of RateCard.APRFor.
func APRFor(term int, tier string, tiers domain.CreditTierTable, overrides []domain.SpecialAPR) domain.APR {
	return RateCard{Tiers: tiers}.APRFor(term, tier, overrides)
}

// PaymentTable computes one row per term for the same principal.
func (c RateCard) PaymentTable(principal float64, terms []int, tier string, overrides []domain.SpecialAPR) []domain.TermPayment {
	rows := make([]domain.TermPayment, 0, len(terms))
	for _, term := range terms {
		apr := c.APRFor(term, tier, overrides)
		s := Summarize(principal, apr.RatePct, term)
		rows = append(rows, domain.TermPayment{
			TermMonths:     term,
			APRPct:         apr.RatePct,
			IsSpecial:      apr.IsSpecial,
			MonthlyPayment: s.MonthlyPayment,
			TotalPayments:  s.TotalPayments,
			TotalInterest:  s.TotalInterest,
		})
	}
	return rows
}

func specialFor(term int, specials []domain.SpecialAPR) (domain.APR, bool) {
	for _, s := range specials {
		if s.TermMonths == term && validPct(s.RatePct) {
			return domain.APR{RatePct: s.RatePct, IsSpecial: true, Source: domain.APRSourceSpecial}, true
		}
	}
	return domain.APR{}, false
}

func validPct(r float64) bool {
	return !math.IsNaN(r) && !math.IsInf(r, 0) && r >= 0 && r <= 100
}

// Package pricing derives the out-the-door price of a vehicle purchase from a
// transaction snapshot, a resolved tax rate and the dealership fee schedule.
package pricing

import (
	"math"

	"github.com/boddenberg/otd-engine/internal/amortization"
	"github.com/boddenberg/otd-engine/internal/domain"
)

// Price computes the OTD breakdown. It is a pure function: tx and fees are
// never modified and the payment table is left empty.
//
// Trade-in value reduces the taxable base dollar for dollar, floored at zero.
// Trade equity (value minus payoff) is subtracted from the total; negative
// equity therefore increases the OTD price.
func Price(tx domain.TransactionSnapshot, tax domain.TaxResult, fees []domain.Fee) domain.OTDResult {
	discounts := SumLineItems(tx.Discounts)
	sellingPrice := math.Max(0, tx.VehiclePrice-discounts)

	taxableAddons, nonTaxableAddons := SplitAddons(tx.Addons)
	vehicleSubtotal := sellingPrice + taxableAddons + nonTaxableAddons

	taxableFees, nonTaxableFees := SplitFees(fees, tax.County)

	taxableBeforeTrade := sellingPrice + taxableAddons + taxableFees
	taxableAmount := math.Max(0, taxableBeforeTrade-tx.TradeValue)
	salesTax := taxableAmount * tax.Rate

	tradeEquity := tx.TradeValue - tx.TradeOwed
	totalBeforeTrade := vehicleSubtotal + taxableFees + salesTax + nonTaxableFees
	outTheDoor := totalBeforeTrade - tradeEquity

	down := DownPayment(tx.DownPayment, outTheDoor)

	return domain.OTDResult{
		SellingPrice:       sellingPrice,
		DiscountTotal:      discounts,
		TaxableAddons:      taxableAddons,
		NonTaxableAddons:   nonTaxableAddons,
		VehicleSubtotal:    vehicleSubtotal,
		TaxableFees:        taxableFees,
		NonTaxableFees:     nonTaxableFees,
		TaxableBeforeTrade: taxableBeforeTrade,
		TaxableAmount:      taxableAmount,
		SalesTax:           salesTax,
		TotalBeforeTrade:   totalBeforeTrade,
		TradeEquity:        tradeEquity,
		OutTheDoor:         outTheDoor,
		DownPayment:        down,
		AmountFinanced:     math.Max(0, outTheDoor-down),
		Tax:                tax,
		Payments:           []domain.TermPayment{},
	}
}

// DownPayment caps the requested down payment at the OTD price and floors it at 0.
func DownPayment(requested, outTheDoor float64) float64 {
	return math.Max(0, math.Min(requested, outTheDoor))
}

// Engine binds the fee schedule, the offered terms and the rate card so a
// quote can be produced from a snapshot alone.
type Engine struct {
	fees  []domain.Fee
	terms []int
	rates amortization.RateCard
}

// NewEngine creates a pricing engine. The slices are copied.
func NewEngine(fees []domain.Fee, terms []int, rates amortization.RateCard) *Engine {
	return &Engine{
		fees:  append([]domain.Fee(nil), fees...),
		terms: append([]int(nil), terms...),
		rates: rates,
	}
}

// Terms returns the offered loan terms in months.
func (e *Engine) Terms() []int {
	return append([]int(nil), e.terms...)
}

// Rates returns the rate card used for payment tables.
func (e *Engine) Rates() amortization.RateCard {
	return e.rates
}

// Quote prices tx and fills the per-term payment table for the amount financed.
func (e *Engine) Quote(tx domain.TransactionSnapshot, tax domain.TaxResult) domain.OTDResult {
	otd := Price(tx, tax, e.fees)
	otd.Payments = e.rates.PaymentTable(otd.AmountFinanced, e.terms, tx.CreditTier, tx.SpecialAPRs)
	return otd
}

package domain

import "time"

// ============================================================
// Pricing output
// ============================================================

// TermPayment is one row of the per-term payment table.
type TermPayment struct {
	TermMonths     int     `json:"termMonths"`
	APRPct         float64 `json:"aprPct"`
	IsSpecial      bool    `json:"isSpecial"`
	MonthlyPayment float64 `json:"monthlyPayment"`
	TotalPayments  float64 `json:"totalPayments"`
	TotalInterest  float64 `json:"totalInterest"`
}

// OTDResult is the out-the-door breakdown for one transaction snapshot.
type OTDResult struct {
	SellingPrice       float64       `json:"sellingPrice"`
	DiscountTotal      float64       `json:"discountTotal"`
	TaxableAddons      float64       `json:"taxableAddons"`
	NonTaxableAddons   float64       `json:"nonTaxableAddons"`
	VehicleSubtotal    float64       `json:"vehicleSubtotal"`
	TaxableFees        float64       `json:"taxableFees"`
	NonTaxableFees     float64       `json:"nonTaxableFees"`
	TaxableBeforeTrade float64       `json:"taxableBeforeTrade"`
	TaxableAmount      float64       `json:"taxableAmount"`
	SalesTax           float64       `json:"salesTax"`
	TotalBeforeTrade   float64       `json:"totalBeforeTrade"`
	TradeEquity        float64       `json:"tradeEquity"`
	OutTheDoor         float64       `json:"outTheDoor"`
	DownPayment        float64       `json:"downPayment"`
	AmountFinanced     float64       `json:"amountFinanced"`
	Tax                TaxResult     `json:"tax"`
	Payments           []TermPayment `json:"payments"`
}

// Installment is one month of an amortization schedule.
type Installment struct {
	Month     int     `json:"month"`
	Payment   float64 `json:"payment"`
	Principal float64 `json:"principal"`
	Interest  float64 `json:"interest"`
	Balance   float64 `json:"balance"`
}

// LoanSummary is the result of a standalone payment calculation.
type LoanSummary struct {
	Principal      float64 `json:"principal"`
	RatePct        float64 `json:"ratePct"`
	TermMonths     int     `json:"termMonths"`
	MonthlyPayment float64 `json:"monthlyPayment"`
	TotalPayments  float64 `json:"totalPayments"`
	TotalInterest  float64 `json:"totalInterest"`
}

// ============================================================
// Decision
// ============================================================

// Verdict is the outcome of the finance-vs-cash-down comparison.
type Verdict string

const (
	VerdictFinance  Verdict = "finance"
	VerdictCashDown Verdict = "cash_down"
	// VerdictNone means there is no trade-off: nothing is financed or nothing is invested.
	VerdictNone     Verdict = "none"
)

// DecisionParams are the knobs of the down-payment simulator.
// ResidualPct overrides the residual-by-term table when set.
type DecisionParams struct {
	SelectedTerm        int             `json:"selectedTerm"`
	InvestmentReturn    float64         `json:"investmentReturn"`
	CapitalGainsTaxRate float64         `json:"capitalGainsTaxRate"`
	ResidualPct         *float64        `json:"residualPct,omitempty"`
	ResidualByTerm      map[int]float64 `json:"residualByTerm,omitempty"`
	MaintenanceByYear   []float64       `json:"maintenanceByYear"`
}

// DecisionDefaults are the catalog defaults for DecisionParams.
type DecisionDefaults struct {
	InvestmentReturn    float64         `json:"investmentReturn" yaml:"investmentReturn"`
	CapitalGainsTaxRate float64         `json:"capitalGainsTaxRate" yaml:"capitalGainsTaxRate"`
	ResidualByTerm      map[int]float64 `json:"residualByTerm" yaml:"residualByTerm"`
	MaintenanceByYear   []float64       `json:"maintenanceByYear" yaml:"maintenanceByYear"`
}

// DecisionResult is the financing analysis for one term.
type DecisionResult struct {
	TermMonths         int     `json:"termMonths"`
	APR                APR     `json:"apr"`
	OutTheDoor         float64 `json:"outTheDoor"`
	DownPayment        float64 `json:"downPayment"`
	AmountFinanced     float64 `json:"amountFinanced"`
	MonthlyPayment     float64 `json:"monthlyPayment"`
	TotalPayments      float64 `json:"totalPayments"`
	TotalInterest      float64 `json:"totalInterest"`
	CashInvested       float64 `json:"cashInvested"`
	InvestmentValue    float64 `json:"investmentValue"`
	InvestmentGain     float64 `json:"investmentGain"`
	InvestmentTax      float64 `json:"investmentTax"`
	NetInvestmentValue float64 `json:"netInvestmentValue"`
	InvestmentGainNet  float64 `json:"investmentGainNet"`
	TotalMaintenance   float64 `json:"totalMaintenance"`
	ResidualPct        float64 `json:"residualPct"`
	ResidualValue      float64 `json:"residualValue"`
	TotalCashOut       float64 `json:"totalCashOut"`
	EndingAssets       float64 `json:"endingAssets"`
	NetPosition        float64 `json:"netPosition"`
	FinancingAdvantage float64 `json:"financingAdvantage"`
	Verdict            Verdict `json:"verdict"`
}

// DecisionComparison holds one decision per term and the term with the best net position.
type DecisionComparison struct {
	Decisions []DecisionResult `json:"decisions"`
	BestTerm  int              `json:"bestTerm"`
}

// ============================================================
// API envelopes
// ============================================================

// Quote wraps an OTD result with an id and timestamp.
type Quote struct {
	QuoteID   string    `json:"quoteId"`
	CreatedAt time.Time `json:"createdAt"`
	OTD       OTDResult `json:"otd"`
}

// DecisionQuote wraps an OTD result together with its financing decision.
type DecisionQuote struct {
	QuoteID   string         `json:"quoteId"`
	CreatedAt time.Time      `json:"createdAt"`
	OTD       OTDResult      `json:"otd"`
	Decision  DecisionResult `json:"decision"`
}

// ComparisonQuote wraps an OTD result with decisions for every term.
type ComparisonQuote struct {
	QuoteID    string             `json:"quoteId"`
	CreatedAt  time.Time          `json:"createdAt"`
	OTD        OTDResult          `json:"otd"`
	Comparison DecisionComparison `json:"comparison"`
}

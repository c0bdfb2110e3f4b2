package domain

import "github.com/boddenberg/otd-engine/internal/money"

// ============================================================
// API requests
// ============================================================
// Money fields use money.Amount: numbers or strings such as "$25,000.50"
// are accepted and anything unparseable, negative or non-finite becomes 0.

// LineItemRequest is an ad-hoc add-on or discount not in the catalog.
type LineItemRequest struct {
	Name    string       `json:"name"`
	Amount  money.Amount `json:"amount"`
	Taxable bool         `json:"taxable"`
}

// SpecialAPRRequest is a per-transaction promotional rate.
type SpecialAPRRequest struct {
	TermMonths int          `json:"termMonths"`
	RatePct    money.Amount `json:"ratePct"`
}

// QuoteRequest is the body of POST /v1/quotes/otd.
type QuoteRequest struct {
	VehiclePrice    money.Amount        `json:"vehiclePrice"`
	ZIP             string              `json:"zip"`
	TradeValue      money.Amount        `json:"tradeValue"`
	TradeOwed       money.Amount        `json:"tradeOwed"`
	AddonIDs        []string            `json:"addonIds,omitempty"`
	DiscountIDs     []string            `json:"discountIds,omitempty"`
	CustomAddons    []LineItemRequest   `json:"customAddons,omitempty"`
	CustomDiscounts []LineItemRequest   `json:"customDiscounts,omitempty"`
	CreditTier      string              `json:"creditTier"`
	DownPayment     money.Amount        `json:"downPayment"`
	SelectedTerm    int                 `json:"selectedTerm,omitempty"`
	SpecialAPRs     []SpecialAPRRequest `json:"specialAprs,omitempty"`
}

// DecisionRequest is the body of POST /v1/quotes/decision and
// /v1/quotes/decision/compare. Unset parameters take the catalog defaults.
// Rates are decimals (0.07 for 7%).
type DecisionRequest struct {
	QuoteRequest

	InvestmentReturn    *money.Amount  `json:"investmentReturn,omitempty"`
	CapitalGainsTaxRate *money.Amount  `json:"capitalGainsTaxRate,omitempty"`
	ResidualPct         *money.Amount  `json:"residualPct,omitempty"`
	MaintenanceByYear   []money.Amount `json:"maintenanceByYear,omitempty"`
	// Terms restricts the comparison; empty compares every catalog term.
	Terms []int `json:"terms,omitempty"`
}

// LoanRequest holds the query parameters of the standalone loan endpoints.
type LoanRequest struct {
	Principal  float64
	RatePct    float64
	TermMonths int
}

// Package domain defines the core entities of the OTD pricing engine.
// These models are independent of transport and storage and represent the
// canonical data structures shared by the engines, services and handlers.
package domain

// ============================================================
// Tax
// ============================================================

// MatchTier names the resolution strategy that produced a TaxResult.
type MatchTier string

const (
	MatchChicago MatchTier = "chicago"
	MatchZIP     MatchTier = "zip"
	MatchPrefix  MatchTier = "prefix"
	MatchDefault MatchTier = "default"
)

// TaxResult is the resolved sales-tax rate for one ZIP code.
// Rate is a decimal in [0,1]. County is empty when no county matched.
type TaxResult struct {
	ZIP        string    `json:"zip"`
	Rate       float64   `json:"rate"`
	Location   string    `json:"location"`
	County     string    `json:"county,omitempty"`
	IsEstimate bool      `json:"isEstimate"`
	Match      MatchTier `json:"match"`
}

// ============================================================
// Line items & fees
// ============================================================

// Fee is a fixed dealership fee. When County is set, the fee only applies
// to transactions whose resolved county matches it.
type Fee struct {
	ID      string  `json:"id" yaml:"id"`
	Name    string  `json:"name" yaml:"name"`
	Amount  float64 `json:"amount" yaml:"amount"`
	Taxable bool    `json:"taxable" yaml:"taxable"`
	County  string  `json:"county,omitempty" yaml:"county,omitempty"`
}

// LineItem is an optional add-on or discount. Taxable is ignored for discounts.
type LineItem struct {
	ID      string  `json:"id" yaml:"id"`
	Name    string  `json:"name" yaml:"name"`
	Amount  float64 `json:"amount" yaml:"amount"`
	Taxable bool    `json:"taxable" yaml:"taxable"`
}

// ============================================================
// Rates
// ============================================================

// CreditTierTable maps a credit tier to its APR (percent) per loan term in months.
type CreditTierTable struct {
	DefaultTier string                     `json:"defaultTier" yaml:"defaultTier"`
	Tiers       map[string]map[int]float64 `json:"tiers" yaml:"tiers"`
}

// SpecialAPR is a promotional rate for one term; it overrides the tier table.
type SpecialAPR struct {
	TermMonths int     `json:"termMonths" yaml:"termMonths"`
	RatePct    float64 `json:"ratePct" yaml:"ratePct"`
}

// APRSource tells where a resolved APR came from.
type APRSource string

const (
	APRSourceSpecial APRSource = "special"
	APRSourceTier    APRSource = "tier"
	APRSourceNone    APRSource = "none"
)

// APR is the annual percentage rate applied to one term.
type APR struct {
	RatePct   float64   `json:"ratePct"`
	IsSpecial bool      `json:"isSpecial"`
	Source    APRSource `json:"source"`
}

// ============================================================
// Transaction snapshot
// ============================================================

// TransactionSnapshot is the full input of one calculation. All amounts are
// already normalized to finite values >= 0.
type TransactionSnapshot struct {
	VehiclePrice float64      `json:"vehiclePrice"`
	ZIP          string       `json:"zip"`
	TradeValue   float64      `json:"tradeValue"`
	TradeOwed    float64      `json:"tradeOwed"`
	Addons       []LineItem   `json:"addons"`
	Discounts    []LineItem   `json:"discounts"`
	CreditTier   string       `json:"creditTier"`
	DownPayment  float64      `json:"downPayment"`
	SelectedTerm int          `json:"selectedTerm"`
	SpecialAPRs  []SpecialAPR `json:"specialAprs,omitempty"`
}

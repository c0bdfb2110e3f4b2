// Package catalog loads the dealership configuration: fees, add-on and
// discount catalogs, credit-tier APR tables, offered terms and the defaults
// of the down-payment simulator.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/boddenberg/otd-engine/internal/amortization"
	"github.com/boddenberg/otd-engine/internal/domain"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Catalog is the full dealership configuration.
type Catalog struct {
	Fees        []domain.Fee            `json:"fees" yaml:"fees"`
	Addons      []domain.LineItem       `json:"addons" yaml:"addons"`
	Discounts   []domain.LineItem       `json:"discounts" yaml:"discounts"`
	CreditTiers domain.CreditTierTable  `json:"creditTiers" yaml:"creditTiers"`
	Terms       []int                   `json:"terms" yaml:"terms"`
	SpecialAPRs []domain.SpecialAPR     `json:"specialAprs" yaml:"specialAprs"`
	Decision    domain.DecisionDefaults `json:"decision" yaml:"decision"`
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultYAML)
}

// Load reads the catalog at path; an empty path selects the embedded default.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a YAML catalog. Line items without an id get a
// generated one.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	for i := range c.Fees {
		if strings.TrimSpace(c.Fees[i].ID) == "" {
			c.Fees[i].ID = uuid.NewString()
		}
		c.Fees[i].County = strings.ToUpper(strings.TrimSpace(c.Fees[i].County))
	}
	assignIDs(c.Addons)
	assignIDs(c.Discounts)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func assignIDs(items []domain.LineItem) {
	for i := range items {
		if strings.TrimSpace(items[i].ID) == "" {
			items[i].ID = uuid.NewString()
		}
	}
}

// Validate reports every configuration problem as a joined set of
// *domain.ErrValidation.
func (c *Catalog) Validate() error {
	var errs []error
	fail := func(field, format string, args ...any) {
		errs = append(errs, &domain.ErrValidation{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	seen := make(map[string]bool)
	for i, f := range c.Fees {
		if !validAmount(f.Amount) {
			fail(fmt.Sprintf("fees[%d].amount", i), "must be a finite amount >= 0")
		}
		if seen[f.ID] {
			fail(fmt.Sprintf("fees[%d].id", i), "duplicate id %q", f.ID)
		}
		seen[f.ID] = true
	}
	checkItems := func(name string, items []domain.LineItem) {
		ids := make(map[string]bool)
		for i, it := range items {
			if !validAmount(it.Amount) {
				fail(fmt.Sprintf("%s[%d].amount", name, i), "must be a finite amount >= 0")
			}
			if ids[it.ID] {
				fail(fmt.Sprintf("%s[%d].id", name, i), "duplicate id %q", it.ID)
			}
			ids[it.ID] = true
		}
	}
	checkItems("addons", c.Addons)
	checkItems("discounts", c.Discounts)

	if len(c.Terms) == 0 {
		fail("terms", "at least one term is required")
	}
	terms := make(map[int]bool)
	for i, t := range c.Terms {
		if t <= 0 || t > amortization.MaxTermMonths {
			fail(fmt.Sprintf("terms[%d]", i), "must be between 1 and %d months", amortization.MaxTermMonths)
		}
		if terms[t] {
			fail(fmt.Sprintf("terms[%d]", i), "duplicate term %d", t)
		}
		terms[t] = true
	}

	if len(c.CreditTiers.Tiers) == 0 {
		fail("creditTiers.tiers", "at least one tier is required")
	}
	if _, ok := c.CreditTiers.Tiers[c.CreditTiers.DefaultTier]; !ok {
		fail("creditTiers.defaultTier", "unknown tier %q", c.CreditTiers.DefaultTier)
	}
	for name, rates := range c.CreditTiers.Tiers {
		for _, t := range c.Terms {
			r, ok := rates[t]
			if !ok {
				fail("creditTiers.tiers."+name, "no rate for term %d", t)
				continue
			}
			if !validPct(r) {
				fail(fmt.Sprintf("creditTiers.tiers.%s.%d", name, t), "rate must be between 0 and 100")
			}
		}
	}

	specials := make(map[int]bool)
	for i, s := range c.SpecialAPRs {
		if specials[s.TermMonths] {
			fail(fmt.Sprintf("specialAprs[%d]", i), "duplicate special for term %d", s.TermMonths)
		}
		specials[s.TermMonths] = true
		if !validPct(s.RatePct) {
			fail(fmt.Sprintf("specialAprs[%d].ratePct", i), "rate must be between 0 and 100")
		}
	}

	d := c.Decision
	if math.IsNaN(d.InvestmentReturn) || math.IsInf(d.InvestmentReturn, 0) || d.InvestmentReturn <= -1 {
		fail("decision.investmentReturn", "must be a finite rate above -1")
	}
	if !validUnit(d.CapitalGainsTaxRate) {
		fail("decision.capitalGainsTaxRate", "must be between 0 and 1")
	}
	for t, pct := range d.ResidualByTerm {
		if !validUnit(pct) {
			fail(fmt.Sprintf("decision.residualByTerm.%d", t), "must be between 0 and 1")
		}
	}
	if len(d.MaintenanceByYear) == 0 {
		fail("decision.maintenanceByYear", "at least one year is required")
	}
	for i, m := range d.MaintenanceByYear {
		if !validAmount(m) {
			fail(fmt.Sprintf("decision.maintenanceByYear[%d]", i), "must be a finite amount >= 0")
		}
	}

	return errors.Join(errs...)
}

// RateCard returns the APR tables as an amortization rate card.
func (c *Catalog) RateCard() amortization.RateCard {
	return amortization.RateCard{Tiers: c.CreditTiers, Specials: c.SpecialAPRs}
}

// Addon looks up an add-on by id.
func (c *Catalog) Addon(id string) (domain.LineItem, bool) {
	return findItem(c.Addons, id)
}

// Discount looks up a discount by id.
func (c *Catalog) Discount(id string) (domain.LineItem, bool) {
	return findItem(c.Discounts, id)
}

// HasTerm reports whether term is one of the offered terms.
func (c *Catalog) HasTerm(term int) bool {
	for _, t := range c.Terms {
		if t == term {
			return true
		}
	}
	return false
}

func findItem(items []domain.LineItem, id string) (domain.LineItem, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return domain.LineItem{}, false
}

func validAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func validPct(v float64) bool {
	return validAmount(v) && v <= 100
}

func validUnit(v float64) bool {
	return validAmount(v) && v <= 1
}

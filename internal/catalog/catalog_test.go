package catalog_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/boddenberg/otd-engine/internal/catalog"
	"github.com/boddenberg/otd-engine/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)

	assert.Equal(t, []int{36, 48, 60, 72, 84}, c.Terms)
	assert.Equal(t, "good", c.CreditTiers.DefaultTier)
	assert.Len(t, c.CreditTiers.Tiers, 4)
	assert.Equal(t, 0.07, c.Decision.InvestmentReturn)
	assert.Equal(t, 0.15, c.Decision.CapitalGainsTaxRate)
	assert.Len(t, c.Decision.MaintenanceByYear, 7)
	assert.Equal(t, 0.43, c.Decision.ResidualByTerm[60])

	var cook *domain.Fee
	for i := range c.Fees {
		if c.Fees[i].County != "" {
			cook = &c.Fees[i]
		}
	}
	require.NotNil(t, cook)
	assert.Equal(t, "COOK", cook.County)

	tint, ok := c.Addon("window-tint")
	require.True(t, ok)
	assert.True(t, tint.Taxable)

	_, ok = c.Discount("does-not-exist")
	assert.False(t, ok)

	card := c.RateCard()
	apr := card.APRFor(36, "excellent", nil)
	assert.True(t, apr.IsSpecial)
	assert.Equal(t, 1.9, apr.RatePct)
	assert.Equal(t, 6.99, card.APRFor(60, "good", nil).RatePct)

	assert.True(t, c.HasTerm(72))
	assert.False(t, c.HasTerm(66))
}

func TestParse_GeneratesMissingIDs(t *testing.T) {
	doc := `
fees:
  - name: Doc
    amount: 100
    taxable: true
    county: cook
addons:
  - name: Mats
    amount: 50
creditTiers:
  defaultTier: a
  tiers:
    a: {12: 3.5}
terms: [12]
decision:
  investmentReturn: 0.05
  capitalGainsTaxRate: 0.2
  maintenanceByYear: [100]
`
	c, err := catalog.Parse([]byte(doc))
	require.NoError(t, err)
	assert.NotEmpty(t, c.Fees[0].ID)
	assert.NotEmpty(t, c.Addons[0].ID)
	assert.Equal(t, "COOK", c.Fees[0].County)
}

func TestParse_ReportsEveryProblem(t *testing.T) {
	doc := `
fees:
  - {id: doc, amount: -5}
  - {id: doc, amount: 10}
creditTiers:
  defaultTier: missing
  tiers:
    a: {36: 150}
terms: [36, 60, 0]
specialAprs:
  - {termMonths: 36, ratePct: 0}
  - {termMonths: 36, ratePct: 1}
decision:
  capitalGainsTaxRate: 2
`
	_, err := catalog.Parse([]byte(doc))
	require.Error(t, err)

	var verr *domain.ErrValidation
	require.True(t, errors.As(err, &verr))

	msg := err.Error()
	for _, field := range []string{
		"fees[0].amount",
		"fees[1].id",
		"terms[2]",
		"creditTiers.defaultTier",
		"creditTiers.tiers.a.36",
		"specialAprs[1]",
		"decision.capitalGainsTaxRate",
		"decision.maintenanceByYear",
	} {
		assert.Contains(t, msg, field)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := catalog.Parse([]byte("fees: [unclosed"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	t.Run("empty path uses default", func(t *testing.T) {
		c, err := catalog.Load("")
		require.NoError(t, err)
		assert.NotEmpty(t, c.Fees)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "catalog.yaml")
		doc := "creditTiers: {defaultTier: a, tiers: {a: {24: 2}}}\nterms: [24]\ndecision: {maintenanceByYear: [0]}\n"
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

		c, err := catalog.Load(path)
		require.NoError(t, err)
		assert.Equal(t, []int{24}, c.Terms)
		assert.Empty(t, c.Fees)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := catalog.Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

package taxrate

import "github.com/boddenberg/otd-engine/internal/domain"

// Strategy is one step of the resolution chain. It receives a normalized
// five-digit ZIP and reports whether it produced a result.
type Strategy func(zip string) (domain.TaxResult, bool)

// Resolver applies its strategies in order; the first match wins and the
// statewide default catches everything else.
type Resolver struct {
	index      *Index
	strategies []Strategy
}

// NewResolver builds the standard chain: Chicago list, ZIP map, prefix table.
// A nil index behaves like EmptyIndex.
func NewResolver(idx *Index) *Resolver {
	if idx == nil {
		idx = EmptyIndex()
	}
	return &Resolver{
		index:      idx,
		strategies: []Strategy{idx.MatchChicago, idx.MatchZIP, idx.MatchPrefix},
	}
}

// Index returns the index the resolver reads from.
func (r *Resolver) Index() *Index {
	return r.index
}

// Resolve never fails and never returns a rate outside [0,1].
func (r *Resolver) Resolve(zip string) domain.TaxResult {
	normalized, ok := NormalizeZIP(zip)
	if ok {
		for _, s := range r.strategies {
			if res, ok := s(normalized); ok {
				return res
			}
		}
	}
	return r.index.Statewide(normalized)
}

// MatchChicago matches the explicit Chicago city list.
func (idx *Index) MatchChicago(zip string) (domain.TaxResult, bool) {
	if _, ok := idx.chicago[zip]; !ok {
		return domain.TaxResult{}, false
	}
	return domain.TaxResult{
		ZIP:      zip,
		Rate:     idx.chicagoRate,
		Location: chicagoLabel,
		County:   "COOK",
		Match:    domain.MatchChicago,
	}, true
}

// MatchZIP matches the explicit ZIP-to-county map.
func (idx *Index) MatchZIP(zip string) (domain.TaxResult, bool) {
	county, ok := idx.zipCounty[zip]
	if !ok {
		return domain.TaxResult{}, false
	}
	return idx.countyResult(zip, county, domain.MatchZIP)
}

// MatchPrefix matches the three-digit prefix table.
func (idx *Index) MatchPrefix(zip string) (domain.TaxResult, bool) {
	if len(zip) < 3 {
		return domain.TaxResult{}, false
	}
	county, ok := idx.prefixCounty[zip[:3]]
	if !ok {
		return domain.TaxResult{}, false
	}
	return idx.countyResult(zip, county, domain.MatchPrefix)
}

// Statewide is the terminal fallback.
func (idx *Index) Statewide(zip string) domain.TaxResult {
	return domain.TaxResult{
		ZIP:        zip,
		Rate:       idx.defaultRate,
		Location:   statewideLabel,
		IsEstimate: true,
		Match:      domain.MatchDefault,
	}
}

func (idx *Index) countyResult(zip, county string, match domain.MatchTier) (domain.TaxResult, bool) {
	rate, ok := idx.countyRates[county]
	if !ok {
		return domain.TaxResult{}, false
	}
	return domain.TaxResult{
		ZIP:      zip,
		Rate:     rate,
		Location: CountyLabel(county),
		County:   county,
		Match:    match,
	}, true
}

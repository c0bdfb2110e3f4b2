// Package taxrate resolves a ZIP code to a sales-tax rate through an ordered
// chain of lookups over an immutable index: the explicit Chicago list, the
// ZIP-to-county map, the three-digit prefix table, and finally the statewide
// default. Resolution always succeeds.
package taxrate

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Index is an immutable, validated view of a tax Document plus a prefix table.
// Every county referenced by the ZIP and prefix maps exists in the rate map.
type Index struct {
	chicago      map[string]struct{}
	zipCounty    map[string]string
	prefixCounty map[string]string
	countyRates  map[string]float64
	defaultRate  float64
	chicagoRate  float64
}

// EmptyIndex resolves every ZIP to the statewide default.
func EmptyIndex() *Index {
	idx, _ := NewIndex(Document{}, nil)
	return idx
}

// NewIndex validates doc and builds an index. Entries that would break an
// index invariant are dropped and described in the returned problems.
func NewIndex(doc Document, prefixes map[string]string) (*Index, []string) {
	var problems []string

	idx := &Index{
		chicago:      make(map[string]struct{}, len(doc.ChicagoZIPs)),
		zipCounty:    make(map[string]string, len(doc.ZIPToCounty)),
		prefixCounty: make(map[string]string, len(prefixes)),
		countyRates:  make(map[string]float64, len(doc.CountyRates)),
		defaultRate:  DefaultStatewideRate,
		chicagoRate:  DefaultChicagoRate,
	}

	if doc.DefaultRate != 0 {
		if validRate(doc.DefaultRate) {
			idx.defaultRate = doc.DefaultRate
		} else {
			problems = append(problems, fmt.Sprintf("defaultRate %v out of range", doc.DefaultRate))
		}
	}
	if doc.ChicagoRate != 0 {
		if validRate(doc.ChicagoRate) {
			idx.chicagoRate = doc.ChicagoRate
		} else {
			problems = append(problems, fmt.Sprintf("chicagoRate %v out of range", doc.ChicagoRate))
		}
	}

	for county, rate := range doc.CountyRates {
		code := normalizeCounty(county)
		if code == "" || !validRate(rate) {
			problems = append(problems, fmt.Sprintf("county %q: rate %v dropped", county, rate))
			continue
		}
		idx.countyRates[code] = rate
	}

	for _, z := range doc.ChicagoZIPs {
		zip, ok := NormalizeZIP(z)
		if !ok {
			problems = append(problems, fmt.Sprintf("chicago zip %q is not a 5-digit zip", z))
			continue
		}
		idx.chicago[zip] = struct{}{}
	}

	for z, county := range doc.ZIPToCounty {
		zip, ok := NormalizeZIP(z)
		if !ok {
			problems = append(problems, fmt.Sprintf("zip %q is not a 5-digit zip", z))
			continue
		}
		code := normalizeCounty(county)
		if _, ok := idx.countyRates[code]; !ok {
			problems = append(problems, fmt.Sprintf("zip %s references unknown county %q", zip, county))
			continue
		}
		idx.zipCounty[zip] = code
	}

	for prefix, county := range prefixes {
		code := normalizeCounty(county)
		if _, ok := idx.countyRates[code]; !ok {
			// Expected for partial documents; the prefix simply never matches.
			continue
		}
		idx.prefixCounty[prefix] = code
	}

	sort.Strings(problems)
	return idx, problems
}

// ChicagoZIPs is the number of ZIPs in the explicit Chicago list.
func (idx *Index) ChicagoZIPs() int { return len(idx.chicago) }

// MappedZIPs is the number of ZIPs with an explicit county.
func (idx *Index) MappedZIPs() int { return len(idx.zipCounty) }

// Counties is the number of counties with a rate.
func (idx *Index) Counties() int { return len(idx.countyRates) }

// DefaultRate is the statewide fallback rate.
func (idx *Index) DefaultRate() float64 { return idx.defaultRate }

// CountyRate returns the configured rate for a county code.
func (idx *Index) CountyRate(county string) (float64, bool) {
	r, ok := idx.countyRates[normalizeCounty(county)]
	return r, ok
}

// NormalizeZIP trims input and strips a ZIP+4 suffix. It reports false when
// what remains is not exactly five digits.
func NormalizeZIP(zip string) (string, bool) {
	z := strings.TrimSpace(zip)
	if len(z) == 10 && (z[5] == '-' || z[5] == ' ') {
		z = z[:5]
	} else if len(z) == 9 && allDigits(z) {
		z = z[:5]
	}
	if len(z) != 5 || !allDigits(z) {
		return z, false
	}
	return z, true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

func normalizeCounty(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func validRate(r float64) bool {
	return !math.IsNaN(r) && !math.IsInf(r, 0) && r >= 0 && r <= 1
}

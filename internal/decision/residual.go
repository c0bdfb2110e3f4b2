package decision

// ResidualPct returns the expected resale value of the vehicle after
// termMonths as a fraction of its price. A non-nil override wins. Otherwise
// the table is consulted; a term missing from it uses the nearest defined
// term, preferring the longer one on a tie.
func ResidualPct(termMonths int, override *float64, table map[int]float64) float64 {
	if override != nil {
		return clampUnit(*override)
	}
	if pct, ok := table[termMonths]; ok {
		return clampUnit(pct)
	}

	nearest, bestDist, found := 0, 0, false
	for term := range table {
		d := term - termMonths
		if d < 0 {
			d = -d
		}
		if !found || d < bestDist || (d == bestDist && term > nearest) {
			nearest, bestDist, found = term, d, true
		}
	}
	if !found {
		return 0
	}
	return clampUnit(table[nearest])
}

package taxrate

// illinoisPrefixes maps the first three ZIP digits to the county that covers
// most of that sectional center. ZIPs that straddle county lines are listed
// explicitly in the document's zipToCounty map, which is consulted first.
//
// 606, 607 and 608 resolve to suburban Cook: only the explicit Chicago list
// gets the city rate.
var illinoisPrefixes = map[string]string{
	"600": "COOK",
	"601": "DUPAGE",
	"602": "COOK",
	"603": "COOK",
	"604": "COOK",
	"605": "DUPAGE",
	"606": "COOK",
	"607": "COOK",
	"608": "COOK",
	"609": "KANKAKEE",
	"610": "WINNEBAGO",
	"611": "WINNEBAGO",
	"612": "ROCK_ISLAND",
	"613": "LASALLE",
	"614": "KNOX",
	"615": "PEORIA",
	"616": "PEORIA",
	"617": "MCLEAN",
	"618": "CHAMPAIGN",
	"619": "COLES",
	"620": "MADISON",
	"622": "ST_CLAIR",
	"623": "ADAMS",
	"624": "EFFINGHAM",
	"625": "SANGAMON",
	"626": "SANGAMON",
	"627": "SANGAMON",
	"628": "JEFFERSON",
	"629": "JACKSON",
}

// IllinoisPrefixes returns a copy of the built-in prefix table.
func IllinoisPrefixes() map[string]string {
	out := make(map[string]string, len(illinoisPrefixes))
	for k, v := range illinoisPrefixes {
		out[k] = v
	}
	return out
}

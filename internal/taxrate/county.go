package taxrate

import "strings"

// County names whose capitalization cannot be derived word by word.
var specialCountyNames = map[string]string{
	"STCLAIR": "St. Clair",
	"DUPAGE":  "DuPage",
	"DEKALB":  "DeKalb",
	"LASALLE": "LaSalle",
	"DEWITT":  "DeWitt",
}

// FormatCounty turns a county code such as "ROCK_ISLAND" or "MCLEAN" into its
// display name ("Rock Island", "McLean"). It never affects rates.
func FormatCounty(code string) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	if c == "" {
		return ""
	}

	key := strings.NewReplacer("_", "", " ", "", ".", "", "-", "").Replace(c)
	if name, ok := specialCountyNames[key]; ok {
		return name
	}

	words := strings.FieldsFunc(c, func(r rune) bool {
		return r == '_' || r == ' ' || r == '-'
	})
	for i, w := range words {
		words[i] = formatWord(w)
	}
	return strings.Join(words, " ")
}

func formatWord(w string) string {
	lower := strings.ToLower(w)
	if strings.HasPrefix(lower, "mc") && len(lower) > 2 {
		return "Mc" + strings.ToUpper(lower[2:3]) + lower[3:]
	}
	return strings.ToUpper(lower[:1]) + lower[1:]
}

// CountyLabel is the location label shown for a county match.
func CountyLabel(code string) string {
	return FormatCounty(code) + " County, IL"
}

const (
	chicagoLabel   = "Chicago, IL"
	statewideLabel = "Illinois (statewide estimate)"
)

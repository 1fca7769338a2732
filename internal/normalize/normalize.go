// Package normalize maps colloquial, misspelled, or Hindi/Hinglish commodity
// and place names onto the canonical forms the price provider understands.
// Lookup order is always exact dictionary match first, then fuzzy matching
// against the known vocabulary with a similarity cutoff.
package normalize

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/KisanLab/MandiSaathi/internal/models"
)

// Similarity cutoffs, tuned to match the tolerance of the upstream vocabulary.
const (
	commodityCutoff = 0.7
	locationCutoff  = 0.6
)

// commodityNames maps colloquial and Hindi/Hinglish commodity names to the
// canonical English names used by the price data source.
var commodityNames = map[string]string{
	"tamatar":     "Tomato",
	"tomato":      "Tomato",
	"aalu":        "Potato",
	"alu":         "Potato",
	"potato":      "Potato",
	"pyaz":        "Onion",
	"onion":       "Onion",
	"gobi":        "Cauliflower",
	"cauliflower": "Cauliflower",
	"bhindi":      "Lady Finger",
	"ladyfinger":  "Lady Finger",
	"palak":       "Spinach",
	"spinach":     "Spinach",
	"dhaniya":     "Coriander",
	"coriander":   "Coriander",
	"mirch":       "Chilli",
	"chilli":      "Chilli",
	"chili":       "Chilli",
	"baigan":      "Brinjal",
	"brinjal":     "Brinjal",
	"eggplant":    "Brinjal",
	"gajar":       "Carrot",
	"carrot":      "Carrot",
	"matar":       "Peas",
	"peas":        "Peas",
	"sarson":      "Mustard",
	"mustard":     "Mustard",
	"gehun":       "Wheat",
	"wheat":       "Wheat",
	"chawal":      "Rice",
	"rice":        "Rice",
	"dhan":        "Paddy",
	"paddy":       "Paddy",
}

// stateDistricts lists known districts per state, keyed by lowercase state name.
var stateDistricts = map[string][]string{
	"uttar pradesh":  {"Ballia", "Varanasi", "Lucknow", "Kanpur", "Agra", "Meerut", "Allahabad"},
	"maharashtra":    {"Mumbai", "Pune", "Nagpur", "Nashik", "Aurangabad", "Solapur"},
	"punjab":         {"Ludhiana", "Amritsar", "Jalandhar", "Patiala", "Bathinda"},
	"haryana":        {"Faridabad", "Gurgaon", "Rohtak", "Panipat", "Karnal"},
	"madhya pradesh": {"Indore", "Bhopal", "Jabalpur", "Gwalior", "Ujjain"},
	"rajasthan":      {"Jaipur", "Jodhpur", "Kota", "Bikaner", "Udaipur"},
	"gujarat":        {"Ahmedabad", "Surat", "Vadodara", "Rajkot", "Bhavnagar"},
	"west bengal":    {"Kolkata", "Howrah", "Durgapur", "Asansol", "Siliguri"},
	"karnataka":      {"Bangalore", "Mysore", "Hubli", "Mangalore", "Belgaum"},
	"tamil nadu":     {"Chennai", "Coimbatore", "Madurai", "Tiruchirappalli", "Salem"},
}

// stateAliases resolves common state abbreviations.
var stateAliases = map[string]string{
	"up": "uttar pradesh",
	"mp": "madhya pradesh",
	"wb": "west bengal",
	"tn": "tamil nadu",
	"mh": "maharashtra",
}

// Commodity normalizes a commodity name to its canonical English form.
// Unrecognized input below the fuzzy cutoff falls back to a title-cased echo
// of the input; this function never fails.
func Commodity(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return ""
	}
	if canonical, ok := commodityNames[key]; ok {
		return canonical
	}
	if match, score := closestMatch(key, commodityKeys()); score >= commodityCutoff {
		slog.Debug("normalize.Commodity: fuzzy matched", "input", name, "match", match, "score", score)
		return commodityNames[match]
	}
	return titleCase(key)
}

// Location validates and corrects a (state, district) pair. The state must
// resolve first; an unresolved state short-circuits with ErrUnknownState. An
// unresolved district returns ErrUnknownDistrict wrapped with the valid
// options for that state.
func Location(state, district string) (string, string, error) {
	stateKey, ok := resolveState(state)
	if !ok {
		return "", "", fmt.Errorf("%w: %s", models.ErrUnknownState, state)
	}

	districts := stateDistricts[stateKey]
	districtKey := strings.ToLower(strings.TrimSpace(district))
	for _, d := range districts {
		if strings.ToLower(d) == districtKey {
			return titleCase(stateKey), d, nil
		}
	}

	lower := make([]string, len(districts))
	for i, d := range districts {
		lower[i] = strings.ToLower(d)
	}
	if match, score := closestMatch(districtKey, lower); score >= locationCutoff {
		for _, d := range districts {
			if strings.ToLower(d) == match {
				slog.Debug("normalize.Location: fuzzy corrected district", "input", district, "match", d, "score", score)
				return titleCase(stateKey), d, nil
			}
		}
	}

	return "", "", fmt.Errorf("%w: %q not found in %s. Available: %s",
		models.ErrUnknownDistrict, district, titleCase(stateKey), strings.Join(districts, ", "))
}

// DistrictsForState returns the known district list for a state, resolving
// aliases and spelling variations. The boolean is false when the state itself
// cannot be resolved.
func DistrictsForState(state string) ([]string, bool) {
	stateKey, ok := resolveState(state)
	if !ok {
		return nil, false
	}
	districts := append([]string(nil), stateDistricts[stateKey]...)
	sort.Strings(districts)
	return districts, true
}

// CanonicalState resolves a state name or alias to its canonical form.
func CanonicalState(state string) (string, bool) {
	stateKey, ok := resolveState(state)
	if !ok {
		return "", false
	}
	return titleCase(stateKey), true
}

func resolveState(state string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(state))
	if key == "" {
		return "", false
	}
	if full, ok := stateAliases[key]; ok {
		key = full
	}
	if _, ok := stateDistricts[key]; ok {
		return key, true
	}
	names := make([]string, 0, len(stateDistricts))
	for name := range stateDistricts {
		names = append(names, name)
	}
	if match, score := closestMatch(key, names); score >= locationCutoff {
		return match, true
	}
	return "", false
}

func commodityKeys() []string {
	keys := make([]string, 0, len(commodityNames))
	for k := range commodityNames {
		keys = append(keys, k)
	}
	return keys
}

// closestMatch returns the candidate with the highest similarity to the input
// along with its score. Ties break toward the lexicographically smaller
// candidate so results are deterministic.
func closestMatch(input string, candidates []string) (string, float64) {
	sort.Strings(candidates)
	best := ""
	bestScore := 0.0
	for _, c := range candidates {
		if s := similarity(input, c); s > bestScore {
			best, bestScore = c, s
		}
	}
	return best, bestScore
}

// similarity computes the Ratcliff/Obershelp ratio: twice the number of
// matching characters over the total length, with matches found by recursive
// longest-common-substring decomposition.
func similarity(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	m := matchingChars(a, b)
	return 2 * float64(m) / float64(len(a)+len(b))
}

func matchingChars(a, b string) int {
	aStart, bStart, size := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingChars(a[:aStart], b[:bStart])
	total += matchingChars(a[aStart+size:], b[bStart+size:])
	return total
}

func longestCommonSubstring(a, b string) (int, int, int) {
	bestA, bestB, bestLen := 0, 0, 0
	// prev[j] holds the match length ending at a[i-1], b[j-1].
	prev := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		cur := make([]int, len(b)+1)
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > bestLen {
					bestLen = cur[j]
					bestA = i - cur[j]
					bestB = j - cur[j]
				}
			}
		}
		prev = cur
	}
	return bestA, bestB, bestLen
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

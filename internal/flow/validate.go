package flow

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sahilm/fuzzy"

	"github.com/BTreeMap/DealerPipe/internal/models"
)

// Labels for the "no constraint" choice at the type and brand steps.
const (
	AllTypeOption  = "all Type"
	AllBrandOption = "all Brand"
)

var (
	nameRe    = regexp.MustCompile(`^[a-zA-Z\s]{2,50}$`)
	phoneRe   = regexp.MustCompile(`^[6-9]\d{9}$`)
	addressRe = regexp.MustCompile(`^.{10,200}$`)

	budgetUnderRe = regexp.MustCompile(`(?i)under\s*(\d+(?:\.\d+)?)\s*lakh`)
	budgetRangeRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:-|to)\s*(\d+(?:\.\d+)?)\s*lakh`)
	budgetAboveRe = regexp.MustCompile(`(?i)above\s*(\d+(?:\.\d+)?)\s*lakh`)
	budgetPlainRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*lakh`)

	phoneStrip = strings.NewReplacer(" ", "", "-", "")
)

var typeKeywords = []struct{ keyword, name string }{
	{"suv", "SUV"},
	{"sedan", "Sedan"},
	{"hatchback", "Hatchback"},
	{"coupe", "Coupe"},
	{"convertible", "Convertible"},
	{"wagon", "Wagon"},
	{"pickup", "Pickup"},
	{"muv", "MUV"},
}

// DefaultBrands is used for brand matching when the inventory lists none.
var DefaultBrands = []string{"Maruti", "Hyundai", "Honda", "Toyota", "Tata", "Kia", "Mahindra", "Skoda", "Renault", "Ford", "Volkswagen", "BMW", "Audi", "Mercedes"}

func lakhs(s string) int64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(math.Round(f * 100000))
}

// fuzzyPick returns the best fuzzy match of text among candidates. Short
// inputs and scattered matches are rejected so that chatter does not turn
// into a selection.
func fuzzyPick(text string, candidates []string) (string, bool) {
	n := utf8.RuneCountInString(text)
	if n < 3 || len(candidates) == 0 {
		return "", false
	}
	matches := fuzzy.Find(text, candidates)
	if len(matches) == 0 {
		return "", false
	}
	best := matches[0]
	idx := best.MatchedIndexes
	if len(idx) == 0 || idx[len(idx)-1]-idx[0]+1 > 2*n {
		return "", false
	}
	return best.Str, true
}

func equalFoldAny(text string, options []string) (string, bool) {
	for _, o := range options {
		if strings.EqualFold(strings.TrimSpace(text), o) {
			return o, true
		}
	}
	return "", false
}

// MatchBudget maps text to a canonical budget bucket. It accepts an exact
// label, an amount phrase such as "under 8 lakh" or "10 to 15 lakh", or a
// fuzzy match against the labels.
func MatchBudget(text string) (string, bool) {
	if label, ok := equalFoldAny(text, models.BudgetOptions); ok {
		return label, true
	}
	if m := budgetUnderRe.FindStringSubmatch(text); m != nil {
		return models.BudgetForAmount(lakhs(m[1]) - 1), true
	}
	if m := budgetRangeRe.FindStringSubmatch(text); m != nil {
		return models.BudgetForAmount((lakhs(m[1]) + lakhs(m[2])) / 2), true
	}
	if m := budgetAboveRe.FindStringSubmatch(text); m != nil {
		return models.BudgetForAmount(lakhs(m[1])), true
	}
	if m := budgetPlainRe.FindStringSubmatch(text); m != nil {
		return models.BudgetForAmount(lakhs(m[1])), true
	}
	return fuzzyPick(text, models.BudgetOptions)
}

// canonical returns the spelling of name used in available, or name.
func canonical(name string, available []string) string {
	for _, a := range available {
		if strings.EqualFold(a, name) {
			return a
		}
	}
	return name
}

// MatchType maps text to a car type. "all" and "all Type" mean no
// constraint and return models.FilterAll.
func MatchType(text string, available []string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "all" || lower == strings.ToLower(AllTypeOption) {
		return models.FilterAll, true
	}
	if t, ok := equalFoldAny(text, available); ok {
		return t, true
	}
	for _, k := range typeKeywords {
		if strings.Contains(lower, k.keyword) {
			return canonical(k.name, available), true
		}
	}
	candidates := available
	if len(candidates) == 0 {
		for _, k := range typeKeywords {
			candidates = append(candidates, k.name)
		}
	}
	return fuzzyPick(text, candidates)
}

// MatchBrand maps text to one of the available brands. "all" and
// "all Brand" return models.FilterAll.
func MatchBrand(text string, available []string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "all" || lower == strings.ToLower(AllBrandOption) {
		return models.FilterAll, true
	}
	if len(available) == 0 {
		available = DefaultBrands
	}
	if b, ok := equalFoldAny(text, available); ok {
		return b, true
	}
	for _, b := range available {
		if strings.Contains(lower, strings.ToLower(b)) {
			return b, true
		}
	}
	return fuzzyPick(text, available)
}

// ValidName reports whether text is a plausible person name.
func ValidName(text string) (string, bool) {
	text = strings.TrimSpace(text)
	return text, nameRe.MatchString(text)
}

// NormalizePhone strips spaces, dashes and a leading +91, 91 or 0 from an
// Indian mobile number.
func NormalizePhone(text string) string {
	p := phoneStrip.Replace(strings.TrimSpace(text))
	switch {
	case strings.HasPrefix(p, "+91"):
		p = p[3:]
	case strings.HasPrefix(p, "91") && len(p) == 12:
		p = p[2:]
	case strings.HasPrefix(p, "0") && len(p) == 11:
		p = p[1:]
	}
	return p
}

// ValidPhone normalises text and reports whether it is a 10-digit Indian
// mobile number.
func ValidPhone(text string) (string, bool) {
	p := NormalizePhone(text)
	return p, phoneRe.MatchString(p)
}

// ValidAddress reports whether text is a plausible address.
func ValidAddress(text string) (string, bool) {
	text = strings.TrimSpace(text)
	return text, addressRe.MatchString(text)
}

// PrefillBrowse fills empty browse slots from explicit mentions in text,
// such as "SUV under 10 lakh". Fuzzy matching is not used here.
func PrefillBrowse(sess *models.Session, text string) {
	lower := strings.ToLower(text)
	if sess.Budget == "" && budgetPlainRe.MatchString(text) {
		if b, ok := MatchBudget(text); ok {
			sess.Budget = b
		}
	}
	if sess.Type == "" {
		for _, k := range typeKeywords {
			if containsWord(lower, k.keyword) {
				sess.Type = k.name
				break
			}
		}
	}
	if sess.Brand == "" {
		for _, b := range DefaultBrands {
			if containsWord(lower, strings.ToLower(b)) {
				sess.Brand = b
				break
			}
		}
	}
}

func containsWord(lower, word string) bool {
	for _, f := range strings.FieldsFunc(lower, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) }) {
		if f == word || f == word+"s" {
			return true
		}
	}
	return false
}

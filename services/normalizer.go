package services

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Characters kept next to letters, digits and spaces when filtering model
// and trim names. Trims also keep quotes for foot/inch marks (8' bed, 20").
const (
	ModelExtras = "-/."
	TrimExtras  = "-/.'\""
)

var (
	stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	tagRegexp    = regexp.MustCompile(`<[^>]*>`)
)

// CleanPrice formats a price as US dollars grouped by thousands.
// Strings that already contain a comma are treated as grouped and only get
// a leading "$" when it is missing.
//
//	"45000"   → "$45,000"
//	"45,000"  → "$45,000"
//	"$45,000" → "$45,000"
func CleanPrice(raw string) string {
	price := strings.TrimSpace(raw)
	if price == "" {
		return ""
	}

	if strings.Contains(price, ",") {
		if !strings.Contains(price, "$") {
			return "$" + price
		}
		return price
	}

	digits := make([]byte, 0, len(price))
	for i := 0; i < len(price); i++ {
		if price[i] >= '0' && price[i] <= '9' {
			digits = append(digits, price[i])
		}
	}
	if len(digits) == 0 {
		return ""
	}

	// walk from the least significant digit so groups line up on the right
	out := make([]byte, 0, len(digits)+len(digits)/3+1)
	for i := len(digits) - 1; i >= 0; i-- {
		out = append(out, digits[i])
		n := len(digits) - i
		if n%3 == 0 && i > 0 {
			out = append(out, ',')
		}
	}
	out = append(out, '$')

	for l, r := 0, len(out)-1; l < r; l, r = l+1, r-1 {
		out[l], out[r] = out[r], out[l]
	}
	return string(out)
}

// FilterText keeps runs of ASCII letters, digits and the extra characters,
// joined by single spaces. Accents are folded first so "Citroën" survives
// as "Citroen".
func FilterText(raw, extra string) string {
	folded, _, err := transform.String(stripAccents, raw)
	if err != nil {
		folded = raw
	}

	runs := strings.FieldsFunc(folded, func(r rune) bool {
		return !isAllowed(r, extra)
	})
	return strings.Join(runs, " ")
}

// StripTags removes anything that looks like an HTML tag.
func StripTags(s string) string {
	if !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(tagRegexp.ReplaceAllString(s, ""))
}

func isAllowed(r rune, extra string) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune(extra, r)
}

package verification

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// limitTolerance is the absolute difference under which two MRL values in
// mg/kg are considered equal.
const limitTolerance = 1e-6

var folder = cases.Fold()

// NormalizeName folds case and width and drops all whitespace so that
// "Kasugamycin ", "kasugamycin" and "ＫＡＳＵＧＡＭＹＣＩＮ" compare equal.
func NormalizeName(s string) string {
	s = folder.String(norm.NFKC.String(s))
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// NamesMatch reports whether a recorded pesticide name equals the standard
// name after normalization. An empty standard name never matches.
func NamesMatch(recorded, standard string) bool {
	std := NormalizeName(standard)
	return std != "" && NormalizeName(recorded) == std
}

// HasLimitText reports whether the certificate printed a limit value.
func HasLimitText(text *string) bool {
	if text == nil {
		return false
	}
	t := strings.TrimSpace(*text)
	return t != "" && t != "-"
}

// ParseLimit reads a printed limit such as "0.05", "1,000" or "0.5 mg/kg".
// Non-numeric text like "불검출" yields false.
func ParseLimit(text *string) (float64, bool) {
	if !HasLimitText(text) {
		return 0, false
	}
	t := norm.NFKC.String(strings.TrimSpace(*text))
	t = strings.TrimSuffix(strings.ToLower(t), "mg/kg")
	t = strings.ReplaceAll(t, ",", "")
	t = strings.TrimSpace(t)
	v, err := strconv.ParseFloat(t, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// LimitsEqual compares printed limit text with a reference value.
func LimitsEqual(text *string, ref *float64) bool {
	if ref == nil {
		return false
	}
	v, ok := ParseLimit(text)
	if !ok {
		return false
	}
	return math.Abs(v-*ref) <= limitTolerance
}

package dataset

// convert.go normalizes the messy strings found in real workbooks:
// numbers wrapped in currency symbols or unit suffixes, European decimal
// commas, formula prefixes, stray quotes, inconsistent header punctuation.

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// numberPattern finds the first numeric token in a cell, including
// scientific notation. Matching a substring tolerates unit suffixes
// ("12.5 kg") and currency prefixes ("$3.20").
var numberPattern = regexp.MustCompile(`[-+]?\d*\.?\d+([eE][-+]?\d+)?`)

// spaceRun matches runs of whitespace for name normalization.
var spaceRun = regexp.MustCompile(`\s+`)

// CleanCell strips artifacts commonly carried over from spreadsheet
// exports: surrounding whitespace, formula prefixes (="..."), and
// wrapping quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}

// ParseNumber extracts a float from a workbook cell. It tolerates the
// Unicode minus sign, European decimal commas, and surrounding junk, and
// reports false when no usable number remains.
func ParseNumber(s string) (float64, bool) {
	s = CleanCell(s)
	if s == "" {
		return 0, false
	}

	// Unicode minus signs and European decimal commas both show up in
	// real exports.
	s = strings.ReplaceAll(s, "−", "-")
	s = strings.ReplaceAll(s, ",", ".")

	m := numberPattern.FindString(s)
	if m == "" {
		return 0, false
	}

	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// NormalizeName cleans a record name: strips export artifacts, trims, and
// collapses internal whitespace runs to single spaces. Case is preserved
// because name matching is case-sensitive.
func NormalizeName(s string) string {
	return spaceRun.ReplaceAllString(CleanCell(s), " ")
}

// canonical reduces a header to its comparable form: lowercased with
// everything but letters and digits removed, so that "CO2e (kg)",
// "co2e_kg", and "CO2e/kg" all collide.
func canonical(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// cellAt returns the raw cell at column idx, tolerating rows shorter than
// the header (spreadsheet readers trim trailing empty cells per row).
func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

package statement

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// labelReplacer drops the expand markers the page renders next to
// collapsible line items ("Borrowings +").
var labelReplacer = strings.NewReplacer("+", "")

// numberReplacer strips thousands separators and percent signs and folds the
// typographic minus to ASCII.
var numberReplacer = strings.NewReplacer(
	",", "",
	"%", "",
	"\u2212", "-",
	"\u00a0", "",
)

// CleanLabel normalises a row or column label. NFKC folds non-breaking and
// other compatibility spaces to a plain space.
func CleanLabel(s string) string {
	s = norm.NFKC.String(s)
	s = labelReplacer.Replace(s)
	return strings.TrimSpace(s)
}

// ParseNumber coerces a cell to a finite number. It never fails: anything
// that does not parse comes back with ok == false.
func ParseNumber(s string) (v float64, ok bool) {
	s = strings.TrimSpace(numberReplacer.Replace(s))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// FormatNumber renders v so that ParseNumber(FormatNumber(v)) == v.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

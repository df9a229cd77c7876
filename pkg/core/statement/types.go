// Package statement turns the loose tables scraped from a company page into
// two indexed financial statements: the Balance Sheet and the Profit & Loss.
package statement

// RawTable is one HTML table as extracted from a page.
// Row 0 holds the period labels, column 0 holds the line-item labels.
type RawTable [][]string

// Kind identifies which financial statement a table represents.
type Kind string

const (
	KindBalanceSheet Kind = "balance_sheet"
	KindProfitLoss   Kind = "profit_loss"
)

type cellKey struct {
	label  string
	period string
}

// Statement is a normalised table: (line item, period) -> number.
// A cell that is absent from the index is "missing".
type Statement struct {
	Kind Kind

	labels  []string
	periods []string
	hasRow  map[string]struct{}
	cells   map[cellKey]float64
}

func newStatement(kind Kind) *Statement {
	return &Statement{
		Kind:   kind,
		hasRow: make(map[string]struct{}),
		cells:  make(map[cellKey]float64),
	}
}

// Labels returns the line-item labels in table order.
func (s *Statement) Labels() []string {
	return append([]string(nil), s.labels...)
}

// Periods returns the period labels in table column order.
func (s *Statement) Periods() []string {
	return append([]string(nil), s.periods...)
}

// HasLabel reports whether the statement carries a row for label.
func (s *Statement) HasLabel(label string) bool {
	_, ok := s.hasRow[label]
	return ok
}

// Value returns the numeric cell for (label, period). ok is false when the
// row or column does not exist or the cell could not be coerced to a number.
func (s *Statement) Value(label, period string) (v float64, ok bool) {
	v, ok = s.cells[cellKey{label: label, period: period}]
	return v, ok
}

// Len returns the number of line items.
func (s *Statement) Len() int {
	return len(s.labels)
}

// Statements is the classification result for one company page.
type Statements struct {
	BalanceSheet *Statement
	ProfitLoss   *Statement
}

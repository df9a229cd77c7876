package ratios

import "ratio_screener/pkg/core/statement"

// Synonyms is an ordered list of acceptable row labels for one field.
type Synonyms []string

// Resolve returns the first label present in st.
func (s Synonyms) Resolve(st *statement.Statement) (string, bool) {
	if st == nil {
		return "", false
	}
	for _, label := range s {
		if st.HasLabel(label) {
			return label, true
		}
	}
	return "", false
}

// LineItems holds the label fallback chains consulted by the deriver.
// Debt, equity and reserves come from the Balance Sheet, the rest from the P&L.
type LineItems struct {
	Debt            Synonyms
	Equity          Synonyms
	Reserves        Synonyms
	Revenue         Synonyms
	OperatingProfit Synonyms
	Margin          Synonyms
	ProfitBeforeTax Synonyms
	Interest        Synonyms
}

// DefaultLineItems is the vocabulary used by the statement pages.
var DefaultLineItems = LineItems{
	Debt:            Synonyms{"Borrowings"},
	Equity:          Synonyms{"Equity Capital", "Equity Share Capital", "Share Capital"},
	Reserves:        Synonyms{"Reserves"},
	Revenue:         Synonyms{"Sales", "Revenue"},
	OperatingProfit: Synonyms{"Operating Profit"},
	Margin:          Synonyms{"OPM %", "OPM"},
	ProfitBeforeTax: Synonyms{"Profit before tax"},
	Interest:        Synonyms{"Interest"},
}

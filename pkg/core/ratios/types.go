// Package ratios derives Debt-to-Equity, Operating Profit Margin and Return
// on Capital Employed per reporting period from normalised statements.
package ratios

import "fmt"

// Record is one company-period row of derived ratios. Ratios that cannot be
// computed are nil. The Raw_* fields carry the resolved inputs so exports can
// rebuild the ratios as spreadsheet formulas.
type Record struct {
	Company               string   `json:"Company"`
	Month                 string   `json:"Month"`
	DebtToEquity          *float64 `json:"Debt_to_Equity"`
	OperatingProfitMargin *float64 `json:"Operating_Profit_Margin"`
	ROCE                  *float64 `json:"ROCE"`

	RawBorrowings         *float64 `json:"Raw_Borrowings,omitempty"`
	RawEquityShareCapital *float64 `json:"Raw_Equity_Share_Capital,omitempty"`
	RawReserves           *float64 `json:"Raw_Reserves,omitempty"`
	RawSales              *float64 `json:"Raw_Sales,omitempty"`
	RawOperatingProfit    *float64 `json:"Raw_Operating_Profit,omitempty"`
	RawProfitBeforeTax    *float64 `json:"Raw_Profit_before_tax,omitempty"`
	RawInterest           *float64 `json:"Raw_Interest,omitempty"`
}

// Field names a logical line item.
type Field string

const (
	FieldDebt            Field = "debt"
	FieldEquity          Field = "equity"
	FieldReserves        Field = "reserves"
	FieldRevenue         Field = "revenue"
	FieldOperatingProfit Field = "operating_profit"
	FieldMargin          Field = "operating_profit_margin"
	FieldProfitBeforeTax Field = "profit_before_tax"
	FieldInterest        Field = "interest"
)

// PeriodLookupError is raised when a required line item cannot be resolved
// for a period. The period is omitted; the company is not affected.
type PeriodLookupError struct {
	Period string
	Field  Field
	Reason string
}

func (e *PeriodLookupError) Error() string {
	return fmt.Sprintf("period %q: %s %s", e.Period, e.Field, e.Reason)
}

// Skip describes a period left out of the output.
type Skip struct {
	Period string `json:"period"`
	Field  Field  `json:"field"`
	Reason string `json:"reason"`
}

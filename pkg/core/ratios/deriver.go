package ratios

import (
	"errors"
	"math"

	"ratio_screener/pkg/core/statement"
)

// Deriver computes ratio records from a Balance Sheet and a P&L statement.
type Deriver struct {
	Items LineItems
}

// NewDeriver returns a deriver using DefaultLineItems.
func NewDeriver() *Deriver {
	return &Deriver{Items: DefaultLineItems}
}

// Derive runs the default deriver.
func Derive(bs, pl *statement.Statement, company string) []Record {
	return NewDeriver().Derive(bs, pl, company)
}

// Derive emits one record per Balance Sheet period, in column order. Periods
// whose required line items cannot be resolved are left out silently.
func (d *Deriver) Derive(bs, pl *statement.Statement, company string) []Record {
	records, _ := d.DeriveWithDiagnostics(bs, pl, company)
	return records
}

// DeriveWithDiagnostics is Derive plus the reason each omitted period was
// dropped.
func (d *Deriver) DeriveWithDiagnostics(bs, pl *statement.Statement, company string) ([]Record, []Skip) {
	if bs == nil {
		return nil, nil
	}

	var (
		records []Record
		skips   []Skip
	)
	for _, period := range bs.Periods() {
		if statement.CleanLabel(period) == "" {
			continue
		}

		rec, err := d.derivePeriod(bs, pl, company, period)
		if err != nil {
			var le *PeriodLookupError
			if errors.As(err, &le) {
				skips = append(skips, Skip{Period: le.Period, Field: le.Field, Reason: le.Reason})
			}
			continue
		}
		records = append(records, rec)
	}
	return records, skips
}

// =============================================================================
// PER-PERIOD DERIVATION
// =============================================================================

func (d *Deriver) derivePeriod(bs, pl *statement.Statement, company, period string) (Record, error) {
	debtKey, err := requireItem(bs, d.Items.Debt, FieldDebt, period)
	if err != nil {
		return Record{}, err
	}
	debt, ok := bs.Value(debtKey, period)
	if !ok {
		return Record{}, &PeriodLookupError{Period: period, Field: FieldDebt, Reason: "value missing"}
	}

	equityKey, err := requireItem(bs, d.Items.Equity, FieldEquity, period)
	if err != nil {
		return Record{}, err
	}
	reservesKey, err := requireItem(bs, d.Items.Reserves, FieldReserves, period)
	if err != nil {
		return Record{}, err
	}
	revenueKey, err := requireItem(pl, d.Items.Revenue, FieldRevenue, period)
	if err != nil {
		return Record{}, err
	}
	opKey, err := requireItem(pl, d.Items.OperatingProfit, FieldOperatingProfit, period)
	if err != nil {
		return Record{}, err
	}

	capital := lookup(bs, equityKey, period)
	reserves := lookup(bs, reservesKey, period)
	revenue := lookup(pl, revenueKey, period)
	opProfit := lookup(pl, opKey, period)

	var equity *float64
	if capital != nil && reserves != nil {
		equity = ptr(*capital + *reserves)
	}

	var pbt, interest, ebit *float64
	if key, ok := d.Items.ProfitBeforeTax.Resolve(pl); ok {
		pbt = lookup(pl, key, period)
	}
	if key, ok := d.Items.Interest.Resolve(pl); ok {
		interest = lookup(pl, key, period)
	}
	if pbt != nil && interest != nil {
		ebit = ptr(*pbt + *interest)
	}

	rec := Record{
		Company:               company,
		Month:                 period,
		OperatingProfitMargin: clean(d.margin(pl, period, revenue, opProfit)),

		RawBorrowings:         ptr(debt),
		RawEquityShareCapital: capital,
		RawReserves:           reserves,
		RawSales:              revenue,
		RawOperatingProfit:    opProfit,
		RawProfitBeforeTax:    pbt,
		RawInterest:           interest,
	}

	if equity != nil && *equity != 0 {
		rec.DebtToEquity = clean(ptr(debt / *equity))
	}
	if equity != nil && ebit != nil && *equity+debt > 0 {
		rec.ROCE = clean(ptr(*ebit / (*equity + debt)))
	}
	return rec, nil
}

// margin prefers a reported OPM line and falls back to operating profit over
// revenue. Reported values above 1 in magnitude are percentages.
func (d *Deriver) margin(pl *statement.Statement, period string, revenue, opProfit *float64) *float64 {
	if key, ok := d.Items.Margin.Resolve(pl); ok {
		if opm := lookup(pl, key, period); opm != nil {
			v := *opm
			if math.Abs(v) > 1 {
				v /= 100
			}
			return &v
		}
	}
	if revenue == nil || opProfit == nil || *revenue == 0 {
		return nil
	}
	return ptr(*opProfit / *revenue)
}

// =============================================================================
// HELPERS
// =============================================================================

func requireItem(st *statement.Statement, syn Synonyms, field Field, period string) (string, error) {
	key, ok := syn.Resolve(st)
	if !ok {
		return "", &PeriodLookupError{Period: period, Field: field, Reason: "line item not found"}
	}
	return key, nil
}

func lookup(st *statement.Statement, label, period string) *float64 {
	v, ok := st.Value(label, period)
	if !ok {
		return nil
	}
	return &v
}

// clean maps NaN and infinities to nil.
func clean(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return ptr(*v)
}

func ptr(v float64) *float64 { return &v }

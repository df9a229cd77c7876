// Package export renders ratio records for download: a pivoted CSV, a
// formula-driven spreadsheet, a PDF table and an HTML report.
package export

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"ratio_screener/pkg/core/ratios"
)

// ErrNoRecords is returned by every writer when there is nothing to export.
var ErrNoRecords = errors.New("no data to download")

// Metrics lists the ratio columns in export order.
var Metrics = []string{"Debt_to_Equity", "Operating_Profit_Margin", "ROCE"}

const periodLayout = "Jan 2006"

func metricValues(r ratios.Record) []*float64 {
	return []*float64{r.DebtToEquity, r.OperatingProfitMargin, r.ROCE}
}

// SortPeriods orders period labels chronologically. Labels that do not parse
// as "Mon YYYY" go last, ordered by label.
func SortPeriods(periods []string) []string {
	type key struct {
		label string
		t     time.Time
		ok    bool
	}
	keys := make([]key, 0, len(periods))
	for _, p := range periods {
		t, err := time.Parse(periodLayout, p)
		keys = append(keys, key{label: p, t: t, ok: err == nil})
	}
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.ok != b.ok {
			return a.ok
		}
		if a.ok && !a.t.Equal(b.t) {
			return a.t.Before(b.t)
		}
		return a.label < b.label
	})

	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.label
	}
	return out
}

// pivot indexes records by company and period, first record winning.
type pivot struct {
	companies []string
	periods   []string
	cells     map[string]map[string]ratios.Record
}

func newPivot(records []ratios.Record) *pivot {
	p := &pivot{cells: make(map[string]map[string]ratios.Record)}
	seenPeriod := make(map[string]bool)
	for _, r := range records {
		row, ok := p.cells[r.Company]
		if !ok {
			row = make(map[string]ratios.Record)
			p.cells[r.Company] = row
			p.companies = append(p.companies, r.Company)
		}
		if _, dup := row[r.Month]; !dup {
			row[r.Month] = r
		}
		if !seenPeriod[r.Month] {
			seenPeriod[r.Month] = true
			p.periods = append(p.periods, r.Month)
		}
	}
	sort.Strings(p.companies)
	p.periods = SortPeriods(p.periods)
	return p
}

func (p *pivot) get(company, period string) (ratios.Record, bool) {
	r, ok := p.cells[company][period]
	return r, ok
}

// formatRatio renders a ratio for humans: D/E as a multiple, the others as
// percentages.
func formatRatio(metric string, v *float64) string {
	if v == nil {
		return "-"
	}
	if metric == "Debt_to_Equity" {
		return fmt.Sprintf("%.2f", *v)
	}
	return fmt.Sprintf("%.2f%%", *v*100)
}

// humanRows is the Company/Month/ratios grid shared by the PDF and HTML outputs.
func humanRows(records []ratios.Record) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		row := []string{r.Company, r.Month}
		for i, v := range metricValues(r) {
			row = append(row, formatRatio(Metrics[i], v))
		}
		rows = append(rows, row)
	}
	return rows
}

var humanHeader = []string{"Company", "Month", "Debt to Equity", "OPM", "ROCE"}

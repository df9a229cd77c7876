package export

import (
	"encoding/csv"
	"io"

	"ratio_screener/pkg/core/ratios"
	"ratio_screener/pkg/core/statement"
)

// CSVFilename is the download name of the pivoted CSV.
const CSVFilename = "screener_ratios_pivoted.csv"

// WriteCSV pivots records into one row per company and a group of three ratio
// columns per period. The first header row names each period once over its
// group; the second names the metrics.
func WriteCSV(w io.Writer, records []ratios.Record) error {
	if len(records) == 0 {
		return ErrNoRecords
	}
	p := newPivot(records)

	header1 := []string{"Company"}
	header2 := []string{""}
	for _, period := range p.periods {
		for i, metric := range Metrics {
			if i == 0 {
				header1 = append(header1, period)
			} else {
				header1 = append(header1, "")
			}
			header2 = append(header2, metric)
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header1); err != nil {
		return err
	}
	if err := cw.Write(header2); err != nil {
		return err
	}

	for _, company := range p.companies {
		row := []string{company}
		for _, period := range p.periods {
			rec, ok := p.get(company, period)
			for i := range Metrics {
				if !ok {
					row = append(row, "")
					continue
				}
				row = append(row, csvNumber(metricValues(rec)[i]))
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvNumber(v *float64) string {
	if v == nil {
		return ""
	}
	return statement.FormatNumber(*v)
}

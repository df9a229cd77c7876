package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"ratio_screener/pkg/core/ratios"
)

const (
	XLSXFilename = "screener_ratios.xlsx"
	SheetName    = "Ratios"
)

// XLSXHeader is the column layout of the spreadsheet export.
var XLSXHeader = []string{
	"Company", "Month",
	"Raw_Borrowings", "Raw_Equity_Share_Capital", "Raw_Reserves", "Raw_Sales",
	"Raw_Operating_Profit", "Raw_Profit_before_tax", "Raw_Interest",
	"Debt_to_Equity", "Operating_Profit_Margin", "ROCE",
}

// Ratio formulas over the raw columns C..I. %[1]d is the row number. A blank
// operand yields a blank ratio, and the denominators carry the same guards as
// ratios.Deriver: equity non-zero for D/E, revenue non-zero for OPM and
// capital employed positive for ROCE.
const (
	formulaDebtToEquity = `IF(OR(C%[1]d="",D%[1]d="",E%[1]d=""),"",IF(D%[1]d+E%[1]d<>0,C%[1]d/(D%[1]d+E%[1]d),""))`
	formulaMargin       = `IF(OR(F%[1]d="",G%[1]d=""),"",IF(F%[1]d<>0,G%[1]d/F%[1]d,""))`
	formulaROCE         = `IF(OR(C%[1]d="",D%[1]d="",E%[1]d="",H%[1]d="",I%[1]d=""),"",IF(C%[1]d+D%[1]d+E%[1]d>0,(H%[1]d+I%[1]d)/(C%[1]d+D%[1]d+E%[1]d),""))`
)

// WriteXLSX writes one row per record in input order. Ratios are formulas
// over the raw inputs so the workbook recomputes them when edited. Adjacent
// rows of one company share a merged company cell.
func WriteXLSX(w io.Writer, records []ratios.Record) error {
	if len(records) == 0 {
		return ErrNoRecords
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}

	header := make([]interface{}, len(XLSXHeader))
	for i, h := range XLSXHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return err
	}

	for i, r := range records {
		row := i + 2
		values := []interface{}{
			r.Company, r.Month,
			cellValue(r.RawBorrowings), cellValue(r.RawEquityShareCapital), cellValue(r.RawReserves),
			cellValue(r.RawSales), cellValue(r.RawOperatingProfit),
			cellValue(r.RawProfitBeforeTax), cellValue(r.RawInterest),
		}
		if err := f.SetSheetRow(SheetName, fmt.Sprintf("A%d", row), &values); err != nil {
			return err
		}
		for col, formula := range map[string]string{
			"J": formulaDebtToEquity,
			"K": formulaMargin,
			"L": formulaROCE,
		} {
			if err := f.SetCellFormula(SheetName, fmt.Sprintf("%s%d", col, row), fmt.Sprintf(formula, row)); err != nil {
				return err
			}
		}
	}

	if err := mergeCompanies(f, records); err != nil {
		return err
	}
	if err := styleSheet(f, len(records)+1); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// cellValue leaves missing inputs blank.
func cellValue(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func mergeCompanies(f *excelize.File, records []ratios.Record) error {
	start := 0
	for i := 1; i <= len(records); i++ {
		if i < len(records) && records[i].Company == records[start].Company {
			continue
		}
		if i-start > 1 {
			top, bottom := fmt.Sprintf("A%d", start+2), fmt.Sprintf("A%d", i+1)
			if err := f.MergeCell(SheetName, top, bottom); err != nil {
				return err
			}
		}
		start = i
	}
	return nil
}

func styleSheet(f *excelize.File, lastRow int) error {
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", "L1", bold); err != nil {
		return err
	}

	company, err := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{Vertical: "center"}})
	if err != nil {
		return err
	}
	multiple, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return err
	}
	percent, err := f.NewStyle(&excelize.Style{NumFmt: 10})
	if err != nil {
		return err
	}
	if lastRow >= 2 {
		if err := f.SetCellStyle(SheetName, "A2", fmt.Sprintf("A%d", lastRow), company); err != nil {
			return err
		}
		if err := f.SetCellStyle(SheetName, "J2", fmt.Sprintf("J%d", lastRow), multiple); err != nil {
			return err
		}
		if err := f.SetCellStyle(SheetName, "K2", fmt.Sprintf("L%d", lastRow), percent); err != nil {
			return err
		}
	}
	return f.SetColWidth(SheetName, "A", "B", 24)
}

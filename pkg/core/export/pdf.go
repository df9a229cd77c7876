package export

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"ratio_screener/pkg/core/ratios"
)

const PDFFilename = "screener_ratios.pdf"

var pdfColWidths = []float64{90, 40, 45, 45, 45}

// WritePDF lays the records out as a landscape A4 table, repeating the header
// on every page.
func WritePDF(w io.Writer, records []ratios.Record) error {
	if len(records) == 0 {
		return ErrNoRecords
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(false, 10)
	pdf.SetTitle("Screener ratios", false)

	const (
		rowHeight  = 7.0
		pageBottom = 210.0 - 15.0
	)

	drawHeader := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for i, h := range humanHeader {
			pdf.CellFormat(pdfColWidths[i], rowHeight, h, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
	}

	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, "Financial ratios", "", 1, "L", false, 0, "")
	pdf.Ln(2)
	drawHeader()

	for _, row := range humanRows(records) {
		if pdf.GetY()+rowHeight > pageBottom {
			pdf.AddPage()
			drawHeader()
		}
		for i, cell := range row {
			align := "R"
			if i < 2 {
				align = "L"
			}
			pdf.CellFormat(pdfColWidths[i], rowHeight, truncate(pdf, cell, pdfColWidths[i]-2), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return fmt.Errorf("failed to generate PDF output: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// truncate shortens s with an ellipsis until it fits width.
func truncate(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...") > width {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}

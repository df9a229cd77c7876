package ingest

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ratio_screener/pkg/core/statement"
)

// ExtractTables reads every <table> of an HTML page into a rectangular grid.
// Cells spanning several rows or columns are repeated into each slot they
// cover so that columns stay aligned with the period header.
func ExtractTables(r io.Reader) ([]statement.RawTable, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var tables []statement.RawTable
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		tables = append(tables, tableGrid(table))
	})
	return tables, nil
}

type gridCell struct {
	text    string
	colSpan int
	rowSpan int
}

// tableGrid builds the virtual grid of one table, ignoring rows that belong
// to nested tables.
func tableGrid(table *goquery.Selection) statement.RawTable {
	var rows [][]gridCell
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if !tr.Closest("table").IsSelection(table) {
			return
		}
		var cells []gridCell
		tr.ChildrenFiltered("td, th").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, gridCell{
				text:    cellText(cell.Text()),
				colSpan: spanAttr(cell, "colspan"),
				rowSpan: spanAttr(cell, "rowspan"),
			})
		})
		rows = append(rows, cells)
	})
	if len(rows) == 0 {
		return statement.RawTable{}
	}

	// occupied[r][c] marks slots filled by rowspans from above
	grid := make([][]string, len(rows))
	occupied := make([]map[int]bool, len(rows))
	for i := range occupied {
		occupied[i] = make(map[int]bool)
	}

	width := 0
	for r, cells := range rows {
		col := 0
		for _, cell := range cells {
			// each spanned column takes the next slot not held by a rowspan
			for dc := 0; dc < cell.colSpan; dc++ {
				for occupied[r][col] {
					col++
				}
				for dr := 0; dr < cell.rowSpan && r+dr < len(rows); dr++ {
					setCell(&grid[r+dr], col, cell.text)
					occupied[r+dr][col] = true
				}
				col++
			}
		}
		if len(grid[r]) > width {
			width = len(grid[r])
		}
	}

	for r := range grid {
		for len(grid[r]) < width {
			grid[r] = append(grid[r], "")
		}
	}
	return statement.RawTable(grid)
}

func setCell(row *[]string, col int, text string) {
	for len(*row) <= col {
		*row = append(*row, "")
	}
	(*row)[col] = text
}

func spanAttr(cell *goquery.Selection, name string) int {
	n, err := strconv.Atoi(strings.TrimSpace(cell.AttrOr(name, "1")))
	if err != nil || n < 1 {
		return 1
	}
	// guard against absurd spans in malformed markup
	if n > 1000 {
		return 1000
	}
	return n
}

// cellText collapses whitespace runs, including non-breaking spaces.
func cellText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

package export

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"ratio_screener/pkg/core/ratios"
)

const ReportFilename = "screener_ratios.html"

var reportPage = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Screener ratios</title>
<style>body{font-family:sans-serif}table{border-collapse:collapse}td,th{border:1px solid #ccc;padding:4px 8px}td{text-align:right}</style>
</head><body>
{{.}}</body></html>
`))

// Markdown renders records as a GFM document with one section per company.
func Markdown(records []ratios.Record) string {
	var sb strings.Builder
	sb.WriteString("# Financial ratios\n")

	rows := humanRows(records)
	current := ""
	for i, r := range records {
		if i == 0 || r.Company != current {
			current = r.Company
			fmt.Fprintf(&sb, "\n## %s\n\n", escapeCell(current))
			sb.WriteString("| " + strings.Join(humanHeader[1:], " | ") + " |\n")
			sb.WriteString("|" + strings.Repeat(" --- |", len(humanHeader)-1) + "\n")
		}
		cells := make([]string, 0, len(rows[i])-1)
		for _, c := range rows[i][1:] {
			cells = append(cells, escapeCell(c))
		}
		sb.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return sb.String()
}

// RenderReport converts the Markdown report into a standalone HTML page.
func RenderReport(records []ratios.Record) ([]byte, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(records)), &body); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}

	var page bytes.Buffer
	if err := reportPage.Execute(&page, template.HTML(body.String())); err != nil {
		return nil, err
	}
	return page.Bytes(), nil
}

func escapeCell(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}

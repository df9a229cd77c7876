package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"ratio_screener/pkg/core/export"
	"ratio_screener/pkg/core/ingest"
	"ratio_screener/pkg/core/pipeline"
)

var formats = []string{"json", "csv", "xlsx", "pdf", "html"}

func checkFormat(f string) error {
	for _, known := range formats {
		if f == known {
			return nil
		}
	}
	return fmt.Errorf("invalid format: %s (must be one of %s)", f, strings.Join(formats, ", "))
}

func render(w io.Writer, format string, outcome *pipeline.Outcome) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(outcome)
	case "csv":
		return export.WriteCSV(w, outcome.Results)
	case "xlsx":
		return export.WriteXLSX(w, outcome.Results)
	case "pdf":
		return export.WritePDF(w, outcome.Results)
	case "html":
		page, err := export.RenderReport(outcome.Results)
		if err != nil {
			return err
		}
		_, err = w.Write(page)
		return err
	}
	return checkFormat(format)
}

// parseFile runs classification and derivation over a saved page.
func parseFile(path, name string, logger zerolog.Logger) (*pipeline.Outcome, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	defer file.Close()

	tables, err := ingest.ExtractTables(file)
	if err != nil {
		return nil, err
	}

	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	records, skips, err := pipeline.NewRunner(nil, 1, logger).AnalyzeTables(name, tables)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	for _, s := range skips {
		logger.Debug().Str("period", s.Period).Str("field", string(s.Field)).Msg(s.Reason)
	}
	return &pipeline.Outcome{Results: records, Errors: []string{}}, nil
}

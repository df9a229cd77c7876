// Package ratios exposes the analysis pipeline and the exports over HTTP.
package ratios

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"ratio_screener/pkg/core/export"
	"ratio_screener/pkg/core/pipeline"
	coreRatios "ratio_screener/pkg/core/ratios"
	"ratio_screener/pkg/core/store"
)

// Client-facing error messages.
const (
	msgNoCompanies = "No companies provided"
	msgNoData      = "No data to download"
)

// Analyzer runs the pipeline over company names.
type Analyzer interface {
	Analyze(ctx context.Context, names []string) (*pipeline.Outcome, error)
}

// RunLoader fetches a stored run.
type RunLoader interface {
	LoadRun(ctx context.Context, id uuid.UUID) (*pipeline.Outcome, error)
}

type AnalyzeRequest struct {
	Companies []string `json:"companies"`
}

type DownloadRequest struct {
	Results []coreRatios.Record `json:"results"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler holds dependencies for the ratio endpoints. Runs may be nil when no
// database is configured.
type Handler struct {
	Analyzer Analyzer
	Runs     RunLoader
	logger   zerolog.Logger
}

// NewHandler creates a new ratio handler.
func NewHandler(analyzer Analyzer, runs RunLoader, logger zerolog.Logger) *Handler {
	return &Handler{Analyzer: analyzer, Runs: runs, logger: logger}
}

// Register mounts the routes on router.
func (h *Handler) Register(router *mux.Router) {
	router.HandleFunc("/healthz", h.HandleHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/analyze", h.HandleAnalyze).Methods(http.MethodPost)
	router.HandleFunc("/api/download", h.HandleDownload).Methods(http.MethodPost)
	router.HandleFunc("/api/download/{format}", h.HandleDownload).Methods(http.MethodPost)
	router.HandleFunc("/api/runs/{id}", h.HandleGetRun).Methods(http.MethodGet)
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleAnalyze runs the pipeline for the posted company names.
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	outcome, err := h.Analyzer.Analyze(r.Context(), req.Companies)
	if err != nil {
		if errors.Is(err, pipeline.ErrNoCompanies) {
			writeError(w, http.StatusBadRequest, msgNoCompanies)
			return
		}
		h.logger.Error().Err(err).Msg("analyze failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// HandleDownload renders posted records in the requested format. The format
// comes from the path, then the "format" query parameter, and defaults to CSV.
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	format := mux.Vars(r)["format"]
	if format == "" {
		format = r.URL.Query().Get("format")
	}
	if format == "" {
		format = "csv"
	}
	format = strings.ToLower(format)

	var req DownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if len(req.Results) == 0 {
		writeError(w, http.StatusBadRequest, msgNoData)
		return
	}

	var (
		buf         bytes.Buffer
		err         error
		contentType string
		filename    string
		disposition = "attachment"
	)
	switch format {
	case "csv":
		contentType, filename = "text/csv", export.CSVFilename
		err = export.WriteCSV(&buf, req.Results)
	case "xlsx":
		contentType, filename = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", export.XLSXFilename
		err = export.WriteXLSX(&buf, req.Results)
	case "pdf":
		contentType, filename = "application/pdf", export.PDFFilename
		err = export.WritePDF(&buf, req.Results)
	case "html":
		contentType, filename, disposition = "text/html; charset=utf-8", export.ReportFilename, "inline"
		var page []byte
		page, err = export.RenderReport(req.Results)
		buf.Write(page)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported format %q", format))
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("format", format).Msg("export failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`%s; filename="%s"`, disposition, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// HandleGetRun returns a persisted run.
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	if h.Runs == nil {
		writeError(w, http.StatusNotImplemented, "run history requires a database")
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	outcome, err := h.Runs.LoadRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error().Err(err).Str("run_id", id.String()).Msg("load run failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// Package pipeline runs the per-company flow: search, fetch, classify and
// derive. One company failing never affects another.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ratio_screener/pkg/core/ingest"
	"ratio_screener/pkg/core/ratios"
	"ratio_screener/pkg/core/statement"
)

// ErrNoCompanies is returned when the request names no company.
var ErrNoCompanies = errors.New("no companies provided")

// Source fetches the statement tables of a company.
type Source interface {
	SearchCompany(ctx context.Context, name string) (ingest.Company, error)
	FetchTables(ctx context.Context, company ingest.Company) ([]statement.RawTable, error)
}

// RunRepository persists finished runs.
type RunRepository interface {
	SaveRun(ctx context.Context, outcome *Outcome) (uuid.UUID, error)
}

// Outcome is the aggregated result of a run.
type Outcome struct {
	RunID   *uuid.UUID      `json:"run_id,omitempty"`
	Results []ratios.Record `json:"results"`
	Errors  []string        `json:"errors"`
}

// CompanyResult is what one company contributed to a run.
type CompanyResult struct {
	Query   string
	Name    string
	Records []ratios.Record
	Skips   []ratios.Skip
	Err     error
}

// Runner drives the pipeline.
type Runner struct {
	source  Source
	deriver *ratios.Deriver
	workers int
	repo    RunRepository
	logger  zerolog.Logger
}

// NewRunner creates a runner. workers below 1 means sequential.
func NewRunner(source Source, workers int, logger zerolog.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		source:  source,
		deriver: ratios.NewDeriver(),
		workers: workers,
		logger:  logger,
	}
}

// SetRepository enables persistence of each Analyze outcome.
func (r *Runner) SetRepository(repo RunRepository) {
	r.repo = repo
}

// Analyze processes every company in names. Results and errors keep the
// input order regardless of completion order.
func (r *Runner) Analyze(ctx context.Context, names []string) (*Outcome, error) {
	companies := cleanNames(names)
	if len(companies) == 0 {
		return nil, ErrNoCompanies
	}

	results := make([]CompanyResult, len(companies))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, name := range companies {
		i, name := i, name
		g.Go(func() error {
			results[i] = r.analyzeCompany(gctx, name)
			// company failures are reported, never propagated
			return nil
		})
	}
	_ = g.Wait()

	outcome := &Outcome{Results: []ratios.Record{}, Errors: []string{}}
	for _, res := range results {
		if res.Err != nil {
			outcome.Errors = append(outcome.Errors, companyError(res.Query, res.Err))
			continue
		}
		outcome.Results = append(outcome.Results, res.Records...)
	}

	if r.repo != nil {
		id, err := r.repo.SaveRun(ctx, outcome)
		if err != nil {
			r.logger.Warn().Err(err).Msg("failed to persist run")
		} else {
			outcome.RunID = &id
		}
	}
	return outcome, nil
}

func (r *Runner) analyzeCompany(ctx context.Context, query string) CompanyResult {
	res := CompanyResult{Query: query}
	log := r.logger.With().Str("company", query).Logger()

	company, err := r.source.SearchCompany(ctx, query)
	if err != nil {
		res.Err = err
		log.Warn().Err(err).Msg("search failed")
		return res
	}
	res.Name = company.Name

	tables, err := r.source.FetchTables(ctx, company)
	if err != nil {
		res.Err = err
		log.Warn().Err(err).Msg("fetch failed")
		return res
	}

	res.Records, res.Skips, res.Err = r.analyze(company.Name, tables)
	if res.Err != nil {
		log.Warn().Err(res.Err).Msg("classification failed")
		return res
	}
	for _, s := range res.Skips {
		log.Debug().Str("period", s.Period).Str("field", string(s.Field)).Str("reason", s.Reason).Msg("period skipped")
	}
	log.Info().Str("name", company.Name).Int("periods", len(res.Records)).Msg("analyzed")
	return res
}

// AnalyzeTables derives records from already extracted tables.
func (r *Runner) AnalyzeTables(company string, tables []statement.RawTable) ([]ratios.Record, []ratios.Skip, error) {
	return r.analyze(company, tables)
}

func (r *Runner) analyze(company string, tables []statement.RawTable) ([]ratios.Record, []ratios.Skip, error) {
	st, err := statement.Classify(tables)
	if err != nil {
		return nil, nil, err
	}
	records, skips := r.deriver.DeriveWithDiagnostics(st.BalanceSheet, st.ProfitLoss, company)
	return records, skips, nil
}

func cleanNames(names []string) []string {
	var out []string
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func companyError(company string, err error) string {
	if errors.Is(err, ingest.ErrCompanyNotFound) {
		return fmt.Sprintf("%s: Not found", company)
	}
	return fmt.Sprintf("%s: %v", company, err)
}

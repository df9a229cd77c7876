package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ratio_screener/pkg/core/pipeline"
	"ratio_screener/pkg/core/ratios"
)

// ErrRunNotFound is returned by LoadRun for unknown ids.
var ErrRunNotFound = errors.New("run not found")

// RatioRepo stores analysis outcomes, one row per record.
type RatioRepo struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewRatioRepo creates a repository over pool.
func NewRatioRepo(pool *pgxpool.Pool) *RatioRepo {
	return &RatioRepo{pool: pool, now: time.Now}
}

// rawInputs is the JSONB payload of the raw columns.
type rawInputs struct {
	Borrowings         *float64 `json:"borrowings,omitempty"`
	EquityShareCapital *float64 `json:"equity_share_capital,omitempty"`
	Reserves           *float64 `json:"reserves,omitempty"`
	Sales              *float64 `json:"sales,omitempty"`
	OperatingProfit    *float64 `json:"operating_profit,omitempty"`
	ProfitBeforeTax    *float64 `json:"profit_before_tax,omitempty"`
	Interest           *float64 `json:"interest,omitempty"`
}

// SaveRun writes the outcome in a single transaction and returns its id.
func (r *RatioRepo) SaveRun(ctx context.Context, outcome *pipeline.Outcome) (uuid.UUID, error) {
	if r.pool == nil {
		return uuid.Nil, fmt.Errorf("database pool not configured")
	}

	errs, err := json.Marshal(outcome.Errors)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal errors: %w", err)
	}

	rows := make([][]interface{}, 0, len(outcome.Results))
	id := uuid.New()
	for i, rec := range outcome.Results {
		raw, err := json.Marshal(rawInputs{
			Borrowings:         rec.RawBorrowings,
			EquityShareCapital: rec.RawEquityShareCapital,
			Reserves:           rec.RawReserves,
			Sales:              rec.RawSales,
			OperatingProfit:    rec.RawOperatingProfit,
			ProfitBeforeTax:    rec.RawProfitBeforeTax,
			Interest:           rec.RawInterest,
		})
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to marshal raw inputs: %w", err)
		}
		rows = append(rows, []interface{}{
			id, i, rec.Company, rec.Month,
			rec.DebtToEquity, rec.OperatingProfitMargin, rec.ROCE, raw,
		})
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO ratio_runs (id, created_at, errors) VALUES ($1, $2, $3)`,
		id, r.now(), errs,
	); err != nil {
		return uuid.Nil, fmt.Errorf("failed to save run: %w", err)
	}

	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"ratio_records"},
		[]string{"run_id", "seq", "company", "month", "debt_to_equity", "operating_profit_margin", "roce", "raw"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return uuid.Nil, fmt.Errorf("failed to save records: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

// LoadRun returns a stored outcome with records in their original order.
func (r *RatioRepo) LoadRun(ctx context.Context, id uuid.UUID) (*pipeline.Outcome, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("database pool not configured")
	}

	var errs []byte
	err := r.pool.QueryRow(ctx, `SELECT errors FROM ratio_runs WHERE id = $1`, id).Scan(&errs)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to load run: %w", err)
	}

	outcome := &pipeline.Outcome{RunID: &id, Results: []ratios.Record{}, Errors: []string{}}
	if err := json.Unmarshal(errs, &outcome.Errors); err != nil {
		return nil, fmt.Errorf("failed to unmarshal errors: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT company, month, debt_to_equity, operating_profit_margin, roce, raw
		FROM ratio_records WHERE run_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec ratios.Record
			raw []byte
		)
		if err := rows.Scan(&rec.Company, &rec.Month, &rec.DebtToEquity, &rec.OperatingProfitMargin, &rec.ROCE, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		if len(raw) > 0 {
			var in rawInputs
			if err := json.Unmarshal(raw, &in); err != nil {
				return nil, fmt.Errorf("failed to unmarshal raw inputs: %w", err)
			}
			rec.RawBorrowings = in.Borrowings
			rec.RawEquityShareCapital = in.EquityShareCapital
			rec.RawReserves = in.Reserves
			rec.RawSales = in.Sales
			rec.RawOperatingProfit = in.OperatingProfit
			rec.RawProfitBeforeTax = in.ProfitBeforeTax
			rec.RawInterest = in.Interest
		}
		outcome.Results = append(outcome.Results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return outcome, nil
}

package store

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ratio_screener/pkg/core/pipeline"
	"ratio_screener/pkg/core/ratios"
)

func f(v float64) *float64 { return &v }

func testRepo(t *testing.T) *RatioRepo {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := Open(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, EnsureSchema(ctx, pool))
	return NewRatioRepo(pool)
}

func TestOpen_EmptyURL(t *testing.T) {
	_, err := Open(context.Background(), "")
	assert.Error(t, err)
}

func TestRepo_WithoutPool(t *testing.T) {
	repo := NewRatioRepo(nil)
	_, err := repo.SaveRun(context.Background(), &pipeline.Outcome{})
	assert.Error(t, err)
	_, err = repo.LoadRun(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestRatioRepo_RoundTrip(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	in := &pipeline.Outcome{
		Results: []ratios.Record{
			{Company: "TCS", Month: "Mar 2023", DebtToEquity: f(0.5), OperatingProfitMargin: f(0.2), RawBorrowings: f(100)},
			{Company: "TCS", Month: "Mar 2024", DebtToEquity: f(0.4)},
		},
		Errors: []string{"Ghost: Not found"},
	}
	id, err := repo.SaveRun(ctx, in)
	require.NoError(t, err)

	out, err := repo.LoadRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, in.Errors, out.Errors)
	require.Len(t, out.Results, 2)
	assert.Equal(t, in.Results[0], out.Results[0])
	assert.Nil(t, out.Results[1].ROCE)
	assert.Equal(t, id, *out.RunID)

	_, err = repo.LoadRun(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrRunNotFound)
}

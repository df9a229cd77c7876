package ratios

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ratio_screener/pkg/core/statement"
)

func bsOf(rows ...[]string) *statement.Statement {
	return statement.Normalize(statement.RawTable(rows), statement.KindBalanceSheet)
}

func plOf(rows ...[]string) *statement.Statement {
	return statement.Normalize(statement.RawTable(rows), statement.KindProfitLoss)
}

func standardBS() *statement.Statement {
	return bsOf(
		[]string{"", "Mar 2023"},
		[]string{"Equity Capital", "50"},
		[]string{"Reserves", "150"},
		[]string{"Borrowings", "100"},
	)
}

func standardPL() *statement.Statement {
	return plOf(
		[]string{"", "Mar 2023"},
		[]string{"Sales", "1,000"},
		[]string{"Operating Profit", "200"},
		[]string{"Interest", "20"},
		[]string{"Profit before tax", "80"},
	)
}

func TestDerive_DebtToEquity(t *testing.T) {
	recs := Derive(standardBS(), standardPL(), "Acme")
	require.Len(t, recs, 1)

	r := recs[0]
	assert.Equal(t, "Acme", r.Company)
	assert.Equal(t, "Mar 2023", r.Month)
	require.NotNil(t, r.DebtToEquity)
	assert.InDelta(t, 0.5, *r.DebtToEquity, 1e-9)
}

func TestDerive_MarginFallback(t *testing.T) {
	recs := Derive(standardBS(), standardPL(), "Acme")
	require.Len(t, recs, 1)
	require.NotNil(t, recs[0].OperatingProfitMargin)
	assert.InDelta(t, 0.2, *recs[0].OperatingProfitMargin, 1e-9)
}

func TestDerive_ROCE(t *testing.T) {
	recs := Derive(standardBS(), standardPL(), "Acme")
	require.Len(t, recs, 1)
	require.NotNil(t, recs[0].ROCE)
	assert.InDelta(t, 100.0/300.0, *recs[0].ROCE, 1e-9)
}

func TestDerive_RawFields(t *testing.T) {
	r := Derive(standardBS(), standardPL(), "Acme")[0]

	want := map[string]float64{
		"Raw_Borrowings":           100,
		"Raw_Equity_Share_Capital": 50,
		"Raw_Reserves":             150,
		"Raw_Sales":                1000,
		"Raw_Operating_Profit":     200,
		"Raw_Profit_before_tax":    80,
		"Raw_Interest":             20,
	}
	got := map[string]*float64{
		"Raw_Borrowings":           r.RawBorrowings,
		"Raw_Equity_Share_Capital": r.RawEquityShareCapital,
		"Raw_Reserves":             r.RawReserves,
		"Raw_Sales":                r.RawSales,
		"Raw_Operating_Profit":     r.RawOperatingProfit,
		"Raw_Profit_before_tax":    r.RawProfitBeforeTax,
		"Raw_Interest":             r.RawInterest,
	}
	for k, v := range want {
		require.NotNil(t, got[k], k)
		assert.Equal(t, v, *got[k], k)
	}
}

func TestDerive_PeriodMissingFromProfitLoss(t *testing.T) {
	bs := bsOf(
		[]string{"", "Mar 2022", "Mar 2023"},
		[]string{"Equity Capital", "50", "50"},
		[]string{"Reserves", "150", "150"},
		[]string{"Borrowings", "100", "100"},
	)

	recs := Derive(bs, standardPL(), "Acme")
	require.Len(t, recs, 2)

	first := recs[0]
	assert.Equal(t, "Mar 2022", first.Month)
	require.NotNil(t, first.DebtToEquity)
	assert.InDelta(t, 0.5, *first.DebtToEquity, 1e-9)
	assert.Nil(t, first.OperatingProfitMargin)
	assert.Nil(t, first.ROCE)

	assert.Equal(t, "Mar 2023", recs[1].Month)
	assert.NotNil(t, recs[1].ROCE)
}

func TestDerive_ReportedMargin(t *testing.T) {
	tests := []struct {
		name  string
		label string
		cell  string
		want  float64
	}{
		{"percent without sign", "OPM %", "15", 0.15},
		{"percent with sign", "OPM %", "15%", 0.15},
		{"already a fraction", "OPM %", "0.15", 0.15},
		{"alternate label", "OPM", "22", 0.22},
		{"negative percent", "OPM %", "-12", -0.12},
		{"exactly one", "OPM %", "1", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pl := plOf(
				[]string{"", "Mar 2023"},
				[]string{"Sales", "1000"},
				[]string{"Operating Profit", "999"},
				[]string{tt.label, tt.cell},
			)
			recs := Derive(standardBS(), pl, "Acme")
			require.Len(t, recs, 1)
			require.NotNil(t, recs[0].OperatingProfitMargin)
			assert.InDelta(t, tt.want, *recs[0].OperatingProfitMargin, 1e-9)
		})
	}
}

func TestDerive_ReportedMarginMissingFallsBack(t *testing.T) {
	pl := plOf(
		[]string{"", "Mar 2023"},
		[]string{"Sales", "1000"},
		[]string{"Operating Profit", "250"},
		[]string{"OPM %", ""},
	)
	recs := Derive(standardBS(), pl, "Acme")
	require.Len(t, recs, 1)
	require.NotNil(t, recs[0].OperatingProfitMargin)
	assert.InDelta(t, 0.25, *recs[0].OperatingProfitMargin, 1e-9)
}

func TestDerive_ZeroRevenueGivesNullMargin(t *testing.T) {
	pl := plOf(
		[]string{"", "Mar 2023"},
		[]string{"Revenue", "0"},
		[]string{"Operating Profit", "10"},
	)
	recs := Derive(standardBS(), pl, "Acme")
	require.Len(t, recs, 1)
	assert.Nil(t, recs[0].OperatingProfitMargin)
	assert.Nil(t, recs[0].ROCE, "no EBIT components")
}

func TestDerive_ZeroEquity(t *testing.T) {
	bs := bsOf(
		[]string{"", "Mar 2023"},
		[]string{"Equity Share Capital", "50"},
		[]string{"Reserves", "-50"},
		[]string{"Borrowings", "100"},
	)
	recs := Derive(bs, standardPL(), "Acme")
	require.Len(t, recs, 1)
	assert.Nil(t, recs[0].DebtToEquity)
	require.NotNil(t, recs[0].ROCE)
	assert.InDelta(t, 1.0, *recs[0].ROCE, 1e-9)
}

func TestDerive_NonPositiveCapitalEmployed(t *testing.T) {
	bs := bsOf(
		[]string{"", "Mar 2023"},
		[]string{"Share Capital", "10"},
		[]string{"Reserves", "-200"},
		[]string{"Borrowings", "50"},
	)
	recs := Derive(bs, standardPL(), "Acme")
	require.Len(t, recs, 1)
	assert.Nil(t, recs[0].ROCE)
	require.NotNil(t, recs[0].DebtToEquity)
	assert.InDelta(t, 50.0/-190.0, *recs[0].DebtToEquity, 1e-9)
}

func TestDerive_MissingEquityCellGivesNulls(t *testing.T) {
	bs := bsOf(
		[]string{"", "Mar 2023"},
		[]string{"Equity Capital", "-"},
		[]string{"Reserves", "150"},
		[]string{"Borrowings", "100"},
	)
	recs := Derive(bs, standardPL(), "Acme")
	require.Len(t, recs, 1)
	assert.Nil(t, recs[0].DebtToEquity)
	assert.Nil(t, recs[0].ROCE)
	assert.NotNil(t, recs[0].OperatingProfitMargin)
}

func TestDerive_InfiniteResultIsNull(t *testing.T) {
	bs := bsOf(
		[]string{"", "Mar 2023"},
		[]string{"Equity Capital", "1e-320"},
		[]string{"Reserves", "0"},
		[]string{"Borrowings", "1e308"},
	)
	recs := Derive(bs, standardPL(), "Acme")
	require.Len(t, recs, 1)
	assert.Nil(t, recs[0].DebtToEquity)
}

func TestDeriveWithDiagnostics_SkipsPeriods(t *testing.T) {
	tests := []struct {
		name  string
		bs    *statement.Statement
		pl    *statement.Statement
		field Field
	}{
		{
			name: "no borrowings row",
			bs: bsOf(
				[]string{"", "Mar 2023"},
				[]string{"Equity Capital", "50"},
				[]string{"Reserves", "150"},
			),
			pl:    standardPL(),
			field: FieldDebt,
		},
		{
			name: "borrowings cell missing",
			bs: bsOf(
				[]string{"", "Mar 2023"},
				[]string{"Equity Capital", "50"},
				[]string{"Reserves", "150"},
				[]string{"Borrowings", ""},
			),
			pl:    standardPL(),
			field: FieldDebt,
		},
		{
			name: "no equity row",
			bs: bsOf(
				[]string{"", "Mar 2023"},
				[]string{"Reserves", "150"},
				[]string{"Borrowings", "100"},
			),
			pl:    standardPL(),
			field: FieldEquity,
		},
		{
			name: "no reserves row",
			bs: bsOf(
				[]string{"", "Mar 2023"},
				[]string{"Equity Capital", "50"},
				[]string{"Borrowings", "100"},
			),
			pl:    standardPL(),
			field: FieldReserves,
		},
		{
			name: "no revenue row",
			bs:   standardBS(),
			pl: plOf(
				[]string{"", "Mar 2023"},
				[]string{"Operating Profit", "200"},
			),
			field: FieldRevenue,
		},
		{
			name:  "no profit and loss",
			bs:    standardBS(),
			pl:    nil,
			field: FieldRevenue,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, skips := NewDeriver().DeriveWithDiagnostics(tt.bs, tt.pl, "Acme")
			assert.Empty(t, recs)
			require.Len(t, skips, 1)
			assert.Equal(t, "Mar 2023", skips[0].Period)
			assert.Equal(t, tt.field, skips[0].Field)
		})
	}
}

func TestDerive_SkipDoesNotAbortOtherPeriods(t *testing.T) {
	bs := bsOf(
		[]string{"", "Mar 2021", "Mar 2022", "Mar 2023"},
		[]string{"Equity Capital", "50", "50", "50"},
		[]string{"Reserves", "150", "150", "150"},
		[]string{"Borrowings", "100", "", "100"},
	)
	recs := Derive(bs, standardPL(), "Acme")
	require.Len(t, recs, 2)
	assert.Equal(t, "Mar 2021", recs[0].Month)
	assert.Equal(t, "Mar 2023", recs[1].Month)
}

func TestDerive_RecordCountMatchesPeriods(t *testing.T) {
	bs := bsOf(
		[]string{"", "Mar 2020", "", "Mar 2021", "Mar 2022", "Sep 2022"},
		[]string{"Equity Capital", "1", "1", "1", "1", "1"},
		[]string{"Reserves", "1", "1", "1", "1", "1"},
		[]string{"Borrowings", "1", "1", "1", "1", "1"},
	)
	recs := Derive(bs, standardPL(), "Acme")

	months := make([]string, 0, len(recs))
	for _, r := range recs {
		months = append(months, r.Month)
	}
	assert.Equal(t, []string{"Mar 2020", "Mar 2021", "Mar 2022", "Sep 2022"}, months)
}

func TestDerive_NilBalanceSheet(t *testing.T) {
	assert.Empty(t, Derive(nil, standardPL(), "Acme"))
}

func TestRecord_JSONFieldNames(t *testing.T) {
	r := Derive(standardBS(), plOf(
		[]string{"", "Mar 2023"},
		[]string{"Sales", "0"},
		[]string{"Operating Profit", "1"},
	), "Acme")[0]

	b, err := json.Marshal(r)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, "Acme", m["Company"])
	assert.Equal(t, "Mar 2023", m["Month"])
	assert.Contains(t, m, "Operating_Profit_Margin")
	assert.Nil(t, m["Operating_Profit_Margin"])
	assert.Contains(t, m, "ROCE")
	assert.InDelta(t, 0.5, m["Debt_to_Equity"], 1e-9)
	assert.NotContains(t, m, "Raw_Interest")
}

func TestSynonyms_Resolve(t *testing.T) {
	bs := bsOf(
		[]string{"", "Mar 2023"},
		[]string{"Share Capital", "1"},
		[]string{"Equity Share Capital", "2"},
	)
	key, ok := DefaultLineItems.Equity.Resolve(bs)
	require.True(t, ok)
	assert.Equal(t, "Equity Share Capital", key)

	_, ok = Synonyms{"Nope"}.Resolve(bs)
	assert.False(t, ok)
	_, ok = DefaultLineItems.Equity.Resolve(nil)
	assert.False(t, ok)
}

package macro

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "dessertcpi/internal/errors"
	"dessertcpi/internal/frame"
)

func TestParseDateLabel(t *testing.T) {
	tests := []struct {
		label   string
		want    Month
		wantErr bool
	}{
		{label: "2017.01", want: Month{2017, 1}},
		{label: "2017.010", want: Month{2017, 1}},
		{label: "2018.07", want: Month{2018, 7}},
		{label: " 2019. 12 ", want: Month{2019, 12}},
		{label: "2020년 03월", want: Month{2020, 3}},
		{label: "2017.1", wantErr: true},
		{label: "시도별", wantErr: true},
		{label: "2017.13", wantErr: true},
		{label: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, err := ParseDateLabel(tt.label)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, apperrors.ErrMalformedDate))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSheet_Level(t *testing.T) {
	rows := [][]string{
		{"시도별", "2021.01", "2021.02", "bad", "2021.04"},
		{"전국", "100.5", "", "99", "1,101.0"},
	}

	res := ParseSheet(rows, LevelLayout)
	assert.Equal(t, []string{"bad"}, res.Malformed)
	assert.Equal(t, []Observation{
		{Month{2021, 1}, 100.5},
		{Month{2021, 4}, 1101.0},
	}, res.Observations)
}

func TestParseSheet_MoMTriplets(t *testing.T) {
	rows := [][]string{
		{"지수종류", "2021.01", "2021.01", "2021.01", "2021.02", "2021.02", "2021.02", "2021.03"},
		{"지수종류", "전월비", "전년동월비", "전년누계비", "전월비", "전년동월비", "전년누계비", "전월비"},
		{"총지수", "0.6", "0.9", "0.9", "-0.1", "1.1", "1.0", "0.2"},
	}

	res := ParseSheet(rows, MoMLayout)
	assert.Empty(t, res.Malformed)
	assert.Equal(t, []Observation{
		{Month{2021, 1}, 0.6},
		{Month{2021, 2}, -0.1},
	}, res.Observations, "the trailing partial triplet is ignored")
}

func TestParseSheet_TooFewRows(t *testing.T) {
	assert.Empty(t, ParseSheet([][]string{{"x", "2021.01"}}, LevelLayout).Observations)
	assert.Empty(t, ParseSheet(nil, MoMLayout).Observations)
}

func monthly(year int, values []float64) []Observation {
	obs := make([]Observation, len(values))
	for i, v := range values {
		obs[i] = Observation{Month: Month{year + i/12, i%12 + 1}, Value: v}
	}
	return obs
}

func TestResample_Mean(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	q := Resample(monthly(2021, values), AggMean)

	require.Len(t, q, 4)
	for i, want := range []float64{2, 5, 8, 11} {
		assert.Equal(t, frame.Period{Year: 2021, Quarter: i + 1}, q[i].Period)
		assert.InDelta(t, want, q[i].Value, 1e-12)
	}
}

func TestResample_LastAndGaps(t *testing.T) {
	obs := []Observation{
		{Month{2021, 2}, 5},
		{Month{2021, 1}, 4},
		{Month{2021, 8}, 7},
	}
	q := Resample(obs, AggLast)

	require.Len(t, q, 3)
	assert.Equal(t, 5.0, q[0].Value)
	assert.True(t, math.IsNaN(q[1].Value), "quarter without observations inside the span")
	assert.Equal(t, 7.0, q[2].Value)

	assert.Nil(t, Resample(nil, AggMean))
}

func TestParseAggregation(t *testing.T) {
	agg, err := ParseAggregation("last")
	require.NoError(t, err)
	assert.Equal(t, AggLast, agg)

	agg, err = ParseAggregation("")
	require.NoError(t, err)
	assert.Equal(t, AggMean, agg)

	_, err = ParseAggregation("median")
	assert.Error(t, err)
}

func TestNewTable_QoQAndYoY(t *testing.T) {
	var values []float64
	for i := 0; i < 24; i++ {
		values = append(values, 100+float64(i))
	}
	cpi := Resample(monthly(2020, values), AggMean)
	table, err := NewTable(map[string][]QuarterValue{ColCPI: cpi}, []string{ColCPI, ColInflationMoM, ColExpected})
	require.NoError(t, err)

	require.Equal(t, 8, table.Len())
	assert.Equal(t, []string{ColCPI, ColCPIQoQ, ColCPIYoY}, table.Columns())

	periods := table.Periods()
	for i, p := range periods {
		level := table.Value(ColCPI, p)
		qoq := table.Value(ColCPIQoQ, p)
		yoy := table.Value(ColCPIYoY, p)
		if i < 1 {
			assert.True(t, math.IsNaN(qoq))
		} else {
			assert.InDelta(t, level/table.Value(ColCPI, periods[i-1])-1, qoq, 1e-12)
		}
		if i < 4 {
			assert.True(t, math.IsNaN(yoy), "yoy undefined for quarter %d", i)
		} else {
			assert.InDelta(t, level/table.Value(ColCPI, periods[i-4])-1, yoy, 1e-12)
		}
	}
}

func TestNewTable_OuterJoin(t *testing.T) {
	mom := []QuarterValue{{frame.Period{Year: 2021, Quarter: 1}, 0.3}, {frame.Period{Year: 2021, Quarter: 2}, 0.2}}
	exp := []QuarterValue{{frame.Period{Year: 2021, Quarter: 2}, 2.5}, {frame.Period{Year: 2021, Quarter: 3}, 2.6}}

	table, err := NewTable(map[string][]QuarterValue{ColInflationMoM: mom, ColExpected: exp},
		[]string{ColCPI, ColInflationMoM, ColExpected})
	require.NoError(t, err)

	assert.Equal(t, 3, table.Len())
	assert.False(t, table.Has(ColCPIQoQ), "qoq only exists with the price level")
	assert.True(t, math.IsNaN(table.Value(ColExpected, frame.Period{Year: 2021, Quarter: 1})))
	assert.True(t, math.IsNaN(table.Value(ColInflationMoM, frame.Period{Year: 2021, Quarter: 3})))
	assert.Equal(t, 2.5, table.Value(ColExpected, frame.Period{Year: 2021, Quarter: 2}))
	assert.True(t, math.IsNaN(table.Value(ColExpected, frame.Period{Year: 1999, Quarter: 1})))
}

func TestNewTable_NoSeriesIsEmptyButTyped(t *testing.T) {
	table, err := NewTable(nil, []string{ColCPI})
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
	assert.True(t, table.Has(ColCPI))
	assert.True(t, table.Has(ColExpected))
}

func writeWorkbook(t *testing.T, path string, rows [][]interface{}) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
}

func levelWorkbookRows(start int, values []float64) [][]interface{} {
	header := []interface{}{"시도별"}
	data := []interface{}{"전국"}
	for i, v := range values {
		header = append(header, fmt.Sprintf("%d.%02d", start+i/12, i%12+1))
		data = append(data, v)
	}
	return [][]interface{}{header, data}
}

func TestNormalizer_Build(t *testing.T) {
	dir := t.TempDir()
	cpiPath := filepath.Join(dir, "cpi.xlsx")
	values := make([]float64, 24)
	for i := range values {
		values[i] = 100 + float64(i)
	}
	writeWorkbook(t, cpiPath, levelWorkbookRows(2020, values))

	momPath := filepath.Join(dir, "mom.xlsx")
	writeWorkbook(t, momPath, [][]interface{}{
		{"지수종류", "2020.01", "2020.01", "2020.01", "2020.02", "2020.02", "2020.02"},
		{"지수종류", "전월비", "전년동월비", "전년누계비", "전월비", "전년동월비", "전년누계비"},
		{"총지수", 0.4, 1.5, 1.5, 0.2, 1.1, 1.3},
	})

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	n := NewNormalizer(AggMean, logger).WithFallbackDirs()

	table, err := n.Build(context.Background(), Sources{
		CPI:      cpiPath,
		MoM:      momPath,
		Expected: filepath.Join(dir, "missing.xlsx"),
	})
	require.NoError(t, err)

	assert.Equal(t, 8, table.Len())
	assert.True(t, table.Has(ColCPIYoY))
	assert.True(t, table.Has(ColInflationMoM))
	assert.False(t, table.Has(ColExpected))
	assert.InDelta(t, 0.3, table.Value(ColInflationMoM, frame.Period{Year: 2020, Quarter: 1}), 1e-12)
	assert.InDelta(t, 101.0, table.Value(ColCPI, frame.Period{Year: 2020, Quarter: 1}), 1e-12)
	assert.Contains(t, logs.String(), "missing_optional_source")
}

func TestNormalizer_BuildNothingPresent(t *testing.T) {
	n := NewNormalizer(AggLast, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))).WithFallbackDirs()
	table, err := n.Build(context.Background(), Sources{})
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
}

func TestNormalizer_BuildCorruptWorkbook(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cpi.xlsx")
	require.NoError(t, writeFile(path, "not a zip"))

	n := NewNormalizer(AggMean, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))).WithFallbackDirs()
	_, err := n.Build(context.Background(), Sources{CPI: path})
	assert.Error(t, err)
}

func TestResolvePath_Fallback(t *testing.T) {
	primary := t.TempDir()
	fallback := t.TempDir()
	require.NoError(t, writeFile(filepath.Join(fallback, "cpi.xlsx"), "x"))

	missing := filepath.Join(primary, "cpi.xlsx")
	assert.Equal(t, filepath.Join(fallback, "cpi.xlsx"), ResolvePath(missing, []string{fallback}))
	assert.Equal(t, filepath.Join(primary, "other.xlsx"), ResolvePath(filepath.Join(primary, "other.xlsx"), []string{fallback}))
	assert.Equal(t, "", ResolvePath("", []string{fallback}))
}

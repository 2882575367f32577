package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"dessertcpi/internal/config"
	apperrors "dessertcpi/internal/errors"
	"dessertcpi/internal/evaluation"
	"dessertcpi/internal/features"
	"dessertcpi/internal/frame"
	"dessertcpi/internal/shared/testutil"
	"dessertcpi/internal/split"
)

func noop(rows int) RunFunc {
	return func(context.Context, *RunState) (int, error) { return rows, nil }
}

func fail(err error) RunFunc {
	return func(context.Context, *RunState) (int, error) { return 0, err }
}

func registryOf(t *testing.T, stages ...Stage) *Registry {
	t.Helper()
	r := NewRegistry()
	for _, s := range stages {
		require.NoError(t, r.Register(s))
	}
	return r
}

func ids(stages []Stage) []string {
	out := make([]string, len(stages))
	for i, s := range stages {
		out[i] = s.ID()
	}
	return out
}

func TestRegistry_DependencyOrder(t *testing.T) {
	r := registryOf(t,
		NewStage("report", "Report", []string{"fit", "load"}, noop(0)),
		NewStage("load", "Load", nil, noop(0)),
		NewStage("fit", "Fit", []string{"load"}, noop(0)),
		NewStage("lint", "Lint", nil, noop(0)),
	)

	order, err := r.DependencyOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"load", "lint", "fit", "report"}, ids(order))

	plan, err := r.Plan("fit")
	require.NoError(t, err)
	assert.Equal(t, []string{"load", "fit"}, ids(plan))

	_, err = r.Plan("missing")
	assert.Error(t, err)

	assert.Error(t, r.Register(NewStage("load", "again", nil, noop(0))))
	assert.Error(t, r.Register(nil))
}

func TestRegistry_Cycle(t *testing.T) {
	r := registryOf(t,
		NewStage("a", "A", []string{"b"}, noop(0)),
		NewStage("b", "B", []string{"a"}, noop(0)),
	)
	_, err := r.DependencyOrder()
	assert.ErrorContains(t, err, "cycle")

	r = registryOf(t, NewStage("a", "A", []string{"ghost"}, noop(0)))
	_, err = r.DependencyOrder()
	assert.ErrorContains(t, err, "non-existent")
}

func TestRunner_SoftErrorSkipsDependents(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	r := registryOf(t,
		NewStage("load", "Load", nil, noop(10)),
		NewStage("fit", "Fit", []string{"load"}, fail(apperrors.NewInsufficientDataError("fit", 3, 50))),
		NewStage("report", "Report", []string{"fit"}, noop(1)),
		NewStage("vif", "VIF", []string{"load"}, noop(4)),
	)

	state := NewRunState("run-1")
	require.NoError(t, NewRunner(r, nil, logger).Run(context.Background(), state))

	assert.Equal(t, RunStatusCompleted, state.Status)
	assert.Equal(t, StageStatusCompleted, state.StageStatus("load"))
	assert.Equal(t, StageStatusSkipped, state.StageStatus("fit"))
	assert.Equal(t, StageStatusSkipped, state.StageStatus("report"))
	assert.Equal(t, StageStatusCompleted, state.StageStatus("vif"))
	assert.True(t, logs.HasCondition("insufficient_data"))

	var rows []int
	for _, st := range state.Stages() {
		rows = append(rows, st.Rows)
	}
	assert.Equal(t, []int{10, 0, 0, 4}, rows)
}

func TestRunner_FatalErrorStops(t *testing.T) {
	ran := false
	r := registryOf(t,
		NewStage("load", "Load", nil, fail(apperrors.NewMissingSourceError("/raw", nil))),
		NewStage("other", "Other", nil, func(context.Context, *RunState) (int, error) {
			ran = true
			return 0, nil
		}),
	)

	state := NewRunState("run-2")
	err := NewRunner(r, nil, nil).Run(context.Background(), state)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrMissingSource)
	assert.False(t, ran)
	assert.Equal(t, RunStatusFailed, state.Status)
	assert.Equal(t, StageStatusFailed, state.StageStatus("load"))
}

func TestRunner_Cancelled(t *testing.T) {
	r := registryOf(t, NewStage("load", "Load", nil, noop(1)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state := NewRunState("run-3")
	err := NewRunner(r, nil, nil).Run(ctx, state)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestIsSoft(t *testing.T) {
	assert.False(t, IsSoft(fmt.Errorf("stage: %w", apperrors.NewEstimationFailedError("fe", nil))))
	assert.True(t, IsSoft(fmt.Errorf("wrap: %w", apperrors.NewNumericalError("singular", nil))))
	assert.True(t, IsSoft(apperrors.NewMissingDependencyError("xgboost")))
	assert.False(t, IsSoft(apperrors.NewLeakageError("target", []string{"dessert_ratio"})))
	assert.False(t, IsSoft(errors.New("plain")))
}

// writeFixture lays out six districts of quarterly raw sales for 2019 to
// 2024 and monthly CPI and expected inflation workbooks from 2018.
func writeFixture(t *testing.T, base string) {
	t.Helper()
	raw := filepath.Join(base, "data", "raw")
	macroDir := filepath.Join(base, "data", "macro")
	require.NoError(t, os.MkdirAll(raw, 0755))
	require.NoError(t, os.MkdirAll(macroDir, 0755))

	for year := 2019; year <= 2024; year++ {
		var b strings.Builder
		b.WriteString("기준_년분기_코드,행정동_코드,서비스_업종_코드,서비스_업종_코드_명,당월_매출_금액,당월_매출_건수\n")
		for q := 1; q <= 4; q++ {
			i := float64((year-2019)*4 + q)
			for d := 1; d <= 6; d++ {
				dessert := 1000 * (1 + 0.3*math.Sin(1.7*i+float64(d)) + 0.05*float64(d))
				other := 4000 * (1 + 0.2*math.Cos(0.9*i+2*float64(d)))
				fmt.Fprintf(&b, "%d%d,%d,CS1,제과점,%.0f,10\n", year, q, 1100+d, dessert)
				fmt.Fprintf(&b, "%d%d,%d,CS2,한식음식점,%.0f,30\n", year, q, 1100+d, other)
			}
		}
		require.NoError(t, os.WriteFile(filepath.Join(raw, fmt.Sprintf("sales_%d.csv", year)), []byte(b.String()), 0644))
	}

	level := func(path string, start, value, step float64) {
		f := excelize.NewFile()
		defer f.Close()
		header := []interface{}{"시도별"}
		data := []interface{}{"전국"}
		for m := 0; m < 7*12; m++ {
			header = append(header, fmt.Sprintf("%d.%02d", 2018+m/12, m%12+1))
			data = append(data, value+step*float64(m)+0.4*math.Sin(float64(m)*start))
		}
		require.NoError(t, f.SetSheetRow("Sheet1", "A1", &header))
		require.NoError(t, f.SetSheetRow("Sheet1", "A2", &data))
		require.NoError(t, f.SaveAs(path))
	}
	level(filepath.Join(macroDir, config.DefaultCPIFile), 0.7, 100, 0.25)
	level(filepath.Join(macroDir, config.DefaultExpectedFile), 1.3, 2.5, 0.01)
}

func TestDefaultStages_EndToEnd(t *testing.T) {
	base := t.TempDir()
	writeFixture(t, base)

	cfg := config.Default()
	cfg.Paths.BaseDir = base
	paths, err := cfg.ResolvePaths()
	require.NoError(t, err)

	logger, logs := testutil.NewTestLogger(t)
	reg, err := NewDefaultRegistry(Environment{
		Config:            cfg,
		Paths:             paths,
		Logger:            logger,
		MacroFallbackDirs: []string{},
	})
	require.NoError(t, err)

	state := NewRunState("e2e")
	require.NoError(t, NewRunner(reg, nil, logger).Run(context.Background(), state))
	testutil.AssertNoErrors(t, logs)

	for _, id := range []string{StageExportDataset, StageCompare, StageRolling, StageCorrelation, StageExportMacro} {
		assert.Equal(t, StageStatusCompleted, state.StageStatus(id), id)
	}
	assert.True(t, logs.HasCondition("missing_optional_source"), "MoM workbook is absent")

	for _, p := range []string{
		paths.MLReadyCSV, paths.MacroQuarterlyCSV, paths.ComparisonCSV,
		paths.RollingBaselineCSV, paths.RollingFullCSV,
		paths.CorrelationCSV, paths.MergedQuarterlyCSV,
	} {
		assert.FileExists(t, p)
	}

	assert.Equal(t, 6*24, state.Features.Len())
	require.NotNil(t, state.Comparison)
	models := map[string]bool{}
	for _, r := range state.Comparison.Rows {
		models[r.Model] = true
	}
	assert.True(t, models[evaluation.ModelBaseline])
	assert.True(t, models[evaluation.ModelFullOLS])

	require.Len(t, state.Rolling, 2)
	for _, tbl := range state.Rolling {
		for _, row := range tbl.Folds() {
			assert.Greater(t, row.TestYear, row.TrainYears[len(row.TrainYears)-1])
		}
	}
}

func TestDefaultStages_MacroOnly(t *testing.T) {
	base := t.TempDir()
	writeFixture(t, base)
	require.NoError(t, os.RemoveAll(filepath.Join(base, "data", "raw")))

	cfg := config.Default()
	cfg.Paths.BaseDir = base
	paths, err := cfg.ResolvePaths()
	require.NoError(t, err)

	reg, err := NewDefaultRegistry(Environment{Config: cfg, Paths: paths, MacroFallbackDirs: []string{}})
	require.NoError(t, err)

	state := NewRunState("macro")
	require.NoError(t, NewRunner(reg, nil, nil).Run(context.Background(), state, StageExportMacro))
	assert.FileExists(t, paths.MacroQuarterlyCSV)
	assert.Equal(t, StageStatusPending, state.StageStatus(StageLoadSales))

	// The full plan needs the raw directory.
	err = NewRunner(reg, nil, nil).Run(context.Background(), NewRunState("full"))
	assert.ErrorIs(t, err, apperrors.ErrMissingSource)
}

func TestDescribe(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.BaseDir = t.TempDir()
	paths, err := cfg.ResolvePaths()
	require.NoError(t, err)
	reg, err := NewDefaultRegistry(Environment{Config: cfg, Paths: paths})
	require.NoError(t, err)

	lines, err := Describe(reg, StageCorrelation)
	require.NoError(t, err)
	require.NotEmpty(t, lines)
	assert.True(t, strings.HasPrefix(lines[len(lines)-1], StageCorrelation))
	assert.True(t, strings.HasPrefix(lines[0], StagePreflight))
}

func TestPrepareFold_BoundsSeeOnlyFoldTrainingYears(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	f := testutil.BuildPanel(t, testutil.PanelSpec{
		Entities: []string{"A", "B"},
		Start:    frame.Period{Year: 2019, Quarter: 1},
		Quarters: 16,
		Fill: func(e string, i int, p frame.Period) testutil.Row {
			ratio := 0.2 + 0.01*float64(i%5)
			if e == "B" {
				ratio += 0.05
			}
			if p.Year == 2022 {
				ratio = 0.9
			}
			return testutil.Row{features.ColDessertRatio: ratio, features.ColInflationRate: 0.01 * float64(i%3)}
		},
	})

	clipper := split.NewClipper([]string{features.ColDessertRatio}, 1.5, split.ScopeTrain, logger)
	shocks := features.NewShockConstructor(4, logger)

	out, err := prepareFold(context.Background(), clipper, shocks, f, 2021)
	require.NoError(t, err)

	want, err := split.FitClipBounds(split.TimeSplit(f, 2021).Train, []string{features.ColDessertRatio}, 1.5)
	require.NoError(t, err)
	require.Len(t, want, 1)

	i, ok := out.Lookup(frame.NewKey("A", 2022, 2))
	require.True(t, ok)
	assert.Equal(t, want[0].Upper, out.Value(features.ColDessertRatio, i))
	assert.Less(t, want[0].Upper, 0.9, "later years do not widen the fold's bounds")
	assert.True(t, out.Has(features.ColTargetDelta))
	assert.True(t, out.Has(features.ColInflShockMALag1))

	orig, _ := f.Lookup(frame.NewKey("A", 2022, 2))
	assert.Equal(t, 0.9, f.Value(features.ColDessertRatio, orig), "input frame is not modified")
}

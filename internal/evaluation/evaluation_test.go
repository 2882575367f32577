package evaluation

import (
	"context"
	"fmt"
	"errors"
	"math"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	apperrors "dessertcpi/internal/errors"
	"dessertcpi/internal/features"
	"dessertcpi/internal/fixedeffects"
	"dessertcpi/internal/frame"
	"dessertcpi/internal/shared/testutil"
	"dessertcpi/internal/split"
)

const target = features.ColTargetDelta

func TestEvaluate(t *testing.T) {
	s, err := Evaluate([]float64{1, 2, 3, 4}, []float64{1, 2, 3, 6})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, s.RMSE, 1e-12)
	assert.InDelta(t, 0.5, s.MAE, 1e-12)
	assert.InDelta(t, 1-4.0/5.0, s.R2, 1e-12)
	assert.Equal(t, 4, s.N)

	s, err = Evaluate([]float64{2, 2}, []float64{2, 2})
	require.NoError(t, err)
	assert.Equal(t, 1.0, s.R2)

	s, err = Evaluate([]float64{2, 2}, []float64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.R2)

	_, err = Evaluate(nil, nil)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientData)
	_, err = Evaluate([]float64{1}, []float64{1, 2})
	assert.Error(t, err)
}

func TestLookup(t *testing.T) {
	f, err := Lookup(Linear)
	require.NoError(t, err)
	assert.Equal(t, Linear, f().Name())

	_, err = Lookup(XGBoost)
	assert.ErrorIs(t, err, apperrors.ErrMissingDependency)
	_, err = Lookup("quantum")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Equal(t, []string{Linear, Ridge}, Families())
}

func TestRidge_ZeroPenaltyMatchesOLS(t *testing.T) {
	n := 20
	x := mat.NewDense(n, 2, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		a, b := float64(i), math.Sin(float64(i))
		x.Set(i, 0, a)
		x.Set(i, 1, b)
		y[i] = 3 + 0.2*a - b + 0.05*math.Cos(float64(3*i))
	}
	ctx := context.Background()

	ols := &OLS{}
	require.NoError(t, ols.Fit(ctx, x, y))
	ridge := &RidgeRegression{Alpha: 0}
	require.NoError(t, ridge.Fit(ctx, x, y))

	po, err := ols.Predict(x)
	require.NoError(t, err)
	pr, err := ridge.Predict(x)
	require.NoError(t, err)
	assert.InDeltaSlice(t, po, pr, 1e-8)

	shrunk := &RidgeRegression{Alpha: 100}
	require.NoError(t, shrunk.Fit(ctx, x, y))
	assert.Less(t, math.Abs(shrunk.coef[1]), math.Abs(ols.Coefficients()[2]))

	_, err = (&OLS{}).Predict(x)
	assert.Error(t, err)
}

// yearPanel spans 2020..2024 with a target linear in lag4_ratio and a
// shock column.
func yearPanel(t *testing.T, districts int) *frame.Frame {
	names := make([]string, districts)
	for i := range names {
		names[i] = fmt.Sprintf("D%02d", i)
	}
	return testutil.BuildPanel(t, testutil.PanelSpec{
		Entities: names,
		Start:    frame.Period{Year: 2020, Quarter: 1},
		Quarters: 20,
		Fill: func(e string, i int, p frame.Period) testutil.Row {
			var id int
			fmt.Sscanf(e, "D%d", &id)
			x := math.Sin(float64(i*5 + id))
			shock := math.Cos(float64(p.Index()) / 3)
			_, sin, cos := features.SeasonalEncoding(p.Quarter)
			return testutil.Row{
				features.ColLag4Ratio:   x,
				features.ColGrowth:      0.1 * math.Cos(float64(i+id)),
				features.ColMonthSin:    sin,
				features.ColMonthCos:    cos,
				features.ColInflShockMA: shock,
				target:                  0.02*float64(id) + 0.3*x - 0.1*shock + 0.01*math.Sin(float64(7*i+id)),
			}
		},
	})
}

func specs() []ModelSpec {
	return []ModelSpec{
		{Name: ModelBaseline, Features: features.FEBase, Factory: catalog[Linear]},
		{Name: ModelFullLR, Features: append(append([]string(nil), features.FEBase...), features.ShockDefault...), Factory: catalog[Linear]},
	}
}

func TestRollingValidator_FiveYearsFourFolds(t *testing.T) {
	f := yearPanel(t, 3)
	tables, err := NewRollingValidator(target, specs(), 10, 1, nil).Run(context.Background(), f)
	require.NoError(t, err)
	require.Len(t, tables, 2)

	for _, tbl := range tables {
		folds := tbl.Folds()
		require.Len(t, folds, 4, tbl.Model)
		for i, fd := range folds {
			assert.Equal(t, 2021+i, fd.TestYear)
			assert.Equal(t, fmt.Sprint(2021+i), fd.Label)
			want := []int{}
			for y := 2020; y < fd.TestYear; y++ {
				want = append(want, y)
			}
			assert.Equal(t, want, fd.TrainYears)
			assert.Equal(t, 12, fd.TestRows)
			assert.Equal(t, 12*len(want), fd.TrainRows)
		}

		require.Len(t, tbl.Rows, 6, "four folds plus mean and std")
		assert.Equal(t, LabelMean, tbl.Rows[4].Label)
		assert.Equal(t, LabelStd, tbl.Rows[5].Label)

		mean, ok := tbl.Summary(LabelMean)
		require.True(t, ok)
		var sum float64
		for _, fd := range folds {
			sum += fd.RMSE
		}
		assert.InDelta(t, sum/4, mean.RMSE, 1e-12)
		std, _ := tbl.Summary(LabelStd)
		assert.GreaterOrEqual(t, std.RMSE, 0.0)
	}
}

func TestRollingValidator_SkipsThinFolds(t *testing.T) {
	logger, h := testutil.NewTestLogger(t)
	f := yearPanel(t, 2)
	// 2 districts x 4 quarters = 8 training rows in the first fold.
	tables, err := NewRollingValidator(target, specs()[:1], 10, 1, logger).Run(context.Background(), f)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	folds := tables[0].Folds()
	require.Len(t, folds, 3)
	assert.Equal(t, 2022, folds[0].TestYear)

	tables, err = NewRollingValidator(target, specs()[:1], 1000, 1, logger).Run(context.Background(), f)
	require.NoError(t, err)
	assert.Empty(t, tables)
	testutil.AssertCondition(t, h, "insufficient_data")
}

func TestComparison_ScoresAllModels(t *testing.T) {
	f := yearPanel(t, 6)
	s := split.TimeSplit(f, 2024)
	feOpts := fixedeffects.DefaultOptions()

	c := NewComparison(target,
		features.BaselineFeatures(f.Schema()),
		features.FullFeatures(f.Schema()),
		feOpts, 10, 10, nil)
	res, err := c.Run(context.Background(), s)
	require.NoError(t, err)
	require.NotNil(t, res.FE)

	names := make([]string, len(res.Rows))
	for i, r := range res.Rows {
		names[i] = r.Model
		assert.Equal(t, 24, r.TestRows, r.Model)
	}
	assert.Equal(t, []string{ModelBaseline, ModelFullOLS, ModelFullFE}, names)
	assert.Contains(t, res.Rows[1].Features, features.ColInflShockMA)
	assert.NotContains(t, res.Rows[0].Features, features.ColInflShockMA)
	assert.Less(t, res.Rows[2].RMSE, res.Rows[0].RMSE, "district effects explain the level shift")
}

func TestComparison_FEUnavailable(t *testing.T) {
	logger, h := testutil.NewTestLogger(t)
	f := yearPanel(t, 1)
	s := split.TimeSplit(f, 2024)

	res, err := NewComparison(target, features.FEBase, features.FEBase,
		fixedeffects.DefaultOptions(), 10, 10, logger).Run(context.Background(), s)
	require.NoError(t, err)
	assert.Nil(t, res.FE, "16 training rows are below the fixed-effects floor")
	require.Len(t, res.Rows, 2)
	testutil.AssertCondition(t, h, "insufficient_data")
}

func TestRunSuite_SkipsUnavailableFamilies(t *testing.T) {
	logger, h := testutil.NewTestLogger(t)
	f := yearPanel(t, 3)
	s := split.TimeSplit(f, 2024)

	rows, err := RunSuite(context.Background(),
		[]string{Linear, RandomForest, Ridge, XGBoost},
		s, features.FEBase, target, logger)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Linear, rows[0].Model)
	assert.Equal(t, Ridge, rows[1].Model)
	testutil.AssertCondition(t, h, "missing_optional_dependency")

	_, err = RunSuite(context.Background(), []string{"bogus"}, s, features.FEBase, target, nil)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestPrepare_RejectsLeakingFeatures(t *testing.T) {
	f := yearPanel(t, 3)
	s := split.TimeSplit(f, 2024)
	leaky := append(append([]string(nil), features.FEBase...), features.ColDessertRatio, target)

	d, err := Prepare(s.Train, features.FEBase, target)
	require.NoError(t, err)
	assert.Positive(t, d.Len())

	_, err = Prepare(s.Train, leaky, target)
	assert.ErrorIs(t, err, apperrors.ErrLeakage)

	_, err = RunSuite(context.Background(), []string{Linear}, s, leaky, target, nil)
	assert.ErrorIs(t, err, apperrors.ErrLeakage)

	_, err = NewComparison(target, leaky, leaky, fixedeffects.DefaultOptions(), 10, 10, nil).
		Run(context.Background(), s)
	assert.ErrorIs(t, err, apperrors.ErrLeakage)

	leakySpec := []ModelSpec{{Name: ModelBaseline, Features: leaky, Factory: catalog[Linear]}}
	_, err = NewRollingValidator(target, leakySpec, 10, 1, nil).Run(context.Background(), f)
	assert.ErrorIs(t, err, apperrors.ErrLeakage)
}

func TestComparison_FEFailureAfterFallbackAborts(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	names := make([]string, 50)
	for i := range names {
		names[i] = fmt.Sprintf("D%02d", i)
	}
	// 2023Q4 is the only training quarter, one row per district.
	f := testutil.BuildPanel(t, testutil.PanelSpec{
		Entities: names,
		Start:    frame.Period{Year: 2023, Quarter: 4},
		Quarters: 5,
		Fill: func(e string, i int, _ frame.Period) testutil.Row {
			var id int
			fmt.Sscanf(e, "D%d", &id)
			x := math.Sin(float64(i*5 + id))
			return testutil.Row{
				features.ColLag4Ratio: x,
				target:                0.02*float64(id) + 0.3*x,
			}
		},
	})
	s := split.TimeSplit(f, 2024)
	feOpts := fixedeffects.DefaultOptions()
	feOpts.CovType = "cluster"

	_, err := NewComparison(target, features.FEBase, features.FEBase, feOpts, 10, 10, logger).
		Run(context.Background(), s)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrEstimationFailed)
	assert.False(t, isSoft(err))
}

func TestRollingValidator_FoldPrepRunsPerFold(t *testing.T) {
	f := yearPanel(t, 3)

	var mu sync.Mutex
	var seen []int
	v := NewRollingValidator(target, specs()[:1], 10, 1, nil).
		WithFoldPrep(func(_ context.Context, in *frame.Frame, fd split.Fold) (*frame.Frame, error) {
			mu.Lock()
			seen = append(seen, fd.TestYear)
			mu.Unlock()
			// Drop the test year so every fold is skipped for lack of test rows.
			return in.Filter(func(_ int, k frame.Key) bool { return k.Year != fd.TestYear }), nil
		})
	tables, err := v.Run(context.Background(), f)
	require.NoError(t, err)
	assert.Empty(t, tables, "folds are evaluated on the prepared frame")

	sort.Ints(seen)
	assert.Equal(t, []int{2021, 2022, 2023, 2024}, seen)

	boom := errors.New("boom")
	_, err = NewRollingValidator(target, specs()[:1], 10, 1, nil).
		WithFoldPrep(func(context.Context, *frame.Frame, split.Fold) (*frame.Frame, error) { return nil, boom }).
		Run(context.Background(), f)
	assert.ErrorIs(t, err, boom)
}

package split

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "dessertcpi/internal/errors"
	"dessertcpi/internal/frame"
	"dessertcpi/internal/shared/testutil"
)

// yearlyPanel has one district with quarters 2020Q1..2024Q4 and x = 1..20.
func yearlyPanel(t *testing.T) *frame.Frame {
	return testutil.BuildPanel(t, testutil.PanelSpec{
		Entities: []string{"A"},
		Start:    frame.Period{Year: 2020, Quarter: 1},
		Quarters: 20,
		Fill: func(_ string, i int, _ frame.Period) testutil.Row {
			return testutil.Row{"x": float64(i + 1)}
		},
	})
}

func TestTimeSplit(t *testing.T) {
	f := yearlyPanel(t)
	s := TimeSplit(f, 2024)

	assert.Equal(t, 16, s.Train.Len())
	assert.Equal(t, 4, s.Test.Len())
	assert.Equal(t, []int{2020, 2021, 2022, 2023}, s.Train.Years())
	assert.Equal(t, []int{2024}, s.Test.Years())

	empty := TimeSplit(f, 2019)
	assert.Equal(t, 0, empty.Train.Len())
	assert.Equal(t, 20, empty.Test.Len())
}

func TestExpandingFolds(t *testing.T) {
	folds := ExpandingFolds([]int{2020, 2021, 2022, 2023, 2024})
	require.Len(t, folds, 4)
	for i, fd := range folds {
		assert.Equal(t, 2021+i, fd.TestYear)
		assert.Len(t, fd.TrainYears, i+1)
		for _, y := range fd.TrainYears {
			assert.Less(t, y, fd.TestYear)
		}
	}

	s := folds[2].Apply(yearlyPanel(t))
	assert.Equal(t, []int{2020, 2021, 2022}, s.Train.Years())
	assert.Equal(t, []int{2023}, s.Test.Years())

	assert.Empty(t, ExpandingFolds([]int{2020}))
}

func TestFitBounds(t *testing.T) {
	b, err := FitBounds([]float64{8, 1, 7, 2, math.NaN(), 6, 3, 5, 4}, "x", 1.5)
	require.NoError(t, err)
	assert.InDelta(t, 2.75, b.Q1, 1e-12)
	assert.InDelta(t, 6.25, b.Q3, 1e-12)
	assert.InDelta(t, -2.5, b.Lower, 1e-12)
	assert.InDelta(t, 11.5, b.Upper, 1e-12)
	assert.Equal(t, 8, b.N)

	_, err = FitBounds([]float64{math.NaN()}, "x", 1.5)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientData)
}

func TestFitBounds_QuartilesInterpolateBetweenRanks(t *testing.T) {
	tests := []struct {
		name         string
		values       []float64
		q1, q3       float64
		lower, upper float64
	}{
		{"four values", []float64{4, 2, 3, 1}, 1.75, 3.25, -0.5, 5.5},
		{"single value", []float64{7}, 7, 7, 7, 7},
		{"two values", []float64{0, 10}, 2.5, 7.5, -5, 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := FitBounds(tt.values, "x", 1.5)
			require.NoError(t, err)
			assert.InDelta(t, tt.q1, b.Q1, 1e-12)
			assert.InDelta(t, tt.q3, b.Q3, 1e-12)
			assert.InDelta(t, tt.lower, b.Lower, 1e-12)
			assert.InDelta(t, tt.upper, b.Upper, 1e-12)
		})
	}
}

func TestClipBounds_Idempotent(t *testing.T) {
	keys := make([]frame.Key, 0, 10)
	rows := make([]testutil.Row, 0, 10)
	values := []float64{-50, 1, 2, 3, 4, 5, 6, 7, 8, 90}
	for i, v := range values {
		keys = append(keys, frame.NewKey("A", 2015+i/4, i%4+1))
		rows = append(rows, testutil.Row{"x": v, "y": v})
	}
	f := testutil.FromRows(t, keys, rows)

	bounds, err := FitClipBounds(f, []string{"x", "missing"}, 1.5)
	require.NoError(t, err)
	require.Equal(t, []string{"x"}, bounds.Columns())

	once, err := bounds.Apply(f)
	require.NoError(t, err)
	twice, err := bounds.Apply(once)
	require.NoError(t, err)

	assert.Equal(t, once.MustColumn("x"), twice.MustColumn("x"))
	assert.Equal(t, f.MustColumn("y"), once.MustColumn("y"), "unbounded columns are untouched")
	x := once.MustColumn("x")
	assert.Equal(t, bounds[0].Lower, x[0])
	assert.Equal(t, bounds[0].Upper, x[9])
	assert.Equal(t, 5.0, x[5])

	_, err = FitClipBounds(f, []string{"x"}, 0)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestClipper_TrainScopeDoesNotSeeTest(t *testing.T) {
	f := yearlyPanel(t)
	x := f.MustColumn("x")
	x[19] = 1000
	f, err := f.WithColumn("x", x)
	require.NoError(t, err)

	logger, h := testutil.NewTestLogger(t)
	out, bounds, err := NewClipper([]string{"x"}, 1.5, ScopeTrain, logger).
		ClipOutliers(context.Background(), f, 2024)
	require.NoError(t, err)
	require.Len(t, bounds, 1)

	train, err := FitClipBounds(TimeSplit(f, 2024).Train, []string{"x"}, 1.5)
	require.NoError(t, err)
	assert.Equal(t, train[0], bounds[0])
	assert.Equal(t, bounds[0].Upper, out.Value("x", 19), "test rows are clipped with train bounds")
	assert.False(t, h.HasCondition("leakage"))

	_, all, err := NewClipper([]string{"x"}, 1.5, ScopeAll, logger).ClipOutliers(context.Background(), f, 2024)
	require.NoError(t, err)
	assert.Equal(t, 20, all[0].N)
	testutil.AssertCondition(t, h, "leakage")
}

func TestClipper_NoTrainingRows(t *testing.T) {
	logger, h := testutil.NewTestLogger(t)
	f := yearlyPanel(t)
	out, bounds, err := NewClipper([]string{"x"}, 1.5, "", logger).ClipOutliers(context.Background(), f, 2000)
	require.NoError(t, err)
	assert.Nil(t, bounds)
	assert.Same(t, f, out)
	testutil.AssertCondition(t, h, "insufficient_data")
}

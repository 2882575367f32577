package features

import (
	"fmt"
	"math"

	apperrors "dessertcpi/internal/errors"
	"dessertcpi/internal/frame"
)

// quarterMonth maps a quarter to its representative (final) month.
var quarterMonth = map[int]int{1: 3, 2: 6, 3: 9, 4: 12}

// SeasonalEncoding returns the representative month of quarter q and its
// sine/cosine position on the yearly cycle.
func SeasonalEncoding(q int) (month int, sin, cos float64) {
	month = quarterMonth[q]
	angle := 2 * math.Pi * float64(month) / 12
	return month, math.Sin(angle), math.Cos(angle)
}

// AddLog adds log(1+x) of each column as log_<column>.
func AddLog(f *frame.Frame, cols ...string) (*frame.Frame, error) {
	out := f
	for _, c := range cols {
		v, ok := out.Column(c)
		if !ok {
			continue
		}
		for i := range v {
			v[i] = math.Log1p(v[i])
		}
		var err error
		if out, err = out.WithColumn("log_"+c, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// AddLags adds the lag-k values of col for each k, naming them with name(k).
func AddLags(f *frame.Frame, col string, lags []int, name func(int) string) (*frame.Frame, error) {
	out := f
	for _, k := range lags {
		if k <= 0 {
			return nil, fmt.Errorf("lag horizon must be positive, got %d", k)
		}
		v, err := f.Lag(col, k)
		if err != nil {
			return nil, err
		}
		if out, err = out.WithColumn(name(k), v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Growth returns (cur-prev)/prev, or 0 when prev is zero or missing or the
// result is not finite.
func Growth(cur, prev float64) float64 {
	if !frame.IsFinite(prev) || prev == 0 {
		return 0
	}
	g := (cur - prev) / prev
	if !frame.IsFinite(g) {
		return 0
	}
	return g
}

// AddGrowth adds growth_rate of col against the previous quarter.
func AddGrowth(f *frame.Frame, col string) (*frame.Frame, error) {
	cur, ok := f.Column(col)
	if !ok {
		return nil, missingColumn(col)
	}
	prev, err := f.Lag(col, 1)
	if err != nil {
		return nil, err
	}
	g := make([]float64, len(cur))
	for i := range cur {
		g[i] = Growth(cur[i], prev[i])
	}
	return f.WithColumn(ColGrowth, g)
}

// AddSeasonality adds month, month_sin and month_cos from the row quarter.
func AddSeasonality(f *frame.Frame) (*frame.Frame, error) {
	n := f.Len()
	month := make([]float64, n)
	sin := make([]float64, n)
	cos := make([]float64, n)
	for i := 0; i < n; i++ {
		m, s, c := SeasonalEncoding(f.Key(i).Quarter)
		month[i], sin[i], cos[i] = float64(m), s, c
	}
	return f.WithColumns([]string{ColMonth, ColMonthSin, ColMonthCos}, [][]float64{month, sin, cos})
}

func missingColumn(col string) error {
	return apperrors.NewUnresolvableColumnError(col, nil, nil)
}

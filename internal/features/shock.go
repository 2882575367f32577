package features

import (
	"context"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/stat"

	"dessertcpi/internal/frame"
	"dessertcpi/internal/infrastructure"
)

// QuarterSeries is an entity-independent series, one value per quarter,
// in chronological order.
type QuarterSeries struct {
	Periods []frame.Period
	Values  []float64
}

// DedupQuarterly extracts col as one value per quarter. The first row seen
// for a quarter wins; the column is expected to be constant within a quarter.
func DedupQuarterly(f *frame.Frame, col string) (QuarterSeries, bool) {
	v, ok := f.Column(col)
	if !ok {
		return QuarterSeries{}, false
	}
	first := make(map[frame.Period]float64)
	for i := 0; i < f.Len(); i++ {
		p := f.Key(i).Period
		if _, seen := first[p]; !seen {
			first[p] = v[i]
		}
	}
	periods := f.Periods()
	s := QuarterSeries{Periods: periods, Values: make([]float64, len(periods))}
	for i, p := range periods {
		s.Values[i] = first[p]
	}
	return s, true
}

// TrailingStats returns, for each position t, the mean and sample standard
// deviation of values[t-window .. t-1]. Positions with fewer than window
// earlier values, or with a missing value inside the window, are NaN. The
// value at t itself never enters its own statistics.
func TrailingStats(values []float64, window int) (mean, std []float64) {
	mean = make([]float64, len(values))
	std = make([]float64, len(values))
	for t := range values {
		mean[t], std[t] = math.NaN(), math.NaN()
		if t < window {
			continue
		}
		w := values[t-window : t]
		complete := true
		for _, x := range w {
			if !frame.IsFinite(x) {
				complete = false
				break
			}
		}
		if !complete {
			continue
		}
		mean[t], std[t] = stat.MeanStdDev(w, nil)
	}
	return mean, std
}

// Shocks holds the surprise signals of one series.
type Shocks struct {
	MA    []float64 // value minus trailing mean
	Z     []float64 // MA divided by trailing std
	Accel []float64 // value minus previous value
}

// ComputeShocks derives the shock signals of a chronological series.
func ComputeShocks(values []float64, window int) Shocks {
	mean, std := TrailingStats(values, window)
	n := len(values)
	s := Shocks{MA: make([]float64, n), Z: make([]float64, n), Accel: make([]float64, n)}
	for t := 0; t < n; t++ {
		s.MA[t] = values[t] - mean[t]
		s.Z[t] = math.NaN()
		if frame.IsFinite(std[t]) && std[t] != 0 {
			s.Z[t] = s.MA[t] / std[t]
		}
		s.Accel[t] = math.NaN()
		if t > 0 {
			s.Accel[t] = values[t] - values[t-1]
		}
	}
	return s
}

// ShockConstructor adds inflation shock features to a panel.
type ShockConstructor struct {
	window int
	logger *slog.Logger
}

// NewShockConstructor creates a constructor with the given trailing window.
func NewShockConstructor(window int, logger *slog.Logger) *ShockConstructor {
	if window < 2 {
		window = 4
	}
	return &ShockConstructor{window: window, logger: infrastructure.WithComponent(logger, "shocks")}
}

// AddShocks computes the inflation and expected-inflation shocks on the
// deduplicated quarterly series and broadcasts them, with their
// previous-quarter values, onto every panel row of the quarter. Series
// absent from the panel are skipped.
func (c *ShockConstructor) AddShocks(ctx context.Context, f *frame.Frame) (*frame.Frame, error) {
	out := f
	var added []string

	if s, ok := DedupQuarterly(f, ColInflationRate); ok {
		sh := ComputeShocks(s.Values, c.window)
		names := []string{ColInflShockMA, ColInflShockZ, ColInflAccel}
		var err error
		out, err = broadcastWithLag(out, s.Periods, names, [][]float64{sh.MA, sh.Z, sh.Accel})
		if err != nil {
			return nil, err
		}
		added = append(added, names...)
	} else {
		c.logger.WarnContext(ctx, "No inflation series, skipping inflation shocks",
			slog.String("column", ColInflationRate))
	}

	if s, ok := DedupQuarterly(f, ColExpectedInflation); ok {
		sh := ComputeShocks(s.Values, c.window)
		var err error
		out, err = broadcastWithLag(out, s.Periods, []string{ColExpShockMA}, [][]float64{sh.MA})
		if err != nil {
			return nil, err
		}
		added = append(added, ColExpShockMA)
	} else {
		c.logger.WarnContext(ctx, "No expected inflation series, skipping expectation shock",
			slog.String("column", ColExpectedInflation))
	}

	c.logger.InfoContext(ctx, "Shock features added",
		slog.Int("window", c.window),
		slog.Any("columns", added))
	return out, nil
}

func broadcast(f *frame.Frame, periods []frame.Period, names []string, series [][]float64) (*frame.Frame, error) {
	pos := make(map[frame.Period]int, len(periods))
	for i, p := range periods {
		pos[p] = i
	}
	cols := make([][]float64, len(series))
	for j, s := range series {
		col := make([]float64, f.Len())
		for i := range col {
			col[i] = s[pos[f.Key(i).Period]]
		}
		cols[j] = col
	}
	return f.WithColumns(names, cols)
}

// broadcastWithLag broadcasts each series and its one-quarter-back value.
// The lag is looked up on the calendar, so it is NaN only when the previous
// quarter is absent from the whole panel, never per district.
func broadcastWithLag(f *frame.Frame, periods []frame.Period, names []string, series [][]float64) (*frame.Frame, error) {
	pos := make(map[frame.Period]int, len(periods))
	for i, p := range periods {
		pos[p] = i
	}
	allNames := make([]string, 0, 2*len(names))
	allSeries := make([][]float64, 0, 2*len(series))
	for j, s := range series {
		lagged := make([]float64, len(periods))
		for i, p := range periods {
			lagged[i] = math.NaN()
			if k, ok := pos[p.Add(-1)]; ok {
				lagged[i] = s[k]
			}
		}
		allNames = append(allNames, names[j], names[j]+LagSuffix)
		allSeries = append(allSeries, s, lagged)
	}
	return broadcast(f, periods, allNames, allSeries)
}

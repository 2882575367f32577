package features

import (
	"fmt"
	"math"

	"dessertcpi/internal/frame"
)

// Direction selects how a delta target is aligned in time.
type Direction int

const (
	// Forward is ratio[t+1] - ratio[t]. It looks ahead and is only valid
	// when building historical training data.
	Forward Direction = iota
	// Backward is ratio[t] - ratio[t-1].
	Backward
)

func (d Direction) String() string {
	if d == Forward {
		return "forward"
	}
	return "backward"
}

// DeltaTarget computes the per-district change of col in the given
// direction. Missing neighbours yield NaN.
func DeltaTarget(f *frame.Frame, col string, dir Direction) ([]float64, error) {
	cur, ok := f.Column(col)
	if !ok {
		return nil, missingColumn(col)
	}
	out := make([]float64, len(cur))
	switch dir {
	case Forward:
		next, err := f.Lead(col, 1)
		if err != nil {
			return nil, err
		}
		for i := range cur {
			out[i] = next[i] - cur[i]
		}
	case Backward:
		prev, err := f.Lag(col, 1)
		if err != nil {
			return nil, err
		}
		for i := range cur {
			out[i] = cur[i] - prev[i]
		}
	default:
		return nil, fmt.Errorf("unknown target direction %d", dir)
	}
	return out, nil
}

// PctGrowth returns delta/prev, NaN when prev is zero or missing.
func PctGrowth(delta, prev float64) float64 {
	if !frame.IsFinite(prev) || prev == 0 {
		return math.NaN()
	}
	return delta / prev
}

// AddTargets adds the next-quarter ratio, the forward and backward ratio
// deltas and the percentage growth of the backward delta, all per district.
func AddTargets(f *frame.Frame) (*frame.Frame, error) {
	next, err := f.Lead(ColDessertRatio, 1)
	if err != nil {
		return nil, fmt.Errorf("next-quarter target: %w", err)
	}
	fwd, err := DeltaTarget(f, ColDessertRatio, Forward)
	if err != nil {
		return nil, err
	}
	back, err := DeltaTarget(f, ColDessertRatio, Backward)
	if err != nil {
		return nil, err
	}
	prev, err := f.Lag(ColDessertRatio, 1)
	if err != nil {
		return nil, err
	}
	pct := make([]float64, len(back))
	for i := range back {
		pct[i] = PctGrowth(back[i], prev[i])
	}
	return f.WithColumns(TargetColumns, [][]float64{next, fwd, back, pct})
}

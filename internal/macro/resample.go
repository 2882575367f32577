package macro

import (
	"fmt"
	"math"
	"sort"

	"dessertcpi/internal/frame"
)

// Aggregation selects how months collapse into a quarter.
type Aggregation string

const (
	// AggMean averages the quarter's months; suited to flow-like series.
	AggMean Aggregation = "mean"
	// AggLast keeps the quarter's final observation; suited to levels.
	AggLast Aggregation = "last"
)

// ParseAggregation validates an aggregation name.
func ParseAggregation(s string) (Aggregation, error) {
	switch Aggregation(s) {
	case AggMean, AggLast:
		return Aggregation(s), nil
	case "":
		return AggMean, nil
	}
	return "", fmt.Errorf("unknown aggregation %q (want mean or last)", s)
}

// QuarterValue is one resampled value. Value is NaN for quarters inside
// the series span that had no observations.
type QuarterValue struct {
	Period frame.Period
	Value  float64
}

// Resample reduces monthly observations to calendar quarters. The output
// covers every quarter from the first to the last observation.
func Resample(obs []Observation, agg Aggregation) []QuarterValue {
	if len(obs) == 0 {
		return nil
	}
	sorted := make([]Observation, len(obs))
	copy(sorted, obs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Month.Before(sorted[j].Month) })

	type acc struct {
		sum  float64
		n    int
		last float64
	}
	buckets := make(map[frame.Period]*acc)
	for _, o := range sorted {
		p := frame.Period{Year: o.Month.Year, Quarter: o.Month.Quarter()}
		a, ok := buckets[p]
		if !ok {
			a = &acc{}
			buckets[p] = a
		}
		a.sum += o.Value
		a.n++
		a.last = o.Value
	}

	first := frame.Period{Year: sorted[0].Month.Year, Quarter: sorted[0].Month.Quarter()}
	lastObs := sorted[len(sorted)-1].Month
	end := frame.Period{Year: lastObs.Year, Quarter: lastObs.Quarter()}

	out := make([]QuarterValue, 0, end.Index()-first.Index()+1)
	for p := first; !end.Before(p); p = p.Add(1) {
		v := math.NaN()
		if a, ok := buckets[p]; ok {
			if agg == AggLast {
				v = a.last
			} else {
				v = a.sum / float64(a.n)
			}
		}
		out = append(out, QuarterValue{Period: p, Value: v})
	}
	return out
}

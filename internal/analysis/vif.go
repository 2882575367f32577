package analysis

import (
	"math"

	"dessertcpi/internal/frame"
	"dessertcpi/internal/regression"
)

// HighVIF is the threshold above which a feature is flagged as collinear.
const HighVIF = 10.0

// VIFRow is the variance inflation factor of one feature.
type VIFRow struct {
	Feature string
	VIF     float64
	High    bool
}

// VIF regresses each available feature on the others, with an intercept,
// over rows complete in every feature and returns 1/(1-R²). A perfectly
// explained feature has an infinite factor.
func VIF(f *frame.Frame, feats []string) ([]VIFRow, error) {
	names := frame.Available(f.Schema(), feats)
	if len(names) < 2 {
		return nil, nil
	}
	d := f.DropMissing(names)
	if d.Len() <= len(names) {
		return nil, nil
	}
	cols := make([][]float64, len(names))
	for i, c := range names {
		cols[i] = d.MustColumn(c)
	}

	out := make([]VIFRow, 0, len(names))
	for j, name := range names {
		others := make([][]float64, 0, len(names)-1)
		labels := []string{regression.InterceptName}
		for k := range cols {
			if k != j {
				others = append(others, cols[k])
				labels = append(labels, names[k])
			}
		}
		r, err := regression.Fit(regression.Design(d.Len(), others, true), cols[j], labels,
			regression.Options{CovType: regression.NonRobust})
		if err != nil {
			return nil, err
		}
		v := math.Inf(1)
		if r.RSquared < 1 {
			v = 1 / (1 - r.RSquared)
		}
		if math.IsNaN(r.RSquared) {
			v = math.NaN()
		}
		out = append(out, VIFRow{Feature: name, VIF: v, High: v > HighVIF})
	}
	return out, nil
}

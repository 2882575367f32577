package fixedeffects

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"

	"dessertcpi/internal/frame"
	"dessertcpi/internal/regression"
)

// Model is a fitted fixed-effects regression.
type Model struct {
	Result      *regression.Result
	Target      string
	Regressors  []string
	TimeEffects bool
	// CovType is the covariance actually used, after any fallback.
	CovType regression.CovType

	layout     *layout
	trainCells map[frame.Key]struct{}
}

// Entities returns the districts seen at fit time; the first is the
// reference level.
func (m *Model) Entities() []string { return append([]string(nil), m.layout.entities...) }

// Prediction holds per-row predictions and whether the row's
// (district, quarter) cell was part of the training table.
type Prediction struct {
	Values   []float64
	InSample []bool
}

// Valid returns the indexes of rows with a finite prediction.
func (p Prediction) Valid() []int {
	var out []int
	for i, v := range p.Values {
		if frame.IsFinite(v) {
			out = append(out, i)
		}
	}
	return out
}

func nanPrediction(n int) Prediction {
	p := Prediction{Values: make([]float64, n), InSample: make([]bool, n)}
	for i := range p.Values {
		p.Values[i] = math.NaN()
	}
	return p
}

// Predict attempts a prediction for every row of f. Rows with a missing
// regressor, a district unseen at fit time or, with time effects, an
// unseen quarter come back NaN.
func (m *Model) Predict(f *frame.Frame) Prediction {
	p := nanPrediction(f.Len())
	buf := make([]float64, m.layout.width())
	for i := 0; i < f.Len(); i++ {
		k := f.Key(i)
		_, p.InSample[i] = m.trainCells[k]
		if !m.layout.hasEntity(k.Entity) || !m.layout.hasPeriod(k.Period) {
			continue
		}
		if !m.layout.row(buf, f, i) {
			continue
		}
		p.Values[i] = floats.Dot(buf, m.Result.Params)
	}
	return p
}

// Coefficient is one reported regressor.
type Coefficient struct {
	Name         string
	Coef         float64
	StdErr       float64
	PValue       float64
	Significance string
}

// Significance returns the conventional marker for a p-value.
func Significance(p float64) string {
	switch {
	case math.IsNaN(p):
		return ""
	case p < 0.01:
		return "***"
	case p < 0.05:
		return "**"
	case p < 0.10:
		return "*"
	}
	return ""
}

// IsDummy reports whether a coefficient name is a fixed-effect indicator.
func IsDummy(name string) bool {
	return strings.Contains(name, "C(") || strings.Contains(name, "[")
}

// Summary returns the intercept and every non-indicator regressor.
func (m *Model) Summary() []Coefficient {
	if m == nil {
		return nil
	}
	r := m.Result
	var out []Coefficient
	for i, name := range r.Names {
		if IsDummy(name) {
			continue
		}
		out = append(out, Coefficient{
			Name:         name,
			Coef:         r.Params[i],
			StdErr:       r.StdErr[i],
			PValue:       r.PValues[i],
			Significance: Significance(r.PValues[i]),
		})
	}
	return out
}

// RSquared is the in-sample R² of the fit.
func (m *Model) RSquared() float64 { return m.Result.RSquared }

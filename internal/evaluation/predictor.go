package evaluation

import (
	"context"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	apperrors "dessertcpi/internal/errors"
	"dessertcpi/internal/features"
	"dessertcpi/internal/frame"
	"dessertcpi/internal/regression"
)

// Predictor is a regressor evaluated behind a common contract.
type Predictor interface {
	Name() string
	Fit(ctx context.Context, x *mat.Dense, y []float64) error
	Predict(x *mat.Dense) ([]float64, error)
}

// Factory creates a fresh, unfit Predictor.
type Factory func() Predictor

// Model family names.
const (
	Linear       = "linear"
	Ridge        = "ridge"
	DecisionTree = "decision_tree"
	RandomForest = "random_forest"
	XGBoost      = "xgboost"
	MLP          = "mlp"
)

// catalog holds the model families this build can fit. Families named in
// optional have no implementation and are reported as missing
// dependencies.
var (
	catalog = map[string]Factory{
		Linear: func() Predictor { return &OLS{} },
		Ridge:  func() Predictor { return &RidgeRegression{Alpha: 1} },
	}
	optional = map[string]bool{DecisionTree: true, RandomForest: true, XGBoost: true, MLP: true}
)

// Lookup returns the factory for a model family. Known but unavailable
// families return a missing-dependency error.
func Lookup(name string) (Factory, error) {
	if f, ok := catalog[name]; ok {
		return f, nil
	}
	if optional[name] {
		return nil, apperrors.NewMissingDependencyError(name)
	}
	return nil, apperrors.NewValidationError(fmt.Sprintf("unknown model family %q", name))
}

// Families lists the available model families.
func Families() []string {
	out := make([]string, 0, len(catalog))
	for k := range catalog {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// OLS is ordinary least squares with an intercept.
type OLS struct {
	result *regression.Result
}

func (m *OLS) Name() string { return Linear }

// Fit estimates the coefficients.
func (m *OLS) Fit(_ context.Context, x *mat.Dense, y []float64) error {
	xi := withIntercept(x)
	_, p := xi.Dims()
	names := make([]string, p)
	for i := range names {
		names[i] = fmt.Sprintf("x%d", i)
	}
	r, err := regression.Fit(xi, y, names, regression.Options{CovType: regression.NonRobust})
	if err != nil {
		return err
	}
	m.result = r
	return nil
}

// Predict applies the fitted coefficients.
func (m *OLS) Predict(x *mat.Dense) ([]float64, error) {
	if m.result == nil {
		return nil, fmt.Errorf("%s: predict before fit", m.Name())
	}
	return m.result.Predict(withIntercept(x)), nil
}

// Coefficients returns intercept followed by the slopes.
func (m *OLS) Coefficients() []float64 {
	if m.result == nil {
		return nil
	}
	return append([]float64(nil), m.result.Params...)
}

// RidgeRegression is L2-penalised least squares. The intercept is not
// penalised.
type RidgeRegression struct {
	Alpha     float64
	coef      []float64
	intercept float64
}

func (m *RidgeRegression) Name() string { return Ridge }

// Fit solves (XcᵀXc + αI)β = Xcᵀyc on centered data.
func (m *RidgeRegression) Fit(_ context.Context, x *mat.Dense, y []float64) error {
	n, p := x.Dims()
	if n == 0 {
		return apperrors.NewInsufficientDataError("ridge fit", 0, 1)
	}
	xm := make([]float64, p)
	for j := 0; j < p; j++ {
		for i := 0; i < n; i++ {
			xm[j] += x.At(i, j)
		}
		xm[j] /= float64(n)
	}
	var ym float64
	for _, v := range y {
		ym += v
	}
	ym /= float64(n)

	xc := mat.NewDense(n, p, nil)
	yc := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			xc.Set(i, j, x.At(i, j)-xm[j])
		}
		yc.SetVec(i, y[i]-ym)
	}

	var a mat.Dense
	a.Mul(xc.T(), xc)
	for j := 0; j < p; j++ {
		a.Set(j, j, a.At(j, j)+m.Alpha)
	}
	var b, beta mat.VecDense
	b.MulVec(xc.T(), yc)
	if err := beta.SolveVec(&a, &b); err != nil {
		return apperrors.NewNumericalError("ridge normal equations", err)
	}

	m.coef = mat.Col(nil, 0, &beta)
	m.intercept = ym
	for j := range m.coef {
		m.intercept -= m.coef[j] * xm[j]
	}
	return nil
}

// Predict applies the fitted coefficients.
func (m *RidgeRegression) Predict(x *mat.Dense) ([]float64, error) {
	if m.coef == nil {
		return nil, fmt.Errorf("%s: predict before fit", m.Name())
	}
	n, _ := x.Dims()
	out := make([]float64, n)
	for i := range out {
		out[i] = m.intercept
		for j, c := range m.coef {
			out[i] += c * x.At(i, j)
		}
	}
	return out, nil
}

func withIntercept(x *mat.Dense) *mat.Dense {
	n, p := x.Dims()
	out := mat.NewDense(n, p+1, nil)
	for i := 0; i < n; i++ {
		out.Set(i, 0, 1)
		for j := 0; j < p; j++ {
			out.Set(i, j+1, x.At(i, j))
		}
	}
	return out
}

// Dataset is a complete-case design for one feature list.
type Dataset struct {
	X    *mat.Dense
	Y    []float64
	Keys []frame.Key
}

// Len is the number of complete rows.
func (d Dataset) Len() int { return len(d.Y) }

// Prepare drops rows missing the target or any feature and assembles the
// design. Features absent from f are ignored. X is nil when no rows
// remain. A feature list that leaks the target is rejected.
func Prepare(f *frame.Frame, cols []string, target string) (Dataset, error) {
	if err := features.CheckLeakage(cols, target); err != nil {
		return Dataset{}, err
	}
	cols = frame.Available(f.Schema(), cols)
	sub := f.DropMissing(append(append([]string(nil), cols...), target))
	d := Dataset{Keys: sub.Keys()}
	if sub.Len() == 0 || len(cols) == 0 {
		return d, nil
	}
	d.Y = sub.MustColumn(target)
	columns := make([][]float64, len(cols))
	for j, c := range cols {
		columns[j] = sub.MustColumn(c)
	}
	d.X = regression.Design(sub.Len(), columns, false)
	return d, nil
}

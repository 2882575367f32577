package regression

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	apperrors "dessertcpi/internal/errors"
)

// CovType selects the coefficient covariance estimator.
type CovType string

const (
	NonRobust CovType = "nonrobust"
	HC1       CovType = "HC1"
	Cluster   CovType = "cluster"
)

// ParseCovType maps a configuration value to a CovType.
func ParseCovType(s string) (CovType, error) {
	switch CovType(s) {
	case NonRobust, HC1, Cluster:
		return CovType(s), nil
	case "":
		return HC1, nil
	}
	return "", apperrors.NewValidationError(fmt.Sprintf("unknown covariance type %q", s))
}

// Options control a fit.
type Options struct {
	CovType CovType
	// Groups labels each observation's cluster; required for Cluster.
	Groups []string
}

// Result is a fitted least-squares model.
type Result struct {
	Names    []string
	Params   []float64
	StdErr   []float64
	TValues  []float64
	PValues  []float64
	CovType  CovType
	NObs     int
	Rank     int
	DFResid  int
	RSquared float64
	SSR      float64
	// Groups is the number of clusters for Cluster covariance.
	Groups int
}

// Fit regresses y on the columns of x. names labels the columns of x and
// must match its width.
func Fit(x *mat.Dense, y []float64, names []string, opts Options) (*Result, error) {
	n, p := x.Dims()
	if n == 0 || p == 0 {
		return nil, apperrors.NewInsufficientDataError("least squares", n, 1)
	}
	if n != len(y) {
		return nil, fmt.Errorf("design has %d rows, response has %d", n, len(y))
	}
	if p != len(names) {
		return nil, fmt.Errorf("design has %d columns, %d names", p, len(names))
	}
	if opts.CovType == "" {
		opts.CovType = HC1
	}
	if opts.CovType == Cluster && len(opts.Groups) != n {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("cluster covariance needs %d group labels, got %d", n, len(opts.Groups)))
	}

	pinv, bread, rank, err := pseudoInverse(x)
	if err != nil {
		return nil, err
	}

	yv := mat.NewVecDense(n, append([]float64(nil), y...))
	var beta mat.VecDense
	beta.MulVec(pinv, yv)

	var fitted mat.VecDense
	fitted.MulVec(x, &beta)
	resid := make([]float64, n)
	for i := range resid {
		resid[i] = y[i] - fitted.AtVec(i)
	}

	r := &Result{
		Names:   append([]string(nil), names...),
		Params:  mat.Col(nil, 0, &beta),
		CovType: opts.CovType,
		NObs:    n,
		Rank:    rank,
		DFResid: n - rank,
	}
	r.SSR = floats.Dot(resid, resid)
	mean := stat.Mean(y, nil)
	var sst float64
	for _, v := range y {
		sst += (v - mean) * (v - mean)
	}
	r.RSquared = math.NaN()
	if sst > 0 {
		r.RSquared = 1 - r.SSR/sst
	}

	var cov *mat.Dense
	switch opts.CovType {
	case NonRobust:
		cov = nonRobustCov(bread, r.SSR, r.DFResid)
	case HC1:
		cov = hc1Cov(x, resid, bread, r.DFResid)
	case Cluster:
		cov, r.Groups = clusterCov(x, resid, bread, opts.Groups, r.DFResid)
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown covariance type %q", opts.CovType))
	}

	r.StdErr = make([]float64, p)
	r.TValues = make([]float64, p)
	r.PValues = make([]float64, p)
	for j := 0; j < p; j++ {
		v := cov.At(j, j)
		se := math.NaN()
		if v >= 0 {
			se = math.Sqrt(v)
		}
		r.StdErr[j] = se
		r.TValues[j] = r.Params[j] / se
		r.PValues[j] = PValue(r.TValues[j])
	}
	return r, nil
}

// PValue is the two-sided normal p-value of a test statistic.
func PValue(t float64) float64 {
	if math.IsNaN(t) {
		return math.NaN()
	}
	return 2 * distuv.UnitNormal.Survival(math.Abs(t))
}

// FiniteStdErr reports whether every standard error is finite.
func (r *Result) FiniteStdErr() bool {
	for _, se := range r.StdErr {
		if math.IsNaN(se) || math.IsInf(se, 0) {
			return false
		}
	}
	return true
}

// Coef returns the coefficient of the named regressor.
func (r *Result) Coef(name string) (float64, bool) {
	for i, n := range r.Names {
		if n == name {
			return r.Params[i], true
		}
	}
	return 0, false
}

// Predict returns x·params for each row of x.
func (r *Result) Predict(x mat.Matrix) []float64 {
	n, _ := x.Dims()
	var out mat.VecDense
	out.MulVec(x, mat.NewVecDense(len(r.Params), r.Params))
	return mat.Col(make([]float64, n), 0, &out)
}

// pseudoInverse returns X⁺, (XᵀX)⁺ and the numerical rank of x.
func pseudoInverse(x *mat.Dense) (pinv, bread *mat.Dense, rank int, err error) {
	n, p := x.Dims()
	var svd mat.SVD
	if ok := svd.Factorize(x, mat.SVDThin); !ok {
		return nil, nil, 0, apperrors.NewNumericalError("singular value decomposition did not converge", nil)
	}
	s := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	tol := 0.0
	if len(s) > 0 {
		tol = s[0] * float64(max(n, p)) * 2.220446049250313e-16
	}
	inv := make([]float64, len(s))
	inv2 := make([]float64, len(s))
	for i, sv := range s {
		if sv > tol {
			inv[i] = 1 / sv
			inv2[i] = 1 / (sv * sv)
			rank++
		}
	}

	// X⁺ = V diag(1/s) Uᵀ
	var vs mat.Dense
	vs.Mul(&v, mat.NewDiagDense(len(inv), inv))
	pinv = new(mat.Dense)
	pinv.Mul(&vs, u.T())

	// (XᵀX)⁺ = V diag(1/s²) Vᵀ
	var vs2 mat.Dense
	vs2.Mul(&v, mat.NewDiagDense(len(inv2), inv2))
	bread = new(mat.Dense)
	bread.Mul(&vs2, v.T())
	return pinv, bread, rank, nil
}

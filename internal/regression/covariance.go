package regression

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

func nonRobustCov(bread *mat.Dense, ssr float64, dfResid int) *mat.Dense {
	scale := math.NaN()
	if dfResid > 0 {
		scale = ssr / float64(dfResid)
	}
	var cov mat.Dense
	cov.Scale(scale, bread)
	return &cov
}

// sandwich returns bread·meat·bread scaled by c.
func sandwich(bread, meat *mat.Dense, c float64) *mat.Dense {
	var tmp, cov mat.Dense
	tmp.Mul(bread, meat)
	cov.Mul(&tmp, bread)
	cov.Scale(c, &cov)
	return &cov
}

// hc1Cov is White's heteroskedasticity-robust covariance with the
// n/(n-k) small-sample correction.
func hc1Cov(x *mat.Dense, resid []float64, bread *mat.Dense, dfResid int) *mat.Dense {
	n, p := x.Dims()
	meat := mat.NewDense(p, p, nil)
	row := make([]float64, p)
	for i := 0; i < n; i++ {
		mat.Row(row, i, x)
		w := resid[i] * resid[i]
		for a := 0; a < p; a++ {
			if row[a] == 0 {
				continue
			}
			for b := 0; b < p; b++ {
				meat.Set(a, b, meat.At(a, b)+w*row[a]*row[b])
			}
		}
	}
	scale := math.NaN()
	if dfResid > 0 {
		scale = float64(n) / float64(dfResid)
	}
	return sandwich(bread, meat, scale)
}

// clusterCov sums score outer products within each group and applies the
// G/(G-1)·(n-1)/(n-k) correction. A single group leaves it undefined.
func clusterCov(x *mat.Dense, resid []float64, bread *mat.Dense, groups []string, dfResid int) (*mat.Dense, int) {
	n, p := x.Dims()
	scores := make(map[string][]float64)
	var order []string
	row := make([]float64, p)
	for i := 0; i < n; i++ {
		g := groups[i]
		sc, ok := scores[g]
		if !ok {
			sc = make([]float64, p)
			scores[g] = sc
			order = append(order, g)
		}
		mat.Row(row, i, x)
		for a := range sc {
			sc[a] += row[a] * resid[i]
		}
	}

	meat := mat.NewDense(p, p, nil)
	for _, g := range order {
		sc := mat.NewVecDense(p, scores[g])
		var outer mat.Dense
		outer.Outer(1, sc, sc)
		meat.Add(meat, &outer)
	}

	nGroups := len(order)
	scale := math.NaN()
	if nGroups > 1 && dfResid > 0 {
		scale = float64(nGroups) / float64(nGroups-1) * float64(n-1) / float64(dfResid)
	}
	return sandwich(bread, meat, scale), nGroups
}

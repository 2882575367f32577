package regression

import (
	"gonum.org/v1/gonum/mat"
)

// InterceptName labels the constant column.
const InterceptName = "Intercept"

// Design assembles a dense n-row matrix from column slices, optionally
// prefixed by a constant column. Every column must have n values.
func Design(n int, columns [][]float64, intercept bool) *mat.Dense {
	p := len(columns)
	if intercept {
		p++
	}
	data := make([]float64, n*p)
	for i := 0; i < n; i++ {
		j := 0
		if intercept {
			data[i*p] = 1
			j = 1
		}
		for _, c := range columns {
			data[i*p+j] = c[i]
			j++
		}
	}
	return mat.NewDense(n, p, data)
}

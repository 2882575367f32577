package evaluation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	apperrors "dessertcpi/internal/errors"
)

// Score holds the regression metrics of one evaluation.
type Score struct {
	RMSE float64
	MAE  float64
	R2   float64
	N    int
}

// Evaluate scores predictions against observed values. R² follows the
// convention of 1 for a perfect fit of a constant series and 0 otherwise.
func Evaluate(yTrue, yPred []float64) (Score, error) {
	if len(yTrue) != len(yPred) {
		return Score{}, fmt.Errorf("score: %d observations, %d predictions", len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return Score{}, apperrors.NewInsufficientDataError("score", 0, 1)
	}

	var sse, sae float64
	for i := range yTrue {
		e := yTrue[i] - yPred[i]
		sse += e * e
		sae += math.Abs(e)
	}
	n := float64(len(yTrue))

	mean := stat.Mean(yTrue, nil)
	var sst float64
	for _, v := range yTrue {
		sst += (v - mean) * (v - mean)
	}
	r2 := 0.0
	switch {
	case sst > 0:
		r2 = 1 - sse/sst
	case sse == 0:
		r2 = 1
	}

	return Score{
		RMSE: math.Sqrt(sse / n),
		MAE:  sae / n,
		R2:   r2,
		N:    len(yTrue),
	}, nil
}

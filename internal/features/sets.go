package features

import (
	"slices"

	apperrors "dessertcpi/internal/errors"
	"dessertcpi/internal/frame"
)

// Desired feature lists. Each is intersected with the columns actually
// present before use; order is preserved.
var (
	// MLBase never contains the current-quarter ratio, only its lags.
	MLBase = []string{
		ColLogSales, ColLag1, ColLag4, ColLag1Ratio, ColLag4Ratio,
		ColGrowth, ColMonthSin, ColMonthCos,
	}
	MLExtra = []string{ColInflationRate, ColInflationXLag1Ratio, ColExpectedInflation}

	// FEBase are the regressors of the lag-only baseline and the
	// non-shock part of the fixed-effects model.
	FEBase = []string{ColLag4Ratio, ColGrowth, ColMonthSin, ColMonthCos}

	// ShockDefault are the shock regressors used by the full models.
	ShockDefault = []string{ColInflShockMA, ColInflShockMALag1, ColExpShockMA, ColExpShockMALag1}

	// ShockAll lists every shock column the constructor can emit.
	ShockAll = []string{
		ColInflShockMA, ColInflShockZ, ColInflAccel, ColExpShockMA,
		ColInflShockMALag1, ColInflShockZLag1, ColInflAccelLag1, ColExpShockMALag1,
	}

	// Interactions are the alternative inflation interaction terms.
	Interactions = []string{ColInflationXLag1Ratio, ColInflationXGrowth, ColInflationXRatioChange}
)

// Set is a resolved, ordered feature list.
type Set []string

// Resolve intersects the desired lists, concatenated, with the columns
// available in s.
func Resolve(s frame.Schema, desired ...[]string) Set {
	return Set(frame.Available(s, slices.Concat(desired...)))
}

// MLFeatures resolves the feature set used by the generic regressors.
func MLFeatures(s frame.Schema) Set { return Resolve(s, MLBase, MLExtra) }

// BaselineFeatures resolves the lag-only regressors.
func BaselineFeatures(s frame.Schema) Set { return Resolve(s, FEBase) }

// FullFeatures resolves the lag plus shock regressors.
func FullFeatures(s frame.Schema) Set { return Resolve(s, FEBase, ShockDefault) }

// ShockFeatures resolves the default shock regressors.
func ShockFeatures(s frame.Schema) Set { return Resolve(s, ShockDefault) }

// CheckLeakage rejects a feature list that would let the model see the
// value it is asked to predict: the current-quarter ratio or any
// target-derived column.
func CheckLeakage(features []string, target string) error {
	var offending []string
	for _, c := range features {
		if c == ColDessertRatio || c == target || slices.Contains(TargetColumns, c) {
			offending = append(offending, c)
		}
	}
	if len(offending) > 0 {
		return apperrors.NewLeakageError(target, offending)
	}
	return nil
}

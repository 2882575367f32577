// Package fixedeffects fits a district fixed-effects panel regression,
// optionally with quarter effects, and predicts from it.
//
// The design matrix is assembled explicitly: an intercept, the numeric
// regressors, one indicator per district except the first (reference)
// district and, with time effects enabled, one indicator per quarter except
// the first. Indicator coefficients are estimated but never reported.
//
// An Estimator moves from Unfit to Fitted, or to FitFailed when fewer than
// the minimum number of complete rows remain. A failed fit returns a nil
// Model together with an error matching errors.ErrInsufficientData; callers
// treat it as a soft condition.
package fixedeffects

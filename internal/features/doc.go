// Package features turns the quarterly dessert panel into the modeling
// table.
//
// The stages run in a fixed order and each returns a new frame:
//
//	Builder.Build      dessert ratio, log sales, lags, growth, seasonality
//	JoinMacro          quarterly macro columns and inflation interactions
//	AddShocks          inflation surprise signals and their one-quarter lags
//	AddTargets         next-quarter ratio and ratio deltas
//
// Lags, leads and growth are computed per district on the calendar: the
// lag-k value is the district's value exactly k quarters earlier and is
// missing when that quarter is absent. Shock signals are computed once on
// the deduplicated quarterly series, so they never vary across districts
// within a quarter.
//
// The current-quarter dessert_ratio is the source of every target, so it
// and the target columns are never valid regressors; CheckLeakage enforces
// that on any feature list handed to an estimator.
package features

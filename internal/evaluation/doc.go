// Package evaluation scores predictors on held-out years.
//
// Predictors share one contract: fit on a training frame for a feature
// list and target, then predict a test frame. Rows missing the target or
// any feature are dropped independently on each side before fitting and
// scoring.
//
// The rolling validator walks an expanding window over the distinct years
// and appends mean and std summary rows to each model's fold table. The
// holdout comparison scores the lag-only baseline, the lag plus shock OLS
// and the fixed-effects model on a single cutoff year.
package evaluation

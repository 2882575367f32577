// Package regression fits ordinary least squares on a dense design matrix
// and reports coefficient inference under several covariance estimators.
//
// Coefficients are solved through the SVD pseudo-inverse so rank-deficient
// designs (collinear dummies, a seasonal term absorbed by time effects)
// still produce the minimum-norm solution instead of failing. The residual
// degrees of freedom use the numerical rank.
//
// Robust p-values use the normal reference distribution.
package regression

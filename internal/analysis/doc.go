// Package analysis holds descriptive diagnostics: the quarterly
// correlation of dessert sales with the macro series and the variance
// inflation factors of a feature set.
package analysis

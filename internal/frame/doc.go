// Package frame implements the immutable panel table shared by every stage
// of the dessert-share pipeline.
//
// A Frame holds one row per (entity, year, quarter) key and any number of
// float64 columns. Missing values are NaN. Every transformation returns a
// new Frame; column slices handed out by accessors are copies, so a caller
// can never alias the storage of a frame it does not own.
//
// Lag and Lead are calendar-aware: the lag-k value of entity E at quarter P
// is the value of E at quarter P-k, or NaN when E has no row for that quarter.
// Gaps in an entity's history therefore surface as missing values instead of
// silently shifting the series.
package frame

// Package split partitions the panel chronologically and clips engineered
// features to an interquartile range.
//
// Splits are by calendar year only; no district is shuffled across the
// cutoff. Clip bounds are fit on one table and applied to another, so the
// caller decides which rows inform them. The Clipper fits on the training
// years by default.
package split

// Package macro normalizes the wide monthly macro spreadsheets (price index
// level, month-over-month inflation, expected inflation) into a quarterly
// table keyed by calendar quarter.
//
// Each workbook holds its dates across the first row as loosely formatted
// "YYYY.MM" labels. Labels with fewer than six recoverable digits are
// dropped with a warning. Monthly values are resampled to calendar quarters
// by mean (the default) or by the last observation of the quarter; the
// quarterly series are then outer-joined on the quarter.
//
// Any subset of the three workbooks may be missing. When none is present
// Build returns an empty table that still declares the level columns, so
// callers handle the empty case through Table.Len rather than a nil check.
package macro

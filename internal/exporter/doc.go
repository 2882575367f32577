// Package exporter writes pipeline artifacts as CSV.
//
// Every file starts with a UTF-8 byte-order mark so spreadsheet tools in
// the source locale detect the encoding, followed by a stable header row.
// Missing values are written as empty cells.
//
// CSVWriter is the low-level writer with streaming support; Exporter maps
// frames, macro tables, coefficients, validation tables and diagnostics to
// records.
//
// Example usage:
//
//	exp := exporter.New(paths.OutputsDir, logger)
//	if err := exp.WriteFrame(paths.MLReadyCSV, panel); err != nil {
//		return err
//	}
//	err = exp.WriteCoefficients(paths.CoefficientsCSV, model.Summary())
package exporter

// Package pipeline orchestrates a batch run as a graph of named stages.
//
// Stages declare the stages they depend on; the Registry orders them with
// a topological sort that keeps registration order among peers. The
// Runner executes an ordered selection against a shared RunState, opening
// one span per stage and recording duration and row counts on the run's
// telemetry.
//
// Error policy:
//
//   - a fatal error (missing source, unresolvable column, storage, config)
//     stops the run and is returned to the caller
//   - a soft error (insufficient data, numerical instability, missing
//     optional dependency) marks the stage skipped; stages depending on it
//     are skipped as well and the run continues
//
// DefaultStages wires the dessert-share pipeline: ingestion, feature
// engineering, the holdout comparison, rolling validation, diagnostics and
// CSV export.
package pipeline

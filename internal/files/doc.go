// Package files discovers raw input files for the pipeline.
//
// Discovery lists the CSV and spreadsheet files in a raw data directory in
// a deterministic (name) order. A missing directory is reported as a
// MissingSourceError so the batch run stops with a diagnostic that names it.
//
//	discovery := files.NewDiscovery(paths.BaseDir)
//	raw, err := discovery.FindRawFiles("data/raw")
package files

package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains every resolved input and output location for a run
type Paths struct {
	BaseDir      string
	RawDir       string
	MacroDir     string
	ProcessedDir string
	OutputsDir   string
	LogsDir      string

	// Macro workbooks
	CPIFile      string
	MoMFile      string
	ExpectedFile string

	// Artifacts
	MLReadyCSV         string
	MacroQuarterlyCSV  string
	ComparisonCSV      string
	CoefficientsCSV    string
	RollingBaselineCSV string
	RollingFullCSV     string
	VIFCSV             string
	CorrelationCSV     string
	MergedQuarterlyCSV string
	ModelSuiteCSV      string
	MetricsTextfile    string
	TraceFile          string
	LogFile            string
}

// ResolvePaths resolves the configured directories against BaseDir.
func (c *Config) ResolvePaths() (*Paths, error) {
	base, err := filepath.Abs(c.Paths.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base dir: %w", err)
	}

	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	macroDir := resolve(c.Paths.MacroDir)
	processed := resolve(c.Paths.ProcessedDir)
	outputs := resolve(c.Paths.OutputsDir)
	logs := resolve(c.Paths.LogsDir)

	inMacro := func(name string) string {
		if name == "" || filepath.IsAbs(name) {
			return name
		}
		return filepath.Join(macroDir, name)
	}

	logFile := c.Logging.FilePath
	if logFile == "" {
		logFile = filepath.Join(logs, LogFile)
	} else {
		logFile = resolve(logFile)
	}

	return &Paths{
		BaseDir:      base,
		RawDir:       resolve(c.Paths.RawDir),
		MacroDir:     macroDir,
		ProcessedDir: processed,
		OutputsDir:   outputs,
		LogsDir:      logs,

		CPIFile:      inMacro(c.Paths.CPIFile),
		MoMFile:      inMacro(c.Paths.MoMFile),
		ExpectedFile: inMacro(c.Paths.ExpectedFile),

		MLReadyCSV:         filepath.Join(processed, MLReadyCSV),
		MacroQuarterlyCSV:  filepath.Join(processed, MacroQuarterlyCSV),
		ComparisonCSV:      filepath.Join(outputs, ComparisonCSV),
		CoefficientsCSV:    filepath.Join(outputs, CoefficientsCSV),
		RollingBaselineCSV: filepath.Join(outputs, RollingBaselineCSV),
		RollingFullCSV:     filepath.Join(outputs, RollingFullCSV),
		VIFCSV:             filepath.Join(outputs, VIFCSV),
		CorrelationCSV:     filepath.Join(outputs, CorrelationCSV),
		MergedQuarterlyCSV: filepath.Join(outputs, MergedQuarterlyCSV),
		ModelSuiteCSV:      filepath.Join(outputs, ModelSuiteCSV),
		MetricsTextfile:    filepath.Join(outputs, MetricsTextfile),
		TraceFile:          filepath.Join(logs, TraceFile),
		LogFile:            logFile,
	}, nil
}

// EnsureDirectories creates the output directories if they don't exist.
// Input directories are never created: their absence is reported by the loaders.
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.ProcessedDir,
		p.OutputsDir,
		p.LogsDir,
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}

	return nil
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

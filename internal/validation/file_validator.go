package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dessertcpi/internal/config"
	apperrors "dessertcpi/internal/errors"
	"dessertcpi/internal/infrastructure"
)

// FileValidator checks the input and output locations of a run before any
// stage touches them.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	return &FileValidator{
		logger: infrastructure.WithComponent(logger, "validation"),
	}
}

// Report summarizes a preflight check.
type Report struct {
	RawFiles int
	// Workbooks maps each macro series to whether its workbook is usable.
	Workbooks map[string]bool
}

// Preflight validates the raw directory, the macro workbooks and the output
// directories. A missing raw directory or an unwritable output directory is
// fatal; a missing workbook is only reported.
func (v *FileValidator) Preflight(paths *config.Paths) (Report, error) {
	report := Report{Workbooks: map[string]bool{}}

	if err := v.ValidateInputDirectory(paths.RawDir); err != nil {
		return report, err
	}
	n, err := v.CountFiles(paths.RawDir, "*.csv")
	if err != nil {
		return report, err
	}
	m, err := v.CountFiles(paths.RawDir, "*.xlsx")
	if err != nil {
		return report, err
	}
	report.RawFiles = n + m
	if report.RawFiles == 0 {
		v.logger.Warn("No raw sales files found",
			slog.String("directory", paths.RawDir))
	}

	for series, path := range map[string]string{
		"cpi":                paths.CPIFile,
		"inflation_mom":      paths.MoMFile,
		"expected_inflation": paths.ExpectedFile,
	} {
		err := v.ValidateExcelFile(path)
		report.Workbooks[series] = err == nil
		if err != nil {
			v.logger.Debug("Macro workbook not usable at configured path",
				slog.String("series", series),
				slog.String("error", err.Error()))
		}
	}

	for _, dir := range []string{paths.ProcessedDir, paths.OutputsDir, paths.LogsDir} {
		if err := v.ValidateOutputDirectory(dir); err != nil {
			return report, err
		}
	}
	return report, nil
}

// ValidateInputDirectory checks that dir exists and is a directory.
func (v *FileValidator) ValidateInputDirectory(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		v.logger.Error("Input directory does not exist",
			slog.String("directory", dir))
		return apperrors.NewMissingSourceError(dir, err)
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		v.logger.Error("Input path is not a directory",
			slog.String("path", dir))
		return apperrors.NewMissingSourceError(dir, fmt.Errorf("%s is not a directory", dir))
	}
	return nil
}

// ValidateOutputDirectory ensures output directory exists and is writable
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError("failed to create output directory", err).WithContext("directory", dir)
	}

	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError("output directory is not writable", err).WithContext("directory", dir)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}

// ValidateFile checks if a specific file exists and is readable
func (v *FileValidator) ValidateFile(path string) error {
	if path == "" {
		return apperrors.NewMissingSourceError(path, fmt.Errorf("no path configured"))
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return apperrors.NewMissingSourceError(path, err)
	}
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// CountFiles counts files matching a pattern in a directory
func (v *FileValidator) CountFiles(dir string, pattern string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return 0, fmt.Errorf("failed to count files: %w", err)
	}

	count := 0
	for _, match := range matches {
		info, err := os.Stat(match)
		if err == nil && !info.IsDir() && !strings.HasPrefix(filepath.Base(match), "~$") {
			count++
		}
	}
	return count, nil
}

// ValidateExcelFile checks that path is a readable .xlsx workbook that is
// not an Office lock file.
func (v *FileValidator) ValidateExcelFile(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".xlsx" {
		return apperrors.NewValidationError(fmt.Sprintf("file %s is not an xlsx workbook (extension: %s)", path, ext))
	}
	if strings.HasPrefix(filepath.Base(path), "~$") {
		return apperrors.NewValidationError(fmt.Sprintf("file %s is a temporary Excel file", path))
	}
	return nil
}

package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dessertcpi/internal/config"
	apperrors "dessertcpi/internal/errors"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
}

func TestFileValidator_ValidateInputDirectory(t *testing.T) {
	v := NewFileValidator(nil)
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	touch(t, file)

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"existing directory", dir, false},
		{"missing directory", filepath.Join(dir, "nope"), true},
		{"file instead of directory", file, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateInputDirectory(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrMissingSource)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestFileValidator_ValidateExcelFile(t *testing.T) {
	v := NewFileValidator(nil)
	dir := t.TempDir()
	good := filepath.Join(dir, "cpi.xlsx")
	lock := filepath.Join(dir, "~$cpi.xlsx")
	legacy := filepath.Join(dir, "cpi.xls")
	for _, p := range []string{good, lock, legacy} {
		touch(t, p)
	}

	assert.NoError(t, v.ValidateExcelFile(good))
	assert.ErrorIs(t, v.ValidateExcelFile(lock), apperrors.ErrValidation)
	assert.ErrorIs(t, v.ValidateExcelFile(legacy), apperrors.ErrValidation)
	assert.ErrorIs(t, v.ValidateExcelFile(filepath.Join(dir, "missing.xlsx")), apperrors.ErrMissingSource)
	assert.ErrorIs(t, v.ValidateExcelFile(""), apperrors.ErrMissingSource)
}

func TestFileValidator_CountFiles(t *testing.T) {
	v := NewFileValidator(nil)
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.csv"))
	touch(t, filepath.Join(dir, "b.csv"))
	touch(t, filepath.Join(dir, "~$c.csv"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "d.csv"), 0755))

	n, err := v.CountFiles(dir, "*.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestFileValidator_Preflight(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.BaseDir = base
	paths, err := cfg.ResolvePaths()
	require.NoError(t, err)

	v := NewFileValidator(nil)
	_, err = v.Preflight(paths)
	assert.ErrorIs(t, err, apperrors.ErrMissingSource)

	touch(t, filepath.Join(paths.RawDir, "sales_2023.csv"))
	touch(t, paths.CPIFile)

	report, err := v.Preflight(paths)
	require.NoError(t, err)
	assert.Equal(t, 1, report.RawFiles)
	assert.True(t, report.Workbooks["cpi"])
	assert.False(t, report.Workbooks["inflation_mom"])
	assert.DirExists(t, paths.OutputsDir)
	assert.DirExists(t, paths.ProcessedDir)
}

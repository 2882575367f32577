package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	apperrors "dessertcpi/internal/errors"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Ext     string
	Size    int64
	ModTime time.Time
}

// IsCSV reports whether the file is a delimited text file.
func (f FileInfo) IsCSV() bool { return f.Ext == ".csv" }

// IsExcel reports whether the file is a spreadsheet.
func (f FileInfo) IsExcel() bool { return f.Ext == ".xlsx" || f.Ext == ".xls" }

// Discovery provides file discovery operations
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance. Relative directories
// passed to its methods resolve against basePath.
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// RawExtensions are the file types accepted as raw sales input.
var RawExtensions = []string{".csv", ".xlsx", ".xls"}

// FindRawFiles lists raw sales files in dir sorted by name. A missing
// directory is a MissingSourceError; an existing directory without matching
// files returns an empty slice.
func (d *Discovery) FindRawFiles(dir string) ([]FileInfo, error) {
	return d.find(dir, RawExtensions...)
}

// FindExcelFiles finds all Excel files in the specified directory
func (d *Discovery) FindExcelFiles(dir string) ([]FileInfo, error) {
	return d.find(dir, ".xlsx", ".xls")
}

// FindCSVFiles finds all CSV files in the specified directory
func (d *Discovery) FindCSVFiles(dir string) ([]FileInfo, error) {
	return d.find(dir, ".csv")
}

func (d *Discovery) find(dir string, exts ...string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)

	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewMissingSourceError(fullPath, err)
		}
		return nil, fmt.Errorf("failed to stat directory %s: %w", fullPath, err)
	}
	if !info.IsDir() {
		return nil, apperrors.NewMissingSourceError(fullPath, fmt.Errorf("not a directory"))
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if !hasExt(ext, exts) || strings.HasPrefix(name, "~$") {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, name),
			Name:    name,
			Ext:     ext,
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})

	return files, nil
}

func (d *Discovery) resolve(dir string) string {
	if filepath.IsAbs(dir) || d.basePath == "" {
		return dir
	}
	return filepath.Join(d.basePath, dir)
}

func hasExt(ext string, exts []string) bool {
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// GetLatestFile returns the most recently modified file from a list
func GetLatestFile(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}

	latest := files[0]
	for _, file := range files[1:] {
		if file.ModTime.After(latest.ModTime) {
			latest = file
		}
	}

	return latest, true
}

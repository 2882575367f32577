package sales

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	apperrors "dessertcpi/internal/errors"
	"dessertcpi/internal/files"
	"dessertcpi/internal/infrastructure"
)

// Loader reads every raw sales file of a directory.
type Loader struct {
	discovery      *files.Discovery
	categoryColumn string
	logger         *slog.Logger
}

// NewLoader creates a loader. categoryColumn overrides the canonical
// category column name when non-empty.
func NewLoader(discovery *files.Discovery, categoryColumn string, logger *slog.Logger) *Loader {
	if discovery == nil {
		discovery = files.NewDiscovery("")
	}
	return &Loader{
		discovery:      discovery,
		categoryColumn: categoryColumn,
		logger:         infrastructure.WithComponent(logger, "sales"),
	}
}

// Load parses all raw files in dir. A missing directory, a directory with
// no readable files, or a table whose category column cannot be resolved
// stops the load. Files that fail to open are skipped with a warning.
func (l *Loader) Load(ctx context.Context, dir string) ([]Record, error) {
	found, err := l.discovery.FindRawFiles(dir)
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		perFile = make([][]Record, len(found))
		loaded  int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, fi := range found {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			header, rows, enc, err := readTable(fi)
			if err != nil {
				l.logger.WarnContext(gctx, "Skipping unreadable raw file",
					slog.String("file", fi.Name),
					slog.String("error", err.Error()))
				return nil
			}
			res, err := ParseRecords(header, rows, ParseOptions{
				CategoryColumn: l.categoryColumn,
				SourceFile:     fi.Name,
			})
			if err != nil {
				return fmt.Errorf("parse %s: %w", fi.Name, err)
			}
			l.logger.InfoContext(gctx, "Raw file loaded",
				slog.String("file", fi.Name),
				slog.String("encoding", enc),
				slog.String("category_column", res.CategoryColumn),
				slog.Int("records", len(res.Records)),
				slog.Int("skipped", res.Skipped))

			mu.Lock()
			perFile[i] = res.Records
			loaded++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if loaded == 0 {
		return nil, apperrors.NewMissingSourceError(dir, fmt.Errorf("no readable raw sales files"))
	}

	var out []Record
	for _, recs := range perFile {
		out = append(out, recs...)
	}
	return out, nil
}

// readTable returns the header and data rows of a CSV or spreadsheet file.
func readTable(fi files.FileInfo) ([]string, [][]string, string, error) {
	var (
		rows [][]string
		enc  = "xlsx"
		err  error
	)
	if fi.IsCSV() {
		var f *os.File
		f, err = os.Open(fi.Path)
		if err != nil {
			return nil, nil, "", err
		}
		defer f.Close()
		rows, enc, err = ReadCSV(f)
	} else {
		rows, err = readSpreadsheet(fi.Path)
	}
	if err != nil {
		return nil, nil, "", err
	}
	if len(rows) == 0 {
		return nil, nil, "", fmt.Errorf("file is empty")
	}
	return rows[0], rows[1:], enc, nil
}

func readSpreadsheet(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

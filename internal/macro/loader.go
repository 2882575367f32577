package macro

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"dessertcpi/internal/infrastructure"
)

// Sources names the three macro workbooks. Empty paths are skipped.
type Sources struct {
	CPI      string
	MoM      string
	Expected string
}

type sourceSpec struct {
	column string
	path   string
	layout Layout
}

// Normalizer loads the macro workbooks into a quarterly Table.
type Normalizer struct {
	agg          Aggregation
	fallbackDirs []string
	logger       *slog.Logger
}

// NewNormalizer creates a normalizer. Missing workbooks are also looked
// up in the user's Downloads directory.
func NewNormalizer(agg Aggregation, logger *slog.Logger) *Normalizer {
	if agg == "" {
		agg = AggMean
	}
	return &Normalizer{
		agg:          agg,
		fallbackDirs: DefaultFallbackDirs(),
		logger:       infrastructure.WithComponent(logger, "macro"),
	}
}

// WithFallbackDirs replaces the directories searched for missing workbooks.
func (n *Normalizer) WithFallbackDirs(dirs ...string) *Normalizer {
	n.fallbackDirs = dirs
	return n
}

// DefaultFallbackDirs returns ~/Downloads when a home directory is known.
func DefaultFallbackDirs() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{filepath.Join(home, "Downloads")}
}

// ResolvePath returns path if it exists, else the first fallback directory
// holding a file of the same name, else path unchanged.
func ResolvePath(path string, fallbackDirs []string) string {
	if path == "" {
		return ""
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	name := filepath.Base(path)
	for _, dir := range fallbackDirs {
		alt := filepath.Join(dir, name)
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}
	return path
}

// Build loads every present workbook concurrently and joins the quarterly
// series. A workbook that exists but cannot be read is an error.
func (n *Normalizer) Build(ctx context.Context, src Sources) (*Table, error) {
	specs := []sourceSpec{
		{column: ColCPI, path: src.CPI, layout: LevelLayout},
		{column: ColInflationMoM, path: src.MoM, layout: MoMLayout},
		{column: ColExpected, path: src.Expected, layout: LevelLayout},
	}

	results := make([][]QuarterValue, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		path := ResolvePath(spec.path, n.fallbackDirs)
		if path == "" || !fileExists(path) {
			n.logger.WarnContext(ctx, "Macro source missing, skipping",
				slog.String("condition", "missing_optional_source"),
				slog.String("series", spec.column),
				slog.String("path", spec.path))
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			obs, err := n.loadWorkbook(gctx, spec.column, path, spec.layout)
			if err != nil {
				return fmt.Errorf("load %s from %s: %w", spec.column, path, err)
			}
			results[i] = Resample(obs, n.agg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	series := make(map[string][]QuarterValue, len(specs))
	order := make([]string, 0, len(specs))
	for i, spec := range specs {
		series[spec.column] = results[i]
		order = append(order, spec.column)
	}

	table, err := NewTable(series, order)
	if err != nil {
		return nil, fmt.Errorf("join macro series: %w", err)
	}

	if table.Len() == 0 {
		n.logger.WarnContext(ctx, "No macro series available, returning empty table")
	} else {
		periods := table.Periods()
		n.logger.InfoContext(ctx, "Macro table built",
			slog.Int("quarters", table.Len()),
			slog.Any("columns", table.Columns()),
			slog.String("first", periods[0].String()),
			slog.String("last", periods[len(periods)-1].String()),
			slog.String("aggregation", string(n.agg)))
	}
	return table, nil
}

func (n *Normalizer) loadWorkbook(ctx context.Context, column, path string, layout Layout) ([]Observation, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}

	res := ParseSheet(rows, layout)
	if len(res.Malformed) > 0 {
		n.logger.WarnContext(ctx, "Dropped malformed date labels",
			slog.String("condition", "malformed_date_label"),
			slog.String("series", column),
			slog.Int("count", len(res.Malformed)),
			slog.Any("labels", res.Malformed))
	}
	n.logger.DebugContext(ctx, "Macro workbook parsed",
		slog.String("series", column),
		slog.String("sheet", sheets[0]),
		slog.Int("observations", len(res.Observations)))
	return res.Observations, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

package features

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"dessertcpi/internal/frame"
	"dessertcpi/internal/infrastructure"
)

// MandatoryLags are always built for sales and the dessert ratio.
var MandatoryLags = []int{1, 4}

// Builder produces the panel feature table.
type Builder struct {
	lags   []int
	logger *slog.Logger
}

// NewBuilder creates a builder. extraLags are added to the mandatory 1
// and 4 quarter lags.
func NewBuilder(extraLags []int, logger *slog.Logger) *Builder {
	seen := map[int]bool{}
	var lags []int
	for _, k := range append(append([]int{}, MandatoryLags...), extraLags...) {
		if !seen[k] {
			seen[k] = true
			lags = append(lags, k)
		}
	}
	sort.Ints(lags)
	return &Builder{lags: lags, logger: infrastructure.WithComponent(logger, "features")}
}

// Lags returns the lag horizons the builder produces.
func (b *Builder) Lags() []int { return append([]int(nil), b.lags...) }

// Build adds the dessert ratio, log sales, sales and ratio lags, growth
// and seasonal encoding to a panel holding sales_amount and
// total_sales_amount. Rows come back sorted by district and quarter.
func (b *Builder) Build(ctx context.Context, panel *frame.Frame) (*frame.Frame, error) {
	f := panel.SortByEntityTime()

	steps := []struct {
		name string
		fn   func(*frame.Frame) (*frame.Frame, error)
	}{
		{"dessert ratio", AddDessertRatio},
		{"log transform", func(f *frame.Frame) (*frame.Frame, error) { return AddLog(f, ColSalesAmount) }},
		{"sales lags", func(f *frame.Frame) (*frame.Frame, error) {
			return AddLags(f, ColSalesAmount, b.lags, SalesLagName)
		}},
		{"ratio lags", func(f *frame.Frame) (*frame.Frame, error) {
			return AddLags(f, ColDessertRatio, b.lags, RatioLagName)
		}},
		{"growth", func(f *frame.Frame) (*frame.Frame, error) { return AddGrowth(f, ColSalesAmount) }},
		{"seasonality", AddSeasonality},
	}

	for _, s := range steps {
		var err error
		if f, err = s.fn(f); err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
	}

	b.logger.InfoContext(ctx, "Panel features built",
		slog.Int("rows", f.Len()),
		slog.Int("districts", len(f.Entities())),
		slog.Any("lags", b.lags),
		slog.Int("columns", len(f.Columns())))
	return f, nil
}

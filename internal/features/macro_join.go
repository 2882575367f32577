package features

import (
	"context"
	"log/slog"
	"math"

	"dessertcpi/internal/frame"
	"dessertcpi/internal/infrastructure"
	"dessertcpi/internal/macro"
)

// macroColumns are copied from the macro table when present.
var macroColumns = []string{ColCPI, ColCPIQoQ, ColCPIYoY, ColInflationMoM, ColExpectedInflation}

// InflationSource reports which macro column feeds inflation_rate: the
// price-level QoQ change when available, else the quarter-averaged
// month-over-month rate rescaled from percent. Empty when neither exists.
func InflationSource(t *macro.Table) string {
	switch {
	case t.Has(ColCPIQoQ):
		return ColCPIQoQ
	case t.Has(ColInflationMoM):
		return ColInflationMoM
	}
	return ""
}

// JoinMacro broadcasts the quarterly macro columns onto every panel row of
// the same quarter and derives inflation_rate with its interactions. An
// empty table leaves the panel unchanged apart from a warning.
func JoinMacro(ctx context.Context, f *frame.Frame, t *macro.Table, logger *slog.Logger) (*frame.Frame, error) {
	logger = infrastructure.WithComponent(logger, "features")
	if t == nil || t.Len() == 0 {
		logger.WarnContext(ctx, "Macro table is empty, panel keeps no macro columns",
			slog.String("condition", "missing_optional_source"))
		return f, nil
	}

	n := f.Len()
	out := f
	for _, col := range frame.Available(frame.NewSchema(t.Columns()...), macroColumns) {
		v := make([]float64, n)
		for i := 0; i < n; i++ {
			v[i] = t.Value(col, f.Key(i).Period)
		}
		var err error
		if out, err = out.WithColumn(col, v); err != nil {
			return nil, err
		}
	}

	src := InflationSource(t)
	if src == "" {
		return out, nil
	}
	infl := out.MustColumn(src)
	if src == ColInflationMoM {
		for i := range infl {
			infl[i] /= 100
		}
	}
	out, err := out.WithColumn(ColInflationRate, infl)
	if err != nil {
		return nil, err
	}

	out, err = addInteractions(out)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "Macro columns joined",
		slog.String("inflation_source", src),
		slog.Any("columns", frame.Available(out.Schema(), macroColumns)))
	return out, nil
}

// addInteractions adds inflation x lag1 ratio, inflation x growth and
// inflation x (lag1 ratio - lag4 ratio). The latter two treat missing
// operands as zero.
func addInteractions(f *frame.Frame) (*frame.Frame, error) {
	infl := f.MustColumn(ColInflationRate)
	n := f.Len()
	xLag1 := make([]float64, n)
	xGrowth := make([]float64, n)
	xChange := make([]float64, n)
	for i := 0; i < n; i++ {
		lag1 := f.Value(ColLag1Ratio, i)
		lag4 := f.Value(ColLag4Ratio, i)
		xLag1[i] = infl[i] * lag1
		xGrowth[i] = zeroIfMissing(infl[i]) * zeroIfMissing(f.Value(ColGrowth, i))
		xChange[i] = zeroIfMissing(infl[i]) * (zeroIfMissing(lag1) - zeroIfMissing(lag4))
	}
	return f.WithColumns(
		[]string{ColInflationXLag1Ratio, ColInflationXGrowth, ColInflationXRatioChange},
		[][]float64{xLag1, xGrowth, xChange},
	)
}

func zeroIfMissing(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

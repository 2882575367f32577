package split

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	apperrors "dessertcpi/internal/errors"
	"dessertcpi/internal/frame"
	"dessertcpi/internal/infrastructure"
)

// Bounds is the clip interval of one column.
type Bounds struct {
	Column string
	Q1     float64
	Q3     float64
	Lower  float64
	Upper  float64
	N      int
}

// Clip clamps v into the bounds; NaN passes through.
func (b Bounds) Clip(v float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	return math.Min(b.Upper, math.Max(b.Lower, v))
}

// ClipBounds is an ordered set of per-column bounds.
type ClipBounds []Bounds

// FitBounds computes [Q1 - factor*IQR, Q3 + factor*IQR] over the finite
// values of col.
func FitBounds(values []float64, col string, factor float64) (Bounds, error) {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if frame.IsFinite(v) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return Bounds{}, apperrors.NewInsufficientDataError("clip bounds for "+col, 0, 1)
	}
	sort.Float64s(finite)
	q1 := percentile(finite, 0.25)
	q3 := percentile(finite, 0.75)
	iqr := q3 - q1
	return Bounds{
		Column: col,
		Q1:     q1,
		Q3:     q3,
		Lower:  q1 - factor*iqr,
		Upper:  q3 + factor*iqr,
		N:      len(finite),
	}, nil
}

// percentile interpolates linearly at index p*(n-1) of sorted.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}
	index := p * float64(n-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return sorted[lower]
	}
	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// FitClipBounds fits bounds for every column of cols present in f.
// Columns without finite values are skipped.
func FitClipBounds(f *frame.Frame, cols []string, factor float64) (ClipBounds, error) {
	if factor <= 0 {
		return nil, apperrors.NewValidationError(fmt.Sprintf("iqr factor must be positive, got %g", factor))
	}
	var out ClipBounds
	for _, c := range frame.Available(f.Schema(), cols) {
		b, err := FitBounds(f.MustColumn(c), c, factor)
		if err != nil {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// Apply returns f with every bounded column clamped. Applying the same
// bounds twice changes nothing further.
func (cb ClipBounds) Apply(f *frame.Frame) (*frame.Frame, error) {
	out := f
	for _, b := range cb {
		v, ok := out.Column(b.Column)
		if !ok {
			continue
		}
		for i := range v {
			v[i] = b.Clip(v[i])
		}
		var err error
		if out, err = out.WithColumn(b.Column, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Columns lists the bounded columns.
func (cb ClipBounds) Columns() []string {
	out := make([]string, len(cb))
	for i, b := range cb {
		out[i] = b.Column
	}
	return out
}

// FitScope selects which rows inform the clip bounds.
type FitScope string

const (
	// ScopeTrain fits on rows before the cutoff year.
	ScopeTrain FitScope = "train"
	// ScopeAll fits on every row, test years included.
	ScopeAll FitScope = "all"
)

// Clipper fits and applies IQR bounds around a cutoff year.
type Clipper struct {
	columns []string
	factor  float64
	scope   FitScope
	logger  *slog.Logger
}

// NewClipper creates a clipper for the given columns.
func NewClipper(columns []string, factor float64, scope FitScope, logger *slog.Logger) *Clipper {
	if scope == "" {
		scope = ScopeTrain
	}
	return &Clipper{
		columns: columns,
		factor:  factor,
		scope:   scope,
		logger:  infrastructure.WithComponent(logger, "clipper"),
	}
}

// ClipOutliers fits bounds according to the scope and applies them to all
// of f. It returns the bounds it used.
func (c *Clipper) ClipOutliers(ctx context.Context, f *frame.Frame, cutoff int) (*frame.Frame, ClipBounds, error) {
	fitOn := f
	switch c.scope {
	case ScopeTrain:
		fitOn = TimeSplit(f, cutoff).Train
		if fitOn.Len() == 0 {
			c.logger.WarnContext(ctx, "No training rows to fit clip bounds, leaving columns unclipped",
				slog.String("condition", "insufficient_data"),
				slog.Int("cutoff", cutoff))
			return f, nil, nil
		}
	case ScopeAll:
		c.logger.WarnContext(ctx, "Clip bounds fit on all rows include test-year distribution",
			slog.String("condition", "leakage"),
			slog.Int("cutoff", cutoff))
	default:
		return nil, nil, apperrors.NewValidationError(fmt.Sprintf("unknown clip fit scope %q", c.scope))
	}

	bounds, err := FitClipBounds(fitOn, c.columns, c.factor)
	if err != nil {
		return nil, nil, err
	}
	out, err := bounds.Apply(f)
	if err != nil {
		return nil, nil, err
	}

	for _, b := range bounds {
		c.logger.DebugContext(ctx, "Clip bounds",
			slog.String("column", b.Column),
			slog.Float64("lower", b.Lower),
			slog.Float64("upper", b.Upper),
			slog.Int("fit_rows", b.N))
	}
	c.logger.InfoContext(ctx, "Outliers clipped",
		slog.String("scope", string(c.scope)),
		slog.Any("columns", bounds.Columns()),
		slog.Int("fit_rows", fitOn.Len()))
	return out, bounds, nil
}

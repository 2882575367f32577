package fixedeffects

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"dessertcpi/internal/config"
	apperrors "dessertcpi/internal/errors"
	"dessertcpi/internal/features"
	"dessertcpi/internal/frame"
	"dessertcpi/internal/infrastructure"
	"dessertcpi/internal/regression"
)

// State is the lifecycle position of an Estimator.
type State int

const (
	Unfit State = iota
	Fitted
	FitFailed
)

func (s State) String() string {
	switch s {
	case Fitted:
		return "fitted"
	case FitFailed:
		return "fit_failed"
	}
	return "unfit"
}

// Options configure the estimator.
type Options struct {
	Target string
	// Base regressors; absent columns are dropped.
	Base []string
	// Shock regressors; absent columns are dropped.
	Shocks      []string
	TimeEffects bool
	CovType     regression.CovType
	MinRows     int
}

// DefaultOptions returns the district-effects, HC1 configuration.
func DefaultOptions() Options {
	return Options{
		Target:  features.ColTargetDelta,
		Base:    features.FEBase,
		Shocks:  features.ShockDefault,
		CovType: regression.HC1,
		MinRows: config.DefaultMinFitRows,
	}
}

// Estimator fits a fixed-effects model once.
type Estimator struct {
	opts   Options
	state  State
	model  *Model
	logger *slog.Logger
}

// New creates an unfit estimator.
func New(opts Options, logger *slog.Logger) *Estimator {
	if opts.CovType == "" {
		opts.CovType = regression.HC1
	}
	if opts.MinRows <= 0 {
		opts.MinRows = config.DefaultMinFitRows
	}
	return &Estimator{
		opts:   opts,
		logger: infrastructure.WithComponent(logger, "fixedeffects"),
	}
}

// State returns the estimator's lifecycle state.
func (e *Estimator) State() State { return e.state }

// Model returns the fitted model, nil unless Fitted.
func (e *Estimator) Model() *Model { return e.model }

// Fit estimates the model on train. Rows missing the target or any
// regressor are dropped first. Fewer than MinRows complete rows leave the
// estimator FitFailed and return (nil, insufficient data).
func (e *Estimator) Fit(ctx context.Context, train *frame.Frame) (*Model, error) {
	if e.state != Unfit {
		return nil, fmt.Errorf("estimator already %s", e.state)
	}
	if !train.Has(e.opts.Target) {
		e.state = FitFailed
		return nil, apperrors.NewUnresolvableColumnError(e.opts.Target, nil, train.Columns())
	}

	regressors := frame.Available(train.Schema(), slices.Concat(e.opts.Base, e.opts.Shocks))
	if err := features.CheckLeakage(regressors, e.opts.Target); err != nil {
		e.state = FitFailed
		return nil, err
	}

	d := train.DropMissing(append([]string{e.opts.Target}, regressors...))
	if d.Len() < e.opts.MinRows {
		e.state = FitFailed
		e.logger.WarnContext(ctx, "Too few complete rows for fixed-effects fit, no model",
			slog.String("condition", "insufficient_data"),
			slog.Int("rows", d.Len()),
			slog.Int("min_rows", e.opts.MinRows))
		return nil, apperrors.NewInsufficientDataError("fixed-effects fit", d.Len(), e.opts.MinRows)
	}

	lay := newLayout(d, regressors, e.opts.TimeEffects)
	x := lay.matrix(d)
	y := d.MustColumn(e.opts.Target)

	covType := e.opts.CovType
	res, err := regression.Fit(x, y, lay.names, e.fitOptions(covType, d))
	if err != nil {
		e.state = FitFailed
		return nil, fmt.Errorf("fixed-effects fit: %w", err)
	}

	if !res.FiniteStdErr() {
		if fallback, ok := simplerCov(covType); ok {
			e.logger.WarnContext(ctx, "Non-finite standard errors, refitting with simpler covariance",
				slog.String("condition", "numerical_instability"),
				slog.String("cov_type", string(covType)),
				slog.String("fallback", string(fallback)))
			covType = fallback
			if res, err = regression.Fit(x, y, lay.names, e.fitOptions(covType, d)); err != nil {
				e.state = FitFailed
				return nil, fmt.Errorf("fixed-effects refit: %w", err)
			}
		}
	}
	if !res.FiniteStdErr() {
		e.state = FitFailed
		e.logger.ErrorContext(ctx, "Standard errors remain non-finite",
			slog.String("cov_type", string(covType)),
			slog.Int("rows", res.NObs),
			slog.Int("rank", res.Rank))
		return nil, apperrors.NewEstimationFailedError("fixed-effects standard errors are not finite", nil).
			WithContext("cov_type", string(covType))
	}

	e.model = &Model{
		Result:      res,
		Target:      e.opts.Target,
		Regressors:  regressors,
		TimeEffects: e.opts.TimeEffects,
		CovType:     covType,
		layout:      lay,
		trainCells:  cellSet(train),
	}
	e.state = Fitted

	e.logger.InfoContext(ctx, "Fixed-effects model fitted",
		slog.String("target", e.opts.Target),
		slog.Int("rows", res.NObs),
		slog.Int("districts", len(lay.entities)),
		slog.Int("rank", res.Rank),
		slog.Bool("time_effects", e.opts.TimeEffects),
		slog.String("cov_type", string(covType)),
		slog.Float64("r_squared", res.RSquared))
	return e.model, nil
}

// Predict returns model predictions, or all NaN when the estimator is not
// Fitted.
func (e *Estimator) Predict(f *frame.Frame) Prediction {
	if e.state != Fitted {
		return nanPrediction(f.Len())
	}
	return e.model.Predict(f)
}

func (e *Estimator) fitOptions(cov regression.CovType, d *frame.Frame) regression.Options {
	opts := regression.Options{CovType: cov}
	if cov == regression.Cluster {
		opts.Groups = make([]string, d.Len())
		for i := range opts.Groups {
			opts.Groups[i] = d.Key(i).Entity
		}
	}
	return opts
}

func cellSet(f *frame.Frame) map[frame.Key]struct{} {
	out := make(map[frame.Key]struct{}, f.Len())
	for _, k := range f.Keys() {
		out[k] = struct{}{}
	}
	return out
}

// simplerCov returns the estimator tried when cov yields non-finite
// standard errors.
func simplerCov(cov regression.CovType) (regression.CovType, bool) {
	switch cov {
	case regression.Cluster:
		return regression.HC1, true
	case regression.HC1:
		return regression.NonRobust, true
	}
	return "", false
}

package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"dessertcpi/internal/frame"
	"dessertcpi/internal/infrastructure"
	"dessertcpi/internal/split"
)

// Summary row labels appended after the folds.
const (
	LabelMean = "mean"
	LabelStd  = "std"
)

// Model names used in reports.
const (
	ModelBaseline = "Baseline"
	ModelFullLR   = "Full_LR"
	ModelFullOLS  = "Full_OLS"
	ModelFullFE   = "Full_FE"
)

// ModelSpec names a predictor family and the features it sees.
type ModelSpec struct {
	Name     string
	Features []string
	Factory  Factory
}

// FoldRow is one line of a rolling table: a fold, or a mean/std summary.
type FoldRow struct {
	Model      string
	Label      string
	TestYear   int
	TrainYears []int
	TrainRows  int
	TestRows   int
	Score
}

// IsSummary reports whether the row is a mean or std sentinel.
func (r FoldRow) IsSummary() bool { return r.Label == LabelMean || r.Label == LabelStd }

// RollingTable holds a model's folds followed by its mean and std rows.
type RollingTable struct {
	Model string
	Rows  []FoldRow
}

// Folds returns the per-fold rows.
func (t RollingTable) Folds() []FoldRow {
	var out []FoldRow
	for _, r := range t.Rows {
		if !r.IsSummary() {
			out = append(out, r)
		}
	}
	return out
}

// Summary returns the sentinel row with the given label.
func (t RollingTable) Summary(label string) (FoldRow, bool) {
	for _, r := range t.Rows {
		if r.Label == label {
			return r, true
		}
	}
	return FoldRow{}, false
}

// FoldPrep derives the frame a fold is evaluated on. It runs once per
// fold, possibly concurrently with other folds.
type FoldPrep func(ctx context.Context, f *frame.Frame, fd split.Fold) (*frame.Frame, error)

// RollingValidator runs an expanding-window evaluation over years.
type RollingValidator struct {
	target   string
	specs    []ModelSpec
	minTrain int
	minTest  int
	prep     FoldPrep
	logger   *slog.Logger
}

// NewRollingValidator creates a validator. Folds whose complete training
// rows fall below minTrain, or test rows below minTest, are skipped per
// model.
func NewRollingValidator(target string, specs []ModelSpec, minTrain, minTest int, logger *slog.Logger) *RollingValidator {
	return &RollingValidator{
		target:   target,
		specs:    specs,
		minTrain: minTrain,
		minTest:  minTest,
		logger:   infrastructure.WithComponent(logger, "rolling"),
	}
}

// WithFoldPrep sets a per-fold preparation step, such as fitting
// preprocessing on the fold's training years only.
func (v *RollingValidator) WithFoldPrep(p FoldPrep) *RollingValidator {
	v.prep = p
	return v
}

// Run evaluates every model on every fold. Folds are independent and run
// concurrently; the result order is deterministic.
func (v *RollingValidator) Run(ctx context.Context, f *frame.Frame) ([]RollingTable, error) {
	folds := split.ExpandingFolds(f.Years())
	results := make([][]*FoldRow, len(folds))

	g, gctx := errgroup.WithContext(ctx)
	for i, fd := range folds {
		g.Go(func() error {
			rows, err := v.runFold(gctx, f, fd)
			if err != nil {
				return err
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tables := make([]RollingTable, 0, len(v.specs))
	for s, spec := range v.specs {
		t := RollingTable{Model: spec.Name}
		for i := range folds {
			if r := results[i][s]; r != nil {
				t.Rows = append(t.Rows, *r)
			}
		}
		if len(t.Rows) == 0 {
			v.logger.WarnContext(ctx, "No usable folds for model",
				slog.String("condition", "insufficient_data"),
				slog.String("model", spec.Name))
			continue
		}
		t.Rows = append(t.Rows, summarize(spec.Name, t.Rows)...)
		tables = append(tables, t)
	}

	v.logger.InfoContext(ctx, "Rolling validation complete",
		slog.Int("folds", len(folds)),
		slog.Int("models", len(tables)))
	return tables, nil
}

// runFold returns one row per spec, nil where the fold was skipped.
func (v *RollingValidator) runFold(ctx context.Context, f *frame.Frame, fd split.Fold) ([]*FoldRow, error) {
	if v.prep != nil {
		var err error
		if f, err = v.prep(ctx, f, fd); err != nil {
			return nil, fmt.Errorf("prepare fold %d: %w", fd.TestYear, err)
		}
	}
	s := fd.Apply(f)
	out := make([]*FoldRow, len(v.specs))
	for i, spec := range v.specs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		train, err := Prepare(s.Train, spec.Features, v.target)
		if err != nil {
			return nil, err
		}
		test, err := Prepare(s.Test, spec.Features, v.target)
		if err != nil {
			return nil, err
		}
		if train.Len() < v.minTrain || test.Len() < v.minTest {
			v.logger.DebugContext(ctx, "Skipping fold",
				slog.String("model", spec.Name),
				slog.Int("test_year", fd.TestYear),
				slog.Int("train_rows", train.Len()),
				slog.Int("test_rows", test.Len()))
			continue
		}

		m := spec.Factory()
		if err := m.Fit(ctx, train.X, train.Y); err != nil {
			return nil, err
		}
		pred, err := m.Predict(test.X)
		if err != nil {
			return nil, err
		}
		score, err := Evaluate(test.Y, pred)
		if err != nil {
			return nil, err
		}
		out[i] = &FoldRow{
			Model:      spec.Name,
			Label:      strconv.Itoa(fd.TestYear),
			TestYear:   fd.TestYear,
			TrainYears: fd.TrainYears,
			TrainRows:  train.Len(),
			TestRows:   test.Len(),
			Score:      score,
		}
	}
	return out, nil
}

// summarize returns the mean and population std rows of the folds.
func summarize(model string, rows []FoldRow) []FoldRow {
	rmse := make([]float64, len(rows))
	mae := make([]float64, len(rows))
	r2 := make([]float64, len(rows))
	for i, r := range rows {
		rmse[i], mae[i], r2[i] = r.RMSE, r.MAE, r.R2
	}
	mRMSE, sRMSE := stat.PopMeanStdDev(rmse, nil)
	mMAE, sMAE := stat.PopMeanStdDev(mae, nil)
	mR2, sR2 := stat.PopMeanStdDev(r2, nil)
	return []FoldRow{
		{Model: model, Label: LabelMean, Score: Score{RMSE: mRMSE, MAE: mMAE, R2: mR2, N: len(rows)}},
		{Model: model, Label: LabelStd, Score: Score{RMSE: sRMSE, MAE: sMAE, R2: sR2, N: len(rows)}},
	}
}

package evaluation

import (
	"context"
	"errors"
	"log/slog"

	apperrors "dessertcpi/internal/errors"
	"dessertcpi/internal/fixedeffects"
	"dessertcpi/internal/frame"
	"dessertcpi/internal/infrastructure"
	"dessertcpi/internal/split"
)

// ComparisonRow is one model's holdout score.
type ComparisonRow struct {
	Model     string
	Features  []string
	TrainRows int
	TestRows  int
	Score
}

// ComparisonResult is the outcome of a holdout comparison.
type ComparisonResult struct {
	Rows []ComparisonRow
	// FE is the fitted fixed-effects model, nil when the fit failed.
	FE *fixedeffects.Model
}

// Comparison scores the lag-only baseline, the lag plus shock OLS and the
// fixed-effects model on one holdout split.
type Comparison struct {
	Target     string
	Baseline   []string
	Full       []string
	FE         fixedeffects.Options
	MinTrain   int
	MinFEValid int
	logger     *slog.Logger
}

// NewComparison creates a holdout comparison.
func NewComparison(target string, baseline, full []string, fe fixedeffects.Options, minTrain, minFEValid int, logger *slog.Logger) *Comparison {
	fe.Target = target
	return &Comparison{
		Target:     target,
		Baseline:   baseline,
		Full:       full,
		FE:         fe,
		MinTrain:   minTrain,
		MinFEValid: minFEValid,
		logger:     infrastructure.WithComponent(logger, "comparison"),
	}
}

// Run fits every model on s.Train and scores it on s.Test. The FE row is
// present only when the fit succeeds and more than MinFEValid test rows
// have a finite prediction and target.
func (c *Comparison) Run(ctx context.Context, s split.Split) (*ComparisonResult, error) {
	res := &ComparisonResult{}

	for _, m := range []struct {
		name     string
		features []string
	}{
		{ModelBaseline, c.Baseline},
		{ModelFullOLS, c.Full},
	} {
		row, err := c.scoreOLS(ctx, m.name, m.features, s)
		if err != nil {
			return nil, err
		}
		if row != nil {
			res.Rows = append(res.Rows, *row)
		}
	}

	est := fixedeffects.New(c.FE, c.logger)
	model, err := est.Fit(ctx, s.Train)
	switch {
	case err == nil:
		res.FE = model
	case isSoft(err):
		c.logger.WarnContext(ctx, "Fixed-effects model unavailable for comparison",
			slog.String("error", err.Error()))
		return res, nil
	default:
		return nil, err
	}

	pred := est.Predict(s.Test)
	y, ok := s.Test.Column(c.Target)
	if !ok {
		return res, nil
	}
	var yv, pv []float64
	for i := range y {
		if frame.IsFinite(y[i]) && frame.IsFinite(pred.Values[i]) {
			yv = append(yv, y[i])
			pv = append(pv, pred.Values[i])
		}
	}
	if len(yv) <= c.MinFEValid {
		c.logger.WarnContext(ctx, "Too few predictable test rows to score fixed effects",
			slog.String("condition", "insufficient_data"),
			slog.Int("rows", len(yv)),
			slog.Int("min_rows", c.MinFEValid+1))
		return res, nil
	}
	score, err := Evaluate(yv, pv)
	if err != nil {
		return nil, err
	}
	res.Rows = append(res.Rows, ComparisonRow{
		Model:     ModelFullFE,
		Features:  model.Regressors,
		TrainRows: model.Result.NObs,
		TestRows:  len(yv),
		Score:     score,
	})
	return res, nil
}

func (c *Comparison) scoreOLS(ctx context.Context, name string, features []string, s split.Split) (*ComparisonRow, error) {
	train, err := Prepare(s.Train, features, c.Target)
	if err != nil {
		return nil, err
	}
	test, err := Prepare(s.Test, features, c.Target)
	if err != nil {
		return nil, err
	}
	if train.Len() < c.MinTrain || test.Len() == 0 {
		c.logger.WarnContext(ctx, "Skipping holdout model",
			slog.String("condition", "insufficient_data"),
			slog.String("model", name),
			slog.Int("train_rows", train.Len()),
			slog.Int("test_rows", test.Len()))
		return nil, nil
	}
	m := &OLS{}
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
	return &ComparisonRow{
		Model:     name,
		Features:  frame.Available(s.Train.Schema(), features),
		TrainRows: train.Len(),
		TestRows:  test.Len(),
		Score:     score,
	}, nil
}

func isSoft(err error) bool {
	var ae *apperrors.AppError
	return errors.As(err, &ae) && !ae.Type.IsFatal()
}

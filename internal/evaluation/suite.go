package evaluation

import (
	"context"
	"errors"
	"log/slog"

	apperrors "dessertcpi/internal/errors"
	"dessertcpi/internal/infrastructure"
	"dessertcpi/internal/split"
)

// RunSuite fits each named model family on s.Train and scores it on
// s.Test with the same features. Families without an implementation are
// skipped with a notice; the remaining families still run.
func RunSuite(ctx context.Context, families []string, s split.Split, features []string, target string, logger *slog.Logger) ([]ComparisonRow, error) {
	logger = infrastructure.WithComponent(logger, "suite")

	train, err := Prepare(s.Train, features, target)
	if err != nil {
		return nil, err
	}
	test, err := Prepare(s.Test, features, target)
	if err != nil {
		return nil, err
	}
	if train.Len() == 0 || test.Len() == 0 {
		logger.WarnContext(ctx, "No complete rows for model suite",
			slog.String("condition", "insufficient_data"),
			slog.Int("train_rows", train.Len()),
			slog.Int("test_rows", test.Len()))
		return nil, nil
	}

	var rows []ComparisonRow
	for _, name := range families {
		factory, err := Lookup(name)
		if errors.Is(err, apperrors.ErrMissingDependency) {
			logger.WarnContext(ctx, "Model family unavailable, skipping",
				slog.String("condition", "missing_optional_dependency"),
				slog.String("model", name))
			continue
		}
		if err != nil {
			return nil, err
		}

		m := factory()
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
		rows = append(rows, ComparisonRow{
			Model:     name,
			Features:  features,
			TrainRows: train.Len(),
			TestRows:  test.Len(),
			Score:     score,
		})
	}
	return rows, nil
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	apperrors "dessertcpi/internal/errors"
	"dessertcpi/internal/infrastructure"
)

// Runner executes stages from a registry.
type Runner struct {
	registry  *Registry
	telemetry *infrastructure.Telemetry
	logger    *slog.Logger
}

// NewRunner creates a runner. telemetry may be nil.
func NewRunner(registry *Registry, telemetry *infrastructure.Telemetry, logger *slog.Logger) *Runner {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Runner{
		registry:  registry,
		telemetry: telemetry,
		logger:    infrastructure.WithComponent(logger, "pipeline"),
	}
}

// Registry returns the registry the runner plans from.
func (r *Runner) Registry() *Registry { return r.registry }

// Run executes the stages needed for targets (all stages when none are
// given). A fatal stage error stops the run and is returned. A soft error
// skips the stage and every stage depending on it.
func (r *Runner) Run(ctx context.Context, state *RunState, targets ...string) error {
	plan, err := r.registry.Plan(targets...)
	if err != nil {
		state.Fail(err)
		return err
	}

	ctx, span := r.telemetry.StartSpan(ctx, "pipeline.run",
		attribute.String("run.id", state.ID),
		attribute.Int("run.stages", len(plan)))
	defer span.End()

	state.Start()
	r.logger.InfoContext(ctx, "Pipeline started",
		slog.String("run_id", state.ID),
		slog.Int("stages", len(plan)),
		slog.Any("targets", targets))

	for _, stage := range plan {
		if err := ctx.Err(); err != nil {
			state.Fail(err)
			return err
		}
		if err := r.runStage(ctx, state, stage); err != nil {
			infrastructure.RecordError(ctx, err)
			state.Fail(err)
			return err
		}
	}

	state.Complete()
	r.logger.InfoContext(ctx, "Pipeline completed",
		slog.String("run_id", state.ID),
		slog.Duration("duration", time.Since(state.StartTime)))
	return nil
}

func (r *Runner) runStage(ctx context.Context, state *RunState, stage Stage) error {
	st := state.Stage(stage.ID(), stage.Name())

	for _, dep := range stage.Dependencies() {
		if status := state.StageStatus(dep); status != StageStatusCompleted {
			reason := fmt.Sprintf("dependency %s %s", dep, status)
			st.Skip(reason)
			r.logger.WarnContext(ctx, "Skipping stage",
				slog.String("stage", stage.ID()),
				slog.String("reason", reason))
			r.telemetry.RecordStage(ctx, stage.ID(), string(StageStatusSkipped), 0, 0)
			return nil
		}
	}

	ctx, span := r.telemetry.StartSpan(ctx, "pipeline.stage."+stage.ID(),
		attribute.String("stage.id", stage.ID()),
		attribute.String("stage.name", stage.Name()))
	defer span.End()

	st.Start()
	r.logger.InfoContext(ctx, "Stage started", slog.String("stage", stage.ID()))

	rows, err := stage.Run(ctx, state)
	d := st.Duration()

	switch {
	case err == nil:
		st.Complete(rows)
		span.SetAttributes(attribute.Int("stage.rows", rows))
		r.telemetry.RecordStage(ctx, stage.ID(), string(StageStatusCompleted), d, rows)
		r.logger.InfoContext(ctx, "Stage completed",
			slog.String("stage", stage.ID()),
			slog.Int("rows", rows),
			slog.Duration("duration", d))
		return nil

	case IsSoft(err):
		st.Skip(err.Error())
		r.telemetry.RecordStage(ctx, stage.ID(), string(StageStatusSkipped), d, 0)
		r.logger.WarnContext(ctx, "Stage skipped",
			slog.String("stage", stage.ID()),
			slog.String("condition", conditionOf(err)),
			slog.String("error", err.Error()))
		return nil

	default:
		st.Fail(err)
		infrastructure.RecordError(ctx, err)
		r.telemetry.RecordStage(ctx, stage.ID(), string(StageStatusFailed), d, 0)
		infrastructure.WithError(r.logger, err).ErrorContext(ctx, "Stage failed",
			slog.String("stage", stage.ID()))
		return fmt.Errorf("stage %s: %w", stage.ID(), err)
	}
}

// IsSoft reports whether err is a recoverable modeling condition.
func IsSoft(err error) bool {
	var ae *apperrors.AppError
	return errors.As(err, &ae) && !ae.Type.IsFatal()
}

func conditionOf(err error) string {
	var ae *apperrors.AppError
	if !errors.As(err, &ae) {
		return ""
	}
	switch ae.Type {
	case apperrors.ErrTypeInsufficientData:
		return "insufficient_data"
	case apperrors.ErrTypeNumerical:
		return "numerical_instability"
	case apperrors.ErrTypeMissingDependency:
		return "missing_optional_dependency"
	case apperrors.ErrTypeMalformedDate:
		return "malformed_date_label"
	}
	return string(ae.Type)
}

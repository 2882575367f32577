package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"dessertcpi/internal/analysis"
	"dessertcpi/internal/config"
	apperrors "dessertcpi/internal/errors"
	"dessertcpi/internal/evaluation"
	"dessertcpi/internal/exporter"
	"dessertcpi/internal/features"
	"dessertcpi/internal/files"
	"dessertcpi/internal/fixedeffects"
	"dessertcpi/internal/frame"
	"dessertcpi/internal/infrastructure"
	"dessertcpi/internal/macro"
	"dessertcpi/internal/regression"
	"dessertcpi/internal/sales"
	"dessertcpi/internal/split"
	"dessertcpi/internal/validation"
)

// Stage IDs of the default pipeline.
const (
	StagePreflight     = "preflight"
	StageLoadSales     = "load_sales"
	StageBuildPanel    = "build_panel"
	StageLoadMacro     = "load_macro"
	StageExportMacro   = "export_macro"
	StageBuildFeatures = "build_features"
	StageJoinMacro     = "join_macro"
	StageClipOutliers  = "clip_outliers"
	StageAddTargets    = "add_targets"
	StageAddShocks     = "add_shocks"
	StageExportDataset = "export_dataset"
	StageSplit         = "split"
	StageCompare       = "compare_models"
	StageRolling       = "rolling_validation"
	StageModelSuite    = "model_suite"
	StageVIF           = "vif"
	StageCorrelation   = "correlation"
)

// Environment holds what the default stages are built from.
type Environment struct {
	Config    *config.Config
	Paths     *config.Paths
	Telemetry *infrastructure.Telemetry
	Logger    *slog.Logger
	// MacroFallbackDirs overrides where missing workbooks are searched;
	// nil uses the Downloads directory.
	MacroFallbackDirs []string
}

// NewDefaultRegistry registers the default stages.
func NewDefaultRegistry(env Environment) (*Registry, error) {
	stages, err := DefaultStages(env)
	if err != nil {
		return nil, err
	}
	r := NewRegistry()
	for _, s := range stages {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// DefaultStages builds the dessert-share pipeline from configuration.
func DefaultStages(env Environment) ([]Stage, error) {
	cfg, paths := env.Config, env.Paths
	if cfg == nil || paths == nil {
		return nil, apperrors.NewConfigError("pipeline needs a config and resolved paths", nil)
	}
	logger := env.Logger

	agg, err := macro.ParseAggregation(cfg.Pipeline.MacroAggregation)
	if err != nil {
		return nil, apperrors.NewConfigError("invalid macro aggregation", err)
	}
	covType, err := regression.ParseCovType(cfg.Model.CovType)
	if err != nil {
		return nil, apperrors.NewConfigError("invalid covariance type", err)
	}

	normalizer := macro.NewNormalizer(agg, logger)
	if env.MacroFallbackDirs != nil {
		normalizer.WithFallbackDirs(env.MacroFallbackDirs...)
	}
	loader := sales.NewLoader(files.NewDiscovery(paths.BaseDir), "", logger)
	builder := features.NewBuilder(cfg.Pipeline.ExtraLags, logger)
	clipper := split.NewClipper(cfg.Pipeline.ClipColumns, cfg.Pipeline.IQRFactor, split.FitScope(cfg.Pipeline.ClipFitScope), logger)
	shocks := features.NewShockConstructor(cfg.Pipeline.ShockWindow, logger)
	exp := exporter.New(paths.OutputsDir, logger)
	tel := env.Telemetry

	feOpts := fixedeffects.Options{
		Target:      cfg.Model.Target,
		Base:        features.FEBase,
		Shocks:      features.ShockDefault,
		TimeEffects: cfg.Model.TimeEffects,
		CovType:     covType,
		MinRows:     cfg.Model.MinFitRows,
	}

	return []Stage{
		NewStage(StagePreflight, "Validate inputs", nil, func(ctx context.Context, s *RunState) (int, error) {
			report, err := validation.NewFileValidator(logger).Preflight(paths)
			if err != nil {
				return 0, err
			}
			s.Preflight = report
			return report.RawFiles, nil
		}),

		NewStage(StageLoadSales, "Load raw sales", []string{StagePreflight}, func(ctx context.Context, s *RunState) (int, error) {
			records, err := loader.Load(ctx, paths.RawDir)
			if err != nil {
				return 0, err
			}
			s.Records = records
			return len(records), nil
		}),

		NewStage(StageBuildPanel, "Aggregate district panel", []string{StageLoadSales}, func(ctx context.Context, s *RunState) (int, error) {
			panel, err := sales.BuildPanel(s.Records)
			if err != nil {
				return 0, err
			}
			s.Panel = panel
			return panel.Len(), nil
		}),

		NewStage(StageLoadMacro, "Normalize macro series", nil, func(ctx context.Context, s *RunState) (int, error) {
			table, err := normalizer.Build(ctx, macro.Sources{
				CPI:      paths.CPIFile,
				MoM:      paths.MoMFile,
				Expected: paths.ExpectedFile,
			})
			if err != nil {
				return 0, err
			}
			s.Macro = table
			return table.Len(), nil
		}),

		NewStage(StageExportMacro, "Write macro table", []string{StageLoadMacro}, func(ctx context.Context, s *RunState) (int, error) {
			if s.Macro.Len() == 0 {
				return 0, apperrors.NewInsufficientDataError("macro quarters", 0, 1)
			}
			return s.Macro.Len(), exp.WriteMacro(paths.MacroQuarterlyCSV, s.Macro)
		}),

		NewStage(StageBuildFeatures, "Build panel features", []string{StageBuildPanel}, func(ctx context.Context, s *RunState) (int, error) {
			f, err := builder.Build(ctx, s.Panel)
			if err != nil {
				return 0, err
			}
			s.Base = f
			s.Features = f
			return f.Len(), nil
		}),

		NewStage(StageJoinMacro, "Join macro series", []string{StageBuildFeatures, StageLoadMacro}, func(ctx context.Context, s *RunState) (int, error) {
			f, err := features.JoinMacro(ctx, s.Features, s.Macro, logger)
			if err != nil {
				return 0, err
			}
			s.Joined, s.Features = f, f
			return f.Len(), nil
		}),

		NewStage(StageClipOutliers, "Clip outliers", []string{StageJoinMacro}, func(ctx context.Context, s *RunState) (int, error) {
			f, bounds, err := clipper.ClipOutliers(ctx, s.Features, cfg.Pipeline.TestYear)
			if err != nil {
				return 0, err
			}
			s.Features, s.Bounds = f, bounds
			return f.Len(), nil
		}),

		NewStage(StageAddTargets, "Construct targets", []string{StageClipOutliers}, func(ctx context.Context, s *RunState) (int, error) {
			f, err := features.AddTargets(s.Features)
			if err != nil {
				return 0, err
			}
			s.Features = f
			return f.Len(), nil
		}),

		NewStage(StageAddShocks, "Construct inflation shocks", []string{StageAddTargets}, func(ctx context.Context, s *RunState) (int, error) {
			f, err := shocks.AddShocks(ctx, s.Features)
			if err != nil {
				return 0, err
			}
			s.Features = f
			return f.Len(), nil
		}),

		NewStage(StageExportDataset, "Write model-ready dataset", []string{StageAddShocks}, func(ctx context.Context, s *RunState) (int, error) {
			return s.Features.Len(), exp.WriteFrame(paths.MLReadyCSV, s.Features)
		}),

		NewStage(StageSplit, "Split by year", []string{StageAddShocks}, func(ctx context.Context, s *RunState) (int, error) {
			s.Split = split.TimeSplit(s.Features, cfg.Pipeline.TestYear)
			logger.InfoContext(ctx, "Holdout split",
				slog.Int("cutoff", cfg.Pipeline.TestYear),
				slog.Int("train_rows", s.Split.Train.Len()),
				slog.Int("test_rows", s.Split.Test.Len()))
			if s.Split.Train.Len() == 0 || s.Split.Test.Len() == 0 {
				return 0, apperrors.NewInsufficientDataError("holdout split rows", min(s.Split.Train.Len(), s.Split.Test.Len()), 1)
			}
			return s.Split.Test.Len(), nil
		}),

		NewStage(StageCompare, "Compare baseline, full and fixed effects", []string{StageSplit}, func(ctx context.Context, s *RunState) (int, error) {
			schema := s.Features.Schema()
			cmp := evaluation.NewComparison(cfg.Model.Target,
				features.BaselineFeatures(schema), features.FullFeatures(schema),
				feOpts, cfg.Model.MinTrainRows, cfg.Model.MinFEValidRows, logger)
			res, err := cmp.Run(ctx, s.Split)
			if err != nil {
				return 0, err
			}
			s.Comparison = res

			for _, row := range res.Rows {
				recordScore(tel, row.Model, "holdout", row.Score)
			}
			if err := exp.WriteComparison(paths.ComparisonCSV, res.Rows); err != nil {
				return 0, err
			}
			if res.FE != nil {
				summary := res.FE.Summary()
				for _, c := range summary {
					tel.RecordCoefficient(c.Name, c.Coef)
				}
				if err := exp.WriteCoefficients(paths.CoefficientsCSV, summary); err != nil {
					return 0, err
				}
			}
			return len(res.Rows), nil
		}),

		NewStage(StageRolling, "Rolling validation", []string{StageAddShocks}, func(ctx context.Context, s *RunState) (int, error) {
			schema := s.Features.Schema()
			ols := func() evaluation.Predictor { return &evaluation.OLS{} }
			specs := []evaluation.ModelSpec{
				{Name: evaluation.ModelBaseline, Features: features.BaselineFeatures(schema), Factory: ols},
				{Name: evaluation.ModelFullLR, Features: features.FullFeatures(schema), Factory: ols},
			}
			v := evaluation.NewRollingValidator(cfg.Model.Target, specs, cfg.Model.MinTrainRows, cfg.Model.MinTestRows, logger)
			panel := s.Features
			if s.Joined != nil {
				// Clip bounds are refit on each fold's training years.
				panel = s.Joined
				v.WithFoldPrep(func(ctx context.Context, f *frame.Frame, fd split.Fold) (*frame.Frame, error) {
					return prepareFold(ctx, clipper, shocks, f, fd.TestYear)
				})
			}
			tables, err := v.Run(ctx, panel)
			if err != nil {
				return 0, err
			}
			s.Rolling = tables

			out := map[string]string{
				evaluation.ModelBaseline: paths.RollingBaselineCSV,
				evaluation.ModelFullLR:   paths.RollingFullCSV,
			}
			rows := 0
			for _, t := range tables {
				for _, r := range t.Rows {
					recordScore(tel, r.Model, r.Label, r.Score)
				}
				if err := exp.WriteRolling(out[t.Model], t); err != nil {
					return 0, err
				}
				rows += len(t.Rows)
			}
			return rows, nil
		}),

		NewStage(StageModelSuite, "Model family suite", []string{StageSplit}, func(ctx context.Context, s *RunState) (int, error) {
			feats := features.MLFeatures(s.Features.Schema())
			rows, err := evaluation.RunSuite(ctx, cfg.Model.Families, s.Split, feats, cfg.Model.MLTarget, logger)
			if err != nil {
				return 0, err
			}
			if len(rows) == 0 {
				return 0, apperrors.NewInsufficientDataError("model suite results", 0, 1)
			}
			s.Suite = rows
			for _, row := range rows {
				recordScore(tel, row.Model, "holdout", row.Score)
			}
			return len(rows), exp.WriteComparison(paths.ModelSuiteCSV, rows)
		}),

		NewStage(StageVIF, "Variance inflation factors", []string{StageAddShocks}, func(ctx context.Context, s *RunState) (int, error) {
			feats := features.MLFeatures(s.Features.Schema())
			rows, err := analysis.VIF(s.Features, feats)
			if err != nil {
				return 0, err
			}
			if len(rows) == 0 {
				return 0, apperrors.NewInsufficientDataError("VIF rows", 0, len(feats)+1)
			}
			s.VIF = rows
			for _, r := range rows {
				if r.High {
					logger.WarnContext(ctx, "High collinearity",
						slog.String("feature", r.Feature),
						slog.Float64("vif", r.VIF))
				}
			}
			return len(rows), exp.WriteVIF(paths.VIFCSV, rows)
		}),

		NewStage(StageCorrelation, "Dessert vs macro correlation", []string{StageBuildFeatures, StageLoadMacro}, func(ctx context.Context, s *RunState) (int, error) {
			if s.Macro.Len() == 0 {
				return 0, apperrors.NewInsufficientDataError("macro quarters", 0, 1)
			}
			agg, err := analysis.QuarterlyAggregate(s.Base)
			if err != nil {
				return 0, err
			}
			merged, err := analysis.MergeMacro(agg, s.Macro)
			if err != nil {
				return 0, err
			}
			if merged.Len() < 2 {
				return 0, apperrors.NewInsufficientDataError("merged quarters", merged.Len(), 2)
			}
			cols := frame.Available(merged.Schema(), slices.Concat(analysis.DessertColumns, analysis.MacroColumns))
			s.Merged = merged
			s.Corr = analysis.Correlate(merged, cols)

			if err := exp.WriteQuarterly(paths.MergedQuarterlyCSV, merged); err != nil {
				return 0, err
			}
			if err := exp.WriteCorrelation(paths.CorrelationCSV, s.Corr); err != nil {
				return 0, err
			}
			return merged.Len(), nil
		}),
	}, nil
}

func recordScore(t *infrastructure.Telemetry, model, label string, s evaluation.Score) {
	t.RecordFoldScore(model, label, "rmse", s.RMSE)
	t.RecordFoldScore(model, label, "mae", s.MAE)
	t.RecordFoldScore(model, label, "r2", s.R2)
}

// Describe renders the stage plan for targets as "id (deps)" lines.
func Describe(r *Registry, targets ...string) ([]string, error) {
	plan, err := r.Plan(targets...)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(plan))
	for i, s := range plan {
		out[i] = fmt.Sprintf("%s %v", s.ID(), s.Dependencies())
	}
	return out, nil
}

// prepareFold clips f with bounds fit on the years before testYear and
// rebuilds the targets and shocks on the clipped values.
func prepareFold(ctx context.Context, clipper *split.Clipper, shocks *features.ShockConstructor, f *frame.Frame, testYear int) (*frame.Frame, error) {
	clipped, _, err := clipper.ClipOutliers(ctx, f, testYear)
	if err != nil {
		return nil, err
	}
	withTargets, err := features.AddTargets(clipped)
	if err != nil {
		return nil, err
	}
	return shocks.AddShocks(ctx, withTargets)
}

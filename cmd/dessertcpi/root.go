package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"dessertcpi/internal/config"
	"dessertcpi/internal/infrastructure"
	"dessertcpi/internal/pipeline"
)

// options are the flags shared by every subcommand.
type options struct {
	configPath string
	baseDir    string
	outDir     string
	logLevel   string
	testYear   int
	dryRun     bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   config.AppName,
		Short: "Dessert retail share vs inflation panel pipeline",
		Long: `Builds a quarterly district panel of dessert sales share from raw
commercial-district sales, joins national CPI and expected inflation,
and estimates how inflation shocks move the dessert share.

Configuration is read from config.yaml (or --config) and DESSERT_*
environment variables. Flags override both.`,
		Version:       config.AppVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "path to config.yaml")
	pf.StringVar(&opts.baseDir, "data-dir", "", "base directory holding data/ (overrides paths.base_dir)")
	pf.StringVar(&opts.outDir, "out", "", "output directory for reports (overrides paths.outputs_dir)")
	pf.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	pf.IntVar(&opts.testYear, "test-year", 0, "first holdout year (overrides pipeline.test_year)")
	pf.BoolVar(&opts.dryRun, "dry-run", false, "print the stage plan without running it")

	root.AddCommand(
		stageCmd(opts, "run", "Run the full pipeline"),
		stageCmd(opts, "features", "Build and write the model-ready dataset",
			pipeline.StageExportDataset),
		stageCmd(opts, "macro", "Normalize the macro workbooks into a quarterly table",
			pipeline.StageExportMacro),
		stageCmd(opts, "correlate", "Correlate quarterly dessert aggregates with macro series",
			pipeline.StageCorrelation),
	)
	return root
}

func stageCmd(opts *options, use, short string, targets ...string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return execute(cmd.Context(), cmd.OutOrStdout(), opts, targets...)
		},
	}
}

// loadConfig loads the configuration and applies flag overrides.
func loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.baseDir != "" {
		cfg.Paths.BaseDir = opts.baseDir
	}
	if opts.outDir != "" {
		cfg.Paths.OutputsDir = opts.outDir
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.testYear > 0 {
		cfg.Pipeline.TestYear = opts.testYear
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func execute(ctx context.Context, out io.Writer, opts *options, targets ...string) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	paths, err := cfg.ResolvePaths()
	if err != nil {
		return err
	}
	if err := paths.EnsureDirectories(); err != nil {
		return err
	}

	cfg.Logging.FilePath = paths.LogFile
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer infrastructure.CloseLogFile()

	runID := uuid.NewString()
	ctx = infrastructure.WithTraceID(ctx, runID)

	tel, err := infrastructure.InitializeTelemetry(ctx, infrastructure.TelemetryOptions{
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: cfg.Telemetry.TracingEnabled,
		MetricsEnabled: cfg.Telemetry.MetricsEnabled,
		TraceFile:      paths.TraceFile,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := tel.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.WarnContext(ctx, "Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	reg, err := pipeline.NewDefaultRegistry(pipeline.Environment{
		Config:    cfg,
		Paths:     paths,
		Telemetry: tel,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	if opts.dryRun {
		lines, err := pipeline.Describe(reg, targets...)
		if err != nil {
			return err
		}
		for _, l := range lines {
			fmt.Fprintln(out, l)
		}
		return nil
	}

	state := pipeline.NewRunState(runID)
	runErr := pipeline.NewRunner(reg, tel, logger).Run(ctx, state, targets...)
	printSummary(out, state)

	if cfg.Telemetry.MetricsEnabled {
		if err := tel.WriteMetrics(paths.MetricsTextfile); err != nil {
			logger.WarnContext(ctx, "Failed to write metrics textfile",
				slog.String("path", paths.MetricsTextfile),
				slog.String("error", err.Error()))
		}
	}
	return runErr
}

func printSummary(out io.Writer, state *pipeline.RunState) {
	fmt.Fprintf(out, "run %s: %s\n", state.ID, state.Status)
	for _, st := range state.Stages() {
		line := fmt.Sprintf("  %-20s %-10s %7d rows %8s", st.ID, st.GetStatus(), st.Rows, st.Duration().Round(time.Millisecond))
		if st.Message != "" {
			line += "  " + st.Message
		}
		fmt.Fprintln(out, line)
	}
}

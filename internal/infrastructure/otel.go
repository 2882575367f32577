package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"dessertcpi/internal/config"
)

const (
	ServiceVersion = config.AppVersion
	MeterName      = "dessertcpi"
)

// TelemetryOptions holds the resolved telemetry settings for one run
type TelemetryOptions struct {
	ServiceName    string
	TracingEnabled bool
	MetricsEnabled bool
	// TraceOutput receives pretty-printed spans; nil with tracing enabled
	// means TraceFile is opened instead.
	TraceOutput io.Writer
	TraceFile   string
}

// Telemetry holds the OpenTelemetry providers and the Prometheus registry
// the run's metrics are gathered into.
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Registry       *prometheus.Registry
	Metrics        *PipelineMetrics
	Logger         *slog.Logger

	traceFile *os.File
}

// PipelineMetrics are the instruments recorded by the pipeline runner
type PipelineMetrics struct {
	StageRuns     metric.Int64Counter
	StageDuration metric.Float64Histogram
	RowsProduced  metric.Int64Counter

	FoldScore     *prometheus.GaugeVec
	Coefficient   *prometheus.GaugeVec
	LastRunUnixTS prometheus.Gauge
}

// InitializeTelemetry sets up tracing and metrics. Disabled parts fall back
// to no-op implementations so callers never branch on them.
func InitializeTelemetry(ctx context.Context, opts TelemetryOptions, logger *slog.Logger) (*Telemetry, error) {
	if logger == nil {
		logger = GetLogger()
	}
	if opts.ServiceName == "" {
		opts.ServiceName = config.AppName
	}

	logger.InfoContext(ctx, "Initializing telemetry",
		slog.String("service", opts.ServiceName),
		slog.Bool("tracing_enabled", opts.TracingEnabled),
		slog.Bool("metrics_enabled", opts.MetricsEnabled))

	res, err := createResource(opts.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	t := &Telemetry{
		Tracer:   noop.NewTracerProvider().Tracer(MeterName),
		Registry: prometheus.NewRegistry(),
		Logger:   logger,
	}

	if opts.TracingEnabled {
		if err := t.initializeTracing(opts, res); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	if err := t.initializeMetrics(opts, res); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return t, nil
}

// createResource creates the OpenTelemetry resource
func createResource(serviceName string) (*resource.Resource, error) {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(ServiceVersion),
		attribute.String("service.instance.id", GenerateTraceID()),
	), nil
}

func (t *Telemetry) initializeTracing(opts TelemetryOptions, res *resource.Resource) error {
	out := opts.TraceOutput
	if out == nil {
		if err := os.MkdirAll(filepath.Dir(opts.TraceFile), 0755); err != nil {
			return fmt.Errorf("create trace directory: %w", err)
		}
		f, err := os.Create(opts.TraceFile)
		if err != nil {
			return fmt.Errorf("create trace file: %w", err)
		}
		t.traceFile = f
		out = f
	}

	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(out),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	t.TracerProvider = tp
	t.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(ServiceVersion))
	return nil
}

func (t *Telemetry) initializeMetrics(opts TelemetryOptions, res *resource.Resource) error {
	exporter, err := otelprom.New(otelprom.WithRegisterer(t.Registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	t.MeterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	t.Meter = t.MeterProvider.Meter(MeterName, metric.WithInstrumentationVersion(ServiceVersion))

	m, err := createPipelineMetrics(t.Meter, t.Registry)
	if err != nil {
		return err
	}
	t.Metrics = m
	return nil
}

func createPipelineMetrics(meter metric.Meter, reg prometheus.Registerer) (*PipelineMetrics, error) {
	stageRuns, err := meter.Int64Counter(
		"pipeline_stage_runs_total",
		metric.WithDescription("Pipeline stage executions by outcome"),
	)
	if err != nil {
		return nil, err
	}

	stageDuration, err := meter.Float64Histogram(
		"pipeline_stage_duration_seconds",
		metric.WithDescription("Pipeline stage duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	rows, err := meter.Int64Counter(
		"pipeline_rows_produced_total",
		metric.WithDescription("Rows produced by pipeline stages"),
	)
	if err != nil {
		return nil, err
	}

	m := &PipelineMetrics{
		StageRuns:     stageRuns,
		StageDuration: stageDuration,
		RowsProduced:  rows,
		FoldScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dessertcpi_fold_score",
			Help: "Validation score by model, fold label and metric.",
		}, []string{"model", "fold", "metric"}),
		Coefficient: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dessertcpi_fe_coefficient",
			Help: "Fixed-effects coefficient estimates by regressor.",
		}, []string{"regressor"}),
		LastRunUnixTS: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dessertcpi_last_run_timestamp_seconds",
			Help: "Unix time the last pipeline run finished.",
		}),
	}
	for _, c := range []prometheus.Collector{m.FoldScore, m.Coefficient, m.LastRunUnixTS} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return m, nil
}

// RecordStage records a finished stage on the otel instruments.
func (t *Telemetry) RecordStage(ctx context.Context, stage, status string, d time.Duration, rows int) {
	if t == nil || t.Metrics == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("status", status),
	)
	t.Metrics.StageRuns.Add(ctx, 1, attrs)
	t.Metrics.StageDuration.Record(ctx, d.Seconds(), attrs)
	if rows > 0 {
		t.Metrics.RowsProduced.Add(ctx, int64(rows), metric.WithAttributes(attribute.String("stage", stage)))
	}
}

// RecordFoldScore sets the fold score gauge for one model, fold label and
// metric.
func (t *Telemetry) RecordFoldScore(model, label, metricName string, v float64) {
	if t == nil || t.Metrics == nil {
		return
	}
	t.Metrics.FoldScore.WithLabelValues(model, label, metricName).Set(v)
}

// RecordCoefficient sets the coefficient gauge of a regressor.
func (t *Telemetry) RecordCoefficient(regressor string, v float64) {
	if t == nil || t.Metrics == nil {
		return
	}
	t.Metrics.Coefficient.WithLabelValues(regressor).Set(v)
}

// StartSpan starts a span on the run tracer.
func (t *Telemetry) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	var tracer trace.Tracer = noop.NewTracerProvider().Tracer(MeterName)
	if t != nil && t.Tracer != nil {
		tracer = t.Tracer
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// WriteMetrics flushes the registry in the node-exporter textfile format.
func (t *Telemetry) WriteMetrics(path string) error {
	if t == nil || t.Metrics == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	t.Metrics.LastRunUnixTS.SetToCurrentTime()
	if err := prometheus.WriteToTextfile(path, t.Registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Shutdown flushes spans and stops the providers
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error

	if t.TracerProvider != nil {
		if err := t.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if t.MeterProvider != nil {
		if err := t.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	if t.traceFile != nil {
		if err := t.traceFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close trace file: %w", err))
		}
	}

	return errors.Join(errs...)
}

// RecordError marks the span in ctx as failed
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// TraceIDFromContext returns the OpenTelemetry trace ID of the active span
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

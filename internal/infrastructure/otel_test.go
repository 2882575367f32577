package infrastructure

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestInitializeTelemetry_TracingAndMetrics(t *testing.T) {
	var spans bytes.Buffer
	tel, err := InitializeTelemetry(context.Background(), TelemetryOptions{
		TracingEnabled: true,
		MetricsEnabled: true,
		TraceOutput:    &spans,
	}, discardLogger())
	require.NoError(t, err)

	ctx, span := tel.StartSpan(context.Background(), "build_features")
	assert.NotEmpty(t, TraceIDFromContext(ctx))
	span.End()

	tel.RecordStage(ctx, "build_features", "completed", 250*time.Millisecond, 120)
	tel.RecordFoldScore("full_lr", "2023", "rmse", 0.012)
	tel.RecordCoefficient("infl_shock_ma", -0.4)

	path := filepath.Join(t.TempDir(), "out", "run.prom")
	require.NoError(t, tel.WriteMetrics(path))
	require.NoError(t, tel.Shutdown(context.Background()))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(content)
	assert.Contains(t, text, `dessertcpi_fold_score{fold="2023",metric="rmse",model="full_lr"} 0.012`)
	assert.Contains(t, text, `dessertcpi_fe_coefficient{regressor="infl_shock_ma"} -0.4`)
	assert.Contains(t, text, "pipeline_stage_runs_total")
	assert.Contains(t, text, "dessertcpi_last_run_timestamp_seconds")

	assert.Contains(t, spans.String(), "build_features")
}

func TestInitializeTelemetry_TracingDisabledIsNoop(t *testing.T) {
	tel, err := InitializeTelemetry(context.Background(), TelemetryOptions{}, discardLogger())
	require.NoError(t, err)
	defer tel.Shutdown(context.Background())

	assert.Nil(t, tel.TracerProvider)
	ctx, span := tel.StartSpan(context.Background(), "noop")
	assert.False(t, span.IsRecording())
	assert.Empty(t, TraceIDFromContext(ctx))
	span.End()
}

func TestInitializeTelemetry_TraceFile(t *testing.T) {
	traceFile := filepath.Join(t.TempDir(), "logs", "trace.json")
	tel, err := InitializeTelemetry(context.Background(), TelemetryOptions{
		TracingEnabled: true,
		TraceFile:      traceFile,
	}, discardLogger())
	require.NoError(t, err)

	_, span := tel.StartSpan(context.Background(), "fit_fixed_effects")
	span.End()
	require.NoError(t, tel.Shutdown(context.Background()))

	content, err := os.ReadFile(traceFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "fit_fixed_effects")
}

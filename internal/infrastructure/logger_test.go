package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dessertcpi/internal/config"
)

func lastJSONLine(t *testing.T, content string) map[string]interface{} {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(content), "\n")
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestInitializeLogger_FileOutput(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "logs", "run.log")
	logger, err := InitializeLogger(config.LoggingConfig{Level: "info", Output: "file", FilePath: logFile})
	require.NoError(t, err)
	require.NotNil(t, logger)

	ctx := WithTraceID(context.Background(), "run-123")
	WithComponent(logger, "macro").InfoContext(ctx, "macro table built", "quarters", 40)
	require.NoError(t, CloseLogFile())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	entry := lastJSONLine(t, string(content))
	assert.Equal(t, "run-123", entry["trace_id"])
	assert.Equal(t, "macro", entry["component"])
	assert.Equal(t, float64(40), entry["quarters"])
}

func TestInitializeLogger_EmptyFilePath(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	_, err := InitializeLogger(config.LoggingConfig{Level: "info", Output: "file"})
	assert.Error(t, err)
}

func TestNewJSONLogger_Levels(t *testing.T) {
	tests := []struct {
		level     string
		debugSeen bool
		warnSeen  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"error", false, false},
		{"bogus", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewJSONLogger(&buf, tt.level)
			logger.Debug("debug message")
			logger.Warn("warn message")

			assert.Equal(t, tt.debugSeen, strings.Contains(buf.String(), "debug message"))
			assert.Equal(t, tt.warnSeen, strings.Contains(buf.String(), "warn message"))
		})
	}
}

func TestTraceIDHelpers(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))

	ctx = EnsureTraceID(ctx)
	id := GetTraceID(ctx)
	assert.Len(t, id, 36)
	assert.Equal(t, id, GetTraceID(EnsureTraceID(ctx)), "existing id is kept")
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, "info")

	assert.Same(t, logger, WithError(logger, nil))
	WithError(logger, errors.New("boom")).Info("failed")
	entry := lastJSONLine(t, buf.String())
	assert.Equal(t, "boom", entry["error"])
}

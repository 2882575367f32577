package testutil

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dessertcpi/internal/frame"
)

func TestCaptureHandler_KeepsDerivedAttrs(t *testing.T) {
	logger, h := NewTestLogger(t)
	child := logger.With(slog.String("component", "shocks"))

	child.Warn("Window incomplete", slog.String("condition", "insufficient_data"))
	logger.Info("done")

	require.Equal(t, 2, h.Count())
	assert.True(t, h.ContainsAttr("component", "shocks"))
	assert.True(t, h.HasCondition("insufficient_data"))
	assert.False(t, h.HasCondition("numerical_instability"))
	assert.True(t, h.ContainsMessage("Window"))
	assert.Len(t, h.RecordsAt(slog.LevelInfo), 1)
	AssertNoErrors(t, h)
}

func TestBuildPanel(t *testing.T) {
	f := BuildPanel(t, PanelSpec{
		Entities: []string{"A", "B"},
		Start:    frame.Period{Year: 2020, Quarter: 3},
		Quarters: 3,
		Fill: func(e string, i int, _ frame.Period) Row {
			if e == "B" && i == 0 {
				return Row{"x": 1}
			}
			return Row{"x": float64(i), "y": 2}
		},
	})

	require.Equal(t, 6, f.Len())
	assert.Equal(t, []string{"x", "y"}, f.Columns())
	assert.Equal(t, frame.NewKey("A", 2021, 1), f.Key(2))
	i, ok := f.Lookup(frame.NewKey("B", 2020, 3))
	require.True(t, ok)
	assert.True(t, !frame.IsFinite(f.Value("y", i)))
}

package ui

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDisplay(buf *bytes.Buffer) *PhaseDisplay {
	pd := NewPhaseDisplay(buf)
	tick := time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)
	pd.now = func() time.Time {
		tick = tick.Add(300 * time.Millisecond)
		return tick
	}
	return pd
}

func TestNewPhaseDisplay_NotATerminal(t *testing.T) {
	var buf bytes.Buffer
	pd := NewPhaseDisplay(&buf)
	assert.False(t, pd.interactive)

	pd.RenderProgress("Node status")
	assert.Empty(t, buf.String(), "no progress line in a cron mail")
}

func TestPhaseDisplay_RenderSuccess(t *testing.T) {
	var buf bytes.Buffer
	pd := NewPhaseDisplay(&buf)

	pd.RenderSuccess("Node status", 300*time.Millisecond)

	assert.Equal(t, SymbolComplete+" Node status 0.3s\n", buf.String())
}

func TestPhaseDisplay_RenderFailed(t *testing.T) {
	var buf bytes.Buffer
	pd := NewPhaseDisplay(&buf)

	pd.RenderFailed("Personal update", 2300*time.Millisecond)

	output := buf.String()
	assert.Contains(t, output, SymbolFail)
	assert.Contains(t, output, "Personal update")
	assert.Contains(t, output, "2.3s")
}

func TestPhaseDisplay_RenderSkipped(t *testing.T) {
	var buf bytes.Buffer
	pd := NewPhaseDisplay(&buf)

	pd.RenderSkipped("Job errors", "none")
	pd.RenderSkipped("Full listing", "")

	assert.Equal(t, SymbolSkipped+" Job errors (none)\n"+SymbolSkipped+" Full listing\n", buf.String())
}

func TestPhaseDisplay_Step(t *testing.T) {
	var buf bytes.Buffer
	pd := newTestDisplay(&buf)

	ran := false
	err := pd.Step("Node status", func() error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, SymbolComplete+" Node status 0.3s\n", buf.String())
}

func TestPhaseDisplay_Step_Error(t *testing.T) {
	var buf bytes.Buffer
	pd := newTestDisplay(&buf)

	boom := errors.New("boom")
	err := pd.Step("Memory and CPU alerts", func() error { return boom })

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, buf.String(), SymbolFail+" Memory and CPU alerts")
}

func TestPhaseDisplay_Step_Skipped(t *testing.T) {
	var buf bytes.Buffer
	pd := newTestDisplay(&buf)

	err := pd.Step("Job errors", func() error { return ErrSkipped{Reason: "none"} })

	require.NoError(t, err)
	assert.Equal(t, SymbolSkipped+" Job errors (none)\n", buf.String())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0.05s", formatDuration(50*time.Millisecond))
	assert.Equal(t, "1.5s", formatDuration(1500*time.Millisecond))
}

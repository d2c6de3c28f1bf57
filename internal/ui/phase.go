package ui

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// ErrSkipped can be returned by a step to mark it as having nothing to do.
type ErrSkipped struct {
	Reason string
}

func (e ErrSkipped) Error() string {
	return "skipped: " + e.Reason
}

// PhaseDisplay renders step status to an output writer.
type PhaseDisplay struct {
	w           io.Writer
	interactive bool
	now         func() time.Time
}

// NewPhaseDisplay creates a phase display writing to w. Progress lines and
// colors are only drawn when w is a terminal.
func NewPhaseDisplay(w io.Writer) *PhaseDisplay {
	interactive := IsTerminal(w)
	if !interactive {
		DisableColors()
	}
	return &PhaseDisplay{w: w, interactive: interactive, now: time.Now}
}

// Step runs fn between a progress line and its outcome line and returns
// fn's error. An ErrSkipped result is rendered as skipped and returns nil.
func (pd *PhaseDisplay) Step(name string, fn func() error) error {
	start := pd.now()
	pd.RenderProgress(name)

	err := fn()
	elapsed := pd.now().Sub(start)

	var skipped ErrSkipped
	switch {
	case err == nil:
		pd.RenderSuccess(name, elapsed)
	case errors.As(err, &skipped):
		pd.RenderSkipped(name, skipped.Reason)
		return nil
	default:
		pd.RenderFailed(name, elapsed)
	}
	return err
}

// RenderProgress renders a step in progress.
// Shows: ◐ Node status...
func (pd *PhaseDisplay) RenderProgress(name string) {
	if !pd.interactive {
		return
	}
	style := lipgloss.NewStyle().Foreground(ColorSecondary)
	fmt.Fprintf(pd.w, "\r%s %s...", style.Render(SymbolProgress), name)
}

// RenderSuccess renders a completed step.
// Shows: ● Node status 0.8s
func (pd *PhaseDisplay) RenderSuccess(name string, duration time.Duration) {
	pd.clearLine()

	symbolStyle := lipgloss.NewStyle().Foreground(ColorSuccess)
	timingStyle := lipgloss.NewStyle().Foreground(ColorMuted)

	fmt.Fprintf(pd.w, "%s %s %s\n",
		symbolStyle.Render(SymbolComplete),
		name,
		timingStyle.Render(formatDuration(duration)),
	)
}

// RenderFailed renders a failed step.
// Shows: ✗ Personal update 10.0s
func (pd *PhaseDisplay) RenderFailed(name string, duration time.Duration) {
	pd.clearLine()

	symbolStyle := lipgloss.NewStyle().Foreground(ColorError)
	timingStyle := lipgloss.NewStyle().Foreground(ColorMuted)

	fmt.Fprintf(pd.w, "%s %s %s\n",
		symbolStyle.Render(SymbolFail),
		name,
		timingStyle.Render(formatDuration(duration)),
	)
}

// RenderSkipped renders a step that had nothing to do.
// Shows: ⊘ Job errors (none)
func (pd *PhaseDisplay) RenderSkipped(name string, reason string) {
	pd.clearLine()

	symbolStyle := lipgloss.NewStyle().Foreground(ColorWarning)
	reasonStyle := lipgloss.NewStyle().Foreground(ColorMuted)

	if reason != "" {
		fmt.Fprintf(pd.w, "%s %s %s\n",
			symbolStyle.Render(SymbolSkipped),
			name,
			reasonStyle.Render("("+reason+")"),
		)
	} else {
		fmt.Fprintf(pd.w, "%s %s\n",
			symbolStyle.Render(SymbolSkipped),
			name,
		)
	}
}

// clearLine clears the progress line on terminals.
func (pd *PhaseDisplay) clearLine() {
	if !pd.interactive {
		return
	}
	fmt.Fprint(pd.w, "\r"+strings.Repeat(" ", 80)+"\r")
}

func formatDuration(d time.Duration) string {
	secs := d.Seconds()
	if secs < 0.1 {
		return fmt.Sprintf("%.2fs", secs)
	}
	return fmt.Sprintf("%.1fs", secs)
}

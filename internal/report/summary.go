package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorPass  = lipgloss.Color("#10B981") // Green
	colorFail  = lipgloss.Color("#EF4444") // Red
	colorMuted = lipgloss.Color("#9CA3AF") // Medium gray

	passStyle  = lipgloss.NewStyle().Foreground(colorPass).Bold(true)
	failStyle  = lipgloss.NewStyle().Foreground(colorFail).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)
)

// Summary renders a human-readable summary of the report. With color
// set, verdicts are styled for a terminal.
func (r *Report) Summary(color bool) string {
	render := func(s lipgloss.Style, text string) string {
		if !color {
			return text
		}
		return s.Render(text)
	}

	entries := r.Entries()
	var b strings.Builder

	fmt.Fprintf(&b, "Tests Completed: %d. Failures: %d.\n", len(entries), r.Failed())
	if len(entries) > 0 {
		fmt.Fprintln(&b)
	}
	for _, e := range entries {
		if e.Outcome.Passed() {
			fmt.Fprintf(&b, "  %s  %s\n", render(passStyle, "PASS"), e.Name())
			continue
		}
		fmt.Fprintf(&b, "  %s  %s\n", render(failStyle, "FAIL"), e.Name())
		fmt.Fprintf(&b, "        %s\n", render(mutedStyle, e.Outcome.Message))
	}

	if p50, p95, max := r.Durations(); max > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintf(&b, "Duration: p50 %s, p95 %s, max %s\n",
			formatDuration(p50), formatDuration(p95), formatDuration(max))
	}
	return b.String()
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return d.Round(time.Microsecond).String()
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	}
	return d.Round(10 * time.Millisecond).String()
}

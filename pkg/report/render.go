package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	passStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	flakyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
)

func styleFor(s Status) lipgloss.Style {
	switch s {
	case StatusPassed:
		return passStyle
	case StatusFailed:
		return failStyle
	case StatusFlaky:
		return flakyStyle
	default:
		return mutedStyle
	}
}

// Render formats summary for a terminal.
func Render(summary *Summary) string {
	var lines []string
	for _, r := range summary.Results {
		status := styleFor(r.Status).Render(fmt.Sprintf("%-7s", r.Status))
		line := fmt.Sprintf("%s %s %s", status, r.Name, mutedStyle.Render(fmt.Sprintf("[%s] %s", r.Browser, r.Duration.Round(time.Millisecond))))
		if r.Status == StatusFailed {
			if a := r.LastAttempt(); a != nil && a.Error != "" {
				line += "\n        " + failStyle.UnsetBold().Render(a.Error)
			}
		}
		lines = append(lines, line)
	}

	t := summary.Totals
	totals := strings.Join([]string{
		fmt.Sprintf("%d total", t.Total),
		passStyle.Render(fmt.Sprintf("%d passed", t.Passed)),
		failStyle.Render(fmt.Sprintf("%d failed", t.Failed)),
		flakyStyle.Render(fmt.Sprintf("%d flaky", t.Flaky)),
		mutedStyle.Render(fmt.Sprintf("%d skipped", t.Skipped)),
	}, ", ")

	borderColor := lipgloss.Color("42")
	if summary.Failed() {
		borderColor = lipgloss.Color("203")
	}
	footer := boxStyle.BorderForeground(borderColor).
		Render(fmt.Sprintf("%s  in %s", totals, summary.Duration.Round(time.Millisecond)))

	return lipgloss.JoinVertical(lipgloss.Left, strings.Join(lines, "\n"), footer)
}

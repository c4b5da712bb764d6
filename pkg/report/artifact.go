package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/entrhq/uiharness/pkg/workspace"
)

// Artifact file names.
const (
	SummaryJSON     = "summary.json"
	SummaryMarkdown = "summary.md"
)

// Writer handles writing run artifacts
type Writer struct {
	outputDir string
}

// NewWriter creates a new artifact writer
func NewWriter(outputDir string) *Writer {
	return &Writer{outputDir: outputDir}
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.outputDir
}

// WriteAll writes summary.json and summary.md
func (w *Writer) WriteAll(summary *Summary) error {
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := w.WriteJSON(summary); err != nil {
		return err
	}

	if err := w.WriteMarkdown(summary); err != nil {
		return err
	}

	return nil
}

// WriteJSON writes the full summary as JSON
func (w *Writer) WriteJSON(summary *Summary) error {
	path := filepath.Join(w.outputDir, SummaryJSON)

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	if writeErr := os.WriteFile(path, data, 0o600); writeErr != nil {
		return fmt.Errorf("failed to write summary JSON: %w", writeErr)
	}

	return nil
}

// WriteMarkdown writes a human-readable markdown summary
func (w *Writer) WriteMarkdown(summary *Summary) error {
	path := filepath.Join(w.outputDir, SummaryMarkdown)
	if err := os.WriteFile(path, []byte(Markdown(summary)), 0o600); err != nil {
		return fmt.Errorf("failed to write summary markdown: %w", err)
	}
	return nil
}

// Markdown renders summary as a markdown document.
func Markdown(summary *Summary) string {
	var md strings.Builder

	md.WriteString("# UI Harness Run Summary\n\n")
	md.WriteString(fmt.Sprintf("**Run:** %s\n\n", summary.RunID))
	if summary.Shard != "" {
		md.WriteString(fmt.Sprintf("**Shard:** %s\n\n", summary.Shard))
	}
	md.WriteString(fmt.Sprintf("**Started:** %s\n\n", summary.StartTime.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Completed:** %s\n\n", summary.EndTime.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Duration:** %s\n\n", summary.Duration.Round(time.Millisecond)))

	t := summary.Totals
	md.WriteString("## Totals\n\n")
	md.WriteString(fmt.Sprintf("- **Total:** %d\n", t.Total))
	md.WriteString(fmt.Sprintf("- **Passed:** %d\n", t.Passed))
	md.WriteString(fmt.Sprintf("- **Failed:** %d\n", t.Failed))
	md.WriteString(fmt.Sprintf("- **Flaky:** %d\n", t.Flaky))
	md.WriteString(fmt.Sprintf("- **Skipped:** %d\n\n", t.Skipped))

	md.WriteString("## Scenarios\n\n")
	md.WriteString("| | Scenario | Browser | Attempts | Duration |\n")
	md.WriteString("|---|---|---|---|---|\n")
	for _, r := range summary.Results {
		md.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %s |\n",
			statusIcon(r.Status), r.Name, r.Browser, len(r.Attempts), r.Duration.Round(time.Millisecond)))
	}
	md.WriteString("\n")

	failures := summary.Failures()
	if len(failures) > 0 {
		md.WriteString("## Failures\n\n")
		for _, r := range failures {
			md.WriteString(fmt.Sprintf("### %s (%s)\n\n", r.Name, r.Browser))
			if a := r.LastAttempt(); a != nil {
				if a.Code != "" {
					md.WriteString(fmt.Sprintf("**Code:** `%s`\n\n", a.Code))
				}
				md.WriteString(fmt.Sprintf("```\n%s\n```\n\n", a.Error))
				if a.Screenshot != "" {
					md.WriteString(fmt.Sprintf("![screenshot](%s)\n\n", a.Screenshot))
				}
				if a.Trace != "" {
					md.WriteString(fmt.Sprintf("**Trace:** [%s](%s)\n\n", a.Trace, a.Trace))
				}
			}
		}
	}

	return md.String()
}

func statusIcon(s Status) string {
	switch s {
	case StatusPassed:
		return "✅"
	case StatusFailed:
		return "❌"
	case StatusFlaky:
		return "⚠️"
	default:
		return "⏭️"
	}
}

// Read loads a summary.json file.
func Read(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read summary: %w", err)
	}
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse summary %s: %w", path, err)
	}
	return &s, nil
}

// ShardDir returns the directory a shard writes its artifacts to.
func ShardDir(reportDir string, index, total int) string {
	if total <= 1 {
		return reportDir
	}
	return filepath.Join(reportDir, fmt.Sprintf("shard-%d", index))
}

// Merge combines shard summaries into one. The run spans the earliest start
// to the latest end.
func Merge(summaries ...*Summary) *Summary {
	merged := &Summary{}
	for _, s := range summaries {
		if s == nil {
			continue
		}
		if merged.RunID == "" {
			merged.RunID = s.RunID
		}
		if merged.StartTime.IsZero() || s.StartTime.Before(merged.StartTime) {
			merged.StartTime = s.StartTime
		}
		if s.EndTime.After(merged.EndTime) {
			merged.EndTime = s.EndTime
		}
		merged.Results = append(merged.Results, s.Results...)
	}
	merged.Duration = merged.EndTime.Sub(merged.StartTime)
	merged.Tally()
	return merged
}

// MergeDir reads every shard-*/summary.json under reportDir and merges them.
func MergeDir(reportDir string) (*Summary, error) {
	paths, err := filepath.Glob(filepath.Join(reportDir, "shard-*", SummaryJSON))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no shard summaries found in %s", reportDir)
	}

	summaries := make([]*Summary, 0, len(paths))
	for _, p := range paths {
		s, err := Read(p)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return Merge(summaries...), nil
}

// Clean removes the given directories through g and returns those that
// existed. Every directory must lie below the guard's root.
func Clean(g *workspace.Guard, dirs ...string) ([]string, error) {
	var removed []string
	for _, dir := range dirs {
		ok, err := g.RemoveAll(dir)
		if err != nil {
			return removed, err
		}
		if ok {
			removed = append(removed, dir)
		}
	}
	return removed, nil
}

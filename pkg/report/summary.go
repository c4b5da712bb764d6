// Package report writes run summaries, merges shard summaries and renders
// them for the terminal.
package report

import (
	"sort"
	"time"
)

// Status of a scenario or attempt.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusFlaky   Status = "flaky"
	StatusSkipped Status = "skipped"
)

// Summary contains a complete summary of one run or one shard
type Summary struct {
	RunID     string        `json:"run_id"`
	Shard     string        `json:"shard,omitempty"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Results   []Result      `json:"results"`
	Totals    Totals        `json:"totals"`
}

// Result is the outcome of one scenario on one browser.
type Result struct {
	Name     string        `json:"name"`
	Browser  string        `json:"browser"`
	Engine   string        `json:"engine"`
	Tags     []string      `json:"tags,omitempty"`
	Status   Status        `json:"status"`
	Duration time.Duration `json:"duration"`
	Attempts []Attempt     `json:"attempts,omitempty"`
}

// Attempt records one try of a scenario. Code and Fields come from the
// uiaction error taxonomy so a report shows why an attempt failed.
type Attempt struct {
	Number     int            `json:"number"`
	Status     Status         `json:"status"`
	Duration   time.Duration  `json:"duration"`
	Error      string         `json:"error,omitempty"`
	Code       string         `json:"code,omitempty"`
	Fields     map[string]any `json:"fields,omitempty"`
	Screenshot string         `json:"screenshot,omitempty"`
	Trace      string         `json:"trace,omitempty"`
}

// Totals counts results by status
type Totals struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Flaky   int `json:"flaky"`
	Skipped int `json:"skipped"`
}

// Tally sorts results by name and browser and recomputes Totals.
func (s *Summary) Tally() {
	sort.SliceStable(s.Results, func(i, j int) bool {
		if s.Results[i].Name != s.Results[j].Name {
			return s.Results[i].Name < s.Results[j].Name
		}
		return s.Results[i].Browser < s.Results[j].Browser
	})

	t := Totals{Total: len(s.Results)}
	for _, r := range s.Results {
		switch r.Status {
		case StatusPassed:
			t.Passed++
		case StatusFailed:
			t.Failed++
		case StatusFlaky:
			t.Flaky++
		case StatusSkipped:
			t.Skipped++
		}
	}
	s.Totals = t
}

// Failed reports whether any scenario failed on every attempt.
func (s *Summary) Failed() bool {
	return s.Totals.Failed > 0
}

// Failures returns the failed results.
func (s *Summary) Failures() []Result {
	var out []Result
	for _, r := range s.Results {
		if r.Status == StatusFailed {
			out = append(out, r)
		}
	}
	return out
}

// LastAttempt returns the final attempt of r, or nil when it never ran.
func (r Result) LastAttempt() *Attempt {
	if len(r.Attempts) == 0 {
		return nil
	}
	return &r.Attempts[len(r.Attempts)-1]
}

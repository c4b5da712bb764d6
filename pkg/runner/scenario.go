// Package runner selects, shards and executes scenarios against a browser
// engine, one fresh BrowserAction per attempt.
package runner

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"go.uber.org/zap"

	"github.com/entrhq/uiharness/pkg/config"
	"github.com/entrhq/uiharness/pkg/datafactory"
	"github.com/entrhq/uiharness/pkg/uiaction"
)

// Scenario is one end-to-end test case.
type Scenario struct {
	Name string
	Tags []string
	Run  func(ctx context.Context, env *Env) error
}

// Env is what a scenario attempt receives. Browser is torn down by the runner
// after Run returns.
type Env struct {
	Browser     uiaction.BrowserAction
	BrowserName string
	Config      *config.Config
	Log         *zap.Logger
	Data        *datafactory.Factory
}

// Matcher selects scenarios by name or tag.
type Matcher struct {
	patterns []glob.Glob
}

// NewMatcher compiles a comma-separated list of glob patterns. A pattern
// without wildcards matches as a substring; "@tag" matches a tag exactly.
func NewMatcher(expr string) (*Matcher, error) {
	m := &Matcher{}
	for _, p := range strings.Split(expr, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.ContainsAny(p, "*?[{") && !strings.HasPrefix(p, "@") {
			p = "*" + p + "*"
		}
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid grep pattern '%s': %w", p, err)
		}
		m.patterns = append(m.patterns, g)
	}
	return m, nil
}

// Match reports whether s is selected. An empty matcher selects everything.
func (m *Matcher) Match(s Scenario) bool {
	if len(m.patterns) == 0 {
		return true
	}
	for _, g := range m.patterns {
		if g.Match(s.Name) {
			return true
		}
		for _, tag := range s.Tags {
			if g.Match("@" + tag) {
				return true
			}
		}
	}
	return false
}

// Job is one scenario on one browser.
type Job struct {
	Scenario Scenario
	Browser  string
}

// ID names the job in logs and reports.
func (j Job) ID() string {
	return j.Scenario.Name + " [" + j.Browser + "]"
}

// plan expands scenarios over browsers, orders the jobs by name then browser
// and keeps the ones belonging to shard index of total (1-based).
func plan(scenarios []Scenario, browsers []string, index, total int) []Job {
	var jobs []Job
	for _, s := range scenarios {
		for _, b := range browsers {
			jobs = append(jobs, Job{Scenario: s, Browser: b})
		}
	}
	sort.SliceStable(jobs, func(i, j int) bool {
		if jobs[i].Scenario.Name != jobs[j].Scenario.Name {
			return jobs[i].Scenario.Name < jobs[j].Scenario.Name
		}
		return jobs[i].Browser < jobs[j].Browser
	})

	if total <= 1 {
		return jobs
	}
	var mine []Job
	for i, j := range jobs {
		if i%total == index-1 {
			mine = append(mine, j)
		}
	}
	return mine
}

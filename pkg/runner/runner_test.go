package runner

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/uiharness/pkg/config"
	"github.com/entrhq/uiharness/pkg/report"
	"github.com/entrhq/uiharness/pkg/uiaction"
	"github.com/entrhq/uiharness/pkg/uiaction/uiactiontest"
)

type fakeEngine struct {
	t     *testing.T
	err   error
	setup func(*uiactiontest.BrowserAction)
	// trace makes every action a uiaction.Tracer that fails StopTrace with traceErr
	trace    bool
	traceErr error

	mu       sync.Mutex
	browsers []string
	traced   []*tracingAction
}

// tracingAction records StopTrace calls on top of the mock action.
type tracingAction struct {
	*uiactiontest.BrowserAction
	err error

	paths []string
	// set when a scope was already closed at StopTrace time
	afterTeardown bool
}

func (a *tracingAction) StopTrace(_ context.Context, path string) error {
	for _, c := range a.Calls {
		if c.Method == "ClosePage" {
			a.afterTeardown = true
		}
	}
	a.paths = append(a.paths, path)
	return a.err
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) NewAction(ctx context.Context, browser string, sink uiaction.EventSink) (uiaction.BrowserAction, error) {
	e.mu.Lock()
	e.browsers = append(e.browsers, browser)
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	m := uiactiontest.NewBrowserAction(e.t)
	m.ExpectTeardown()
	m.On("TakeScreenshot", mock.Anything, mock.Anything).Return("screenshots/failure.png", nil).Maybe()
	if e.setup != nil {
		e.setup(m)
	}
	if e.trace {
		ta := &tracingAction{BrowserAction: m, err: e.traceErr}
		e.mu.Lock()
		e.traced = append(e.traced, ta)
		e.mu.Unlock()
		return ta, nil
	}
	return m, nil
}

func (e *fakeEngine) launches() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.browsers)
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Timeouts.Test = 5 * time.Second
	return cfg
}

func passing(name string, tags ...string) Scenario {
	return Scenario{Name: name, Tags: tags, Run: func(context.Context, *Env) error { return nil }}
}

func TestRunStatuses(t *testing.T) {
	cfg := testConfig()
	cfg.Run.Retries = 1
	eng := &fakeEngine{t: t}

	var flakyCalls atomic.Int32
	scenarios := []Scenario{
		passing("passes"),
		{Name: "fails", Run: func(ctx context.Context, env *Env) error {
			return &uiaction.TimeoutError{Op: "wait_for_visible", Target: "#x", Condition: uiaction.ConditionVisible, Timeout: time.Second, Elapsed: time.Second}
		}},
		{Name: "flaky", Run: func(context.Context, *Env) error {
			if flakyCalls.Add(1) == 1 {
				return errors.New("first try fails")
			}
			return nil
		}},
	}

	summary, err := New(Options{Config: cfg, Engine: eng, RunID: "run-1"}).Run(context.Background(), scenarios)
	require.NoError(t, err)

	assert.Equal(t, "run-1", summary.RunID)
	assert.Equal(t, report.Totals{Total: 3, Passed: 1, Failed: 1, Flaky: 1}, summary.Totals)
	assert.Equal(t, 5, eng.launches(), "one browser per attempt")

	byName := map[string]report.Result{}
	for _, r := range summary.Results {
		byName[r.Name] = r
	}
	failed := byName["fails"]
	require.Len(t, failed.Attempts, 2)
	last := failed.LastAttempt()
	assert.Equal(t, uiaction.CodeNotVisible, last.Code)
	assert.Equal(t, "screenshots/failure.png", last.Screenshot)
	assert.Equal(t, "#x", last.Fields["target"])
	assert.Equal(t, "fake", failed.Engine)
	assert.Equal(t, "webkit", failed.Browser)

	assert.Len(t, byName["flaky"].Attempts, 2)
	assert.Equal(t, report.StatusFlaky, byName["flaky"].Status)
}

func TestRunRecoversPanicAndTearsDown(t *testing.T) {
	cfg := testConfig()
	eng := &fakeEngine{t: t}
	scenarios := []Scenario{{Name: "panics", Run: func(context.Context, *Env) error { panic("boom") }}}

	summary, err := New(Options{Config: cfg, Engine: eng}).Run(context.Background(), scenarios)
	require.NoError(t, err)

	require.Len(t, summary.Results, 1)
	assert.Equal(t, report.StatusFailed, summary.Results[0].Status)
	assert.Contains(t, summary.Results[0].LastAttempt().Error, "scenario panicked: boom")
	// ExpectTeardown on the mock is asserted at cleanup.
}

func TestRunScenarioUsesEnv(t *testing.T) {
	cfg := testConfig()
	cfg.BaseURL = "http://app.test"
	eng := &fakeEngine{t: t, setup: func(m *uiactiontest.BrowserAction) {
		m.On("OpenURL", mock.Anything, "http://app.test").Return(nil).Once()
	}}
	scenarios := []Scenario{{Name: "open", Run: func(ctx context.Context, env *Env) error {
		assert.Equal(t, "webkit", env.BrowserName)
		assert.NotNil(t, env.Data)
		assert.NotNil(t, env.Log)
		return env.Browser.OpenURL(ctx, env.Config.BaseURL)
	}}}

	summary, err := New(Options{Config: cfg, Engine: eng}).Run(context.Background(), scenarios)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Totals.Passed)
}

func TestRunLaunchFailure(t *testing.T) {
	cfg := testConfig()
	eng := &fakeEngine{t: t, err: errors.New("no browser")}

	summary, err := New(Options{Config: cfg, Engine: eng}).Run(context.Background(), []Scenario{passing("a")})
	require.NoError(t, err)
	assert.Equal(t, report.StatusFailed, summary.Results[0].Status)
	assert.Contains(t, summary.Results[0].LastAttempt().Error, "failed to start browser: no browser")
}

func TestRunTestTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Timeouts.Test = 50 * time.Millisecond
	eng := &fakeEngine{t: t}
	scenarios := []Scenario{{Name: "hangs", Run: func(ctx context.Context, _ *Env) error {
		<-ctx.Done()
		return ctx.Err()
	}}}

	start := time.Now()
	summary, err := New(Options{Config: cfg, Engine: eng}).Run(context.Background(), scenarios)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	a := summary.Results[0].LastAttempt()
	assert.Contains(t, a.Error, "exceeded test timeout 50ms")
	assert.Equal(t, uiaction.CodeUnexpected, a.Code)
}

func TestRunGlobalTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Timeouts.Global = 50 * time.Millisecond
	eng := &fakeEngine{t: t}
	scenarios := []Scenario{
		{Name: "hangs", Run: func(ctx context.Context, _ *Env) error {
			<-ctx.Done()
			return ctx.Err()
		}},
		passing("never starts"),
	}

	start := time.Now()
	summary, err := New(Options{Config: cfg, Engine: eng}).Run(context.Background(), scenarios)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	assert.Equal(t, report.StatusFailed, summary.Results[0].Status)
	assert.Contains(t, summary.Results[0].LastAttempt().Error, context.DeadlineExceeded.Error())
	assert.Equal(t, report.StatusSkipped, summary.Results[1].Status)
	assert.Equal(t, 1, eng.launches())
}

func TestRunWithoutGlobalTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Timeouts.Global = 0
	eng := &fakeEngine{t: t}

	summary, err := New(Options{Config: cfg, Engine: eng}).Run(context.Background(), []Scenario{passing("a")})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Totals.Passed)
}

func TestRunTraceRetainOnFailure(t *testing.T) {
	cfg := testConfig()
	cfg.Artifacts.ReportDir = t.TempDir()
	cfg.Artifacts.Trace = config.TraceRetainOnFailure
	eng := &fakeEngine{t: t, trace: true}
	scenarios := []Scenario{
		{Name: "sign in/fails", Run: func(context.Context, *Env) error { return errors.New("boom") }},
	}

	summary, err := New(Options{Config: cfg, Engine: eng}).Run(context.Background(), scenarios)
	require.NoError(t, err)

	want := filepath.Join(cfg.Artifacts.ReportDir, traceDir, "sign_in_fails-webkit-attempt1.zip")
	assert.Equal(t, want, summary.Results[0].LastAttempt().Trace)
	assert.DirExists(t, filepath.Dir(want))

	require.Len(t, eng.traced, 1)
	assert.Equal(t, []string{want}, eng.traced[0].paths)
	assert.False(t, eng.traced[0].afterTeardown, "trace is saved before the browser closes")
}

func TestRunTraceDiscardedOnPass(t *testing.T) {
	cfg := testConfig()
	cfg.Artifacts.ReportDir = t.TempDir()
	cfg.Artifacts.Trace = config.TraceRetainOnFailure
	eng := &fakeEngine{t: t, trace: true}

	summary, err := New(Options{Config: cfg, Engine: eng}).Run(context.Background(), []Scenario{passing("passes")})
	require.NoError(t, err)

	assert.Empty(t, summary.Results[0].LastAttempt().Trace)
	require.Len(t, eng.traced, 1)
	assert.Equal(t, []string{""}, eng.traced[0].paths)
}

func TestRunTraceOnKeepsPasses(t *testing.T) {
	cfg := testConfig()
	cfg.Artifacts.ReportDir = t.TempDir()
	cfg.Artifacts.Trace = config.TraceOn
	eng := &fakeEngine{t: t, trace: true}

	summary, err := New(Options{Config: cfg, Engine: eng}).Run(context.Background(), []Scenario{passing("passes")})
	require.NoError(t, err)

	want := filepath.Join(cfg.Artifacts.ReportDir, traceDir, "passes-webkit-attempt1.zip")
	assert.Equal(t, want, summary.Results[0].LastAttempt().Trace)
}

func TestRunTraceOff(t *testing.T) {
	cfg := testConfig()
	cfg.Artifacts.Trace = config.TraceOff
	eng := &fakeEngine{t: t, trace: true}

	_, err := New(Options{Config: cfg, Engine: eng}).Run(context.Background(), []Scenario{passing("passes")})
	require.NoError(t, err)

	require.Len(t, eng.traced, 1)
	assert.Empty(t, eng.traced[0].paths)
}

func TestRunTraceNotRecording(t *testing.T) {
	cfg := testConfig()
	cfg.Artifacts.ReportDir = t.TempDir()
	cfg.Artifacts.Trace = config.TraceOn
	eng := &fakeEngine{t: t, trace: true, traceErr: uiaction.ErrNotTracing}

	summary, err := New(Options{Config: cfg, Engine: eng}).Run(context.Background(), []Scenario{passing("passes")})
	require.NoError(t, err)
	assert.Equal(t, report.StatusPassed, summary.Results[0].Status)
	assert.Empty(t, summary.Results[0].LastAttempt().Trace)
}

func TestRunCancelledContextSkips(t *testing.T) {
	cfg := testConfig()
	eng := &fakeEngine{t: t}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := New(Options{Config: cfg, Engine: eng}).Run(ctx, []Scenario{passing("a"), passing("b")})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Totals.Skipped)
	assert.Zero(t, eng.launches())
}

func TestRunRespectsWorkerLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Run.Workers = 2
	eng := &fakeEngine{t: t}

	var inFlight, peak atomic.Int32
	body := func(context.Context, *Env) error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	}
	var scenarios []Scenario
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		scenarios = append(scenarios, Scenario{Name: name, Run: body})
	}

	summary, err := New(Options{Config: cfg, Engine: eng}).Run(context.Background(), scenarios)
	require.NoError(t, err)
	assert.Equal(t, 6, summary.Totals.Passed)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestSelectGrepAndBrowsers(t *testing.T) {
	cfg := testConfig()
	cfg.Browser.Name = config.BrowserAll
	cfg.Run.Grep = "signin, @smoke"
	r := New(Options{Config: cfg, Engine: &fakeEngine{t: t}})

	jobs, err := r.Select([]Scenario{
		passing("signin/valid user"),
		passing("signup/new user", "smoke"),
		passing("signup/other"),
	})
	require.NoError(t, err)

	var ids []string
	for _, j := range jobs {
		ids = append(ids, j.ID())
	}
	assert.Equal(t, []string{
		"signin/valid user [chromium]",
		"signin/valid user [firefox]",
		"signin/valid user [webkit]",
		"signup/new user [chromium]",
		"signup/new user [firefox]",
		"signup/new user [webkit]",
	}, ids)
}

func TestSelectInvalidGrep(t *testing.T) {
	cfg := testConfig()
	cfg.Run.Grep = "sign[in"
	_, err := New(Options{Config: cfg, Engine: &fakeEngine{t: t}}).Select([]Scenario{passing("a")})
	assert.ErrorContains(t, err, "invalid grep pattern")
}

func TestShardsPartitionJobs(t *testing.T) {
	scenarios := []Scenario{passing("e"), passing("a"), passing("d"), passing("b"), passing("c")}

	seen := map[string]int{}
	for idx := 1; idx <= 2; idx++ {
		for _, j := range plan(scenarios, []string{"webkit"}, idx, 2) {
			seen[j.ID()]++
		}
	}
	assert.Len(t, seen, 5)
	for id, n := range seen {
		assert.Equal(t, 1, n, "%s assigned to %d shards", id, n)
	}

	first := plan(scenarios, []string{"webkit"}, 1, 2)
	require.Len(t, first, 3)
	assert.Equal(t, "a", first[0].Scenario.Name)
	assert.Equal(t, "c", first[1].Scenario.Name)
}

func TestMatcher(t *testing.T) {
	m, err := NewMatcher("")
	require.NoError(t, err)
	assert.True(t, m.Match(passing("anything")))

	m, err = NewMatcher("signin/*email*")
	require.NoError(t, err)
	assert.True(t, m.Match(passing("signin/invalid email no_at")))
	assert.False(t, m.Match(passing("signup/email")))

	m, err = NewMatcher("@regression")
	require.NoError(t, err)
	assert.True(t, m.Match(passing("x", "regression")))
	assert.False(t, m.Match(passing("regression")))
}

func TestRunSkipIsNotRetried(t *testing.T) {
	cfg := testConfig()
	cfg.Run.Retries = 2
	eng := &fakeEngine{t: t}
	scenarios := []Scenario{{Name: "needs creds", Run: func(context.Context, *Env) error {
		return Skip("VALID_USER_EMAIL is not set")
	}}}

	summary, err := New(Options{Config: cfg, Engine: eng}).Run(context.Background(), scenarios)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Totals.Skipped)
	assert.Len(t, summary.Results[0].Attempts, 1)
	assert.Contains(t, summary.Results[0].LastAttempt().Error, "VALID_USER_EMAIL")
}

func TestAssertionErrors(t *testing.T) {
	err := Expect(false, nil, "invalid email error visible")
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, CodeAssertion, uiaction.Code(err))
	assert.Equal(t, "invalid email error visible", uiaction.Fields(err)["check"])

	assert.NoError(t, Expect(true, nil, "x"))

	stale := &uiaction.StaleHandleError{Op: "click", Target: "#a", Scope: uiaction.ScopePage}
	assert.ErrorIs(t, Expect(false, stale, "x"), uiaction.ErrStaleHandle)

	assert.NoError(t, Equal("label", "acme", "acme"))
	assert.EqualError(t, Equal("label", "acme", "other"), "assertion failed: label: expected acme, got other")
}

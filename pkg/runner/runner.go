package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/entrhq/uiharness/pkg/config"
	"github.com/entrhq/uiharness/pkg/datafactory"
	"github.com/entrhq/uiharness/pkg/report"
	"github.com/entrhq/uiharness/pkg/uiaction"
)

// Cleanup budgets run on a context detached from the attempt, so an attempt
// that hit its deadline still gets its artifacts and a full teardown.
const (
	artifactTimeout = 10 * time.Second
	teardownTimeout = 30 * time.Second
)

// traceDir is the subdirectory of the report directory traces are saved in.
const traceDir = "traces"

// Options configures a Runner.
type Options struct {
	Config *config.Config
	Engine Engine
	Log    *zap.Logger
	// Data defaults to a randomly seeded factory
	Data *datafactory.Factory
	// Sink receives every BrowserAction event of every attempt
	Sink uiaction.EventSink
	// RunID defaults to a new uuid
	RunID string
}

// Runner executes scenarios.
type Runner struct {
	cfg    *config.Config
	engine Engine
	log    *zap.Logger
	data   *datafactory.Factory
	sink   uiaction.EventSink
	runID  string
	now    func() time.Time
}

func New(opts Options) *Runner {
	r := &Runner{
		cfg:    opts.Config,
		engine: opts.Engine,
		log:    opts.Log,
		data:   opts.Data,
		sink:   opts.Sink,
		runID:  opts.RunID,
		now:    time.Now,
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	if r.data == nil {
		r.data = datafactory.New(0)
	}
	if r.runID == "" {
		r.runID = uuid.New().String()
	}
	return r
}

// Select applies the grep filter and returns the jobs of this shard.
func (r *Runner) Select(scenarios []Scenario) ([]Job, error) {
	m, err := NewMatcher(r.cfg.Run.Grep)
	if err != nil {
		return nil, err
	}
	browsers, err := r.cfg.Browsers()
	if err != nil {
		return nil, err
	}

	var selected []Scenario
	for _, s := range scenarios {
		if m.Match(s) {
			selected = append(selected, s)
		}
	}
	return plan(selected, browsers, r.cfg.Run.ShardIndex, r.cfg.Run.TotalShards), nil
}

// Run executes the selected scenarios with at most Run.Workers in flight and
// returns the summary. Scenario failures are reported in the summary, not as
// an error; the error is non-nil only when nothing could be scheduled.
// Cancelling ctx, or exceeding Timeouts.Global, marks scenarios that have not
// started as skipped.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) (*report.Summary, error) {
	jobs, err := r.Select(scenarios)
	if err != nil {
		return nil, err
	}

	if r.cfg.Timeouts.Global > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeouts.Global)
		defer cancel()
	}

	summary := &report.Summary{RunID: r.runID, StartTime: r.now()}
	if r.cfg.Run.TotalShards > 1 {
		summary.Shard = fmt.Sprintf("%d/%d", r.cfg.Run.ShardIndex, r.cfg.Run.TotalShards)
	}
	r.log.Info("starting run",
		zap.String("run_id", r.runID),
		zap.String("engine", r.engine.Name()),
		zap.Int("jobs", len(jobs)),
		zap.Int("workers", r.cfg.Run.Workers),
		zap.String("shard", summary.Shard))

	results := make([]report.Result, len(jobs))
	var g errgroup.Group
	g.SetLimit(r.cfg.Run.Workers)
	for i, j := range jobs {
		g.Go(func() error {
			results[i] = r.runJob(ctx, j)
			return nil
		})
	}
	_ = g.Wait()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		r.log.Warn("run exceeded global timeout", zap.Duration("timeout", r.cfg.Timeouts.Global))
	}

	summary.Results = results
	summary.EndTime = r.now()
	summary.Duration = summary.EndTime.Sub(summary.StartTime)
	summary.Tally()

	r.log.Info("run finished",
		zap.Int("passed", summary.Totals.Passed),
		zap.Int("failed", summary.Totals.Failed),
		zap.Int("flaky", summary.Totals.Flaky),
		zap.Int("skipped", summary.Totals.Skipped),
		zap.Duration("duration", summary.Duration))
	return summary, nil
}

func (r *Runner) runJob(ctx context.Context, j Job) report.Result {
	res := report.Result{
		Name:    j.Scenario.Name,
		Browser: j.Browser,
		Engine:  r.engine.Name(),
		Tags:    j.Scenario.Tags,
		Status:  report.StatusSkipped,
	}
	start := r.now()
	defer func() { res.Duration = r.now().Sub(start) }()

	for n := 1; n <= r.cfg.Run.Retries+1; n++ {
		if ctx.Err() != nil {
			break
		}
		if n > 1 {
			r.log.Info("retrying", zap.String("job", j.ID()), zap.Int("attempt", n))
		}
		a := r.attempt(ctx, j, n)
		res.Attempts = append(res.Attempts, a)
		if a.Status == report.StatusSkipped {
			res.Status = report.StatusSkipped
			return res
		}
		if a.Status == report.StatusPassed {
			res.Status = report.StatusPassed
			if n > 1 {
				res.Status = report.StatusFlaky
			}
			return res
		}
		res.Status = report.StatusFailed
	}
	return res
}

func (r *Runner) attempt(ctx context.Context, j Job, n int) (a report.Attempt) {
	log := r.log.With(
		zap.String("scenario", j.Scenario.Name),
		zap.String("browser", j.Browser),
		zap.Int("attempt", n))

	a = report.Attempt{Number: n, Status: report.StatusFailed}
	start := r.now()
	defer func() { a.Duration = r.now().Sub(start) }()

	actx, cancel := ctx, context.CancelFunc(func() {})
	if r.cfg.Timeouts.Test > 0 {
		actx, cancel = context.WithTimeout(ctx, r.cfg.Timeouts.Test)
	}
	defer cancel()

	browser, err := r.engine.NewAction(actx, j.Browser, r.sink)
	if err != nil {
		r.fail(&a, fmt.Errorf("failed to start browser: %w", err))
		log.Error("browser launch failed", zap.Error(err))
		return a
	}
	defer r.teardown(ctx, browser, log)
	defer r.saveTrace(ctx, browser, attemptName(j, n), &a, log)

	env := &Env{
		Browser:     browser,
		BrowserName: j.Browser,
		Config:      r.cfg,
		Log:         log,
		Data:        r.data,
	}

	log.Info("running scenario")
	err = run(actx, j.Scenario, env)
	if err == nil {
		a.Status = report.StatusPassed
		log.Info("scenario passed")
		return a
	}
	if errors.Is(err, ErrSkip) {
		a.Status = report.StatusSkipped
		a.Error = err.Error()
		log.Info("scenario skipped", zap.Error(err))
		return a
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		err = fmt.Errorf("scenario exceeded test timeout %s: %w", r.cfg.Timeouts.Test, err)
	}

	r.fail(&a, err)
	log.Warn("scenario failed", zap.String("code", a.Code), zap.Error(err))

	if r.cfg.Artifacts.ScreenshotOnFailure {
		sctx, scancel := context.WithTimeout(context.WithoutCancel(ctx), artifactTimeout)
		defer scancel()
		path, serr := browser.TakeScreenshot(sctx, attemptName(j, n))
		if serr != nil {
			log.Warn("failure screenshot not captured", zap.Error(serr))
		} else {
			a.Screenshot = path
		}
	}
	return a
}

func attemptName(j Job, n int) string {
	return fmt.Sprintf("%s-%s-attempt%d", j.Scenario.Name, j.Browser, n)
}

// saveTrace stops the attempt's trace before teardown. The archive is kept
// under <report dir>/traces when the trace mode asks for it and discarded
// otherwise. Actions that cannot trace are left alone.
func (r *Runner) saveTrace(ctx context.Context, browser uiaction.BrowserAction, name string, a *report.Attempt, log *zap.Logger) {
	mode := r.cfg.Artifacts.Trace
	tracer, ok := browser.(uiaction.Tracer)
	if !ok || mode == config.TraceOff {
		return
	}

	var path string
	if mode == config.TraceOn || a.Status == report.StatusFailed {
		p, err := uiaction.TracePath(filepath.Join(r.cfg.Artifacts.ReportDir, traceDir), name)
		if err != nil {
			log.Warn("trace directory not created", zap.Error(err))
		} else {
			path = p
		}
	}

	tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), artifactTimeout)
	defer cancel()
	err := tracer.StopTrace(tctx, path)
	switch {
	case errors.Is(err, uiaction.ErrNotTracing):
	case err != nil:
		log.Warn("trace not saved", zap.Error(err))
	case path != "":
		a.Trace = path
		log.Info("trace saved", zap.String("path", path))
	}
}

func (r *Runner) fail(a *report.Attempt, err error) {
	a.Status = report.StatusFailed
	a.Error = err.Error()
	a.Code = uiaction.Code(err)
	a.Fields = uiaction.Fields(err)
}

// teardown closes the attempt's browser on a context that survives the
// attempt deadline and caller cancellation.
func (r *Runner) teardown(ctx context.Context, browser uiaction.BrowserAction, log *zap.Logger) {
	tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
	defer cancel()
	if err := uiaction.Teardown(tctx, browser); err != nil {
		log.Warn("teardown failed", zap.Error(err))
	}
}

// run invokes the scenario, turning a panic into an error so teardown and
// the remaining jobs still run.
func run(ctx context.Context, s Scenario, env *Env) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("scenario panicked: %v", p)
		}
	}()
	if s.Run == nil {
		return fmt.Errorf("scenario %q has no body", s.Name)
	}
	return s.Run(ctx, env)
}

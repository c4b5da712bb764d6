package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/entrhq/uiharness/pkg/config"
	"github.com/entrhq/uiharness/pkg/logging"
	"github.com/entrhq/uiharness/pkg/report"
	"github.com/entrhq/uiharness/pkg/runner"
	"github.com/entrhq/uiharness/pkg/scenarios"
	"github.com/entrhq/uiharness/pkg/uiaction/pwaction"
)

// runFlags override configuration when set explicitly.
type runFlags struct {
	engine   string
	browser  string
	workers  int
	retries  int
	shard    string
	grep     string
	trace    string
	headless bool
	list     bool
}

func newRunCmd(a *app) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run scenarios",
		Long: `Run the built-in scenarios. Every scenario attempt gets its own browser,
context and page, torn down when the attempt ends.

Examples:
  uiharness run --browser all --workers 4
  uiharness run --grep 'signin/invalid*' --retries 1
  uiharness run --shard 2/3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := f.apply(cmd, a.cfg); err != nil {
				return err
			}
			if f.list {
				return listScenarios(cmd, a.cfg)
			}
			return a.run(cmd)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.engine, "engine", "", "automation engine: playwright or chromedp")
	flags.StringVar(&f.browser, "browser", "", "chromium, firefox, webkit or all")
	flags.IntVar(&f.workers, "workers", 0, "scenarios run in parallel")
	flags.IntVar(&f.retries, "retries", 0, "retries per failed scenario")
	flags.StringVar(&f.shard, "shard", "", "run one shard, as index/total (e.g. 2/3)")
	flags.StringVar(&f.grep, "grep", "", "comma-separated name globs or @tags")
	flags.StringVar(&f.trace, "trace", "", "playwright traces: off, on or retain-on-failure")
	flags.BoolVar(&f.headless, "headless", false, "run browsers without a window")
	flags.BoolVar(&f.list, "list", false, "list the selected scenarios and exit")
	return cmd
}

// apply copies explicitly set flags onto cfg and revalidates it.
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("engine") {
		cfg.Engine = strings.ToLower(f.engine)
	}
	if flags.Changed("browser") {
		cfg.Browser.Name = strings.ToLower(f.browser)
	}
	if flags.Changed("workers") {
		cfg.Run.Workers = f.workers
	}
	if flags.Changed("retries") {
		cfg.Run.Retries = f.retries
	}
	if flags.Changed("grep") {
		cfg.Run.Grep = f.grep
	}
	if flags.Changed("trace") {
		cfg.Artifacts.Trace = strings.ToLower(f.trace)
	}
	if flags.Changed("headless") {
		cfg.Browser.Headless = f.headless
	}
	if flags.Changed("shard") {
		index, total, err := parseShard(f.shard)
		if err != nil {
			return err
		}
		cfg.Run.ShardIndex, cfg.Run.TotalShards = index, total
	}
	return cfg.Validate()
}

func parseShard(s string) (int, int, error) {
	idx, tot, ok := strings.Cut(s, "/")
	if !ok {
		return 0, 0, fmt.Errorf("invalid shard %q (want index/total)", s)
	}
	index, err := strconv.Atoi(strings.TrimSpace(idx))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid shard index %q: %w", idx, err)
	}
	total, err := strconv.Atoi(strings.TrimSpace(tot))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid shard total %q: %w", tot, err)
	}
	return index, total, nil
}

func listScenarios(cmd *cobra.Command, cfg *config.Config) error {
	r := runner.New(runner.Options{Config: cfg, Engine: nopEngine{}})
	jobs, err := r.Select(scenarios.All())
	if err != nil {
		return err
	}
	for _, j := range jobs {
		fmt.Fprintln(cmd.OutOrStdout(), j.ID())
	}
	return nil
}

func (a *app) run(cmd *cobra.Command) error {
	cfg := a.cfg
	ctx := cmd.Context()

	// Initialize logs its own fallback to stderr.
	logger, _ := logging.Initialize(cfg.Logging)
	defer logging.Sync()

	browsers, err := cfg.Browsers()
	if err != nil {
		return err
	}
	logger.Info("configuration",
		zap.String("base_url", cfg.BaseURL),
		zap.String("engine", cfg.Engine),
		zap.Strings("browsers", browsers),
		zap.Bool("headless", cfg.Browser.Headless),
		zap.Duration("slow_mo", cfg.Browser.SlowMo),
		zap.Int("workers", cfg.Run.Workers),
		zap.Int("retries", cfg.Run.Retries),
		zap.String("log_file", logging.LogPath()))

	var engine runner.Engine
	switch cfg.Engine {
	case config.EngineChromedp:
		engine = runner.NewChromedpEngine(cfg)
	default:
		launcher := pwaction.NewLauncher(pwaction.LauncherOptions{Browsers: browsers})
		if err := launcher.Start(); err != nil {
			return fmt.Errorf("failed to start playwright (run 'uiharness install' first?): %w", err)
		}
		defer func() {
			if err := launcher.Stop(); err != nil {
				logger.Warn("failed to stop playwright", zap.Error(err))
			}
		}()
		engine = runner.NewPlaywrightEngine(launcher, cfg)
	}

	r := runner.New(runner.Options{
		Config: cfg,
		Engine: engine,
		Log:    logging.NewLogger("runner"),
		Sink:   logging.NewEventSink(logging.NewLogger("uiaction")),
		RunID:  logging.GetSessionID(),
	})
	summary, err := r.Run(ctx, scenarios.All())
	if err != nil {
		return err
	}

	dir := report.ShardDir(cfg.Artifacts.ReportDir, cfg.Run.ShardIndex, cfg.Run.TotalShards)
	if err := report.NewWriter(dir).WriteAll(summary); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), report.Render(summary))
	fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", dir)

	if summary.Failed() {
		return fmt.Errorf("%d of %d scenarios failed", summary.Totals.Failed, summary.Totals.Total)
	}
	return ctx.Err()
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/entrhq/uiharness/pkg/report"
	"github.com/entrhq/uiharness/pkg/uiaction"
	"github.com/entrhq/uiharness/pkg/uiaction/pwaction"
	"github.com/entrhq/uiharness/pkg/workspace"
)

func newInstallCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Download the Playwright driver and the configured browsers",
		RunE: func(cmd *cobra.Command, args []string) error {
			browsers, err := a.cfg.Browsers()
			if err != nil {
				return err
			}
			l := pwaction.NewLauncher(pwaction.LauncherOptions{
				Browsers: browsers,
				Stdout:   cmd.OutOrStdout(),
				Stderr:   cmd.ErrOrStderr(),
			})
			if err := l.Install(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✔ Installed %v\n", browsers)
			return nil
		},
	}
}

func newCleanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove report and screenshot directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			g, err := workspace.NewGuard(cwd)
			if err != nil {
				return err
			}
			removed, err := report.Clean(g, a.cfg.Artifacts.ReportDir, a.cfg.Artifacts.ScreenshotDir)
			for _, dir := range removed {
				fmt.Fprintf(cmd.OutOrStdout(), "✔ Cleaned %s\n", dir)
			}
			return err
		},
	}
}

func newReportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Work with run reports",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "merge",
		Short: "Merge shard summaries into one report",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.cfg.Artifacts.ReportDir
			summary, err := report.MergeDir(dir)
			if err != nil {
				return err
			}
			if err := report.NewWriter(dir).WriteAll(summary); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), report.Render(summary))
			if summary.Failed() {
				return fmt.Errorf("one or more shards failed: %d of %d scenarios", summary.Totals.Failed, summary.Totals.Total)
			}
			return nil
		},
	})
	cmd.AddCommand(newReportShowCmd(a))
	return cmd
}

func newReportShowCmd(a *app) *cobra.Command {
	var markdown, copyMarkdown bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the summary of the last run",
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := report.Read(filepath.Join(a.cfg.Artifacts.ReportDir, report.SummaryJSON))
			if err != nil {
				return err
			}
			if markdown {
				fmt.Fprint(cmd.OutOrStdout(), report.Markdown(summary))
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), report.Render(summary))
			}
			if copyMarkdown {
				if err := clipboard.WriteAll(report.Markdown(summary)); err != nil {
					return fmt.Errorf("failed to copy summary to clipboard: %w", err)
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "✔ Copied markdown summary to clipboard")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&markdown, "markdown", false, "print the markdown summary")
	cmd.Flags().BoolVar(&copyMarkdown, "copy", false, "copy the markdown summary to the clipboard")
	return cmd
}

// nopEngine lets run --list plan jobs without starting a browser.
type nopEngine struct{}

func (nopEngine) Name() string { return "none" }

func (nopEngine) NewAction(context.Context, string, uiaction.EventSink) (uiaction.BrowserAction, error) {
	return nil, errors.ErrUnsupported
}

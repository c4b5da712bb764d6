package main

import (
	"fmt"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/spf13/cobra"

	"github.com/entrhq/uiharness/pkg/config"
)

const version = "0.1.0"

// app carries state shared by subcommands.
type app struct {
	configFile string
	env        string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "uiharness",
		Short:         "Run end-to-end UI scenarios against Playwright or Chrome DevTools.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.LoadOptions{ConfigFile: a.configFile, Env: a.env})
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}
	root.SetVersionTemplate("uiharness v{{.Version}}\n")
	root.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "config file (default is ./uiharness.yaml)")
	root.PersistentFlags().StringVar(&a.env, "env", "", "environment; loads .env.<env> (default $TEST_ENV or dev)")

	root.AddCommand(
		newRunCmd(a),
		newInstallCmd(a),
		newCleanCmd(a),
		newReportCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		// Skip config loading.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "uiharness v%s\n", version)
		},
	}
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	var color bool
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.cfg.Marshal()
			if err != nil {
				return err
			}
			if color {
				return quick.Highlight(cmd.OutOrStdout(), string(data), "yaml", "terminal256", "monokai")
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	show.Flags().BoolVar(&color, "color", false, "syntax highlight the output for a terminal")
	cmd.AddCommand(show)
	return cmd
}

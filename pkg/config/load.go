package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultEnv is used when neither LoadOptions.Env nor TEST_ENV is set.
const DefaultEnv = "dev"

// envBindings maps config keys to the environment variables that set them.
var envBindings = map[string]string{
	"base_url":             "BASE_URL",
	"engine":               "ENGINE",
	"browser.name":         "BROWSER",
	"browser.headless":     "HEADLESS",
	"browser.slow_mo":      "SLOW_MO",
	"run.workers":          "WORKERS",
	"run.retries":          "RETRY_COUNT",
	"run.total_shards":     "TOTAL_SHARDS",
	"run.shard_index":      "SHARD_INDEX",
	"run.grep":             "GREP",
	"timeouts.global":      "GLOBAL_TIMEOUT",
	"artifacts.trace":      "TRACE",
	"users.valid.email":    "VALID_USER_EMAIL",
	"users.valid.password": "VALID_USER_PASSWORD",
	"users.valid.company":  "VALID_USER_COMPANY",
}

// LoadOptions controls where configuration is read from
type LoadOptions struct {
	// ConfigFile is an explicit YAML file. When empty, uiharness.yaml in the
	// working directory is used if present.
	ConfigFile string

	// Env selects .env.<Env>; it defaults to $TEST_ENV, then DefaultEnv.
	Env string

	// EnvDir is the directory holding the .env files. Defaults to ".".
	EnvDir string
}

// SetDefaults registers DefaultConfig on v.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("base_url", d.BaseURL)
	v.SetDefault("engine", d.Engine)

	v.SetDefault("browser.name", d.Browser.Name)
	v.SetDefault("browser.headless", d.Browser.Headless)
	v.SetDefault("browser.slow_mo", d.Browser.SlowMo)
	v.SetDefault("browser.viewport.width", d.Browser.Viewport.Width)
	v.SetDefault("browser.viewport.height", d.Browser.Viewport.Height)
	v.SetDefault("browser.ignore_https_errors", d.Browser.IgnoreHTTPSErrors)

	v.SetDefault("timeouts.action", d.Timeouts.Action)
	v.SetDefault("timeouts.wait", d.Timeouts.Wait)
	v.SetDefault("timeouts.navigation", d.Timeouts.Navigation)
	v.SetDefault("timeouts.test", d.Timeouts.Test)
	v.SetDefault("timeouts.global", d.Timeouts.Global)

	v.SetDefault("run.workers", d.Run.Workers)
	v.SetDefault("run.retries", d.Run.Retries)
	v.SetDefault("run.total_shards", d.Run.TotalShards)
	v.SetDefault("run.shard_index", d.Run.ShardIndex)
	v.SetDefault("run.grep", d.Run.Grep)

	v.SetDefault("artifacts.screenshot_dir", d.Artifacts.ScreenshotDir)
	v.SetDefault("artifacts.report_dir", d.Artifacts.ReportDir)
	v.SetDefault("artifacts.screenshot_on_failure", d.Artifacts.ScreenshotOnFailure)
	v.SetDefault("artifacts.trace", d.Artifacts.Trace)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", d.Logging.MaxAgeDays)

	v.SetDefault("users.valid.email", "")
	v.SetDefault("users.valid.password", "")
	v.SetDefault("users.valid.company", "")
}

// Load builds the configuration. Precedence, lowest first: defaults, YAML
// file, .env.<env> file, process environment.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if err := readConfigFile(v, opts.ConfigFile); err != nil {
		return nil, err
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if err := applyDotenv(v, opts); err != nil {
		return nil, err
	}

	if err := normalizeSlowMo(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.Browser.Name = strings.ToLower(strings.TrimSpace(cfg.Browser.Name))
	cfg.Engine = strings.ToLower(strings.TrimSpace(cfg.Engine))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName("uiharness")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

// EnvName resolves the .env file suffix for opts.
func EnvName(opts LoadOptions) string {
	if opts.Env != "" {
		return opts.Env
	}
	if env := os.Getenv("TEST_ENV"); env != "" {
		return env
	}
	return DefaultEnv
}

// applyDotenv copies values from .env.<env> into v for variables the process
// environment does not already set. A missing file is not an error.
func applyDotenv(v *viper.Viper, opts LoadOptions) error {
	dir := opts.EnvDir
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, ".env."+EnvName(opts))
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	dot := viper.New()
	dot.SetConfigFile(path)
	dot.SetConfigType("env")
	if err := dot.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	for key, env := range envBindings {
		if _, ok := os.LookupEnv(env); ok {
			continue
		}
		name := strings.ToLower(env)
		if dot.IsSet(name) {
			v.Set(key, dot.GetString(name))
		}
	}
	return nil
}

// normalizeSlowMo accepts a duration, a millisecond count, or the boolean
// form where true means one second.
func normalizeSlowMo(v *viper.Viper) error {
	raw := strings.ToLower(strings.TrimSpace(v.GetString("browser.slow_mo")))
	var d time.Duration
	switch raw {
	case "", "false", "0":
	case "true":
		d = time.Second
	default:
		if ms, err := strconv.Atoi(raw); err == nil {
			d = time.Duration(ms) * time.Millisecond
			break
		}
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid slow_mo %q: %w", raw, err)
		}
		d = parsed
	}
	v.Set("browser.slow_mo", d)
	return nil
}

// Package config loads harness configuration from defaults, an optional YAML
// file, an optional .env.<TEST_ENV> file and the process environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/entrhq/uiharness/pkg/logging"
	"github.com/entrhq/uiharness/pkg/uiaction"
	"github.com/entrhq/uiharness/pkg/uiaction/pwaction"
)

// Engines
const (
	EnginePlaywright = "playwright"
	EngineChromedp   = "chromedp"
)

// BrowserAll fans a run out over every supported browser.
const BrowserAll = "all"

// Trace modes. Traces are recorded by the playwright engine only.
const (
	TraceOff             = "off"
	TraceOn              = "on"
	TraceRetainOnFailure = "retain-on-failure"
)

// Config represents the harness configuration
type Config struct {
	// Application under test
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// Automation engine: playwright or chromedp
	Engine string `mapstructure:"engine" yaml:"engine"`

	Browser   BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Timeouts  TimeoutConfig  `mapstructure:"timeouts" yaml:"timeouts"`
	Run       RunConfig      `mapstructure:"run" yaml:"run"`
	Artifacts ArtifactConfig `mapstructure:"artifacts" yaml:"artifacts"`
	Logging   logging.Config `mapstructure:"logging" yaml:"logging"`
	Users     UsersConfig    `mapstructure:"users" yaml:"users"`
}

// BrowserConfig defines how browsers are launched
type BrowserConfig struct {
	// Name is chromium, firefox, webkit (aliases chrome, safari) or all
	Name              string         `mapstructure:"name" yaml:"name"`
	Headless          bool           `mapstructure:"headless" yaml:"headless"`
	SlowMo            time.Duration  `mapstructure:"slow_mo" yaml:"-"`
	Viewport          ViewportConfig `mapstructure:"viewport" yaml:"viewport"`
	IgnoreHTTPSErrors bool           `mapstructure:"ignore_https_errors" yaml:"ignore_https_errors"`
}

type ViewportConfig struct {
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

// TimeoutConfig holds the default timeouts. Test bounds one scenario attempt
// and Global bounds the whole run; a zero Global means no limit.
type TimeoutConfig struct {
	Action     time.Duration `mapstructure:"action"`
	Wait       time.Duration `mapstructure:"wait"`
	Navigation time.Duration `mapstructure:"navigation"`
	Test       time.Duration `mapstructure:"test"`
	Global     time.Duration `mapstructure:"global"`
}

// RunConfig controls scheduling. Shards are 1-based: shard_index 2 of
// total_shards 3 runs the second third of the selected scenarios.
type RunConfig struct {
	Workers     int    `mapstructure:"workers" yaml:"workers"`
	Retries     int    `mapstructure:"retries" yaml:"retries"`
	TotalShards int    `mapstructure:"total_shards" yaml:"total_shards"`
	ShardIndex  int    `mapstructure:"shard_index" yaml:"shard_index"`
	Grep        string `mapstructure:"grep" yaml:"grep"`
}

// ArtifactConfig defines where run artifacts go
type ArtifactConfig struct {
	ScreenshotDir       string `mapstructure:"screenshot_dir" yaml:"screenshot_dir"`
	ReportDir           string `mapstructure:"report_dir" yaml:"report_dir"`
	ScreenshotOnFailure bool   `mapstructure:"screenshot_on_failure" yaml:"screenshot_on_failure"`

	// Trace is off, on or retain-on-failure. Traces land in <report_dir>/traces.
	Trace string `mapstructure:"trace" yaml:"trace"`
}

type UsersConfig struct {
	Valid Credentials `mapstructure:"valid" yaml:"valid"`
}

// Credentials of a pre-provisioned account. Company is the label the
// landing page shows after this user signs in.
type Credentials struct {
	Email    string `mapstructure:"email" yaml:"email"`
	Password string `mapstructure:"password" yaml:"password"`
	Company  string `mapstructure:"company" yaml:"company"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() *Config {
	return &Config{
		BaseURL: "http://localhost:3000",
		Engine:  EnginePlaywright,
		Browser: BrowserConfig{
			Name:              pwaction.BrowserWebKit,
			Viewport:          ViewportConfig{Width: 1280, Height: 720},
			IgnoreHTTPSErrors: true,
		},
		Timeouts: TimeoutConfig{
			Action:     uiaction.DefaultActionTimeout,
			Wait:       uiaction.DefaultWaitTimeout,
			Navigation: uiaction.DefaultNavigationTimeout,
			Test:       60 * time.Second,
			Global:     600 * time.Second,
		},
		Run: RunConfig{
			Workers:     1,
			TotalShards: 1,
			ShardIndex:  1,
		},
		Artifacts: ArtifactConfig{
			ScreenshotDir:       "screenshots",
			ReportDir:           "reports",
			ScreenshotOnFailure: true,
			Trace:               TraceRetainOnFailure,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}

	if c.Engine != EnginePlaywright && c.Engine != EngineChromedp {
		return fmt.Errorf("invalid engine: %s (must be '%s' or '%s')", c.Engine, EnginePlaywright, EngineChromedp)
	}

	browsers, err := c.Browsers()
	if err != nil {
		return err
	}
	if c.Engine == EngineChromedp && (len(browsers) != 1 || browsers[0] != pwaction.BrowserChromium) {
		return fmt.Errorf("engine %s only drives chromium, got browser %q", EngineChromedp, c.Browser.Name)
	}

	if c.Browser.SlowMo < 0 {
		return fmt.Errorf("slow_mo cannot be negative")
	}
	if c.Browser.Viewport.Width <= 0 || c.Browser.Viewport.Height <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d", c.Browser.Viewport.Width, c.Browser.Viewport.Height)
	}

	t := c.Timeouts
	if t.Action < 0 || t.Wait < 0 || t.Navigation < 0 || t.Test < 0 || t.Global < 0 {
		return fmt.Errorf("timeouts cannot be negative")
	}

	switch c.Artifacts.Trace {
	case TraceOff, TraceOn, TraceRetainOnFailure:
	default:
		return fmt.Errorf("invalid trace mode: %s (must be '%s', '%s' or '%s')", c.Artifacts.Trace, TraceOff, TraceOn, TraceRetainOnFailure)
	}

	if c.Run.Workers <= 0 {
		return fmt.Errorf("workers must be a positive integer")
	}
	if c.Run.Retries < 0 {
		return fmt.Errorf("retries cannot be negative")
	}
	if c.Run.TotalShards <= 0 {
		return fmt.Errorf("total_shards must be a positive integer")
	}
	if c.Run.ShardIndex < 1 || c.Run.ShardIndex > c.Run.TotalShards {
		return fmt.Errorf("shard_index must be between 1 and %d, got %d", c.Run.TotalShards, c.Run.ShardIndex)
	}

	return nil
}

// Browsers returns the normalized browser names a run fans out over.
func (c *Config) Browsers() ([]string, error) {
	name := strings.ToLower(strings.TrimSpace(c.Browser.Name))
	if name == BrowserAll {
		return append([]string(nil), pwaction.Browsers...), nil
	}
	b, err := pwaction.NormalizeBrowser(name)
	if err != nil {
		return nil, err
	}
	return []string{b}, nil
}

// TimeoutSettings returns root timeout settings seeded from the config.
func (c *Config) TimeoutSettings() *uiaction.TimeoutSettings {
	ts := uiaction.NewTimeoutSettings(nil)
	ts.SetDefault(uiaction.TimeoutAction, c.Timeouts.Action)
	ts.SetDefault(uiaction.TimeoutWait, c.Timeouts.Wait)
	ts.SetDefault(uiaction.TimeoutNavigation, c.Timeouts.Navigation)
	return ts
}

// Marshal renders the configuration as YAML. Credentials are redacted.
func (c *Config) Marshal() ([]byte, error) {
	out := *c
	if out.Users.Valid.Password != "" {
		out.Users.Valid.Password = "********"
	}
	data, err := yaml.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// MarshalYAML writes slow_mo as a duration string.
func (b BrowserConfig) MarshalYAML() (any, error) {
	type plain BrowserConfig
	return struct {
		plain  `yaml:",inline"`
		SlowMo string `yaml:"slow_mo"`
	}{plain(b), b.SlowMo.String()}, nil
}

func (t TimeoutConfig) MarshalYAML() (any, error) {
	return map[string]string{
		"action":     t.Action.String(),
		"wait":       t.Wait.String(),
		"navigation": t.Navigation.String(),
		"test":       t.Test.String(),
		"global":     t.Global.String(),
	}, nil
}

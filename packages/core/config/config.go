package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/pagespec/packages/core/parser"
)

// Config represents the pagespec project configuration
type Config struct {
	DefaultEnvironment string                    `yaml:"defaultEnvironment,omitempty" json:"defaultEnvironment,omitempty"`
	Environments       map[string]map[string]any `yaml:"environments,omitempty" json:"environments,omitempty"`
	EnvFile            string                    `yaml:"envFile,omitempty" json:"envFile,omitempty"`
	Timeout            int                       `yaml:"timeout,omitempty" json:"timeout,omitempty"` // milliseconds, per query and navigation
	Headless           *bool                     `yaml:"headless,omitempty" json:"headless,omitempty"`
	Browser            string                    `yaml:"browser,omitempty" json:"browser,omitempty"`       // Chrome binary, empty for auto-download
	ControlURL         string                    `yaml:"controlURL,omitempty" json:"controlURL,omitempty"` // attach to a running browser
	Isolation          string                    `yaml:"isolation,omitempty" json:"isolation,omitempty"`
	SuppressPageErrors *bool                     `yaml:"suppressPageErrors,omitempty" json:"suppressPageErrors,omitempty"`
	Viewport           string                    `yaml:"viewport,omitempty" json:"viewport,omitempty"`             // WxH
	NavigationRate     float64                   `yaml:"navigationRate,omitempty" json:"navigationRate,omitempty"` // visits per second, 0 = unlimited
	Headers            map[string]string         `yaml:"headers,omitempty" json:"headers,omitempty"`               // default headers for fetch steps
	UserAgent          string                    `yaml:"userAgent,omitempty" json:"userAgent,omitempty"`           // User-Agent for fetch steps
	ValidateSSL        *bool                     `yaml:"validateSSL,omitempty" json:"validateSSL,omitempty"`
	Reporters          []string                  `yaml:"reporters,omitempty" json:"reporters,omitempty"`
	OutputFile         string                    `yaml:"outputFile,omitempty" json:"outputFile,omitempty"`
	Bail               *bool                     `yaml:"bail,omitempty" json:"bail,omitempty"`
	NoColor            *bool                     `yaml:"noColor,omitempty" json:"noColor,omitempty"`
	History            string                    `yaml:"history,omitempty" json:"history,omitempty"` // sqlite path, empty disables
	Notify             *NotifyConfig             `yaml:"notify,omitempty" json:"notify,omitempty"`
}

type NotifyConfig struct {
	On           string `yaml:"on,omitempty" json:"on,omitempty"` // always, failure, success, recovery
	SlackWebhook string `yaml:"slackWebhook,omitempty" json:"slackWebhook,omitempty"`
	SlackChannel string `yaml:"slackChannel,omitempty" json:"slackChannel,omitempty"`
	TeamsWebhook string `yaml:"teamsWebhook,omitempty" json:"teamsWebhook,omitempty"`
}

// BoolPtr returns a pointer to b
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetHeadless returns the headless setting, defaulting to true
func (c *Config) GetHeadless() bool {
	return getBool(c.Headless, true)
}

// GetSuppressPageErrors returns the page-error policy. The boolean is false
// when neither the config nor a caller has set it, so the suite's own
// @suppress-page-errors annotation can apply.
func (c *Config) GetSuppressPageErrors() (value, set bool) {
	if c.SuppressPageErrors == nil {
		return false, false
	}
	return *c.SuppressPageErrors, true
}

// GetValidateSSL returns the validate SSL setting, defaulting to true
func (c *Config) GetValidateSSL() bool {
	return getBool(c.ValidateSSL, true)
}

// GetBail returns the bail setting, defaulting to false
func (c *Config) GetBail() bool {
	return getBool(c.Bail, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// GetViewport parses the configured viewport. It returns nil when none is set.
func (c *Config) GetViewport() (*parser.Viewport, error) {
	if c.Viewport == "" {
		return nil, nil
	}
	return parser.ParseViewport(c.Viewport)
}

// Validate checks values that can be wrong without failing to decode.
func (c *Config) Validate() error {
	var errs []error
	switch c.Isolation {
	case "", parser.IsolationNone, parser.IsolationPerCase:
	default:
		errs = append(errs, fmt.Errorf("isolation must be %q or %q, got %q", parser.IsolationNone, parser.IsolationPerCase, c.Isolation))
	}
	if _, err := c.GetViewport(); err != nil {
		errs = append(errs, fmt.Errorf("viewport: %w", err))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative"))
	}
	if c.NavigationRate < 0 {
		errs = append(errs, fmt.Errorf("navigationRate must not be negative"))
	}
	if c.Notify != nil {
		switch c.Notify.On {
		case "", "always", "failure", "success", "recovery":
		default:
			errs = append(errs, fmt.Errorf("notify.on must be always, failure, success or recovery, got %q", c.Notify.On))
		}
	}
	return errors.Join(errs...)
}

// ConfigFilenames contains the possible config file names, in search order
var ConfigFilenames = []string{
	"pagespec.yaml",
	"pagespec.yml",
	".pagespec.yaml",
	".pagespec.json",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	return DefaultConfig(), nil
}

func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, config)
	} else {
		err = yaml.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return config, nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c

	if other.DefaultEnvironment != "" {
		result.DefaultEnvironment = other.DefaultEnvironment
	}
	if other.EnvFile != "" {
		result.EnvFile = other.EnvFile
	}
	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.Browser != "" {
		result.Browser = other.Browser
	}
	if other.ControlURL != "" {
		result.ControlURL = other.ControlURL
	}
	if other.Isolation != "" {
		result.Isolation = other.Isolation
	}
	if other.Viewport != "" {
		result.Viewport = other.Viewport
	}
	if other.NavigationRate > 0 {
		result.NavigationRate = other.NavigationRate
	}
	if other.OutputFile != "" {
		result.OutputFile = other.OutputFile
	}
	if other.History != "" {
		result.History = other.History
	}
	if other.UserAgent != "" {
		result.UserAgent = other.UserAgent
	}

	// Boolean flags - only override if explicitly set in other config
	if other.Headless != nil {
		result.Headless = other.Headless
	}
	if other.SuppressPageErrors != nil {
		result.SuppressPageErrors = other.SuppressPageErrors
	}
	if other.ValidateSSL != nil {
		result.ValidateSSL = other.ValidateSSL
	}
	if other.Bail != nil {
		result.Bail = other.Bail
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	if len(other.Headers) > 0 {
		headers := make(map[string]string, len(c.Headers)+len(other.Headers))
		for k, v := range c.Headers {
			headers[k] = v
		}
		for k, v := range other.Headers {
			headers[k] = v
		}
		result.Headers = headers
	}

	if len(other.Environments) > 0 {
		envs := make(map[string]map[string]any, len(c.Environments)+len(other.Environments))
		for k, v := range c.Environments {
			envs[k] = v
		}
		for k, v := range other.Environments {
			envs[k] = v
		}
		result.Environments = envs
	}

	if len(other.Reporters) > 0 {
		result.Reporters = other.Reporters
	}

	if other.Notify != nil {
		merged := NotifyConfig{}
		if c.Notify != nil {
			merged = *c.Notify
		}
		if other.Notify.On != "" {
			merged.On = other.Notify.On
		}
		if other.Notify.SlackWebhook != "" {
			merged.SlackWebhook = other.Notify.SlackWebhook
		}
		if other.Notify.SlackChannel != "" {
			merged.SlackChannel = other.Notify.SlackChannel
		}
		if other.Notify.TeamsWebhook != "" {
			merged.TeamsWebhook = other.Notify.TeamsWebhook
		}
		result.Notify = &merged
	}

	return &result
}

// SaveConfig writes the configuration as YAML, or JSON for a .json path.
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

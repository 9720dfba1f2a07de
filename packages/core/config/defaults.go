package config

import "time"

const (
	DefaultTimeout = 10 * time.Second
	DefaultHistory = ".pagespec/history.db"
)

// DefaultConfig returns a configuration with default values. Headless and
// ValidateSSL are left nil so their getters apply the defaults.
// SuppressPageErrors and Isolation stay unset so suite annotations decide
// them.
func DefaultConfig() *Config {
	return &Config{
		DefaultEnvironment: "dev",
		Timeout:            int(DefaultTimeout / time.Millisecond),
		Reporters:          []string{"console"},
	}
}

// TimeoutDuration returns Timeout as a duration, falling back to the default.
func (c *Config) TimeoutDuration() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return time.Duration(c.Timeout) * time.Millisecond
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.DefaultEnvironment == defaults.DefaultEnvironment &&
		c.Timeout == defaults.Timeout &&
		c.Isolation == defaults.Isolation &&
		c.Headless == nil &&
		c.SuppressPageErrors == nil &&
		c.ValidateSSL == nil &&
		c.Bail == nil &&
		c.NoColor == nil &&
		c.Viewport == "" &&
		c.NavigationRate == 0 &&
		c.History == "" &&
		c.Notify == nil &&
		len(c.Headers) == 0 &&
		len(c.Environments) == 0
}

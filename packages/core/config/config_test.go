package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.IsDefault())
	assert.True(t, cfg.GetHeadless())
	assert.True(t, cfg.GetValidateSSL())
	assert.False(t, cfg.GetBail())
	assert.Equal(t, 10*time.Second, cfg.TimeoutDuration())

	_, set := cfg.GetSuppressPageErrors()
	assert.False(t, set)

	vp, err := cfg.GetViewport()
	require.NoError(t, err)
	assert.Nil(t, vp)
}

func TestFindAndLoadConfig_YAML(t *testing.T) {
	dir := t.TempDir()
	yml := `
defaultEnvironment: prod
timeout: 15000
headless: false
isolation: per-case
suppressPageErrors: true
viewport: 1500x1000
navigationRate: 0.5
environments:
  prod:
    site: https://raptormaps.com
notify:
  on: recovery
  slackWebhook: https://hooks.slack.test/x
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pagespec.yaml"), []byte(yml), 0o600))

	cfg, err := FindAndLoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.DefaultEnvironment)
	assert.Equal(t, 15*time.Second, cfg.TimeoutDuration())
	assert.False(t, cfg.GetHeadless())
	assert.Equal(t, "per-case", cfg.Isolation)
	suppress, set := cfg.GetSuppressPageErrors()
	assert.True(t, set)
	assert.True(t, suppress)
	assert.Equal(t, 0.5, cfg.NavigationRate)
	assert.Equal(t, "https://raptormaps.com", cfg.Environments["prod"]["site"])
	assert.Equal(t, "recovery", cfg.Notify.On)

	vp, err := cfg.GetViewport()
	require.NoError(t, err)
	assert.Equal(t, 1500, vp.Width)
	assert.Equal(t, 1000, vp.Height)
}

func TestFindAndLoadConfig_JSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".pagespec.json"), []byte(`{"bail": true, "reporters": ["junit"]}`), 0o600))

	cfg, err := FindAndLoadConfig(dir)
	require.NoError(t, err)
	assert.True(t, cfg.GetBail())
	assert.Equal(t, []string{"junit"}, cfg.Reporters)
	assert.Empty(t, cfg.Isolation)
}

func TestFindAndLoadConfig_NoFile(t *testing.T) {
	cfg, err := FindAndLoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.True(t, cfg.IsDefault())
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"bad isolation", "isolation: sometimes", "isolation must be"},
		{"bad viewport", "viewport: wide", "viewport"},
		{"bad notify policy", "notify:\n  on: weekly", "notify.on"},
		{"bad yaml", "timeout: [", "invalid config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "pagespec.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))
			_, err := LoadConfig(path)
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	base.Headers = map[string]string{"Accept": "application/json"}
	base.Notify = &NotifyConfig{On: "failure", SlackWebhook: "https://a"}

	override := &Config{
		Timeout:            2000,
		Bail:               BoolPtr(true),
		SuppressPageErrors: BoolPtr(false),
		Headers:            map[string]string{"X-Trace": "1"},
		UserAgent:          "pagespec-ci",
		Notify:             &NotifyConfig{TeamsWebhook: "https://b"},
	}

	merged := base.Merge(override)
	assert.Equal(t, 2000, merged.Timeout)
	assert.Equal(t, "pagespec-ci", merged.UserAgent)
	assert.True(t, merged.GetBail())
	suppress, set := merged.GetSuppressPageErrors()
	assert.True(t, set)
	assert.False(t, suppress)
	assert.Equal(t, map[string]string{"Accept": "application/json", "X-Trace": "1"}, merged.Headers)
	assert.Equal(t, "failure", merged.Notify.On)
	assert.Equal(t, "https://a", merged.Notify.SlackWebhook)
	assert.Equal(t, "https://b", merged.Notify.TeamsWebhook)

	// base is untouched
	assert.Len(t, base.Headers, 1)
	assert.Empty(t, base.Notify.TeamsWebhook)
	assert.Same(t, base, base.Merge(nil))
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagespec.yaml")
	cfg := DefaultConfig()
	cfg.Viewport = "1500x1000"
	require.NoError(t, cfg.SaveConfig(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "1500x1000", loaded.Viewport)
}

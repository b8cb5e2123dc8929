// File: internal/config/config_test.go
package config_test

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voidptr9/snapdom/internal/config"
)

func loadDefaults(t *testing.T) config.Config {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)

	var cfg config.Config
	require.NoError(t, v.Unmarshal(&cfg))
	return cfg
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := loadDefaults(t)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 60*time.Second, cfg.Browser.NavigationTimeout)
	assert.Equal(t, 20*time.Second, cfg.Browser.ScriptTimeout)
	assert.True(t, cfg.Snapshot.HighlightElements)
	assert.Equal(t, -1, cfg.Snapshot.FocusElement)
	assert.Contains(t, cfg.Snapshot.IncludeAttributes, "aria-label")
}

func TestUnmarshalOverrides(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)
	v.Set("browser.headless", false)
	v.Set("browser.navigation_timeout", "90s")
	v.Set("snapshot.viewport_expansion", -1)

	var cfg config.Config
	require.NoError(t, v.Unmarshal(&cfg))
	require.NoError(t, cfg.Validate())

	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 90*time.Second, cfg.Browser.NavigationTimeout)
	assert.Equal(t, -1, cfg.Snapshot.ViewportExpansion)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero window width", func(c *config.Config) { c.Browser.WindowWidth = 0 }},
		{"negative window height", func(c *config.Config) { c.Browser.WindowHeight = -1 }},
		{"zero navigation timeout", func(c *config.Config) { c.Browser.NavigationTimeout = 0 }},
		{"zero script timeout", func(c *config.Config) { c.Browser.ScriptTimeout = 0 }},
		{"focus below sentinel", func(c *config.Config) { c.Snapshot.FocusElement = -2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := loadDefaults(t)
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

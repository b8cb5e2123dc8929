// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Snapshot SnapshotConfig `mapstructure:"snapshot" yaml:"snapshot"`
}

// LoggerConfig controls log output, format, and file rotation.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`

	// File rotation (lumberjack). Empty LogFile disables file output.
	LogFile    string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig controls the headless browser session.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors   bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	UserAgent         string        `mapstructure:"user_agent" yaml:"user_agent"`
	WindowWidth       int           `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight      int           `mapstructure:"window_height" yaml:"window_height"`
	Args              []string      `mapstructure:"args" yaml:"args"`
	StartupTimeout    time.Duration `mapstructure:"startup_timeout" yaml:"startup_timeout"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	PostLoadWait      time.Duration `mapstructure:"post_load_wait" yaml:"post_load_wait"`
	ScriptTimeout     time.Duration `mapstructure:"script_timeout" yaml:"script_timeout"`
}

// SnapshotConfig controls the in-page snapshot producer and the rendered
// output.
type SnapshotConfig struct {
	// HighlightElements draws numbered overlays on interactive elements
	// in the live page.
	HighlightElements bool `mapstructure:"highlight_elements" yaml:"highlight_elements"`
	// FocusElement is the highlight index to visually focus; -1 means none.
	FocusElement int `mapstructure:"focus_element" yaml:"focus_element"`
	// ViewportExpansion is the pixel margin beyond the viewport still
	// considered in scope; -1 means the whole document.
	ViewportExpansion int `mapstructure:"viewport_expansion" yaml:"viewport_expansion"`
	// IncludeAttributes selects element attributes rendered in the
	// clickable-elements listing.
	IncludeAttributes []string `mapstructure:"include_attributes" yaml:"include_attributes"`
}

// SetDefaults registers the default value for every key so a bare
// environment still yields a usable configuration.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "snapdom")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.window_width", 1920)
	v.SetDefault("browser.window_height", 1080)
	v.SetDefault("browser.args", []string{})
	v.SetDefault("browser.startup_timeout", 30*time.Second)
	v.SetDefault("browser.navigation_timeout", 60*time.Second)
	v.SetDefault("browser.post_load_wait", 500*time.Millisecond)
	v.SetDefault("browser.script_timeout", 20*time.Second)

	v.SetDefault("snapshot.highlight_elements", true)
	v.SetDefault("snapshot.focus_element", -1)
	v.SetDefault("snapshot.viewport_expansion", 0)
	v.SetDefault("snapshot.include_attributes", []string{
		"title", "type", "name", "role", "aria-label", "placeholder", "value", "alt",
	})
}

// Validate rejects configurations the runtime cannot work with.
func (c *Config) Validate() error {
	if c.Browser.WindowWidth <= 0 || c.Browser.WindowHeight <= 0 {
		return fmt.Errorf("browser window dimensions must be positive, got %dx%d",
			c.Browser.WindowWidth, c.Browser.WindowHeight)
	}
	if c.Browser.NavigationTimeout <= 0 {
		return fmt.Errorf("browser navigation_timeout must be positive")
	}
	if c.Browser.ScriptTimeout <= 0 {
		return fmt.Errorf("browser script_timeout must be positive")
	}
	if c.Snapshot.FocusElement < -1 {
		return fmt.Errorf("snapshot focus_element must be -1 (none) or a valid highlight index")
	}
	return nil
}

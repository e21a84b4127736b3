// Package config handles blockprobe configuration from YAML files with
// environment overrides for CI.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level blockprobe configuration.
type Config struct {
	Editor  EditorConfig  `yaml:"editor"`
	Plugin  PluginConfig  `yaml:"plugin"`
	Browser BrowserConfig `yaml:"browser"`
	Sinks   []SinkConfig  `yaml:"sinks"`
	History HistoryConfig `yaml:"history"`
	RunURL  string        `yaml:"run_url"`
}

// EditorConfig locates the editor under test.
type EditorConfig struct {
	// URL is the address of the editor page to drive.
	URL string `yaml:"url"`
	// AssetPrefix marks plugin-owned resource paths for 404 attribution.
	AssetPrefix string `yaml:"asset_prefix"`
	// CompletionTimeout bounds the install completion race.
	CompletionTimeout time.Duration `yaml:"completion_timeout"`
	// NavigationTimeout bounds page navigation and load.
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	// ScreenshotDir receives best-effort failure screenshots.
	ScreenshotDir string `yaml:"screenshot_dir"`
	// APIUser and APIPassword authenticate the cleanup REST calls
	// (application password). BLOCKPROBE_API_PASSWORD overrides the latter.
	APIUser     string `yaml:"api_user"`
	APIPassword string `yaml:"api_password"`
}

// PluginConfig identifies the third-party extension under test.
type PluginConfig struct {
	// Slug locates the extension in the block directory. The
	// BLOCKPROBE_SLUG environment variable overrides it.
	Slug string `yaml:"slug"`
	// Block is the expected block type the install registers and inserts.
	// Empty means "whatever newly registered type appears first".
	Block string `yaml:"block"`
}

// BrowserConfig controls the Chrome session.
type BrowserConfig struct {
	// Remote is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome.
	Remote string `yaml:"remote"`
	// Headful disables headless mode for local debugging.
	Headful bool `yaml:"headful"`
}

// SinkConfig defines an outcome output backend.
type SinkConfig struct {
	Type string `yaml:"type"` // stdout | ci | webhook
	URL  string `yaml:"url"`  // for webhook
	Path string `yaml:"path"` // for ci output file
}

// HistoryConfig controls the local run-history store.
type HistoryConfig struct {
	Path      string `yaml:"path"`       // SQLite file; empty disables history
	ServeAddr string `yaml:"serve_addr"` // report server address; empty disables
}

// LoadFile reads a YAML configuration file and applies defaults and
// environment overrides.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills zero values and applies environment overrides.
func (c *Config) ApplyDefaults() {
	if slug := os.Getenv("BLOCKPROBE_SLUG"); slug != "" {
		c.Plugin.Slug = slug
	}
	if pw := os.Getenv("BLOCKPROBE_API_PASSWORD"); pw != "" {
		c.Editor.APIPassword = pw
	}
	if c.Editor.AssetPrefix == "" {
		c.Editor.AssetPrefix = "/wp-content/plugins/"
	}
	if c.Editor.CompletionTimeout <= 0 {
		c.Editor.CompletionTimeout = 60 * time.Second
	}
	if c.Editor.NavigationTimeout <= 0 {
		c.Editor.NavigationTimeout = 30 * time.Second
	}
	if c.Editor.ScreenshotDir == "" {
		c.Editor.ScreenshotDir = "artifacts"
	}
	if len(c.Sinks) == 0 {
		c.Sinks = []SinkConfig{{Type: "stdout"}}
	}
}

// Validate reports configuration errors that prevent a run.
func (c *Config) Validate() error {
	if c.Editor.URL == "" {
		return fmt.Errorf("config: editor.url is required")
	}
	if c.Plugin.Slug == "" {
		return fmt.Errorf("config: plugin.slug is required (or set BLOCKPROBE_SLUG)")
	}
	return nil
}

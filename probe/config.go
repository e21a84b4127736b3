package probe

import (
	"github.com/hazyhaar/blockprobe/probe/internal/config"
)

// Config is the top-level probe configuration. Re-exported from internal.
type Config = config.Config

// EditorConfig locates the editor page and its timeouts.
type EditorConfig = config.EditorConfig

// PluginConfig names the extension under test.
type PluginConfig = config.PluginConfig

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig = config.BrowserConfig

// SinkConfig defines an outcome delivery backend.
type SinkConfig = config.SinkConfig

// HistoryConfig configures the run history store.
type HistoryConfig = config.HistoryConfig

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// Package config loads the bertrun tool configuration: where the run ledger
// lives, which Hub endpoint and token to use, and output preferences. This is
// the tool's own config, not the run document — run documents are handled by
// pkg/runconfig.
package config

import "log/slog"

// Defaults for unset tool config values.
const (
	DefaultStateFile = ".bertrun/state.db"
	DefaultOutput    = "table"
	DefaultWorldSize = 8
)

// Config holds all CLI configuration options.
type Config struct {
	// StatePath is the run ledger database path.
	StatePath string `koanf:"state_path"`
	// Endpoint is the HuggingFace Hub endpoint.
	Endpoint string `koanf:"endpoint"`
	// HFToken authenticates Hub requests. Falls back to the HF_TOKEN
	// environment variable.
	HFToken string `koanf:"hf_token"`
	// WorldSize is the assumed device count for plan math.
	WorldSize int `koanf:"world_size"`
	// Output selects the rendering format: table, yaml or json.
	Output string `koanf:"output"`
	// Verbose enables debug logging.
	Verbose bool `koanf:"verbose"`
}

// LogLevel returns the slog level implied by the config.
func (c *Config) LogLevel() slog.Level {
	if c.Verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

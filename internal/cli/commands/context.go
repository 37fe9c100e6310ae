package commands

import (
	"context"

	"github.com/nlpforge/bertrun/internal/cli/config"
)

// configKey stores the tool config in command contexts.
type configKey struct{}

// WithConfig stores the tool config in a context.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// getConfig returns the context's tool config, or defaults when none is set
// (tests construct commands without the root's PersistentPreRunE).
func getConfig(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return cfg
	}
	return &config.Config{
		StatePath: config.DefaultStateFile,
		Output:    config.DefaultOutput,
		WorldSize: config.DefaultWorldSize,
	}
}

// Package commands implements the leapquery subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapquery/internal/config"
	"github.com/leapstack-labs/leapquery/internal/manifest"
	"github.com/leapstack-labs/leapquery/pkg/dialect"
)

type configKey struct{}

type loggerKey struct{}

// WithConfig stores the loaded configuration in ctx.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// WithLogger stores the command logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetConfig retrieves the config from the command context.
func GetConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	return &config.Config{
		Dialect:  config.DefaultDialect,
		Manifest: config.DefaultManifest,
		Output:   config.DefaultOutput,
		LogLevel: config.DefaultLogLevel,
	}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg     *config.Config
	Logger  *slog.Logger
	Dialect *dialect.Dialect
}

// NewCommandContext resolves the configured dialect for cmd.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := GetConfig(ctx)
	d, err := dialect.Resolve(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	return &CommandContext{
		Cfg:     cfg,
		Logger:  GetLogger(ctx),
		Dialect: d,
	}, nil
}

// LoadManifest reads the configured manifest file.
func (c *CommandContext) LoadManifest() (*manifest.Manifest, error) {
	c.Logger.Debug("loading manifest", slog.String("path", c.Cfg.Manifest))
	m, err := manifest.Load(c.Cfg.Manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}
	return m, nil
}

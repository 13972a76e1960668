package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mrz1836/corewallet/internal/app"
	"github.com/mrz1836/corewallet/internal/config"
	"github.com/mrz1836/corewallet/internal/output"
)

type cmdContextKey struct{}

// CommandContext holds dependencies for CLI commands.
type CommandContext struct {
	Cfg *config.Config
	Log *config.Logger
	Fmt *output.Formatter

	// NewApp assembles the wallet. Tests replace it to inject fake nodes.
	NewApp func(ctx context.Context, opts app.Options) (*app.App, error)
}

// NewCommandContext creates a context with the given dependencies.
func NewCommandContext(c *config.Config, l *config.Logger, f *output.Formatter) *CommandContext {
	if l == nil {
		l = config.NullLogger()
	}
	return &CommandContext{Cfg: c, Log: l, Fmt: f, NewApp: app.New}
}

// WithAppFactory replaces the wallet constructor.
func (c *CommandContext) WithAppFactory(fn func(ctx context.Context, opts app.Options) (*app.App, error)) *CommandContext {
	c.NewApp = fn
	return c
}

// SetCmdContext attaches cc to the command's context.
func SetCmdContext(cmd *cobra.Command, cc *CommandContext) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	cmd.SetContext(context.WithValue(base, cmdContextKey{}, cc))
}

// GetCmdContext returns the context attached to cmd or one of its
// parents, falling back to the globals.
func GetCmdContext(cmd *cobra.Command) *CommandContext {
	for c := cmd; c != nil; c = c.Parent() {
		if ctx := c.Context(); ctx != nil {
			if cc, ok := ctx.Value(cmdContextKey{}).(*CommandContext); ok && cc != nil {
				return cc
			}
		}
	}
	if cmdCtx != nil {
		return cmdCtx
	}
	return NewCommandContext(cfg, logger, formatter)
}

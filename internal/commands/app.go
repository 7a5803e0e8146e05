// Package commands wires the mobvibe command line.
package commands

import (
	"context"
	"os"

	"github.com/npezzotti/mob-vibe/internal/logging"
	"github.com/urfave/cli/v3"
)

// New builds the root command with every subcommand registered.
func New(version string) *cli.Command {
	flags := &Flags{}

	app := &cli.Command{
		Name:    "mobvibe",
		Usage:   "Build browser games together by prompting an AI",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (trace, debug, info, warn, error)",
				Sources:     cli.EnvVars("MOBVIBE_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-format",
				Usage:       "log format (json, console)",
				Sources:     cli.EnvVars("MOBVIBE_LOG_FORMAT"),
				Value:       "console",
				Destination: &flags.LogFormat,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to a YAML config file",
				Sources:     cli.EnvVars("MOBVIBE_CONFIG"),
				Destination: &flags.ConfigPath,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			log, err := logging.New(logging.Config{
				Level:  flags.LogLevel,
				Format: flags.LogFormat,
				Output: os.Stderr,
			})
			if err != nil {
				return ctx, err
			}
			flags.Log = log.With().Str("app", "mobvibe").Logger()
			return ctx, nil
		},
	}

	app = NewServeCmd(flags).Register(app)
	app = NewMigrateCmd(flags).Register(app)
	app = NewWatchCmd(flags).Register(app)
	app = NewIterateCmd(flags).Register(app)

	return app
}

package commands

import (
	"context"
	"fmt"

	"github.com/npezzotti/mob-vibe/internal/config"
	"github.com/npezzotti/mob-vibe/internal/database"
	"github.com/urfave/cli/v3"
)

type MigrateCmd struct {
	flags *Flags
}

func NewMigrateCmd(flags *Flags) *MigrateCmd {
	return &MigrateCmd{flags: flags}
}

func (cmd *MigrateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "migrate",
		Usage:     "Apply database migrations",
		UsageText: "mobvibe migrate [--steps n]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "steps",
				Usage: "number of migrations to apply, negative rolls back, zero applies all",
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *MigrateCmd) run(ctx context.Context, c *cli.Command) error {
	cfg, err := config.Load(cmd.flags.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	version, err := database.Migrate(ctx, cfg.DatabaseDSN, int(c.Int("steps")))
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(c.Root().Writer, "database at version %d\n", version)
	return err
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/npezzotti/mob-vibe/internal/iteration"
	"github.com/npezzotti/mob-vibe/internal/sandbox"
	"github.com/npezzotti/mob-vibe/internal/styles"
	"github.com/urfave/cli/v3"
)

type IterateCmd struct {
	flags *Flags
}

func NewIterateCmd(flags *Flags) *IterateCmd {
	return &IterateCmd{flags: flags}
}

func (cmd *IterateCmd) Register(app *cli.Command) *cli.Command {
	gameFlag := func() cli.Flag {
		return &cli.IntFlag{
			Name:     "game",
			Aliases:  []string{"g"},
			Usage:    "game id",
			Required: true,
		}
	}

	app.Commands = append(app.Commands,
		&cli.Command{
			Name:        "iterate",
			Usage:       "Generate a new iteration of a game",
			UsageText:   "mobvibe iterate --game id [--log line]... prompt",
			Description: "Sends the prompt and any captured console lines, then prints the diff against the previous version.",
			Flags: append(remoteFlags(), gameFlag(),
				&cli.StringSliceFlag{
					Name:  "log",
					Usage: "console output to include as context, formatted as level:message",
				},
			),
			Action: cmd.iterate,
		},
		&cli.Command{
			Name:      "history",
			Usage:     "Show the iterations of a game",
			UsageText: "mobvibe history --game id",
			Flags:     append(remoteFlags(), gameFlag()),
			Action:    cmd.history,
		},
	)

	return app
}

// consoleLines turns level:message flags into captured console lines.
func consoleLines(raw []string) []string {
	lines := make([]string, 0, len(raw))
	for _, r := range raw {
		level, msg, ok := strings.Cut(r, ":")
		if !ok {
			level, msg = "log", r
		}
		lines = append(lines, sandbox.FormatLog(level, strings.TrimSpace(msg)))
	}
	return lines
}

func (cmd *IterateCmd) iterate(ctx context.Context, c *cli.Command) error {
	prompt := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(prompt) == "" {
		return errors.New("a prompt is required")
	}

	api, err := cmd.flags.login(ctx, c)
	if err != nil {
		return err
	}

	gameId := int(c.Int("game"))
	its, err := api.ListIterations(ctx, gameId)
	if err != nil {
		return fmt.Errorf("list iterations: %w", err)
	}

	sub := iteration.NewSubmitter(gameId, api, iteration.NewHistory(its))
	it, err := sub.Submit(ctx, prompt, consoleLines(c.StringSlice("log")))
	if err != nil {
		return fmt.Errorf("create iteration: %w", err)
	}
	cmd.flags.Log.Debug().Int("iteration_id", it.Id).Msg("iteration created")

	entries := sub.History().Entries()
	_, err = fmt.Fprint(c.Root().Writer, styles.Entry(entries[0]))
	return err
}

func (cmd *IterateCmd) history(ctx context.Context, c *cli.Command) error {
	api, err := cmd.flags.login(ctx, c)
	if err != nil {
		return err
	}

	its, err := api.ListIterations(ctx, int(c.Int("game")))
	if err != nil {
		return fmt.Errorf("list iterations: %w", err)
	}

	out := c.Root().Writer
	if len(its) == 0 {
		fmt.Fprintln(out, styles.MutedStyle.Render("no iterations yet"))
		return nil
	}

	for _, e := range iteration.NewHistory(its).Entries() {
		fmt.Fprintln(out, styles.Entry(e))
	}
	return nil
}

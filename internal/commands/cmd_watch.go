package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/npezzotti/mob-vibe/internal/eventstream"
	"github.com/npezzotti/mob-vibe/internal/presence"
	"github.com/npezzotti/mob-vibe/internal/styles"
	"github.com/npezzotti/mob-vibe/internal/types"
	"github.com/urfave/cli/v3"
)

type WatchCmd struct {
	flags *Flags
}

func NewWatchCmd(flags *Flags) *WatchCmd {
	return &WatchCmd{flags: flags}
}

func (cmd *WatchCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "watch",
		Usage:       "Follow friend presence",
		UsageText:   "mobvibe watch [--ws]",
		Description: "Logs in and prints the friends view each time the server pushes a new snapshot.",
		Flags: append(remoteFlags(),
			&cli.BoolFlag{
				Name:  "ws",
				Usage: "use the WebSocket stream instead of server-sent events",
			},
		),
		Action: cmd.run,
	})

	return app
}

func (cmd *WatchCmd) run(ctx context.Context, c *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api, err := cmd.flags.login(ctx, c)
	if err != nil {
		return err
	}

	initial, err := api.Friends(ctx)
	if err != nil {
		return fmt.Errorf("list friends: %w", err)
	}

	registry := eventstream.NewRegistry(eventstream.Dial(eventstream.DialOptions{
		HTTPClient: api.StreamClient(),
		Log:        cmd.flags.Log,
	}))
	defer registry.Close()

	sub := eventstream.Watch(registry, api.StreamURL(c.Bool("ws")), eventstream.Options[types.PresenceSnapshot]{
		Channel:   presence.Channel,
		Retention: eventstream.Latest(),
		Initial:   []types.PresenceSnapshot{initial},
	})
	defer sub.Close()

	return cmd.render(ctx, c, sub)
}

func (cmd *WatchCmd) render(ctx context.Context, c *cli.Command, sub *eventstream.Subscription[types.PresenceSnapshot]) error {
	out := c.Root().Writer

	if v, ok := sub.Value(); ok {
		fmt.Fprintln(out, styles.Presence(v))
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sub.Updates():
			if err := sub.Err(); err != nil {
				fmt.Fprintln(out, styles.ErrorStyle.Render(err.Error()))
			}
			if v, ok := sub.Value(); ok {
				fmt.Fprintln(out, styles.Presence(v))
			}
		}
	}
}

package commands

import (
	"context"
	"fmt"

	"github.com/npezzotti/mob-vibe/internal/client"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
)

type Flags struct {
	LogLevel   string
	LogFormat  string
	ConfigPath string

	// Log is built in the Before hook and available to all commands.
	Log zerolog.Logger
}

// remoteFlags are shared by the commands that talk to a running server.
func remoteFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "url",
			Usage:   "server base url",
			Sources: cli.EnvVars("MOBVIBE_URL"),
			Value:   "http://localhost:8000",
		},
		&cli.StringFlag{
			Name:     "email",
			Usage:    "account email",
			Sources:  cli.EnvVars("MOBVIBE_EMAIL"),
			Required: true,
		},
		&cli.StringFlag{
			Name:     "password",
			Usage:    "account password",
			Sources:  cli.EnvVars("MOBVIBE_PASSWORD"),
			Required: true,
		},
	}
}

// login returns a client holding a session for the remote flags.
func (f *Flags) login(ctx context.Context, c *cli.Command) (*client.Client, error) {
	api, err := client.New(c.String("url"), f.Log)
	if err != nil {
		return nil, err
	}

	u, err := api.Login(ctx, c.String("email"), c.String("password"))
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	f.Log.Debug().Int("user_id", u.Id).Msg("logged in")

	return api, nil
}

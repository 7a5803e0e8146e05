package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/npezzotti/mob-vibe/internal/api"
	"github.com/npezzotti/mob-vibe/internal/config"
	"github.com/npezzotti/mob-vibe/internal/database"
	"github.com/npezzotti/mob-vibe/internal/generate"
	"github.com/npezzotti/mob-vibe/internal/stats"
	"github.com/npezzotti/mob-vibe/internal/stream"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

type ServeCmd struct {
	flags *Flags
}

func NewServeCmd(flags *Flags) *ServeCmd {
	return &ServeCmd{flags: flags}
}

func (cmd *ServeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "server address, overrides the config file",
			},
			&cli.StringSliceFlag{
				Name:  "allowed-origins",
				Usage: "allowed origins for CORS and WebSocket upgrades",
			},
			&cli.BoolFlag{
				Name:  "migrate",
				Usage: "apply database migrations before starting",
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ServeCmd) run(ctx context.Context, c *cli.Command) error {
	log := cmd.flags.Log

	cfg, err := config.Load(cmd.flags.ConfigPath, func(cfg *config.Config) {
		if c.IsSet("addr") {
			cfg.ServerAddr = c.String("addr")
		}
		if c.IsSet("allowed-origins") {
			cfg.AllowedOrigins = c.StringSlice("allowed-origins")
		}
	})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if c.Bool("migrate") {
		version, err := database.Migrate(ctx, cfg.DatabaseDSN, 0)
		if err != nil {
			return err
		}
		log.Info().Uint("version", version).Msg("database migrated")
	}

	db, err := database.NewPgRepository(ctx, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db open: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("db close")
		}
	}()

	statsUpdater := stats.NewStatsUpdater()
	statsUpdater.Run()
	defer statsUpdater.Stop()

	hub := stream.NewHub(log, statsUpdater)
	go hub.Run()

	notifier := stream.NewNotifier(log)
	defer notifier.Close()
	go func() {
		if err := notifier.Forward(ctx, hub); err != nil {
			log.Error().Err(err).Msg("notifier stopped")
		}
	}()

	gen := generate.NewClient(generate.Config{
		APIKey:    cfg.AI.APIKey,
		BaseURL:   cfg.AI.BaseURL,
		Model:     cfg.AI.Model,
		MaxTokens: cfg.AI.MaxTokens,
		Timeout:   cfg.AI.Timeout,
	}, log)
	if cfg.AI.APIKey == "" {
		log.Warn().Msg("ai api key not set, iteration requests will fail")
	}

	app := api.NewApp(log, db, hub, notifier, gen, statsUpdater, cfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Start()
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("received shutdown signal")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// also stops the hub
	if err := app.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info().Msg("shutdown complete")
	return serveErr
}

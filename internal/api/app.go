// Package api is the HTTP surface of the application: sessions, games,
// iterations, comments, friends and the live event streams.
package api

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/gorilla/handlers"
	"github.com/npezzotti/mob-vibe/internal/config"
	"github.com/npezzotti/mob-vibe/internal/database"
	"github.com/npezzotti/mob-vibe/internal/generate"
	"github.com/npezzotti/mob-vibe/internal/presence"
	"github.com/npezzotti/mob-vibe/internal/stats"
	"github.com/npezzotti/mob-vibe/internal/stream"
	"github.com/rs/zerolog"
)

// ChangeNotifier announces friendship mutations to the stream hub.
type ChangeNotifier interface {
	FriendshipsChanged(userIds ...int) error
}

type metricsMounter interface {
	Mount(r chi.Router)
}

type App struct {
	log            zerolog.Logger
	db             database.Repository
	srv            *http.Server
	router         chi.Router
	hub            *stream.Hub
	notifier       ChangeNotifier
	generator      generate.Generator
	stats          stats.StatsProvider
	validate       *validator.Validate
	signingKey     []byte
	allowedOrigins []string
	presenceCfg    presence.Config
}

func NewApp(logger zerolog.Logger, db database.Repository, hub *stream.Hub, notifier ChangeNotifier, gen generate.Generator, su stats.StatsProvider, cfg *config.Config) *App {
	if su == nil {
		su = stats.NoopStats{}
	}
	su.RegisterMetric(stats.NumIterations)
	su.RegisterMetric(stats.NumGenerationFails)

	s := &App{
		log:            logger.With().Str("component", "api").Logger(),
		db:             db,
		hub:            hub,
		notifier:       notifier,
		generator:      gen,
		stats:          su,
		validate:       newValidator(),
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
		presenceCfg: presence.Config{
			Interval:         cfg.PresenceInterval,
			LastSeenInterval: cfg.LastSeenInterval,
			Stats:            su,
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	r.Get("/healthz", s.healthCheck)
	if m, ok := su.(metricsMounter); ok {
		m.Mount(r)
	}

	// Streams stay out of the access log, which wraps the ResponseWriter.
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/sse", s.serveSSE)
		r.Get("/ws", s.serveWs)
	})

	requests, window := cfg.RateLimit.Requests, cfg.RateLimit.Window
	if requests <= 0 {
		requests = 10
	}
	if window <= 0 {
		window = time.Minute
	}

	r.Group(func(r chi.Router) {
		r.Use(s.accessLog)
		r.Post("/api/auth/register", s.createAccount)
		r.Post("/api/auth/login", s.login)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.accessLog)
		r.Use(s.authMiddleware)

		r.Get("/api/auth/session", s.session)
		r.Post("/api/auth/logout", s.logout)
		r.Get("/api/auth/logout", s.logout)
		r.Get("/api/account", s.getAccount)
		r.Put("/api/account", s.updateAccount)

		r.Post("/api/games", s.createGame)
		r.Get("/api/games", s.searchGames)
		r.Get("/api/games/{id}", s.getGame)
		r.Get("/api/feed", s.friendFeed)
		r.Get("/api/friends", s.listFriends)

		r.Route("/game/{id}", func(r chi.Router) {
			r.With(httprate.Limit(requests, window,
				httprate.WithKeyFuncs(userKey),
				httprate.WithLimitHandler(s.rateLimited),
			)).Post("/iteration", s.createIteration)
			r.Get("/iterations", s.listIterations)
			r.Post("/comment", s.createComment)
			r.Get("/comments", s.listComments)
			r.Post("/update", s.updateGame)
			r.Post("/delete", s.deleteGame)
			r.Post("/visit", s.recordVisit)
			r.Get("/play", s.playGame)
		})

		r.Post("/friend/add", s.addFriend)
		r.Post("/friend/{id}", s.respondFriendRequest)
		r.Post("/friend/{id}/remove", s.removeFriend)
	})

	s.router = r

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Last-Event-ID"}),
		handlers.AllowCredentials(),
	)(r)
	h = s.errorHandler(h)

	s.srv = &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

func (s *App) accessLog(next http.Handler) http.Handler {
	return handlers.CombinedLoggingHandler(s.log.With().Str("component", "access").Logger(), next)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Handler returns the fully wrapped handler served by Start.
func (s *App) Handler() http.Handler {
	return s.srv.Handler
}

func (s *App) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("starting server")
	return s.srv.ListenAndServe()
}

// Shutdown stops the stream hub first so open event streams return and the
// HTTP server can drain.
func (s *App) Shutdown(ctx context.Context) error {
	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			return fmt.Errorf("hub shutdown: %w", err)
		}
	}

	s.log.Info().Msg("shutting down HTTP server")
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}

func (s *App) writeJson(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("json encode")
	}
}

func (s *App) writeError(w http.ResponseWriter, err error) {
	errResp := errorFor(err)
	if errResp.StatusCode >= http.StatusInternalServerError {
		s.log.Error().Err(errResp).Msg("request failed")
	}
	s.writeJson(w, errResp.StatusCode, errResp)
}

func (s *App) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		s.log.Error().Err(err).Msg("health check failed")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

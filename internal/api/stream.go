package api

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/mob-vibe/internal/presence"
	"github.com/npezzotti/mob-vibe/internal/stream"
)

func (s *App) serveSSE(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	sink, err := stream.NewSSESink(w)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to open event stream")
		return
	}

	s.runStream(r.Context(), stream.NewClient(userId, sink, s.log))
}

func (s *App) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if slices.Contains(s.allowedOrigins, "*") || slices.Contains(s.allowedOrigins, origin) {
		return true
	}

	u, err := url.Parse(origin)
	return err == nil && u.Host == r.Host
}

func (s *App) serveWs(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	upgrader := websocket.Upgrader{CheckOrigin: s.checkOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("error upgrading connection")
		return
	}

	sink := stream.NewWSSink(conn)
	client := stream.NewClient(userId, sink, s.log)
	go sink.ReadLoop(client.Stop)

	s.runStream(r.Context(), client)
}

// runStream registers c with the hub and publishes presence snapshots to it
// until the connection goes away or the hub shuts down.
func (s *App) runStream(ctx context.Context, c *stream.Client) {
	if !s.hub.Register(c) {
		// a stopped client's Write returns at once and closes the sink
		c.Stop()
		c.Write(ctx)
		return
	}
	defer s.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pub := presence.NewPublisher(
		c.UserId(),
		presence.NewRepositorySource(s.db),
		s.db,
		c,
		c.Refresh(),
		s.presenceCfg,
		s.log,
	)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		pub.Run(ctx)
	}()

	c.Write(ctx)
	cancel()
	wg.Wait()
}

package eventstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/mob-vibe/internal/stream"
	"github.com/rs/zerolog"
)

// WSConnection receives the same events as SSEConnection over a WebSocket,
// framed as JSON envelopes.
type WSConnection struct {
	*dispatcher
	url       string
	opts      DialOptions
	dialer    *websocket.Dialer
	log       zerolog.Logger
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	errMu     sync.Mutex
	err       error
}

func DialWS(url string, opts DialOptions) *WSConnection {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	c := &WSConnection{
		dispatcher: newDispatcher(),
		url:        url,
		opts:       opts,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.MaxRetryDelay,
			Jar:              opts.HTTPClient.Jar,
		},
		log:    opts.Log.With().Str("url", url).Str("transport", "ws").Logger(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go c.run(ctx)

	return c
}

func (c *WSConnection) URL() string {
	return c.url
}

func (c *WSConnection) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

func (c *WSConnection) Done() <-chan struct{} {
	return c.done
}

func (c *WSConnection) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		<-c.done
	})
	return nil
}

func (c *WSConnection) fail(err error) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	c.err = err
}

func (c *WSConnection) run(ctx context.Context) {
	defer close(c.done)

	reconnect(ctx, c.opts, c.log, c.connect, c.fail)
}

func (c *WSConnection) connect(ctx context.Context) error {
	conn, resp, err := c.dialer.DialContext(ctx, c.url, c.opts.Header)
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			return &StatusError{URL: c.url, StatusCode: resp.StatusCode}
		}
		if errors.Is(err, websocket.ErrBadHandshake) {
			return fmt.Errorf("%w: %v", ErrInvalidURL, err)
		}
		return err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	c.log.Debug().Msg("stream connected")
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		e, err := stream.DecodeEnvelope(raw)
		if err != nil {
			c.log.Warn().Err(err).Msg("discarding malformed frame")
			continue
		}
		c.dispatch(e.Channel, e.Data)
	}
}

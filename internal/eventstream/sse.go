package eventstream

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/rs/zerolog"
)

const maxEventSize = 1 << 20

var errStreamEnded = errors.New("stream ended")

// SSEConnection reads a text/event-stream response and reconnects when it
// drops, resuming with Last-Event-ID.
type SSEConnection struct {
	*dispatcher
	url         string
	opts        DialOptions
	log         zerolog.Logger
	lastEventId string
	cancel      context.CancelFunc
	done        chan struct{}
	closeOnce   sync.Once
	errMu       sync.Mutex
	err         error
}

// DialSSE starts reading url in the background. It never fails; transport
// errors are retried until Close or an authorization failure.
func DialSSE(url string, opts DialOptions) *SSEConnection {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	c := &SSEConnection{
		dispatcher: newDispatcher(),
		url:        url,
		opts:       opts,
		log:        opts.Log.With().Str("url", url).Str("transport", "sse").Logger(),
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	go c.run(ctx)

	return c
}

func (c *SSEConnection) URL() string {
	return c.url
}

// Err returns the error that permanently stopped the connection, if any.
func (c *SSEConnection) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// Done is closed when the connection stops reconnecting.
func (c *SSEConnection) Done() <-chan struct{} {
	return c.done
}

func (c *SSEConnection) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		<-c.done
	})
	return nil
}

func (c *SSEConnection) fail(err error) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	c.err = err
}

func (c *SSEConnection) run(ctx context.Context) {
	defer close(c.done)

	reconnect(ctx, c.opts, c.log, c.connect, c.fail)
}

func (c *SSEConnection) connect(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, http.NoBody)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	for k, v := range c.opts.Header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if c.lastEventId != "" {
		req.Header.Set("Last-Event-ID", c.lastEventId)
	}

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{URL: c.url, StatusCode: resp.StatusCode}
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		return fmt.Errorf("stream %s: unexpected content type %q", c.url, ct)
	}

	c.log.Debug().Msg("stream connected")
	if err := c.read(resp.Body); err != nil {
		return err
	}

	return errStreamEnded
}

// read parses the event-stream format and dispatches each complete event.
func (c *SSEConnection) read(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxEventSize)

	var (
		event string
		data  []string
	)
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")

		if line == "" {
			if len(data) > 0 {
				c.dispatch(event, strings.Join(data, "\n"))
			}
			event, data = "", nil
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			event = value
		case "data":
			data = append(data, value)
		case "id":
			c.lastEventId = value
		}
	}

	return scanner.Err()
}

func isPermanent(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrInvalidURL)
}

// reconnect calls connect until ctx ends, backing off between attempts.
// Permanent failures stop it for good and are reported through fail.
func reconnect(ctx context.Context, opts DialOptions, log zerolog.Logger, connect func(context.Context) error, fail func(error)) {
	for ctx.Err() == nil {
		var fatal error
		err := retry.Do(
			func() error {
				err := connect(ctx)
				if isPermanent(err) {
					fatal = err
					return retry.Unrecoverable(err)
				}
				return err
			},
			retry.Attempts(opts.Attempts),
			retry.Delay(opts.RetryDelay),
			retry.MaxDelay(opts.MaxRetryDelay),
			retry.Context(ctx),
			retry.OnRetry(func(n uint, err error) {
				log.Debug().Uint("attempt", n).Err(err).Msg("reconnecting")
			}),
		)
		if ctx.Err() != nil {
			return
		}
		if fatal != nil {
			log.Warn().Err(fatal).Msg("stream refused, giving up")
			fail(fatal)
			return
		}

		log.Warn().Err(err).Msg("stream unavailable, backing off")
		select {
		case <-ctx.Done():
			return
		case <-time.After(opts.MaxRetryDelay):
		}
	}
}

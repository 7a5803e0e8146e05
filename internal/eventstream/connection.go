// Package eventstream consumes server-sent event streams. A Registry shares
// one transport connection per URL between any number of typed
// Subscriptions, each bound to a single named channel.
package eventstream

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultChannel is the channel of events that carry no explicit name.
const DefaultChannel = "message"

var (
	ErrUnauthorized = errors.New("stream request unauthorized")
	ErrInvalidURL   = errors.New("invalid stream url")
)

// Listener receives the raw data of each event on a channel.
type Listener func(data string)

// Connection is a live, self-reconnecting transport multiplexing named
// channels.
type Connection interface {
	URL() string
	// AddListener registers fn for channel; the returned func removes it.
	AddListener(channel string, fn Listener) (remove func())
	Close() error
}

// StatusError reports a non-success response to a stream request.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("stream %s: unexpected status %d", e.URL, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	return nil
}

// DialOptions configures the transports created by Dial.
type DialOptions struct {
	// HTTPClient must not set a Timeout; its Jar is also used for
	// WebSocket handshakes.
	HTTPClient *http.Client
	Header     http.Header
	Log        zerolog.Logger
	// Attempts is the number of connection attempts per retry round.
	Attempts      uint
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

func (o DialOptions) withDefaults() DialOptions {
	if o.HTTPClient == nil {
		o.HTTPClient = http.DefaultClient
	}
	if o.Attempts == 0 {
		o.Attempts = 5
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 500 * time.Millisecond
	}
	if o.MaxRetryDelay <= 0 {
		o.MaxRetryDelay = 30 * time.Second
	}
	return o
}

// dispatcher fans events out to listeners in registration order.
type dispatcher struct {
	mu        sync.RWMutex
	next      int
	listeners map[string]map[int]Listener
}

func newDispatcher() *dispatcher {
	return &dispatcher{listeners: make(map[string]map[int]Listener)}
}

func (d *dispatcher) AddListener(channel string, fn Listener) func() {
	if channel == "" {
		channel = DefaultChannel
	}

	d.mu.Lock()
	id := d.next
	d.next++
	set, ok := d.listeners[channel]
	if !ok {
		set = make(map[int]Listener)
		d.listeners[channel] = set
	}
	set[id] = fn
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			delete(d.listeners[channel], id)
			if len(d.listeners[channel]) == 0 {
				delete(d.listeners, channel)
			}
		})
	}
}

func (d *dispatcher) dispatch(channel, data string) {
	if channel == "" {
		channel = DefaultChannel
	}

	d.mu.RLock()
	ids := make([]int, 0, len(d.listeners[channel]))
	for id := range d.listeners[channel] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]Listener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, d.listeners[channel][id])
	}
	d.mu.RUnlock()

	for _, fn := range fns {
		fn(data)
	}
}

func (d *dispatcher) listenerCount(channel string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners[channel])
}

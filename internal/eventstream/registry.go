package eventstream

import (
	"errors"
	"net/url"
	"sync"
)

// ConnectFunc opens a connection for a URL. It must not block on I/O.
type ConnectFunc func(url string) Connection

// Dial picks the transport from the URL scheme: ws and wss use WebSocket,
// everything else server-sent events.
func Dial(opts DialOptions) ConnectFunc {
	return func(rawURL string) Connection {
		if u, err := url.Parse(rawURL); err == nil && (u.Scheme == "ws" || u.Scheme == "wss") {
			return DialWS(rawURL, opts)
		}
		return DialSSE(rawURL, opts)
	}
}

type entry struct {
	conn Connection
	refs int
}

// Registry shares one Connection per URL. Connections are reference counted
// and closed when the last holder releases them.
type Registry struct {
	mu      sync.Mutex
	connect ConnectFunc
	entries map[string]*entry
}

func NewRegistry(connect ConnectFunc) *Registry {
	if connect == nil {
		connect = Dial(DialOptions{})
	}

	return &Registry{
		connect: connect,
		entries: make(map[string]*entry),
	}
}

// Acquire returns the shared connection for url, creating it on first use.
// Every call must be paired with a Release.
func (r *Registry) Acquire(url string) Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[url]
	if !ok {
		e = &entry{conn: r.connect(url)}
		r.entries[url] = e
	}
	e.refs++

	return e.conn
}

// Release drops one reference to url and closes the connection when none
// remain. Releasing an unknown URL is a no-op.
func (r *Registry) Release(url string) error {
	r.mu.Lock()
	e, ok := r.entries[url]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	e.refs--
	if e.refs > 0 {
		r.mu.Unlock()
		return nil
	}
	delete(r.entries, url)
	r.mu.Unlock()

	return e.conn.Close()
}

// Len returns the number of live endpoints.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close closes every connection regardless of outstanding references.
func (r *Registry) Close() error {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*entry)
	r.mu.Unlock()

	var errs []error
	for _, e := range entries {
		if err := e.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

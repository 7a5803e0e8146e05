package eventstream

import (
	"errors"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
)

const DefaultHistoryLimit = 50

var ErrDetached = errors.New("subscription is detached")

type retentionMode int

const (
	retentionUnset retentionMode = iota
	retentionLatest
	retentionBounded
)

// Retention selects how a Subscription accumulates values: Latest keeps only
// the newest, Bounded keeps the newest n in arrival order.
type Retention struct {
	mode  retentionMode
	limit int
}

func Latest() Retention {
	return Retention{mode: retentionLatest}
}

func Bounded(n int) Retention {
	if n < 1 {
		n = 1
	}
	return Retention{mode: retentionBounded, limit: n}
}

func (r Retention) IsLatest() bool {
	return r.mode == retentionLatest
}

// Limit is the history capacity; zero for Latest.
func (r Retention) Limit() int {
	return r.limit
}

func (r Retention) String() string {
	if r.IsLatest() {
		return "latest"
	}
	return fmt.Sprintf("bounded(%d)", r.limit)
}

type State int

const (
	Unattached State = iota
	Attached
	Detached
)

func (s State) String() string {
	switch s {
	case Unattached:
		return "unattached"
	case Attached:
		return "attached"
	case Detached:
		return "detached"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// DeserializationError is recorded when a payload cannot be decoded. The
// subscription keeps its last good value.
type DeserializationError struct {
	Channel string
	Data    string
	Err     error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("deserialize %q event: %v", e.Channel, e.Err)
}

func (e *DeserializationError) Unwrap() error {
	return e.Err
}

type Options[T any] struct {
	// Channel defaults to "message".
	Channel string
	// Deserialize defaults to identity for strings and JSON otherwise.
	Deserialize func(data string) (T, error)
	// Retention defaults to Bounded(DefaultHistoryLimit).
	Retention Retention
	// Initial seeds the value before any event arrives.
	Initial []T
}

// Subscription materializes the events of one channel of a Connection.
type Subscription[T any] struct {
	mu          sync.RWMutex
	conn        Connection
	channel     string
	deserialize func(string) (T, error)
	retention   Retention
	latest      T
	hasValue    bool
	history     []T
	err         error
	state       State
	gen         uint64
	remove      func()
	updates     chan struct{}
	onClose     func() error
}

// Subscribe creates a subscription and attaches it to conn. A nil conn leaves
// it unattached until Resubscribe.
func Subscribe[T any](conn Connection, opts Options[T]) *Subscription[T] {
	if opts.Channel == "" {
		opts.Channel = DefaultChannel
	}
	if opts.Deserialize == nil {
		opts.Deserialize = defaultDeserialize[T]
	}
	if opts.Retention.mode == retentionUnset {
		opts.Retention = Bounded(DefaultHistoryLimit)
	}

	s := &Subscription[T]{
		channel:     opts.Channel,
		deserialize: opts.Deserialize,
		retention:   opts.Retention,
		updates:     make(chan struct{}, 1),
	}
	for _, v := range opts.Initial {
		s.apply(v)
	}

	if conn != nil {
		s.attach(conn, opts.Channel)
	}

	return s
}

func defaultDeserialize[T any](data string) (T, error) {
	var v T
	if s, ok := any(&v).(*string); ok {
		*s = data
		return v, nil
	}

	err := json.Unmarshal([]byte(data), &v)
	return v, err
}

// attach must be called without s.mu held.
func (s *Subscription[T]) attach(conn Connection, channel string) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.conn = conn
	s.channel = channel
	s.state = Attached
	s.mu.Unlock()

	remove := conn.AddListener(channel, func(data string) {
		s.handle(gen, data)
	})

	s.mu.Lock()
	if s.gen == gen && s.state == Attached {
		s.remove = remove
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	remove()
}

func (s *Subscription[T]) handle(gen uint64, data string) {
	v, err := s.deserialize(data)

	s.mu.Lock()
	if s.gen != gen || s.state != Attached {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.err = &DeserializationError{Channel: s.channel, Data: data, Err: err}
	} else {
		s.err = nil
		s.apply(v)
	}
	s.mu.Unlock()

	select {
	case s.updates <- struct{}{}:
	default:
	}
}

// apply must be called with s.mu held.
func (s *Subscription[T]) apply(v T) {
	s.latest = v
	s.hasValue = true

	if s.retention.IsLatest() {
		return
	}

	for len(s.history) >= s.retention.limit {
		var zero T
		s.history[0] = zero
		s.history = s.history[1:]
	}
	s.history = append(s.history, v)
}

// Value returns the most recent value and whether one has been received.
func (s *Subscription[T]) Value() (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.hasValue
}

// History returns a copy of the retained values, oldest first. For Latest
// retention it holds at most the current value.
func (s *Subscription[T]) History() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.retention.IsLatest() {
		if !s.hasValue {
			return nil
		}
		return []T{s.latest}
	}

	out := make([]T, len(s.history))
	copy(out, s.history)
	return out
}

// Err returns the last deserialization failure, cleared by the next good
// event.
func (s *Subscription[T]) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Subscription[T]) Degraded() bool {
	return s.Err() != nil
}

func (s *Subscription[T]) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Subscription[T]) Channel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.channel
}

func (s *Subscription[T]) Retention() Retention {
	return s.retention
}

// Updates signals after every received event. Signals coalesce; read Value
// or History for the current state.
func (s *Subscription[T]) Updates() <-chan struct{} {
	return s.updates
}

// Resubscribe moves the subscription to another connection or channel. The
// old listener is removed before the new one is added; the value is kept.
func (s *Subscription[T]) Resubscribe(conn Connection, channel string) error {
	if channel == "" {
		channel = DefaultChannel
	}

	s.mu.Lock()
	if s.state == Detached {
		s.mu.Unlock()
		return ErrDetached
	}
	if s.state == Attached && s.conn == conn && s.channel == channel {
		s.mu.Unlock()
		return nil
	}
	remove := s.remove
	s.remove = nil
	s.gen++
	s.state = Unattached
	s.mu.Unlock()

	if remove != nil {
		remove()
	}
	if conn != nil {
		s.attach(conn, channel)
	}
	return nil
}

// Close removes the listener. The shared connection stays open unless the
// subscription was created by Watch, in which case its registry reference is
// released.
func (s *Subscription[T]) Close() error {
	s.mu.Lock()
	if s.state == Detached {
		s.mu.Unlock()
		return nil
	}
	remove := s.remove
	s.remove = nil
	s.gen++
	s.state = Detached
	onClose := s.onClose
	s.mu.Unlock()

	if remove != nil {
		remove()
	}
	if onClose != nil {
		return onClose()
	}
	return nil
}

// Watch acquires url from the registry and subscribes to it. Closing the
// subscription releases the registry reference.
func Watch[T any](r *Registry, url string, opts Options[T]) *Subscription[T] {
	conn := r.Acquire(url)
	s := Subscribe(conn, opts)
	s.onClose = func() error { return r.Release(url) }

	return s
}

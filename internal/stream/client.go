package stream

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/teris-io/shortid"
)

var (
	ErrQueueFull    = errors.New("client send queue is full")
	ErrClientClosed = errors.New("client is closed")
)

const sendQueueSize = 64

// Client is one open stream connection belonging to a user.
type Client struct {
	id           string
	userId       int
	sink         Sink
	log          zerolog.Logger
	send         chan *Event
	refresh      chan struct{}
	stop         chan struct{}
	stopOnce     sync.Once
	seq          uint64
	seqLock      sync.Mutex
	pingInterval time.Duration
}

func NewClient(userId int, sink Sink, l zerolog.Logger) *Client {
	id, err := shortid.Generate()
	if err != nil {
		id = strconv.FormatInt(time.Now().UnixNano(), 36)
	}

	return &Client{
		id:           id,
		userId:       userId,
		sink:         sink,
		log:          l.With().Str("client_id", id).Int("user_id", userId).Logger(),
		send:         make(chan *Event, sendQueueSize),
		refresh:      make(chan struct{}, 1),
		stop:         make(chan struct{}),
		pingInterval: pingInterval,
	}
}

func (c *Client) Id() string {
	return c.id
}

func (c *Client) UserId() int {
	return c.userId
}

// Refresh fires when something affecting the user's snapshot changed.
func (c *Client) Refresh() <-chan struct{} {
	return c.refresh
}

// notify signals a refresh; pending signals coalesce.
func (c *Client) notify() {
	select {
	case c.refresh <- struct{}{}:
	default:
	}
}

// Send serializes payload and queues it on channel. A full queue drops the
// event.
func (c *Client) Send(ctx context.Context, channel string, payload any) error {
	e, err := NewEvent(channel, payload)
	if err != nil {
		return err
	}

	c.seqLock.Lock()
	c.seq++
	e.ID = strconv.FormatUint(c.seq, 10)
	c.seqLock.Unlock()

	select {
	case <-c.stop:
		return ErrClientClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !c.queueEvent(e) {
		return ErrQueueFull
	}
	return nil
}

func (c *Client) queueEvent(e *Event) bool {
	select {
	case c.send <- e:
	default:
		c.log.Warn().Str("channel", e.Channel).Msg("send queue full, dropping event")
		return false
	}

	return true
}

// Write drains the send queue into the sink until ctx ends, the client is
// stopped or a write fails.
func (c *Client) Write(ctx context.Context) {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		c.sink.Close()
		c.log.Debug().Msg("write exiting")
	}()

	for {
		select {
		case e := <-c.send:
			if err := c.sink.WriteEvent(e); err != nil {
				c.log.Debug().Err(err).Msg("write event")
				return
			}
		case <-ticker.C:
			if err := c.sink.Ping(); err != nil {
				c.log.Debug().Err(err).Msg("write ping")
				return
			}
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Done is closed once the client has been stopped.
func (c *Client) Done() <-chan struct{} {
	return c.stop
}

func (c *Client) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

package stream

import (
	"context"
	"sync"

	"github.com/npezzotti/mob-vibe/internal/stats"
	"github.com/rs/zerolog"
)

type stopReq struct {
	done chan struct{}
}

// Hub tracks the open stream clients of every user and fans change signals
// out to them.
type Hub struct {
	log         zerolog.Logger
	stats       stats.StatsProvider
	clients     map[int]map[*Client]struct{}
	clientsLock sync.RWMutex
	register    chan *Client
	unregister  chan *Client
	notifyChan  chan []int
	stop        chan stopReq
	done        chan struct{}
}

func NewHub(l zerolog.Logger, su stats.StatsProvider) *Hub {
	su.RegisterMetric(stats.NumActiveStreams)
	su.RegisterMetric(stats.NumTotalStreams)

	return &Hub{
		log:        l.With().Str("component", "hub").Logger(),
		stats:      su,
		clients:    make(map[int]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		notifyChan: make(chan []int, 64),
		stop:       make(chan stopReq),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.addClient(c)
			h.stats.Incr(stats.NumActiveStreams)
			h.stats.Incr(stats.NumTotalStreams)
			h.log.Debug().Str("client_id", c.Id()).Int("user_id", c.UserId()).Msg("stream registered")
		case c := <-h.unregister:
			if h.removeClient(c) {
				h.stats.Decr(stats.NumActiveStreams)
				h.log.Debug().Str("client_id", c.Id()).Int("user_id", c.UserId()).Msg("stream unregistered")
			}
		case userIds := <-h.notifyChan:
			h.clientsLock.RLock()
			for _, id := range userIds {
				for c := range h.clients[id] {
					c.notify()
				}
			}
			h.clientsLock.RUnlock()
		case req := <-h.stop:
			h.clientsLock.Lock()
			for _, set := range h.clients {
				for c := range set {
					c.Stop()
				}
			}
			h.clients = make(map[int]map[*Client]struct{})
			h.clientsLock.Unlock()

			close(h.done)
			close(req.done)
			return
		}
	}
}

func (h *Hub) addClient(c *Client) {
	h.clientsLock.Lock()
	defer h.clientsLock.Unlock()

	set, ok := h.clients[c.UserId()]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.UserId()] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) removeClient(c *Client) bool {
	h.clientsLock.Lock()
	defer h.clientsLock.Unlock()

	set, ok := h.clients[c.UserId()]
	if !ok {
		return false
	}
	if _, ok := set[c]; !ok {
		return false
	}

	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.UserId())
	}
	return true
}

// Register adds c to the hub. It reports false once the hub has shut down.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// NotifyUsers signals every client of the given users to refresh.
func (h *Hub) NotifyUsers(userIds ...int) {
	if len(userIds) == 0 {
		return
	}

	select {
	case h.notifyChan <- userIds:
	case <-h.done:
	default:
		h.log.Warn().Ints("user_ids", userIds).Msg("notify queue full, dropping refresh")
	}
}

// Connected returns the number of open clients for a user.
func (h *Hub) Connected(userId int) int {
	h.clientsLock.RLock()
	defer h.clientsLock.RUnlock()
	return len(h.clients[userId])
}

// Shutdown stops every client and the run loop.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.log.Info().Msg("shutting down stream hub")

	req := stopReq{done: make(chan struct{})}
	select {
	case h.stop <- req:
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package stream

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 1024
)

var ErrStreamingUnsupported = errors.New("streaming unsupported")

// Sink writes framed events to one transport connection.
type Sink interface {
	WriteEvent(e *Event) error
	Ping() error
	Close() error
}

type SSESink struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

// NewSSESink writes the event-stream headers and flushes them.
func NewSSESink(w http.ResponseWriter) (*SSESink, error) {
	s := &SSESink{w: w, rc: http.NewResponseController(w)}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := s.rc.Flush(); err != nil {
		return nil, ErrStreamingUnsupported
	}

	return s, nil
}

func (s *SSESink) write(b []byte) error {
	if err := s.rc.SetWriteDeadline(time.Now().Add(writeWait)); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	if _, err := s.w.Write(b); err != nil {
		return err
	}

	return s.rc.Flush()
}

func (s *SSESink) WriteEvent(e *Event) error {
	return s.write(e.SSE())
}

func (s *SSESink) Ping() error {
	return s.write([]byte(": ping\n\n"))
}

// Close is a no-op; the response ends when the handler returns.
func (s *SSESink) Close() error {
	return nil
}

type WSSink struct {
	conn *websocket.Conn
}

func NewWSSink(conn *websocket.Conn) *WSSink {
	return &WSSink{conn: conn}
}

func (s *WSSink) WriteEvent(e *Event) error {
	b, err := e.JSON()
	if err != nil {
		return err
	}

	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, b)
}

func (s *WSSink) Ping() error {
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (s *WSSink) Close() error {
	return s.conn.Close()
}

// ReadLoop consumes control frames until the peer goes away, then calls done.
// Clients never send data frames on this socket; any that arrive are dropped.
func (s *WSSink) ReadLoop(done func()) {
	defer done()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

package stream

import (
	"bytes"
	"strings"

	"github.com/goccy/go-json"
)

// DefaultChannel is the channel name used when an event names none.
const DefaultChannel = "message"

// Event is one message on a named channel. Data is the serialized payload.
type Event struct {
	ID      string
	Channel string
	Data    string
}

type envelope struct {
	ID      string `json:"id,omitempty"`
	Channel string `json:"channel"`
	Data    string `json:"data"`
}

// NewEvent serializes payload as JSON unless it is already a string.
func NewEvent(channel string, payload any) (*Event, error) {
	if channel == "" {
		channel = DefaultChannel
	}

	var data string
	switch p := payload.(type) {
	case string:
		data = p
	case []byte:
		data = string(p)
	default:
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		data = string(b)
	}

	return &Event{Channel: channel, Data: data}, nil
}

// SSE frames the event for a text/event-stream response.
func (e *Event) SSE() []byte {
	var buf bytes.Buffer
	if e.ID != "" {
		buf.WriteString("id: " + e.ID + "\n")
	}
	if e.Channel != "" && e.Channel != DefaultChannel {
		buf.WriteString("event: " + e.Channel + "\n")
	}
	for _, line := range strings.Split(e.Data, "\n") {
		buf.WriteString("data: " + line + "\n")
	}
	buf.WriteString("\n")

	return buf.Bytes()
}

// JSON frames the event as a WebSocket text message.
func (e *Event) JSON() ([]byte, error) {
	return json.Marshal(envelope{ID: e.ID, Channel: e.Channel, Data: e.Data})
}

// DecodeEnvelope parses a WebSocket text message produced by Event.JSON.
func DecodeEnvelope(raw []byte) (*Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	if env.Channel == "" {
		env.Channel = DefaultChannel
	}

	return &Event{ID: env.ID, Channel: env.Channel, Data: env.Data}, nil
}

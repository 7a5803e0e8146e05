package eventstream

import (
	"sync/atomic"
	"testing"
	"time"
)

// pipeConn is an in-memory Connection driven by emit.
type pipeConn struct {
	*dispatcher
	url    string
	closes atomic.Int32
}

func newPipe(url string) *pipeConn {
	return &pipeConn{dispatcher: newDispatcher(), url: url}
}

func (p *pipeConn) URL() string { return p.url }

func (p *pipeConn) Close() error {
	p.closes.Add(1)
	return nil
}

func (p *pipeConn) emit(channel, data string) {
	p.dispatch(channel, data)
}

func waitUpdate(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for subscription update")
	}
}

package presence

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/npezzotti/mob-vibe/internal/stats"
	"github.com/npezzotti/mob-vibe/internal/testutil"
	"github.com/npezzotti/mob-vibe/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	calls  atomic.Int32
	failOn map[int32]bool
}

func (s *fakeSource) Snapshot(ctx context.Context, userId int) (types.PresenceSnapshot, error) {
	n := s.calls.Add(1)
	if s.failOn[n] {
		return types.PresenceSnapshot{}, errors.New("query failed")
	}
	return types.PresenceSnapshot{
		Friends: []types.Friend{{Id: int(n), Name: "friend"}},
	}, nil
}

type sent struct {
	channel string
	snap    types.PresenceSnapshot
}

type fakeSender struct {
	out chan sent
}

func (s *fakeSender) Send(ctx context.Context, channel string, payload any) error {
	select {
	case s.out <- sent{channel: channel, snap: payload.(types.PresenceSnapshot)}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type fakeToucher struct {
	mu      sync.Mutex
	touches int
}

func (f *fakeToucher) TouchLastSeen(ctx context.Context, accountId int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touches++
	return nil
}

func (f *fakeToucher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.touches
}

// start runs p until the test ends and returns a function that stops it and
// waits for Run to return.
func start(t *testing.T, p *Publisher) func() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	stop := func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("publisher did not stop after cancel")
		}
	}
	t.Cleanup(stop)
	return stop
}

func receive(t *testing.T, ch <-chan sent) sent {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return sent{}
	}
}

func TestPublisher_SendsImmediatelyAndOnTick(t *testing.T) {
	src := &fakeSource{}
	sender := &fakeSender{out: make(chan sent, 10)}
	toucher := &fakeToucher{}

	p := NewPublisher(1, src, toucher, sender, nil, Config{Interval: 20 * time.Millisecond, LastSeenInterval: time.Hour}, testutil.TestLogger(t))
	start(t, p)

	first := receive(t, sender.out)
	assert.Equal(t, Channel, first.channel, "expected snapshots on the friends channel")
	assert.Equal(t, 1, first.snap.Friends[0].Id, "expected first snapshot to be sent on open")
	assert.Equal(t, 1, toucher.count(), "expected last seen to be touched on open")

	second := receive(t, sender.out)
	assert.Equal(t, 2, second.snap.Friends[0].Id, "expected a snapshot per tick")
}

func TestPublisher_SkipsFailedTick(t *testing.T) {
	src := &fakeSource{failOn: map[int32]bool{2: true}}
	sender := &fakeSender{out: make(chan sent, 10)}

	p := NewPublisher(1, src, &fakeToucher{}, sender, nil, Config{Interval: 10 * time.Millisecond}, testutil.TestLogger(t))
	start(t, p)

	assert.Equal(t, 1, receive(t, sender.out).snap.Friends[0].Id)
	assert.Equal(t, 3, receive(t, sender.out).snap.Friends[0].Id, "expected the failed tick to be skipped")
}

func TestPublisher_RefreshSendsImmediately(t *testing.T) {
	src := &fakeSource{}
	sender := &fakeSender{out: make(chan sent, 10)}
	refresh := make(chan struct{}, 1)
	su := stats.NewStatsUpdater()
	su.RegisterMetric(stats.NumSnapshotsSent)
	su.Run()

	p := NewPublisher(1, src, &fakeToucher{}, sender, refresh, Config{Interval: time.Hour, Stats: su}, testutil.TestLogger(t))
	stop := start(t, p)

	receive(t, sender.out)
	refresh <- struct{}{}
	assert.Equal(t, 2, receive(t, sender.out).snap.Friends[0].Id, "expected refresh to trigger a snapshot")

	stop()
	su.Stop()
	assert.Equal(t, int64(2), su.Value(stats.NumSnapshotsSent), "expected sent snapshots to be counted")
}

func TestPublisher_StopsOnCancel(t *testing.T) {
	src := &fakeSource{}
	sender := &fakeSender{out: make(chan sent, 100)}

	p := NewPublisher(1, src, &fakeToucher{}, sender, nil, Config{Interval: 5 * time.Millisecond}, testutil.TestLogger(t))
	stop := start(t, p)
	receive(t, sender.out)
	stop()

	calls := src.calls.Load()
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, calls, src.calls.Load(), "expected no snapshots after stop")
}

func TestPublisher_TouchesLastSeenPeriodically(t *testing.T) {
	toucher := &fakeToucher{}
	sender := &fakeSender{out: make(chan sent, 100)}

	p := NewPublisher(1, &fakeSource{}, toucher, sender, nil, Config{Interval: time.Hour, LastSeenInterval: 10 * time.Millisecond}, testutil.TestLogger(t))
	start(t, p)

	assert.Eventually(t, func() bool { return toucher.count() >= 3 }, 2*time.Second, 5*time.Millisecond, "expected repeated last seen updates")
}

package presence

import (
	"context"
	"time"

	"github.com/npezzotti/mob-vibe/internal/stats"
	"github.com/rs/zerolog"
)

// Channel is the event channel presence snapshots are sent on.
const Channel = "friends"

// Sender delivers a payload on a named channel of one connection.
type Sender interface {
	Send(ctx context.Context, channel string, payload any) error
}

// Toucher records that a user is active.
type Toucher interface {
	TouchLastSeen(ctx context.Context, accountId int) error
}

type Config struct {
	Interval         time.Duration
	LastSeenInterval time.Duration
	Stats            stats.StatsProvider
}

// Publisher pushes presence snapshots to a single connection until its
// context ends.
type Publisher struct {
	userId  int
	source  Source
	toucher Toucher
	sender  Sender
	refresh <-chan struct{}
	cfg     Config
	log     zerolog.Logger
}

// NewPublisher creates a publisher for one connection of userId. A nil
// refresh channel disables push-on-change.
func NewPublisher(userId int, source Source, toucher Toucher, sender Sender, refresh <-chan struct{}, cfg Config, log zerolog.Logger) *Publisher {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.LastSeenInterval <= 0 {
		cfg.LastSeenInterval = 30 * time.Second
	}
	if cfg.Stats == nil {
		cfg.Stats = stats.NoopStats{}
	}

	return &Publisher{
		userId:  userId,
		source:  source,
		toucher: toucher,
		sender:  sender,
		refresh: refresh,
		cfg:     cfg,
		log:     log.With().Int("user_id", userId).Logger(),
	}
}

// Run blocks until ctx is done.
func (p *Publisher) Run(ctx context.Context) {
	p.touch(ctx)
	p.publish(ctx)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	lastSeen := time.NewTicker(p.cfg.LastSeenInterval)
	defer lastSeen.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Debug().Msg("presence publisher stopped")
			return
		case <-ticker.C:
			p.publish(ctx)
		case <-p.refresh:
			p.publish(ctx)
		case <-lastSeen.C:
			p.touch(ctx)
		}
	}
}

func (p *Publisher) touch(ctx context.Context) {
	if err := p.toucher.TouchLastSeen(ctx, p.userId); err != nil && ctx.Err() == nil {
		p.log.Warn().Err(err).Msg("update last seen")
	}
}

func (p *Publisher) publish(ctx context.Context) {
	snap, err := p.source.Snapshot(ctx, p.userId)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		p.log.Warn().Err(err).Msg("compute presence snapshot")
		return
	}

	if err := p.sender.Send(ctx, Channel, snap); err != nil {
		p.log.Warn().Err(err).Msg("send presence snapshot")
		return
	}
	p.cfg.Stats.Incr(stats.NumSnapshotsSent)
}

package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/npezzotti/mob-vibe/internal/types"
)

// Source produces a user's current presence snapshot.
type Source interface {
	Snapshot(ctx context.Context, userId int) (types.PresenceSnapshot, error)
}

// Store is the slice of the repository a RepositorySource reads from.
type Store interface {
	ListFriends(ctx context.Context, accountId int) ([]types.Friend, error)
	ListPendingReceived(ctx context.Context, accountId int) ([]types.FriendRequest, error)
	ListPendingSent(ctx context.Context, accountId int) ([]types.FriendRequest, error)
}

type RepositorySource struct {
	store Store
	now   func() time.Time
}

func NewRepositorySource(store Store) *RepositorySource {
	return &RepositorySource{store: store, now: time.Now}
}

// Snapshot runs three independent reads; the result is not transactional.
func (s *RepositorySource) Snapshot(ctx context.Context, userId int) (types.PresenceSnapshot, error) {
	friends, err := s.store.ListFriends(ctx, userId)
	if err != nil {
		return types.PresenceSnapshot{}, fmt.Errorf("list friends: %w", err)
	}

	received, err := s.store.ListPendingReceived(ctx, userId)
	if err != nil {
		return types.PresenceSnapshot{}, fmt.Errorf("list received requests: %w", err)
	}

	sent, err := s.store.ListPendingSent(ctx, userId)
	if err != nil {
		return types.PresenceSnapshot{}, fmt.Errorf("list sent requests: %w", err)
	}

	now := s.now()
	for i := range friends {
		friends[i].Status = string(Classify(friends[i].LastSeenAt, now))
	}

	if friends == nil {
		friends = []types.Friend{}
	}
	if received == nil {
		received = []types.FriendRequest{}
	}
	if sent == nil {
		sent = []types.FriendRequest{}
	}

	return types.PresenceSnapshot{
		Friends:         friends,
		PendingReceived: received,
		PendingSent:     sent,
	}, nil
}

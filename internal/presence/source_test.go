package presence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/npezzotti/mob-vibe/internal/database"
	"github.com/npezzotti/mob-vibe/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositorySource_Snapshot(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-30 * time.Second)
	idle := now.Add(-3 * time.Minute)

	repo := new(database.MockRepository)
	repo.On("ListFriends", 1).Return([]types.Friend{
		{Id: 2, Name: "alice", LastSeenAt: &recent},
		{Id: 3, Name: "bob", LastSeenAt: &idle},
		{Id: 4, Name: "carol"},
	}, nil)
	repo.On("ListPendingReceived", 1).Return([]types.FriendRequest{
		{Id: 10, Sender: &types.UserSummary{Id: 5, Name: "dave"}},
	}, nil)
	repo.On("ListPendingSent", 1).Return([]types.FriendRequest(nil), nil)

	src := NewRepositorySource(repo)
	src.now = func() time.Time { return now }

	snap, err := src.Snapshot(context.Background(), 1)
	require.NoError(t, err, "expected snapshot to succeed")

	require.Len(t, snap.Friends, 3)
	assert.Equal(t, string(Online), snap.Friends[0].Status, "expected alice online")
	assert.Equal(t, string(Away), snap.Friends[1].Status, "expected bob away")
	assert.Equal(t, string(Offline), snap.Friends[2].Status, "expected carol offline")
	assert.Len(t, snap.PendingReceived, 1, "expected one received request")
	assert.NotNil(t, snap.PendingSent, "expected empty slice rather than nil")
	assert.Empty(t, snap.PendingSent)
	repo.AssertExpectations(t)
}

func TestRepositorySource_SnapshotError(t *testing.T) {
	boom := errors.New("connection reset")

	repo := new(database.MockRepository)
	repo.On("ListFriends", 1).Return([]types.Friend{}, nil)
	repo.On("ListPendingReceived", 1).Return([]types.FriendRequest(nil), boom)

	_, err := NewRepositorySource(repo).Snapshot(context.Background(), 1)
	assert.ErrorIs(t, err, boom, "expected underlying error to be wrapped")
	repo.AssertNotCalled(t, "ListPendingSent", 1)
}

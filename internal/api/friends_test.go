package api

import (
	"errors"
	"net/http"
	"testing"

	"github.com/npezzotti/mob-vibe/internal/database"
	"github.com/npezzotti/mob-vibe/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddFriend(t *testing.T) {
	target := database.User{Id: 9, Name: "nine", EmailAddress: "nine@example.com"}

	tcases := []struct {
		name         string
		email        string
		setup        func(m *database.MockRepository, n *mockNotifier)
		expectedCode int
		expectedErr  string
	}{
		{
			name:  "sends request",
			email: target.EmailAddress,
			setup: func(m *database.MockRepository, n *mockNotifier) {
				m.On("GetAccountByEmail", target.EmailAddress).Return(target, nil).Once()
				m.On("CreateFriendRequest", 7, 9).Return(types.FriendRequest{Id: 1}, nil).Once()
				n.On("FriendshipsChanged", []int{7, 9}).Return(nil).Once()
			},
			expectedCode: http.StatusOK,
		},
		{
			name:         "invalid email",
			email:        "nope",
			expectedCode: http.StatusBadRequest,
			expectedErr:  "invalid email address",
		},
		{
			name:  "unknown user",
			email: "ghost@example.com",
			setup: func(m *database.MockRepository, n *mockNotifier) {
				m.On("GetAccountByEmail", "ghost@example.com").Return(database.User{}, database.ErrNotFound).Once()
			},
			expectedCode: http.StatusNotFound,
			expectedErr:  "user not found",
		},
		{
			name:  "self",
			email: "seven@example.com",
			setup: func(m *database.MockRepository, n *mockNotifier) {
				m.On("GetAccountByEmail", "seven@example.com").Return(database.User{Id: 7}, nil).Once()
			},
			expectedCode: http.StatusBadRequest,
			expectedErr:  "you cannot add yourself as a friend",
		},
		{
			name:  "already friends",
			email: target.EmailAddress,
			setup: func(m *database.MockRepository, n *mockNotifier) {
				m.On("GetAccountByEmail", target.EmailAddress).Return(target, nil).Once()
				m.On("CreateFriendRequest", 7, 9).Return(types.FriendRequest{}, database.ErrAlreadyFriends).Once()
			},
			expectedCode: http.StatusBadRequest,
			expectedErr:  database.ErrAlreadyFriends.Error(),
		},
		{
			name:  "request exists",
			email: target.EmailAddress,
			setup: func(m *database.MockRepository, n *mockNotifier) {
				m.On("GetAccountByEmail", target.EmailAddress).Return(target, nil).Once()
				m.On("CreateFriendRequest", 7, 9).Return(types.FriendRequest{}, database.ErrRequestExists).Once()
			},
			expectedCode: http.StatusBadRequest,
			expectedErr:  database.ErrRequestExists.Error(),
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockRepository{}
			defer mockRepo.AssertExpectations(t)
			notifier := &mockNotifier{}
			defer notifier.AssertExpectations(t)
			if tc.setup != nil {
				tc.setup(mockRepo, notifier)
			}

			app := newTestApp(t, mockRepo, testAppOpts{notifier: notifier})
			rr := postForm(t, app, "/friend/add", map[string]string{"email": tc.email}, 7)

			assert.Equal(t, tc.expectedCode, rr.Code, rr.Body.String())
			if tc.expectedErr != "" {
				assert.Equal(t, tc.expectedErr, errorMessage(t, rr))
			} else {
				assert.Contains(t, rr.Body.String(), `"success":true`)
			}
		})
	}
}

func TestRespondFriendRequest(t *testing.T) {
	sender := &types.UserSummary{Id: 9, Name: "nine"}

	tcases := []struct {
		name           string
		path           string
		action         string
		setup          func(m *database.MockRepository, n *mockNotifier)
		expectedCode   int
		expectedAction string
		expectedErr    string
	}{
		{
			name:   "accept",
			path:   "/friend/3",
			action: "accept",
			setup: func(m *database.MockRepository, n *mockNotifier) {
				m.On("AcceptFriendRequest", 3, 7).Return(types.FriendRequest{Id: 3, Sender: sender}, nil).Once()
				n.On("FriendshipsChanged", []int{7, 9}).Return(nil).Once()
			},
			expectedCode:   http.StatusOK,
			expectedAction: "accepted",
		},
		{
			name:   "reject",
			path:   "/friend/3",
			action: "reject",
			setup: func(m *database.MockRepository, n *mockNotifier) {
				m.On("RejectFriendRequest", 3, 7).Return(types.FriendRequest{Id: 3, Sender: sender}, nil).Once()
				n.On("FriendshipsChanged", []int{7, 9}).Return(nil).Once()
			},
			expectedCode:   http.StatusOK,
			expectedAction: "rejected",
		},
		{
			name:         "invalid action",
			path:         "/friend/3",
			action:       "ignore",
			expectedCode: http.StatusBadRequest,
			expectedErr:  "invalid action",
		},
		{
			name:         "invalid request id",
			path:         "/friend/abc",
			action:       "accept",
			expectedCode: http.StatusBadRequest,
			expectedErr:  "invalid request id",
		},
		{
			name:   "unknown request",
			path:   "/friend/3",
			action: "accept",
			setup: func(m *database.MockRepository, n *mockNotifier) {
				m.On("AcceptFriendRequest", 3, 7).Return(types.FriendRequest{}, database.ErrNotFound).Once()
			},
			expectedCode: http.StatusNotFound,
			expectedErr:  "friend request not found",
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := &database.MockRepository{}
			defer mockRepo.AssertExpectations(t)
			notifier := &mockNotifier{}
			defer notifier.AssertExpectations(t)
			if tc.setup != nil {
				tc.setup(mockRepo, notifier)
			}

			app := newTestApp(t, mockRepo, testAppOpts{notifier: notifier})
			rr := postForm(t, app, tc.path, map[string]string{"action": tc.action}, 7)

			assert.Equal(t, tc.expectedCode, rr.Code, rr.Body.String())
			if tc.expectedErr != "" {
				assert.Equal(t, tc.expectedErr, errorMessage(t, rr))
				return
			}

			var resp struct {
				Success bool   `json:"success"`
				Action  string `json:"action"`
			}
			decodeBody(t, rr, &resp)
			assert.True(t, resp.Success)
			assert.Equal(t, tc.expectedAction, resp.Action)
		})
	}
}

func TestRemoveFriend(t *testing.T) {
	t.Run("removes friendship", func(t *testing.T) {
		mockRepo := &database.MockRepository{}
		defer mockRepo.AssertExpectations(t)
		notifier := &mockNotifier{}
		defer notifier.AssertExpectations(t)

		mockRepo.On("RemoveFriend", 7, 5).Return(nil).Once()
		notifier.On("FriendshipsChanged", []int{7, 5}).Return(nil).Once()

		app := newTestApp(t, mockRepo, testAppOpts{notifier: notifier})
		rr := postForm(t, app, "/friend/5/remove", nil, 7)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"success":true}`, rr.Body.String())
	})

	t.Run("notifier failure does not fail the request", func(t *testing.T) {
		mockRepo := &database.MockRepository{}
		defer mockRepo.AssertExpectations(t)
		notifier := &mockNotifier{}
		defer notifier.AssertExpectations(t)

		mockRepo.On("RemoveFriend", 7, 5).Return(nil).Once()
		notifier.On("FriendshipsChanged", []int{7, 5}).Return(errors.New("closed")).Once()

		app := newTestApp(t, mockRepo, testAppOpts{notifier: notifier})
		rr := postForm(t, app, "/friend/5/remove", nil, 7)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("db error", func(t *testing.T) {
		mockRepo := &database.MockRepository{}
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("RemoveFriend", 7, 5).Return(errors.New("db error")).Once()

		app := newTestApp(t, mockRepo, testAppOpts{})
		rr := postForm(t, app, "/friend/5/remove", nil, 7)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestListFriends(t *testing.T) {
	mockRepo := &database.MockRepository{}
	defer mockRepo.AssertExpectations(t)
	mockRepo.On("ListFriends", 7).Return([]types.Friend{{Id: 9, Name: "nine"}}, nil).Once()
	mockRepo.On("ListPendingReceived", 7).Return([]types.FriendRequest(nil), nil).Once()
	mockRepo.On("ListPendingSent", 7).Return([]types.FriendRequest(nil), nil).Once()

	app := newTestApp(t, mockRepo, testAppOpts{})
	rr := serve(t, app, http.MethodGet, "/api/friends", nil, "", 7)

	require.Equal(t, http.StatusOK, rr.Code)
	var snapshot types.PresenceSnapshot
	decodeBody(t, rr, &snapshot)
	require.Len(t, snapshot.Friends, 1)
	assert.Equal(t, "offline", snapshot.Friends[0].Status)
	assert.NotNil(t, snapshot.PendingReceived)
	assert.Contains(t, rr.Body.String(), `"pendingSent":[]`)
}

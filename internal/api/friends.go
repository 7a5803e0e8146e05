package api

import (
	"errors"
	"net/http"

	"github.com/npezzotti/mob-vibe/internal/database"
	"github.com/npezzotti/mob-vibe/internal/presence"
	"github.com/npezzotti/mob-vibe/internal/types"
)

type AddFriendRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type FriendActionRequest struct {
	Action string `json:"action" validate:"required,oneof=accept reject"`
}

// notifyFriendships tells the stream hub that the snapshots of userIds are
// stale. Failures only delay the update until the next poll.
func (s *App) notifyFriendships(userIds ...int) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.FriendshipsChanged(userIds...); err != nil {
		s.log.Warn().Err(err).Ints("user_ids", userIds).Msg("failed to publish friendship change")
	}
}

func (s *App) listFriends(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	snapshot, err := presence.NewRepositorySource(s.db).Snapshot(r.Context(), userId)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, snapshot)
}

func (s *App) addFriend(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	var req AddFriendRequest
	if err := s.bind(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	target, err := s.db.GetAccountByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.writeError(w, NewNotFoundError().WithMessage("user not found"))
			return
		}
		s.writeError(w, err)
		return
	}

	if target.Id == userId {
		s.writeError(w, NewBadRequestError().WithMessage("you cannot add yourself as a friend"))
		return
	}

	fr, err := s.db.CreateFriendRequest(r.Context(), userId, target.Id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.notifyFriendships(userId, target.Id)
	s.writeJson(w, http.StatusOK, map[string]any{"success": true, "request": fr})
}

func (s *App) respondFriendRequest(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())
	requestId, ok := intParam(r, "id")
	if !ok {
		s.writeError(w, NewBadRequestError().WithMessage("invalid request id"))
		return
	}

	var req FriendActionRequest
	if err := s.bind(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	var (
		action = "rejected"
		fr     types.FriendRequest
		err    error
	)
	if req.Action == "accept" {
		action = "accepted"
		fr, err = s.db.AcceptFriendRequest(r.Context(), requestId, userId)
	} else {
		fr, err = s.db.RejectFriendRequest(r.Context(), requestId, userId)
	}
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.writeError(w, NewNotFoundError().WithMessage("friend request not found"))
			return
		}
		s.writeError(w, err)
		return
	}

	ids := []int{userId}
	if fr.Sender != nil {
		ids = append(ids, fr.Sender.Id)
	}
	s.notifyFriendships(ids...)

	s.writeJson(w, http.StatusOK, map[string]any{"success": true, "action": action})
}

func (s *App) removeFriend(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())
	friendId, ok := intParam(r, "id")
	if !ok {
		s.writeError(w, NewBadRequestError().WithMessage("invalid friend id"))
		return
	}

	if err := s.db.RemoveFriend(r.Context(), userId, friendId); err != nil {
		s.writeError(w, err)
		return
	}

	s.notifyFriendships(userId, friendId)
	s.writeJson(w, http.StatusOK, map[string]any{"success": true})
}

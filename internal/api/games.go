package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/npezzotti/mob-vibe/internal/database"
	"github.com/npezzotti/mob-vibe/internal/generate"
	"github.com/npezzotti/mob-vibe/internal/iteration"
	"github.com/npezzotti/mob-vibe/internal/sandbox"
	"github.com/npezzotti/mob-vibe/internal/stats"
	"github.com/npezzotti/mob-vibe/internal/types"
)

const defaultFeedLimit = 5

type CreateGameRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type UpdateGameRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type CreateIterationRequest struct {
	Content string   `json:"content" validate:"required"`
	Logs    LogLines `json:"logs"`
}

type CreateCommentRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
}

type GameResponse struct {
	Game             types.Game                `json:"game"`
	FriendshipStatus database.FriendshipStatus `json:"friendship_status,omitempty"`
}

func intParam(r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func gameIdParam(r *http.Request) (int, *ApiError) {
	id, ok := intParam(r, "id")
	if !ok {
		return 0, NewBadRequestError().WithMessage("invalid game id")
	}
	return id, nil
}

func (s *App) findGame(ctx context.Context, gameId int) (types.Game, error) {
	game, err := s.db.GetGame(ctx, gameId)
	if errors.Is(err, database.ErrNotFound) {
		return types.Game{}, NewNotFoundError().WithMessage("game not found")
	}
	return game, err
}

// ownedGame loads a game and checks that userId created it.
func (s *App) ownedGame(ctx context.Context, gameId, userId int) (types.Game, error) {
	game, err := s.findGame(ctx, gameId)
	if err != nil {
		return types.Game{}, err
	}

	if game.CreatorId != userId {
		return types.Game{}, NewForbiddenError()
	}
	return game, nil
}

func (s *App) createGame(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	var req CreateGameRequest
	if err := s.bind(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	game, err := s.db.CreateGame(r.Context(), database.CreateGameParams{
		Name:      req.Name,
		CreatorId: userId,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusCreated, GameResponse{Game: game})
}

func (s *App) searchGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.db.SearchGames(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if games == nil {
		games = []types.Game{}
	}

	s.writeJson(w, http.StatusOK, map[string]any{"games": games})
}

func (s *App) getGame(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())
	gameId, apiErr := gameIdParam(r)
	if apiErr != nil {
		s.writeError(w, apiErr)
		return
	}

	game, err := s.findGame(r.Context(), gameId)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := GameResponse{Game: game}
	if game.CreatorId != userId {
		status, err := s.db.GetFriendshipStatus(r.Context(), userId, game.CreatorId)
		if err != nil {
			s.writeError(w, err)
			return
		}
		resp.FriendshipStatus = status
	}

	s.writeJson(w, http.StatusOK, resp)
}

func (s *App) updateGame(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())
	gameId, apiErr := gameIdParam(r)
	if apiErr != nil {
		s.writeError(w, apiErr)
		return
	}

	if _, err := s.ownedGame(r.Context(), gameId, userId); err != nil {
		s.writeError(w, err)
		return
	}

	var req UpdateGameRequest
	if err := s.bind(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	game, err := s.db.UpdateGameName(r.Context(), gameId, req.Name)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, GameResponse{Game: game})
}

func (s *App) deleteGame(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())
	gameId, apiErr := gameIdParam(r)
	if apiErr != nil {
		s.writeError(w, apiErr)
		return
	}

	if _, err := s.ownedGame(r.Context(), gameId, userId); err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.db.DeleteGame(r.Context(), gameId); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, map[string]any{"success": true})
}

func (s *App) recordVisit(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())
	gameId, apiErr := gameIdParam(r)
	if apiErr != nil {
		s.writeError(w, apiErr)
		return
	}

	if _, err := s.findGame(r.Context(), gameId); err != nil {
		s.writeError(w, err)
		return
	}

	visit, err := s.db.RecordVisit(r.Context(), userId, gameId)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, map[string]any{"visit": visit})
}

func (s *App) friendFeed(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())

	limit := defaultFeedLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 50 {
			s.writeError(w, NewBadRequestError().WithMessage("invalid limit"))
			return
		}
		limit = n
	}

	visits, err := s.db.ListFriendVisits(r.Context(), userId, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if visits == nil {
		visits = []types.GameVisit{}
	}

	s.writeJson(w, http.StatusOK, map[string]any{"visits": visits})
}

func (s *App) createIteration(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())
	gameId, apiErr := gameIdParam(r)
	if apiErr != nil {
		s.writeError(w, apiErr)
		return
	}

	if _, err := s.ownedGame(r.Context(), gameId, userId); err != nil {
		s.writeError(w, err)
		return
	}

	var req CreateIterationRequest
	if err := s.bind(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	previous, err := s.db.ListIterations(r.Context(), gameId)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if len(previous) > generate.MaxContextIterations {
		previous = previous[:generate.MaxContextIterations]
	}

	res, err := s.generator.Generate(r.Context(), generate.Request{
		UserId:   userId,
		GameId:   gameId,
		Prompt:   req.Content,
		Previous: previous,
		Logs:     req.Logs,
	})
	if err != nil {
		s.stats.Incr(stats.NumGenerationFails)
		s.writeError(w, err)
		return
	}

	it, err := s.db.CreateIteration(r.Context(), database.CreateIterationParams{
		GameId:  gameId,
		Content: res.Content,
		Prompt:  req.Content,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.stats.Incr(stats.NumIterations)

	if err := s.db.RecordTokenUsage(r.Context(), database.TokenUsage{
		MessageId:       res.MessageId,
		UserId:          userId,
		GameIterationId: it.Id,
		Model:           res.Model,
		InputTokens:     res.InputTokens,
		OutputTokens:    res.OutputTokens,
	}); err != nil {
		s.log.Error().Err(err).Int("iteration_id", it.Id).Msg("failed to record token usage")
	}

	s.writeJson(w, http.StatusOK, map[string]any{"iteration": it})
}

func (s *App) listIterations(w http.ResponseWriter, r *http.Request) {
	gameId, apiErr := gameIdParam(r)
	if apiErr != nil {
		s.writeError(w, apiErr)
		return
	}

	if _, err := s.findGame(r.Context(), gameId); err != nil {
		s.writeError(w, err)
		return
	}

	its, err := s.db.ListIterations(r.Context(), gameId)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, map[string]any{"iterations": iteration.NewHistory(its).Entries()})
}

func (s *App) playGame(w http.ResponseWriter, r *http.Request) {
	gameId, apiErr := gameIdParam(r)
	if apiErr != nil {
		s.writeError(w, apiErr)
		return
	}

	var (
		it  types.Iteration
		err error
	)
	if v := r.URL.Query().Get("v"); v != "" {
		iterationId, convErr := strconv.Atoi(v)
		if convErr != nil || iterationId <= 0 {
			s.writeError(w, NewBadRequestError().WithMessage("invalid iteration id"))
			return
		}
		it, err = s.db.GetIteration(r.Context(), gameId, iterationId)
	} else {
		var its []types.Iteration
		its, err = s.db.ListIterations(r.Context(), gameId)
		if err == nil {
			latest, ok := iteration.NewHistory(its).Latest()
			if !ok {
				err = NewNotFoundError().WithMessage("game has no iterations")
			}
			it = latest
		}
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	page, err := sandbox.Inject(it.Content)
	if err != nil {
		s.writeError(w, NewInternalServerError(err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(page))
}

func (s *App) createComment(w http.ResponseWriter, r *http.Request) {
	userId, _ := UserId(r.Context())
	gameId, apiErr := gameIdParam(r)
	if apiErr != nil {
		s.writeError(w, apiErr)
		return
	}

	var req CreateCommentRequest
	if err := s.bind(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	if _, err := s.findGame(r.Context(), gameId); err != nil {
		s.writeError(w, err)
		return
	}

	comment, err := s.db.CreateComment(r.Context(), database.CreateCommentParams{
		GameId:  gameId,
		UserId:  userId,
		Content: req.Content,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJson(w, http.StatusOK, map[string]any{"comment": comment})
}

func (s *App) listComments(w http.ResponseWriter, r *http.Request) {
	gameId, apiErr := gameIdParam(r)
	if apiErr != nil {
		s.writeError(w, apiErr)
		return
	}

	comments, err := s.db.ListComments(r.Context(), gameId)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if comments == nil {
		comments = []types.Comment{}
	}

	s.writeJson(w, http.StatusOK, map[string]any{"comments": comments})
}

package database

import (
	"context"

	"github.com/npezzotti/mob-vibe/internal/types"
)

type Repository interface {
	Ping(ctx context.Context) error

	CreateAccount(ctx context.Context, params CreateAccountParams) (User, error)
	UpdateAccount(ctx context.Context, params UpdateAccountParams) (User, error)
	GetAccountById(ctx context.Context, accountId int) (User, error)
	GetAccountByEmail(ctx context.Context, email string) (User, error)
	TouchLastSeen(ctx context.Context, accountId int) error

	CreateGame(ctx context.Context, params CreateGameParams) (types.Game, error)
	GetGame(ctx context.Context, gameId int) (types.Game, error)
	SearchGames(ctx context.Context, query string) ([]types.Game, error)
	UpdateGameName(ctx context.Context, gameId int, name string) (types.Game, error)
	DeleteGame(ctx context.Context, gameId int) error

	CreateIteration(ctx context.Context, params CreateIterationParams) (types.Iteration, error)
	GetIteration(ctx context.Context, gameId, iterationId int) (types.Iteration, error)
	ListIterations(ctx context.Context, gameId int) ([]types.Iteration, error)

	CreateComment(ctx context.Context, params CreateCommentParams) (types.Comment, error)
	ListComments(ctx context.Context, gameId int) ([]types.Comment, error)

	ListFriends(ctx context.Context, accountId int) ([]types.Friend, error)
	ListPendingReceived(ctx context.Context, accountId int) ([]types.FriendRequest, error)
	ListPendingSent(ctx context.Context, accountId int) ([]types.FriendRequest, error)
	CreateFriendRequest(ctx context.Context, senderId, receiverId int) (types.FriendRequest, error)
	AcceptFriendRequest(ctx context.Context, requestId, receiverId int) (types.FriendRequest, error)
	RejectFriendRequest(ctx context.Context, requestId, receiverId int) (types.FriendRequest, error)
	RemoveFriend(ctx context.Context, accountId, friendId int) error
	GetFriendshipStatus(ctx context.Context, accountId, otherId int) (FriendshipStatus, error)

	RecordVisit(ctx context.Context, accountId, gameId int) (types.GameVisit, error)
	ListFriendVisits(ctx context.Context, accountId, limit int) ([]types.GameVisit, error)

	RecordTokenUsage(ctx context.Context, usage TokenUsage) error
}

package database

import (
	"context"

	"github.com/npezzotti/mob-vibe/internal/types"
	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

var _ Repository = (*MockRepository)(nil)

func (m *MockRepository) Ping(ctx context.Context) error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockRepository) CreateAccount(ctx context.Context, params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockRepository) UpdateAccount(ctx context.Context, params UpdateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockRepository) GetAccountById(ctx context.Context, accountId int) (User, error) {
	args := m.Called(accountId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockRepository) GetAccountByEmail(ctx context.Context, email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockRepository) TouchLastSeen(ctx context.Context, accountId int) error {
	args := m.Called(accountId)
	return args.Error(0)
}
func (m *MockRepository) CreateGame(ctx context.Context, params CreateGameParams) (types.Game, error) {
	args := m.Called(params)
	return args.Get(0).(types.Game), args.Error(1)
}
func (m *MockRepository) GetGame(ctx context.Context, gameId int) (types.Game, error) {
	args := m.Called(gameId)
	return args.Get(0).(types.Game), args.Error(1)
}
func (m *MockRepository) SearchGames(ctx context.Context, query string) ([]types.Game, error) {
	args := m.Called(query)
	v, _ := args.Get(0).([]types.Game)
	return v, args.Error(1)
}
func (m *MockRepository) UpdateGameName(ctx context.Context, gameId int, name string) (types.Game, error) {
	args := m.Called(gameId, name)
	return args.Get(0).(types.Game), args.Error(1)
}
func (m *MockRepository) DeleteGame(ctx context.Context, gameId int) error {
	args := m.Called(gameId)
	return args.Error(0)
}
func (m *MockRepository) CreateIteration(ctx context.Context, params CreateIterationParams) (types.Iteration, error) {
	args := m.Called(params)
	return args.Get(0).(types.Iteration), args.Error(1)
}
func (m *MockRepository) GetIteration(ctx context.Context, gameId, iterationId int) (types.Iteration, error) {
	args := m.Called(gameId, iterationId)
	return args.Get(0).(types.Iteration), args.Error(1)
}
func (m *MockRepository) ListIterations(ctx context.Context, gameId int) ([]types.Iteration, error) {
	args := m.Called(gameId)
	v, _ := args.Get(0).([]types.Iteration)
	return v, args.Error(1)
}
func (m *MockRepository) CreateComment(ctx context.Context, params CreateCommentParams) (types.Comment, error) {
	args := m.Called(params)
	return args.Get(0).(types.Comment), args.Error(1)
}
func (m *MockRepository) ListComments(ctx context.Context, gameId int) ([]types.Comment, error) {
	args := m.Called(gameId)
	v, _ := args.Get(0).([]types.Comment)
	return v, args.Error(1)
}
func (m *MockRepository) ListFriends(ctx context.Context, accountId int) ([]types.Friend, error) {
	args := m.Called(accountId)
	v, _ := args.Get(0).([]types.Friend)
	return v, args.Error(1)
}
func (m *MockRepository) ListPendingReceived(ctx context.Context, accountId int) ([]types.FriendRequest, error) {
	args := m.Called(accountId)
	v, _ := args.Get(0).([]types.FriendRequest)
	return v, args.Error(1)
}
func (m *MockRepository) ListPendingSent(ctx context.Context, accountId int) ([]types.FriendRequest, error) {
	args := m.Called(accountId)
	v, _ := args.Get(0).([]types.FriendRequest)
	return v, args.Error(1)
}
func (m *MockRepository) CreateFriendRequest(ctx context.Context, senderId, receiverId int) (types.FriendRequest, error) {
	args := m.Called(senderId, receiverId)
	return args.Get(0).(types.FriendRequest), args.Error(1)
}
func (m *MockRepository) AcceptFriendRequest(ctx context.Context, requestId, receiverId int) (types.FriendRequest, error) {
	args := m.Called(requestId, receiverId)
	return args.Get(0).(types.FriendRequest), args.Error(1)
}
func (m *MockRepository) RejectFriendRequest(ctx context.Context, requestId, receiverId int) (types.FriendRequest, error) {
	args := m.Called(requestId, receiverId)
	return args.Get(0).(types.FriendRequest), args.Error(1)
}
func (m *MockRepository) RemoveFriend(ctx context.Context, accountId, friendId int) error {
	args := m.Called(accountId, friendId)
	return args.Error(0)
}
func (m *MockRepository) GetFriendshipStatus(ctx context.Context, accountId, otherId int) (FriendshipStatus, error) {
	args := m.Called(accountId, otherId)
	return args.Get(0).(FriendshipStatus), args.Error(1)
}
func (m *MockRepository) RecordVisit(ctx context.Context, accountId, gameId int) (types.GameVisit, error) {
	args := m.Called(accountId, gameId)
	return args.Get(0).(types.GameVisit), args.Error(1)
}
func (m *MockRepository) ListFriendVisits(ctx context.Context, accountId, limit int) ([]types.GameVisit, error) {
	args := m.Called(accountId, limit)
	v, _ := args.Get(0).([]types.GameVisit)
	return v, args.Error(1)
}
func (m *MockRepository) RecordTokenUsage(ctx context.Context, usage TokenUsage) error {
	args := m.Called(usage)
	return args.Error(0)
}

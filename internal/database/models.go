package database

import "time"

type User struct {
	Id           int
	Name         string
	EmailAddress string
	PasswordHash string
	LastSeenAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type CreateAccountParams struct {
	Name         string
	EmailAddress string
	PasswordHash string
}

type UpdateAccountParams struct {
	UserId       int
	Name         string
	PasswordHash string
}

type CreateGameParams struct {
	Name      string
	CreatorId int
}

type CreateIterationParams struct {
	GameId  int
	Content string
	Prompt  string
}

type CreateCommentParams struct {
	GameId  int
	UserId  int
	Content string
}

type TokenUsage struct {
	MessageId       string
	UserId          int
	GameIterationId int
	Model           string
	InputTokens     int
	OutputTokens    int
}

// FriendshipStatus describes how one user relates to another.
type FriendshipStatus string

const (
	FriendshipFriends         FriendshipStatus = "friends"
	FriendshipPendingSent     FriendshipStatus = "pending_sent"
	FriendshipPendingReceived FriendshipStatus = "pending_received"
	FriendshipNone            FriendshipStatus = "none"
)

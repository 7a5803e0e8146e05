package types

import (
	"time"
)

type User struct {
	Id           int        `json:"id"`
	Name         string     `json:"name"`
	EmailAddress string     `json:"email,omitempty"`
	LastSeenAt   *time.Time `json:"last_seen_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at,omitempty"`
}

// UserSummary is the embedded form of a user on games, comments and requests.
type UserSummary struct {
	Id   int    `json:"id"`
	Name string `json:"name"`
}

type GameSummary struct {
	Id   int    `json:"id"`
	Name string `json:"name"`
}

type Game struct {
	Id        int         `json:"id"`
	Name      string      `json:"name"`
	CreatorId int         `json:"creator_id"`
	PlayCount int         `json:"play_count"`
	Creator   UserSummary `json:"creator"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type Iteration struct {
	Id        int       `json:"id"`
	GameId    int       `json:"game_id,omitempty"`
	Content   string    `json:"content"`
	Prompt    string    `json:"prompt,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

type Comment struct {
	Id        int         `json:"id"`
	GameId    int         `json:"game_id"`
	UserId    int         `json:"user_id"`
	Content   string      `json:"content"`
	User      UserSummary `json:"user"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type Friend struct {
	Id         int        `json:"id"`
	Name       string     `json:"name"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
	Status     string     `json:"status"`
}

type FriendRequest struct {
	Id        int          `json:"id"`
	Sender    *UserSummary `json:"sender,omitempty"`
	Receiver  *UserSummary `json:"receiver,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// PresenceSnapshot is the full friends view pushed on the friends channel.
// It always replaces the previous snapshot.
type PresenceSnapshot struct {
	Friends         []Friend        `json:"friends"`
	PendingReceived []FriendRequest `json:"pendingReceived"`
	PendingSent     []FriendRequest `json:"pendingSent"`
}

type GameVisit struct {
	Id        int          `json:"id"`
	VisitedAt time.Time    `json:"visited_at"`
	Game      GameSummary  `json:"game"`
	User      *UserSummary `json:"user,omitempty"`
}

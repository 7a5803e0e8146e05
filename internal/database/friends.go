package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/npezzotti/mob-vibe/internal/types"
)

func (db *PgRepository) ListFriends(ctx context.Context, accountId int) ([]types.Friend, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT a.id, a.name, a.last_seen_at FROM friendships f "+
			"JOIN accounts a ON a.id = f.friend_id WHERE f.user_id = $1 ORDER BY a.name",
		accountId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	friends := make([]types.Friend, 0)
	for rows.Next() {
		var f types.Friend
		if err := rows.Scan(&f.Id, &f.Name, &f.LastSeenAt); err != nil {
			return nil, err
		}
		friends = append(friends, f)
	}

	return friends, rows.Err()
}

func (db *PgRepository) ListPendingReceived(ctx context.Context, accountId int) ([]types.FriendRequest, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT p.id, p.created_at, a.id, a.name FROM pending_friendships p "+
			"JOIN accounts a ON a.id = p.sender_id WHERE p.receiver_id = $1 ORDER BY p.created_at DESC",
		accountId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]types.FriendRequest, 0)
	for rows.Next() {
		var (
			req    types.FriendRequest
			sender types.UserSummary
		)
		if err := rows.Scan(&req.Id, &req.CreatedAt, &sender.Id, &sender.Name); err != nil {
			return nil, err
		}
		req.Sender = &sender
		requests = append(requests, req)
	}

	return requests, rows.Err()
}

func (db *PgRepository) ListPendingSent(ctx context.Context, accountId int) ([]types.FriendRequest, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT p.id, p.created_at, a.id, a.name FROM pending_friendships p "+
			"JOIN accounts a ON a.id = p.receiver_id WHERE p.sender_id = $1 ORDER BY p.created_at DESC",
		accountId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]types.FriendRequest, 0)
	for rows.Next() {
		var (
			req      types.FriendRequest
			receiver types.UserSummary
		)
		if err := rows.Scan(&req.Id, &req.CreatedAt, &receiver.Id, &receiver.Name); err != nil {
			return nil, err
		}
		req.Receiver = &receiver
		requests = append(requests, req)
	}

	return requests, rows.Err()
}

// CreateFriendRequest records a pending request from sender to receiver. It
// fails with ErrAlreadyFriends or ErrRequestExists when appropriate.
func (db *PgRepository) CreateFriendRequest(ctx context.Context, senderId, receiverId int) (types.FriendRequest, error) {
	var req types.FriendRequest
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var exists bool
		err := tx.QueryRowContext(ctx,
			"SELECT EXISTS (SELECT 1 FROM friendships WHERE user_id = $1 AND friend_id = $2)",
			senderId, receiverId,
		).Scan(&exists)
		if err != nil {
			return err
		}
		if exists {
			return ErrAlreadyFriends
		}

		err = tx.QueryRowContext(ctx,
			"SELECT EXISTS (SELECT 1 FROM pending_friendships WHERE sender_id = $1 AND receiver_id = $2)",
			senderId, receiverId,
		).Scan(&exists)
		if err != nil {
			return err
		}
		if exists {
			return ErrRequestExists
		}

		err = tx.QueryRowContext(ctx,
			"INSERT INTO pending_friendships (sender_id, receiver_id, created_at) VALUES ($1, $2, $3) RETURNING id, created_at",
			senderId, receiverId, time.Now().UTC(),
		).Scan(&req.Id, &req.CreatedAt)
		if err != nil {
			return err
		}

		req.Sender = &types.UserSummary{Id: senderId}
		req.Receiver = &types.UserSummary{Id: receiverId}
		return nil
	})

	return req, err
}

// takeRequest deletes the pending request addressed to receiverId and
// returns it. ErrNotFound is returned if no such request exists.
func takeRequest(ctx context.Context, tx *sql.Tx, requestId, receiverId int) (types.FriendRequest, error) {
	var (
		req              types.FriendRequest
		sender, receiver int
	)
	err := tx.QueryRowContext(ctx,
		"DELETE FROM pending_friendships WHERE id = $1 AND receiver_id = $2 RETURNING id, sender_id, receiver_id, created_at",
		requestId, receiverId,
	).Scan(&req.Id, &sender, &receiver, &req.CreatedAt)
	if err != nil {
		return req, notFound(err)
	}

	req.Sender = &types.UserSummary{Id: sender}
	req.Receiver = &types.UserSummary{Id: receiver}
	return req, nil
}

func (db *PgRepository) AcceptFriendRequest(ctx context.Context, requestId, receiverId int) (types.FriendRequest, error) {
	var req types.FriendRequest
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		req, err = takeRequest(ctx, tx, requestId, receiverId)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		_, err = tx.ExecContext(ctx,
			"INSERT INTO friendships (user_id, friend_id, created_at) VALUES ($1, $2, $3), ($2, $1, $3) "+
				"ON CONFLICT (user_id, friend_id) DO NOTHING",
			req.Sender.Id, req.Receiver.Id, now,
		)
		return err
	})

	return req, err
}

func (db *PgRepository) RejectFriendRequest(ctx context.Context, requestId, receiverId int) (types.FriendRequest, error) {
	var req types.FriendRequest
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		req, err = takeRequest(ctx, tx, requestId, receiverId)
		return err
	})

	return req, err
}

// RemoveFriend deletes the friendship in both directions.
func (db *PgRepository) RemoveFriend(ctx context.Context, accountId, friendId int) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"DELETE FROM friendships WHERE (user_id = $1 AND friend_id = $2) OR (user_id = $2 AND friend_id = $1)",
			accountId, friendId,
		)
		return err
	})
}

func (db *PgRepository) GetFriendshipStatus(ctx context.Context, accountId, otherId int) (FriendshipStatus, error) {
	var status FriendshipStatus
	err := db.conn.QueryRowContext(ctx, `
		SELECT CASE
			WHEN EXISTS (SELECT 1 FROM friendships WHERE user_id = $1 AND friend_id = $2) THEN 'friends'
			WHEN EXISTS (SELECT 1 FROM pending_friendships WHERE sender_id = $1 AND receiver_id = $2) THEN 'pending_sent'
			WHEN EXISTS (SELECT 1 FROM pending_friendships WHERE sender_id = $2 AND receiver_id = $1) THEN 'pending_received'
			ELSE 'none'
		END`,
		accountId, otherId,
	).Scan(&status)

	return status, err
}

package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/npezzotti/mob-vibe/internal/types"
)

const defaultFeedLimit = 5

// RecordVisit stores a visit and bumps the game's play count.
func (db *PgRepository) RecordVisit(ctx context.Context, accountId, gameId int) (types.GameVisit, error) {
	var visit types.GameVisit
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			"UPDATE games SET play_count = play_count + 1 WHERE id = $1 RETURNING id, name",
			gameId,
		).Scan(&visit.Game.Id, &visit.Game.Name)
		if err != nil {
			return notFound(err)
		}

		return tx.QueryRowContext(ctx,
			"INSERT INTO game_visits (user_id, game_id, visited_at) VALUES ($1, $2, $3) RETURNING id, visited_at",
			accountId, gameId, time.Now().UTC(),
		).Scan(&visit.Id, &visit.VisitedAt)
	})

	return visit, err
}

// ListFriendVisits returns the most recent visits made by the user's friends.
func (db *PgRepository) ListFriendVisits(ctx context.Context, accountId, limit int) ([]types.GameVisit, error) {
	if limit <= 0 {
		limit = defaultFeedLimit
	}

	rows, err := db.conn.QueryContext(ctx,
		"SELECT v.id, v.visited_at, g.id, g.name, a.id, a.name FROM game_visits v "+
			"JOIN games g ON g.id = v.game_id "+
			"JOIN accounts a ON a.id = v.user_id "+
			"WHERE v.user_id IN (SELECT friend_id FROM friendships WHERE user_id = $1) "+
			"ORDER BY v.visited_at DESC LIMIT $2",
		accountId,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	visits := make([]types.GameVisit, 0, limit)
	for rows.Next() {
		var (
			v    types.GameVisit
			user types.UserSummary
		)
		if err := rows.Scan(&v.Id, &v.VisitedAt, &v.Game.Id, &v.Game.Name, &user.Id, &user.Name); err != nil {
			return nil, err
		}
		v.User = &user
		visits = append(visits, v)
	}

	return visits, rows.Err()
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/npezzotti/mob-vibe/internal/types"
)

const (
	selectGameQuery = "SELECT g.id, g.name, g.creator_id, g.play_count, g.created_at, g.updated_at, a.id, a.name " +
		"FROM games g JOIN accounts a ON a.id = g.creator_id"
	selectCommentQuery = "SELECT c.id, c.game_id, c.user_id, c.content, c.created_at, c.updated_at, a.id, a.name " +
		"FROM comments c JOIN accounts a ON a.id = c.user_id"
)

type scanner interface {
	Scan(dest ...any) error
}

func (db *PgRepository) CreateAccount(ctx context.Context, accountParams CreateAccountParams) (User, error) {
	now := time.Now().UTC()
	res := db.conn.QueryRowContext(ctx,
		"INSERT INTO accounts (name, email, password_hash, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $4) RETURNING id, name, email, created_at, updated_at",
		accountParams.Name,
		accountParams.EmailAddress,
		accountParams.PasswordHash,
		now,
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Name,
		&u.EmailAddress,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (db *PgRepository) UpdateAccount(ctx context.Context, accountParams UpdateAccountParams) (User, error) {
	res := db.conn.QueryRowContext(ctx,
		"UPDATE accounts SET name = $2, password_hash = $3, updated_at = $4 "+
			"WHERE id = $1 RETURNING id, name, email, last_seen_at, created_at, updated_at",
		accountParams.UserId,
		accountParams.Name,
		accountParams.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Name,
		&u.EmailAddress,
		&u.LastSeenAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, notFound(err)
}

func (db *PgRepository) GetAccountById(ctx context.Context, id int) (User, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash, last_seen_at, created_at, updated_at FROM accounts "+
			"WHERE id = $1 LIMIT 1",
		id,
	)

	return scanAccount(row)
}

func (db *PgRepository) GetAccountByEmail(ctx context.Context, email string) (User, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash, last_seen_at, created_at, updated_at FROM accounts "+
			"WHERE LOWER(email) = LOWER($1) LIMIT 1",
		email,
	)

	return scanAccount(row)
}

func scanAccount(row scanner) (User, error) {
	var user User
	err := row.Scan(
		&user.Id,
		&user.Name,
		&user.EmailAddress,
		&user.PasswordHash,
		&user.LastSeenAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	return user, notFound(err)
}

func (db *PgRepository) TouchLastSeen(ctx context.Context, accountId int) error {
	res, err := db.conn.ExecContext(ctx,
		"UPDATE accounts SET last_seen_at = $2 WHERE id = $1",
		accountId,
		time.Now().UTC(),
	)
	if err != nil {
		return err
	}

	return expectRows(res)
}

func (db *PgRepository) CreateGame(ctx context.Context, params CreateGameParams) (types.Game, error) {
	now := time.Now().UTC()
	res := db.conn.QueryRowContext(ctx,
		"INSERT INTO games (name, creator_id, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $3) RETURNING id",
		params.Name,
		params.CreatorId,
		now,
	)

	var id int
	if err := res.Scan(&id); err != nil {
		return types.Game{}, err
	}

	return db.GetGame(ctx, id)
}

func (db *PgRepository) GetGame(ctx context.Context, gameId int) (types.Game, error) {
	row := db.conn.QueryRowContext(ctx, selectGameQuery+" WHERE g.id = $1 LIMIT 1", gameId)
	return scanGame(row)
}

// SearchGames lists games newest first, filtered by a case-insensitive name
// substring when query is non-empty.
func (db *PgRepository) SearchGames(ctx context.Context, query string) ([]types.Game, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if query == "" {
		rows, err = db.conn.QueryContext(ctx, selectGameQuery+" ORDER BY g.created_at DESC")
	} else {
		rows, err = db.conn.QueryContext(ctx,
			selectGameQuery+" WHERE LOWER(g.name) LIKE LOWER($1) ORDER BY g.created_at DESC",
			"%"+query+"%",
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	games := make([]types.Game, 0)
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, game)
	}

	return games, rows.Err()
}

func scanGame(row scanner) (types.Game, error) {
	var game types.Game
	err := row.Scan(
		&game.Id,
		&game.Name,
		&game.CreatorId,
		&game.PlayCount,
		&game.CreatedAt,
		&game.UpdatedAt,
		&game.Creator.Id,
		&game.Creator.Name,
	)

	return game, notFound(err)
}

func (db *PgRepository) UpdateGameName(ctx context.Context, gameId int, name string) (types.Game, error) {
	res, err := db.conn.ExecContext(ctx,
		"UPDATE games SET name = $2, updated_at = $3 WHERE id = $1",
		gameId,
		name,
		time.Now().UTC(),
	)
	if err != nil {
		return types.Game{}, err
	}
	if err := expectRows(res); err != nil {
		return types.Game{}, err
	}

	return db.GetGame(ctx, gameId)
}

func (db *PgRepository) DeleteGame(ctx context.Context, gameId int) error {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM games WHERE id = $1", gameId)
	if err != nil {
		return err
	}

	return expectRows(res)
}

func (db *PgRepository) CreateIteration(ctx context.Context, params CreateIterationParams) (types.Iteration, error) {
	now := time.Now().UTC()
	var prompt sql.NullString
	if params.Prompt != "" {
		prompt = sql.NullString{String: params.Prompt, Valid: true}
	}

	var it types.Iteration
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		res := tx.QueryRowContext(ctx,
			"INSERT INTO game_iterations (game_id, content, prompt, created_at, updated_at) "+
				"VALUES ($1, $2, $3, $4, $4) RETURNING id, game_id, content, prompt, created_at, updated_at",
			params.GameId,
			params.Content,
			prompt,
			now,
		)
		var err error
		it, err = scanIteration(res)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, "UPDATE games SET updated_at = $2 WHERE id = $1", params.GameId, now)
		return err
	})

	return it, err
}

func (db *PgRepository) GetIteration(ctx context.Context, gameId, iterationId int) (types.Iteration, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT id, game_id, content, prompt, created_at, updated_at FROM game_iterations "+
			"WHERE game_id = $1 AND id = $2 LIMIT 1",
		gameId,
		iterationId,
	)

	return scanIteration(row)
}

// ListIterations returns a game's iterations newest first.
func (db *PgRepository) ListIterations(ctx context.Context, gameId int) ([]types.Iteration, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, game_id, content, prompt, created_at, updated_at FROM game_iterations "+
			"WHERE game_id = $1 ORDER BY created_at DESC, id DESC",
		gameId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	iterations := make([]types.Iteration, 0)
	for rows.Next() {
		it, err := scanIteration(rows)
		if err != nil {
			return nil, err
		}
		iterations = append(iterations, it)
	}

	return iterations, rows.Err()
}

func scanIteration(row scanner) (types.Iteration, error) {
	var (
		it     types.Iteration
		prompt sql.NullString
	)
	err := row.Scan(
		&it.Id,
		&it.GameId,
		&it.Content,
		&prompt,
		&it.CreatedAt,
		&it.UpdatedAt,
	)
	it.Prompt = prompt.String

	return it, notFound(err)
}

func (db *PgRepository) CreateComment(ctx context.Context, params CreateCommentParams) (types.Comment, error) {
	now := time.Now().UTC()
	res := db.conn.QueryRowContext(ctx,
		"INSERT INTO comments (game_id, user_id, content, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $4) RETURNING id",
		params.GameId,
		params.UserId,
		params.Content,
		now,
	)

	var id int
	if err := res.Scan(&id); err != nil {
		return types.Comment{}, err
	}

	row := db.conn.QueryRowContext(ctx, selectCommentQuery+" WHERE c.id = $1", id)
	return scanComment(row)
}

func (db *PgRepository) ListComments(ctx context.Context, gameId int) ([]types.Comment, error) {
	rows, err := db.conn.QueryContext(ctx,
		selectCommentQuery+" WHERE c.game_id = $1 ORDER BY c.created_at DESC",
		gameId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := make([]types.Comment, 0)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}

	return comments, rows.Err()
}

func scanComment(row scanner) (types.Comment, error) {
	var c types.Comment
	err := row.Scan(
		&c.Id,
		&c.GameId,
		&c.UserId,
		&c.Content,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.User.Id,
		&c.User.Name,
	)

	return c, notFound(err)
}

func (db *PgRepository) RecordTokenUsage(ctx context.Context, usage TokenUsage) error {
	var iterationId sql.NullInt64
	if usage.GameIterationId > 0 {
		iterationId = sql.NullInt64{Int64: int64(usage.GameIterationId), Valid: true}
	}

	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO token_usage (message_id, user_id, game_iteration_id, model, input_tokens, output_tokens, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7)",
		usage.MessageId,
		usage.UserId,
		iterationId,
		usage.Model,
		usage.InputTokens,
		usage.OutputTokens,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record token usage: %w", err)
	}

	return nil
}

func expectRows(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

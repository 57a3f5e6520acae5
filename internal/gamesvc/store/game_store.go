package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gridline/tictac-services/internal/gamesvc/models"
)

const gameColumns = `id, code, board, mode, timer_setting,
		player_x_token, player_x_name, player_x_score,
		player_o_token, player_o_name, player_o_score,
		current_turn, status, winner, turn_started_at,
		rematch_requested_by, created_at, updated_at`

type GameStore struct {
	db *pgxpool.Pool
}

func NewGameStore(db *pgxpool.Pool) *GameStore {
	return &GameStore{db: db}
}

// Create inserts the game and fills in its generated id and timestamps.
func (s *GameStore) Create(ctx context.Context, g *models.Game) error {
	board, err := json.Marshal(g.Board)
	if err != nil {
		return fmt.Errorf("failed to encode board: %w", err)
	}

	query := `
		INSERT INTO games (code, board, mode, timer_setting,
			player_x_token, player_x_name, player_x_score,
			player_o_token, player_o_name, player_o_score,
			current_turn, status, winner, turn_started_at, rematch_requested_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at
	`

	err = s.db.QueryRow(ctx, query,
		g.Code, board, g.Mode, g.TimerSetting,
		g.PlayerXToken, g.PlayerXName, g.PlayerXScore,
		nullString(g.PlayerOToken), nullString(g.PlayerOName), g.PlayerOScore,
		string(g.CurrentTurn), g.Status, nullString(g.Winner),
		nullTime(g.TurnStartedAt), nullString(string(g.RematchRequestedBy)),
	).Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}

	return nil
}

// GetByCode fetches a game, returning (nil, nil) when the code is unknown.
func (s *GameStore) GetByCode(ctx context.Context, code string) (*models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE code = $1`

	game, err := scanGame(s.db.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get game by code: %w", err)
	}

	return game, nil
}

// CodeExists reports whether a live game already uses the code.
func (s *GameStore) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM games WHERE code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check code: %w", err)
	}
	return exists, nil
}

// Locked runs fn against the row for code under a row lock and persists the
// mutation in the same transaction. Near-simultaneous actions on one game
// serialize here, so fn sees the latest committed state. Returns (nil, nil)
// when the code is unknown; fn is not called in that case. When fn errors
// the transaction rolls back and nothing is written.
func (s *GameStore) Locked(ctx context.Context, code string, fn func(g *models.Game) error) (*models.Game, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `SELECT ` + gameColumns + ` FROM games WHERE code = $1 FOR UPDATE`
	game, err := scanGame(tx.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock game: %w", err)
	}

	if err := fn(game); err != nil {
		return nil, err
	}

	board, err := json.Marshal(game.Board)
	if err != nil {
		return nil, fmt.Errorf("failed to encode board: %w", err)
	}

	update := `
		UPDATE games
		SET board = $2, timer_setting = $3,
			player_x_token = $4, player_x_name = $5, player_x_score = $6,
			player_o_token = $7, player_o_name = $8, player_o_score = $9,
			current_turn = $10, status = $11, winner = $12,
			turn_started_at = $13, rematch_requested_by = $14, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	err = tx.QueryRow(ctx, update,
		game.ID, board, game.TimerSetting,
		nullString(game.PlayerXToken), game.PlayerXName, game.PlayerXScore,
		nullString(game.PlayerOToken), nullString(game.PlayerOName), game.PlayerOScore,
		string(game.CurrentTurn), game.Status, nullString(game.Winner),
		nullTime(game.TurnStartedAt), nullString(string(game.RematchRequestedBy)),
	).Scan(&game.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update game: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit game update: %w", err)
	}

	return game, nil
}

// Delete removes the game; chat messages go with it via the FK cascade.
func (s *GameStore) Delete(ctx context.Context, code string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM games WHERE code = $1`, code); err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}
	return nil
}

// DeleteExpired drops games created more than olderThan ago and returns how
// many were removed.
func (s *GameStore) DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM games WHERE created_at < now() - $1::interval`,
		fmt.Sprintf("%d seconds", int64(olderThan.Seconds())),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired games: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanGame(row pgx.Row) (*models.Game, error) {
	var (
		game          models.Game
		board         []byte
		xToken        sql.NullString
		oToken        sql.NullString
		oName         sql.NullString
		currentTurn   string
		winner        sql.NullString
		turnStartedAt sql.NullTime
		rematchBy     sql.NullString
	)

	err := row.Scan(
		&game.ID, &game.Code, &board, &game.Mode, &game.TimerSetting,
		&xToken, &game.PlayerXName, &game.PlayerXScore,
		&oToken, &oName, &game.PlayerOScore,
		&currentTurn, &game.Status, &winner, &turnStartedAt,
		&rematchBy, &game.CreatedAt, &game.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(board, &game.Board); err != nil {
		return nil, fmt.Errorf("failed to decode board: %w", err)
	}
	game.PlayerXToken = xToken.String
	game.PlayerOToken = oToken.String
	game.PlayerOName = oName.String
	game.CurrentTurn = models.Cell(currentTurn)
	game.Winner = winner.String
	game.TurnStartedAt = turnStartedAt.Time
	game.RematchRequestedBy = models.Cell(rematchBy.String)

	return &game, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

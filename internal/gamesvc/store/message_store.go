package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gridline/tictac-services/internal/gamesvc/models"
)

type MessageStore struct {
	db *pgxpool.Pool
}

func NewMessageStore(db *pgxpool.Pool) *MessageStore {
	return &MessageStore{db: db}
}

// Create appends one chat message and fills in its id and timestamp.
func (s *MessageStore) Create(ctx context.Context, m *models.GameMessage) error {
	query := `
		INSERT INTO game_messages (game_id, player_name, player_symbol, content, is_system)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := s.db.QueryRow(ctx, query,
		m.GameID, m.PlayerName, nullString(string(m.PlayerSymbol)), m.Content, m.IsSystem,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	return nil
}

// ListByGame returns a game's messages oldest first.
func (s *MessageStore) ListByGame(ctx context.Context, gameID int64) ([]*models.GameMessage, error) {
	query := `
		SELECT id, game_id, player_name, player_symbol, content, is_system, created_at
		FROM game_messages
		WHERE game_id = $1
		ORDER BY created_at ASC
	`

	rows, err := s.db.Query(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.GameMessage
	for rows.Next() {
		var (
			m      models.GameMessage
			symbol *string
		)
		if err := rows.Scan(&m.ID, &m.GameID, &m.PlayerName, &symbol, &m.Content, &m.IsSystem, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if symbol != nil {
			m.PlayerSymbol = models.Cell(*symbol)
		}
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}

	return messages, nil
}

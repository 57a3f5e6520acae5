package service

import (
	"context"
	"fmt"

	"github.com/gridline/tictac-services/internal/gamesvc/models"
)

const maxContentLength = 500

// ChatService appends player chat lines to a game and reads them back.
type ChatService struct {
	games    GameStore
	messages MessageStore
}

func NewChatService(games GameStore, messages MessageStore) *ChatService {
	return &ChatService{games: games, messages: messages}
}

// Send records a chat message from the seat the token controls.
func (s *ChatService) Send(ctx context.Context, code, token, content string) (*models.GameMessage, error) {
	if content == "" || len(content) > maxContentLength {
		return nil, fmt.Errorf("%w: invalid message content", ErrBadRequest)
	}

	g, err := s.games.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNotFound
	}
	seat := g.SeatForToken(token)
	if seat == models.Empty {
		return nil, ErrForbidden
	}

	m := &models.GameMessage{
		GameID:       g.ID,
		PlayerName:   g.SeatName(seat),
		PlayerSymbol: seat,
		Content:      content,
	}
	if err := s.messages.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// History returns a game's messages oldest first.
func (s *ChatService) History(ctx context.Context, gameID int64) ([]*models.GameMessage, error) {
	return s.messages.ListByGame(ctx, gameID)
}

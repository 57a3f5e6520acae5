package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/gridline/tictac-services/internal/gamesvc/engine"
	"github.com/gridline/tictac-services/internal/gamesvc/models"
)

var (
	ErrNotFound   = errors.New("game not found")
	ErrForbidden  = errors.New("forbidden")
	ErrBadRequest = errors.New("bad request")
)

const (
	codeLetters   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeLength    = 6
	maxNameLength = 50
)

// GameStore is the persistence surface the coordinator needs. The pgx store
// satisfies it; tests plug in an in-memory fake.
type GameStore interface {
	Create(ctx context.Context, g *models.Game) error
	GetByCode(ctx context.Context, code string) (*models.Game, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	Locked(ctx context.Context, code string, fn func(g *models.Game) error) (*models.Game, error)
	Delete(ctx context.Context, code string) error
	DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}

type MessageStore interface {
	Create(ctx context.Context, m *models.GameMessage) error
	ListByGame(ctx context.Context, gameID int64) ([]*models.GameMessage, error)
}

// GameService coordinates every game action: it authorizes the acting seat
// by token, drives the engine and the bot, and leaves event delivery to the
// broker. Every read-modify-write runs inside the store's row lock.
type GameService struct {
	games    GameStore
	messages MessageStore
	bot      *engine.Bot
}

func NewGameService(games GameStore, messages MessageStore, bot *engine.Bot) *GameService {
	return &GameService{games: games, messages: messages, bot: bot}
}

type CreateParams struct {
	PlayerName   string
	Mode         string
	TimerSetting string
}

// Create starts a new game. The creator always seats at X; bot games are
// playable immediately while online games wait for a second player.
func (s *GameService) Create(ctx context.Context, p CreateParams) (*models.Game, error) {
	if p.PlayerName == "" || len(p.PlayerName) > maxNameLength {
		return nil, fmt.Errorf("%w: invalid player name", ErrBadRequest)
	}
	if p.Mode != models.ModeBot && p.Mode != models.ModeOnline {
		return nil, fmt.Errorf("%w: invalid mode %q", ErrBadRequest, p.Mode)
	}
	if !models.TimerSettings[p.TimerSetting] {
		return nil, fmt.Errorf("%w: invalid timer setting %q", ErrBadRequest, p.TimerSetting)
	}

	code, err := s.generateCode(ctx)
	if err != nil {
		return nil, err
	}

	g := &models.Game{
		Code:         code,
		Mode:         p.Mode,
		TimerSetting: p.TimerSetting,
		PlayerXToken: uuid.NewString(),
		PlayerXName:  p.PlayerName,
		CurrentTurn:  models.X,
		Status:       models.StatusWaiting,
	}
	if p.Mode == models.ModeBot {
		g.PlayerOName = models.BotName
		g.Status = models.StatusPlaying
		g.TurnStartedAt = time.Now()
	}

	if err := s.games.Create(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// Join seats the second player at O in a waiting online game and records a
// system chat message announcing them.
func (s *GameService) Join(ctx context.Context, code, playerName string) (*models.Game, *models.GameMessage, error) {
	if playerName == "" || len(playerName) > maxNameLength {
		return nil, nil, fmt.Errorf("%w: invalid player name", ErrBadRequest)
	}

	g, err := s.games.Locked(ctx, code, func(g *models.Game) error {
		if g.Mode != models.ModeOnline || g.Status != models.StatusWaiting {
			return ErrNotFound
		}
		g.PlayerOToken = uuid.NewString()
		g.PlayerOName = playerName
		g.Status = models.StatusPlaying
		g.TurnStartedAt = time.Now()
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if g == nil {
		return nil, nil, ErrNotFound
	}

	sysMsg := &models.GameMessage{
		GameID:     g.ID,
		PlayerName: "System",
		Content:    playerName + " joined the game",
		IsSystem:   true,
	}
	if err := s.messages.Create(ctx, sysMsg); err != nil {
		return nil, nil, err
	}

	return g, sysMsg, nil
}

// Move applies the acting player's move. In bot games, when the move leaves
// the round open and it is now the bot's turn, the bot replies under the
// same row lock so it never evaluates a stale board.
func (s *GameService) Move(ctx context.Context, code, token string, position int) (*models.Game, models.Cell, error) {
	var acting models.Cell
	g, err := s.games.Locked(ctx, code, func(g *models.Game) error {
		acting = g.SeatForToken(token)
		if acting == models.Empty {
			return ErrForbidden
		}
		if err := engine.ApplyMove(g, position, acting); err != nil {
			return err
		}
		return s.playBotTurn(g)
	})
	if err != nil {
		return nil, acting, err
	}
	if g == nil {
		return nil, acting, ErrNotFound
	}
	return g, acting, nil
}

// RequestRematch resets bot games on the spot; online games record the
// requesting seat and wait for the opponent to accept.
func (s *GameService) RequestRematch(ctx context.Context, code, token string) (*models.Game, error) {
	g, err := s.games.Locked(ctx, code, func(g *models.Game) error {
		seat := g.SeatForToken(token)
		if seat == models.Empty {
			return ErrForbidden
		}
		if g.Status != models.StatusFinished {
			return fmt.Errorf("%w: game is not finished", ErrForbidden)
		}
		if g.Mode == models.ModeBot {
			engine.ResetSimple(g)
			// When the bot holds X it opens the new round.
			return s.playBotTurn(g)
		}
		g.RematchRequestedBy = seat
		return nil
	})
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNotFound
	}
	return g, nil
}

// AcceptRematch performs the side-swapped reset. Only the seat that did not
// request the rematch may accept it.
func (s *GameService) AcceptRematch(ctx context.Context, code, token string) (*models.Game, error) {
	g, err := s.games.Locked(ctx, code, func(g *models.Game) error {
		seat := g.SeatForToken(token)
		if seat == models.Empty {
			return ErrForbidden
		}
		if g.Status != models.StatusFinished || g.RematchRequestedBy == models.Empty {
			return fmt.Errorf("%w: no rematch to accept", ErrForbidden)
		}
		if g.RematchRequestedBy == seat {
			return fmt.Errorf("%w: cannot accept own rematch request", ErrForbidden)
		}
		engine.ResetSideSwap(g)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNotFound
	}
	return g, nil
}

// Forfeit ends the round immediately; the opponent takes the win and the
// score that goes with it.
func (s *GameService) Forfeit(ctx context.Context, code, token string) (*models.Game, error) {
	g, err := s.games.Locked(ctx, code, func(g *models.Game) error {
		seat := g.SeatForToken(token)
		if seat == models.Empty {
			return ErrForbidden
		}
		if g.Status == models.StatusFinished {
			return fmt.Errorf("%w: game already finished", ErrForbidden)
		}
		winner := seat.Other()
		g.Status = models.StatusFinished
		g.Winner = string(winner)
		if winner == models.X {
			g.PlayerXScore++
		} else {
			g.PlayerOScore++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNotFound
	}
	return g, nil
}

// ChangeTimer updates the countdown setting. Only X may change it, and only
// between rounds.
func (s *GameService) ChangeTimer(ctx context.Context, code, token, setting string) (*models.Game, error) {
	if !models.TimerSettings[setting] {
		return nil, fmt.Errorf("%w: invalid timer setting %q", ErrBadRequest, setting)
	}

	g, err := s.games.Locked(ctx, code, func(g *models.Game) error {
		if g.SeatForToken(token) != models.X {
			return fmt.Errorf("%w: only player X may change the timer", ErrForbidden)
		}
		if g.Status == models.StatusPlaying {
			return fmt.Errorf("%w: timer is locked during play", ErrForbidden)
		}
		g.TimerSetting = setting
		return nil
	})
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNotFound
	}
	return g, nil
}

// Leave deletes the game and returns its last snapshot together with the
// leaving player's name, so the broker can notify a remaining opponent.
func (s *GameService) Leave(ctx context.Context, code, token string) (*models.Game, string, error) {
	g, err := s.games.GetByCode(ctx, code)
	if err != nil {
		return nil, "", err
	}
	if g == nil {
		return nil, "", ErrNotFound
	}
	seat := g.SeatForToken(token)
	if seat == models.Empty {
		return nil, "", ErrForbidden
	}

	if err := s.games.Delete(ctx, code); err != nil {
		return nil, "", err
	}
	return g, g.SeatName(seat), nil
}

// Get returns the game for a code.
func (s *GameService) Get(ctx context.Context, code string) (*models.Game, error) {
	g, err := s.games.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNotFound
	}
	return g, nil
}

// CleanupExpired removes games past the ttl; the gamesvc sweeper calls this
// on a ticker.
func (s *GameService) CleanupExpired(ctx context.Context, ttl time.Duration) (int64, error) {
	return s.games.DeleteExpired(ctx, ttl)
}

// playBotTurn lets the bot move when a bot game is still open and it is the
// bot's turn. Must run inside the same lock as the human action it follows.
func (s *GameService) playBotTurn(g *models.Game) error {
	bot := g.BotSeat()
	if bot == models.Empty || g.Status != models.StatusPlaying || g.CurrentTurn != bot {
		return nil
	}
	return engine.ApplyMove(g, s.bot.ChooseMove(g.Board, bot), bot)
}

// generateCode rejection-samples 6 uppercase letters until the code is not
// already held by a live game.
func (s *GameService) generateCode(ctx context.Context) (string, error) {
	for {
		b := make([]byte, codeLength)
		for i := range b {
			b[i] = codeLetters[rand.Intn(len(codeLetters))]
		}
		code := string(b)

		exists, err := s.games.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
}

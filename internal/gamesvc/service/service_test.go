package service

import (
	"context"
	"math/rand"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridline/tictac-services/internal/gamesvc/engine"
	"github.com/gridline/tictac-services/internal/gamesvc/models"
)

type fakeGameStore struct {
	mu     sync.Mutex
	games  map[string]*models.Game
	nextID int64
}

func newFakeGameStore() *fakeGameStore {
	return &fakeGameStore{games: make(map[string]*models.Game)}
}

func (f *fakeGameStore) Create(_ context.Context, g *models.Game) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	g.ID = f.nextID
	g.CreatedAt = time.Now()
	g.UpdatedAt = g.CreatedAt
	cp := *g
	f.games[g.Code] = &cp
	return nil
}

func (f *fakeGameStore) GetByCode(_ context.Context, code string) (*models.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.games[code]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (f *fakeGameStore) CodeExists(_ context.Context, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.games[code]
	return ok, nil
}

func (f *fakeGameStore) Locked(_ context.Context, code string, fn func(g *models.Game) error) (*models.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.games[code]
	if !ok {
		return nil, nil
	}
	cp := *g
	if err := fn(&cp); err != nil {
		return nil, err
	}
	cp.UpdatedAt = time.Now()
	f.games[code] = &cp
	out := cp
	return &out, nil
}

func (f *fakeGameStore) Delete(_ context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.games, code)
	return nil
}

func (f *fakeGameStore) DeleteExpired(_ context.Context, olderThan time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	cutoff := time.Now().Add(-olderThan)
	for code, g := range f.games {
		if g.CreatedAt.Before(cutoff) {
			delete(f.games, code)
			n++
		}
	}
	return n, nil
}

type fakeMessageStore struct {
	mu       sync.Mutex
	messages []*models.GameMessage
	nextID   int64
}

func (f *fakeMessageStore) Create(_ context.Context, m *models.GameMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	m.ID = f.nextID
	m.CreatedAt = time.Now()
	cp := *m
	f.messages = append(f.messages, &cp)
	return nil
}

func (f *fakeMessageStore) ListByGame(_ context.Context, gameID int64) ([]*models.GameMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.GameMessage
	for _, m := range f.messages {
		if m.GameID == gameID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func newTestService() (*GameService, *fakeGameStore, *fakeMessageStore) {
	games := newFakeGameStore()
	messages := &fakeMessageStore{}
	bot := engine.NewBot(rand.New(rand.NewSource(1)))
	return NewGameService(games, messages, bot), games, messages
}

func createOnlinePair(t *testing.T) (*GameService, *models.Game, string, string) {
	t.Helper()
	svc, _, _ := newTestService()
	ctx := context.Background()

	g, err := svc.Create(ctx, CreateParams{PlayerName: "Alice", Mode: models.ModeOnline, TimerSetting: "off"})
	require.NoError(t, err)
	xToken := g.PlayerXToken

	g, _, err = svc.Join(ctx, g.Code, "Bob")
	require.NoError(t, err)
	return svc, g, xToken, g.PlayerOToken
}

func TestCreateOnlineGame(t *testing.T) {
	svc, _, _ := newTestService()

	g, err := svc.Create(context.Background(), CreateParams{PlayerName: "Alice", Mode: models.ModeOnline, TimerSetting: "10"})
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^[A-Z]{6}$`), g.Code)
	assert.Equal(t, models.StatusWaiting, g.Status)
	assert.Equal(t, "Alice", g.PlayerXName)
	assert.NotEmpty(t, g.PlayerXToken)
	assert.Empty(t, g.PlayerOName)
	assert.True(t, g.TurnStartedAt.IsZero())
}

func TestCreateBotGameIsImmediatelyPlayable(t *testing.T) {
	svc, _, _ := newTestService()

	g, err := svc.Create(context.Background(), CreateParams{PlayerName: "Alice", Mode: models.ModeBot, TimerSetting: "off"})
	require.NoError(t, err)

	assert.Equal(t, models.StatusPlaying, g.Status)
	assert.Equal(t, models.BotName, g.PlayerOName)
	assert.Equal(t, models.X, g.CurrentTurn)
	assert.False(t, g.TurnStartedAt.IsZero())
}

func TestCreateRejectsBadInput(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateParams{PlayerName: "", Mode: models.ModeBot, TimerSetting: "off"})
	assert.ErrorIs(t, err, ErrBadRequest)

	_, err = svc.Create(ctx, CreateParams{PlayerName: "Alice", Mode: "tournament", TimerSetting: "off"})
	assert.ErrorIs(t, err, ErrBadRequest)

	_, err = svc.Create(ctx, CreateParams{PlayerName: "Alice", Mode: models.ModeBot, TimerSetting: "7"})
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestJoinSeatsSecondPlayer(t *testing.T) {
	svc, _, messages := newTestService()
	ctx := context.Background()

	g, err := svc.Create(ctx, CreateParams{PlayerName: "Alice", Mode: models.ModeOnline, TimerSetting: "off"})
	require.NoError(t, err)

	joined, sysMsg, err := svc.Join(ctx, g.Code, "Bob")
	require.NoError(t, err)

	assert.Equal(t, models.StatusPlaying, joined.Status)
	assert.Equal(t, "Bob", joined.PlayerOName)
	assert.NotEmpty(t, joined.PlayerOToken)
	assert.False(t, joined.TurnStartedAt.IsZero())

	require.NotNil(t, sysMsg)
	assert.True(t, sysMsg.IsSystem)
	assert.Equal(t, "Bob joined the game", sysMsg.Content)
	stored, err := messages.ListByGame(ctx, joined.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
}

func TestJoinUnknownOrFullGame(t *testing.T) {
	svc, g, _, _ := createOnlinePair(t)
	ctx := context.Background()

	_, _, err := svc.Join(ctx, "ZZZZZZ", "Eve")
	assert.ErrorIs(t, err, ErrNotFound)

	// Already playing: no seat left.
	_, _, err = svc.Join(ctx, g.Code, "Eve")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMoveAuthorizesByToken(t *testing.T) {
	svc, g, xToken, _ := createOnlinePair(t)
	ctx := context.Background()

	_, _, err := svc.Move(ctx, g.Code, "not-a-token", 0)
	assert.ErrorIs(t, err, ErrForbidden)

	updated, acting, err := svc.Move(ctx, g.Code, xToken, 0)
	require.NoError(t, err)
	assert.Equal(t, models.X, acting)
	assert.Equal(t, models.X, updated.Board[0])
	assert.Equal(t, models.O, updated.CurrentTurn)
}

func TestMoveRejectsOutOfTurnWithoutMutation(t *testing.T) {
	svc, g, _, oToken := createOnlinePair(t)
	ctx := context.Background()

	_, _, err := svc.Move(ctx, g.Code, oToken, 0)
	require.ErrorIs(t, err, engine.ErrInvalidMove)

	current, err := svc.Get(ctx, g.Code)
	require.NoError(t, err)
	assert.Equal(t, models.Board{}, current.Board)
	assert.Equal(t, models.X, current.CurrentTurn)
}

func TestMoveToWin(t *testing.T) {
	svc, g, xToken, oToken := createOnlinePair(t)
	ctx := context.Background()

	// X takes the top row while O plays the middle one.
	for _, m := range []struct {
		token string
		pos   int
	}{
		{xToken, 0}, {oToken, 3}, {xToken, 1}, {oToken, 4},
	} {
		_, _, err := svc.Move(ctx, g.Code, m.token, m.pos)
		require.NoError(t, err)
	}

	final, _, err := svc.Move(ctx, g.Code, xToken, 2)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, final.Status)
	assert.Equal(t, "X", final.Winner)
	assert.Equal(t, 1, final.PlayerXScore)
	assert.Equal(t, 0, final.PlayerOScore)
}

func TestBotRepliesUnderSameAction(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	g, err := svc.Create(ctx, CreateParams{PlayerName: "Alice", Mode: models.ModeBot, TimerSetting: "off"})
	require.NoError(t, err)

	updated, _, err := svc.Move(ctx, g.Code, g.PlayerXToken, 0)
	require.NoError(t, err)

	// The bot has already answered: two marks on the board, X to move again.
	assert.Equal(t, models.X, updated.Board[0])
	assert.Equal(t, models.O, updated.Board[4], "bot takes the center")
	assert.Equal(t, models.X, updated.CurrentTurn)
	assert.Equal(t, models.StatusPlaying, updated.Status)
}

func TestRematchRequestAndAcceptSwapsSides(t *testing.T) {
	svc, g, xToken, oToken := createOnlinePair(t)
	ctx := context.Background()

	// X wins the round first.
	for _, m := range []struct {
		token string
		pos   int
	}{
		{xToken, 0}, {oToken, 3}, {xToken, 1}, {oToken, 4}, {xToken, 2},
	} {
		_, _, err := svc.Move(ctx, g.Code, m.token, m.pos)
		require.NoError(t, err)
	}

	requested, err := svc.RequestRematch(ctx, g.Code, xToken)
	require.NoError(t, err)
	assert.Equal(t, models.X, requested.RematchRequestedBy)
	assert.Equal(t, models.StatusFinished, requested.Status)

	// The requester cannot accept their own request.
	_, err = svc.AcceptRematch(ctx, g.Code, xToken)
	assert.ErrorIs(t, err, ErrForbidden)

	accepted, err := svc.AcceptRematch(ctx, g.Code, oToken)
	require.NoError(t, err)

	assert.Equal(t, "Bob", accepted.PlayerXName)
	assert.Equal(t, "Alice", accepted.PlayerOName)
	assert.Equal(t, 0, accepted.PlayerXScore, "Bob's score moved with him")
	assert.Equal(t, 1, accepted.PlayerOScore, "Alice keeps her win on the O side")
	assert.Equal(t, models.StatusPlaying, accepted.Status)
	assert.Equal(t, models.Board{}, accepted.Board)
	assert.Equal(t, models.Empty, accepted.RematchRequestedBy)

	// The old tokens now resolve to the swapped seats.
	assert.Equal(t, models.O, accepted.SeatForToken(xToken))
	assert.Equal(t, models.X, accepted.SeatForToken(oToken))
}

func TestRematchRequiresFinishedGame(t *testing.T) {
	svc, g, xToken, _ := createOnlinePair(t)

	_, err := svc.RequestRematch(context.Background(), g.Code, xToken)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestBotRematchResetsImmediately(t *testing.T) {
	svc, games, _ := newTestService()
	ctx := context.Background()

	g, err := svc.Create(ctx, CreateParams{PlayerName: "Alice", Mode: models.ModeBot, TimerSetting: "off"})
	require.NoError(t, err)

	// Force a finished round.
	_, err = games.Locked(ctx, g.Code, func(g *models.Game) error {
		g.Status = models.StatusFinished
		g.Winner = models.WinnerDraw
		return nil
	})
	require.NoError(t, err)

	reset, err := svc.RequestRematch(ctx, g.Code, g.PlayerXToken)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPlaying, reset.Status)
	assert.Empty(t, reset.Winner)
	assert.Equal(t, models.Board{}, reset.Board)
}

func TestForfeitAwardsOpponent(t *testing.T) {
	svc, g, xToken, _ := createOnlinePair(t)

	final, err := svc.Forfeit(context.Background(), g.Code, xToken)
	require.NoError(t, err)

	assert.Equal(t, models.StatusFinished, final.Status)
	assert.Equal(t, "O", final.Winner)
	assert.Equal(t, 1, final.PlayerOScore)
	assert.Equal(t, 0, final.PlayerXScore)
}

func TestChangeTimerRestrictedToXBetweenRounds(t *testing.T) {
	svc, g, xToken, oToken := createOnlinePair(t)
	ctx := context.Background()

	// Game is playing: even X may not touch the timer.
	_, err := svc.ChangeTimer(ctx, g.Code, xToken, "30")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Forfeit(ctx, g.Code, oToken)
	require.NoError(t, err)

	_, err = svc.ChangeTimer(ctx, g.Code, oToken, "30")
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := svc.ChangeTimer(ctx, g.Code, xToken, "30")
	require.NoError(t, err)
	assert.Equal(t, "30", updated.TimerSetting)

	_, err = svc.ChangeTimer(ctx, g.Code, xToken, "12")
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestLeaveDeletesGame(t *testing.T) {
	svc, g, _, oToken := createOnlinePair(t)
	ctx := context.Background()

	snapshot, name, err := svc.Leave(ctx, g.Code, oToken)
	require.NoError(t, err)
	assert.Equal(t, "Bob", name)
	assert.Equal(t, g.Code, snapshot.Code)

	_, err = svc.Get(ctx, g.Code)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCleanupExpired(t *testing.T) {
	svc, games, _ := newTestService()
	ctx := context.Background()

	g, err := svc.Create(ctx, CreateParams{PlayerName: "Alice", Mode: models.ModeBot, TimerSetting: "off"})
	require.NoError(t, err)

	games.mu.Lock()
	games.games[g.Code].CreatedAt = time.Now().Add(-2 * time.Hour)
	games.mu.Unlock()

	n, err := svc.CleanupExpired(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestGeneratedCodesAreUnique(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 25; i++ {
		g, err := svc.Create(ctx, CreateParams{PlayerName: "Alice", Mode: models.ModeBot, TimerSetting: "off"})
		require.NoError(t, err)
		require.False(t, seen[g.Code], "duplicate code %s", g.Code)
		seen[g.Code] = true
	}
}

func TestChatSendAndHistory(t *testing.T) {
	games := newFakeGameStore()
	messages := &fakeMessageStore{}
	bot := engine.NewBot(rand.New(rand.NewSource(1)))
	gameSvc := NewGameService(games, messages, bot)
	chatSvc := NewChatService(games, messages)
	ctx := context.Background()

	g, err := gameSvc.Create(ctx, CreateParams{PlayerName: "Alice", Mode: models.ModeOnline, TimerSetting: "off"})
	require.NoError(t, err)
	g, _, err = gameSvc.Join(ctx, g.Code, "Bob")
	require.NoError(t, err)

	m, err := chatSvc.Send(ctx, g.Code, g.PlayerOToken, "good luck")
	require.NoError(t, err)
	assert.Equal(t, "Bob", m.PlayerName)
	assert.Equal(t, models.O, m.PlayerSymbol)
	assert.False(t, m.IsSystem)

	_, err = chatSvc.Send(ctx, g.Code, "bogus", "hi")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = chatSvc.Send(ctx, g.Code, g.PlayerOToken, "")
	assert.ErrorIs(t, err, ErrBadRequest)

	history, err := chatSvc.History(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, history, 2, "join notice plus one chat line")
	assert.True(t, history[0].IsSystem)
	assert.Equal(t, "good luck", history[1].Content)
}

package broker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/gridline/tictac-services/internal/comm"
	"github.com/gridline/tictac-services/internal/gamesvc/engine"
	"github.com/gridline/tictac-services/internal/gamesvc/models"
	"github.com/gridline/tictac-services/internal/gamesvc/service"
)

const handlerTimeout = 10 * time.Second

// Broker consumes player actions forwarded by the socket service, drives
// the game and chat services, and publishes the resulting events back for
// delivery to connected clients.
type Broker struct {
	Conn        *nats.Conn
	GameService *service.GameService
	ChatService *service.ChatService
}

func NewBroker(nc *nats.Conn, gameService *service.GameService, chatService *service.ChatService) *Broker {
	return &Broker{
		Conn:        nc,
		GameService: gameService,
		ChatService: chatService,
	}
}

// SubscribeSocketService consumes action messages from the socket service.
func (b *Broker) SubscribeSocketService(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleMessage)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// handleMessage dispatches one action from a web client.
func (b *Broker) handleMessage(msgNat *nats.Msg) {
	msg := &comm.WSMessage{}
	if err := json.Unmarshal(msgNat.Data, msg); err != nil {
		log.Errorf("Error nats message %s", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	switch msg.Type {
	case "create-game":
		b.handleCreateGame(ctx, msg)
	case "join-game":
		b.handleJoinGame(ctx, msg)
	case "make-move":
		b.handleMakeMove(ctx, msg)
	case "request-rematch":
		b.handleRequestRematch(ctx, msg)
	case "accept-rematch":
		b.handleAcceptRematch(ctx, msg)
	case "forfeit":
		b.handleForfeit(ctx, msg)
	case "change-timer":
		b.handleChangeTimer(ctx, msg)
	case "leave-game":
		b.handleLeaveGame(ctx, msg)
	case "chat":
		b.handleChat(ctx, msg)
	case "get-game":
		b.handleGetGame(ctx, msg)
	default:
		log.Warnf("unknown message type: %s", msg.Type)
	}
}

func (b *Broker) handleCreateGame(ctx context.Context, msg *comm.WSMessage) {
	var request struct {
		PlayerName   string `json:"player_name"`
		Mode         string `json:"mode"`
		TimerSetting string `json:"timer_setting"`
	}
	if err := json.Unmarshal(msg.Data, &request); err != nil {
		log.Errorf("Error decoding create-game: %s", err)
		return
	}

	g, err := b.GameService.Create(ctx, service.CreateParams{
		PlayerName:   request.PlayerName,
		Mode:         request.Mode,
		TimerSetting: request.TimerSetting,
	})
	if err != nil {
		b.publishError(msg.SocketId, err)
		return
	}

	b.publishTo(msg.SocketId, "create-game-response", comm.SeatData{
		Game:   comm.ToGamePayload(g),
		Symbol: string(models.X),
		Token:  g.PlayerXToken,
	})
}

func (b *Broker) handleJoinGame(ctx context.Context, msg *comm.WSMessage) {
	var request struct {
		Code       string `json:"code"`
		PlayerName string `json:"player_name"`
	}
	if err := json.Unmarshal(msg.Data, &request); err != nil {
		log.Errorf("Error decoding join-game: %s", err)
		return
	}

	g, sysMsg, err := b.GameService.Join(ctx, request.Code, request.PlayerName)
	if err != nil {
		b.publishError(msg.SocketId, err)
		return
	}

	payload := comm.ToGamePayload(g)
	b.publishTo(msg.SocketId, "join-game-response", comm.SeatData{
		Game:   payload,
		Symbol: string(models.O),
		Token:  g.PlayerOToken,
	})
	b.broadcast(g.Code, msg.SocketId, "player-joined", comm.PlayerEventData{
		PlayerName: g.PlayerOName,
		Game:       &payload,
	})
	b.broadcast(g.Code, msg.SocketId, "chat-message", comm.ToMessagePayload(sysMsg))
}

func (b *Broker) handleMakeMove(ctx context.Context, msg *comm.WSMessage) {
	var request struct {
		Code     string `json:"code"`
		Token    string `json:"token"`
		Position int    `json:"position"`
	}
	if err := json.Unmarshal(msg.Data, &request); err != nil {
		log.Errorf("Error decoding make-move: %s", err)
		return
	}

	g, _, err := b.GameService.Move(ctx, request.Code, request.Token, request.Position)
	if err != nil {
		b.publishError(msg.SocketId, err)
		return
	}

	b.publishGameUpdated(g, msg.SocketId)
}

func (b *Broker) handleRequestRematch(ctx context.Context, msg *comm.WSMessage) {
	var request struct {
		Code  string `json:"code"`
		Token string `json:"token"`
	}
	if err := json.Unmarshal(msg.Data, &request); err != nil {
		log.Errorf("Error decoding request-rematch: %s", err)
		return
	}

	g, err := b.GameService.RequestRematch(ctx, request.Code, request.Token)
	if err != nil {
		b.publishError(msg.SocketId, err)
		return
	}

	b.publishGameUpdated(g, msg.SocketId)
}

func (b *Broker) handleAcceptRematch(ctx context.Context, msg *comm.WSMessage) {
	var request struct {
		Code  string `json:"code"`
		Token string `json:"token"`
	}
	if err := json.Unmarshal(msg.Data, &request); err != nil {
		log.Errorf("Error decoding accept-rematch: %s", err)
		return
	}

	g, err := b.GameService.AcceptRematch(ctx, request.Code, request.Token)
	if err != nil {
		b.publishError(msg.SocketId, err)
		return
	}

	b.publishGameUpdated(g, msg.SocketId)
}

func (b *Broker) handleForfeit(ctx context.Context, msg *comm.WSMessage) {
	var request struct {
		Code  string `json:"code"`
		Token string `json:"token"`
	}
	if err := json.Unmarshal(msg.Data, &request); err != nil {
		log.Errorf("Error decoding forfeit: %s", err)
		return
	}

	g, err := b.GameService.Forfeit(ctx, request.Code, request.Token)
	if err != nil {
		b.publishError(msg.SocketId, err)
		return
	}

	b.publishGameUpdated(g, msg.SocketId)
}

func (b *Broker) handleChangeTimer(ctx context.Context, msg *comm.WSMessage) {
	var request struct {
		Code         string `json:"code"`
		Token        string `json:"token"`
		TimerSetting string `json:"timer_setting"`
	}
	if err := json.Unmarshal(msg.Data, &request); err != nil {
		log.Errorf("Error decoding change-timer: %s", err)
		return
	}

	g, err := b.GameService.ChangeTimer(ctx, request.Code, request.Token, request.TimerSetting)
	if err != nil {
		b.publishError(msg.SocketId, err)
		return
	}

	b.publishGameUpdated(g, msg.SocketId)
}

func (b *Broker) handleLeaveGame(ctx context.Context, msg *comm.WSMessage) {
	var request struct {
		Code  string `json:"code"`
		Token string `json:"token"`
	}
	if err := json.Unmarshal(msg.Data, &request); err != nil {
		log.Errorf("Error decoding leave-game: %s", err)
		return
	}

	g, playerName, err := b.GameService.Leave(ctx, request.Code, request.Token)
	if err != nil {
		b.publishError(msg.SocketId, err)
		return
	}

	// Bot games just disappear; online games tell the remaining player.
	if g.Mode == models.ModeOnline {
		b.broadcast(g.Code, msg.SocketId, "player-left", comm.PlayerEventData{
			PlayerName: playerName,
		})
	}
	b.publishTo(msg.SocketId, "leave-game-response", comm.AckData{OK: true})
}

func (b *Broker) handleChat(ctx context.Context, msg *comm.WSMessage) {
	var request struct {
		Code    string `json:"code"`
		Token   string `json:"token"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(msg.Data, &request); err != nil {
		log.Errorf("Error decoding chat: %s", err)
		return
	}

	m, err := b.ChatService.Send(ctx, request.Code, request.Token, request.Content)
	if err != nil {
		b.publishError(msg.SocketId, err)
		return
	}

	payload := comm.ToMessagePayload(m)
	b.publishTo(msg.SocketId, "chat-message", payload)
	b.broadcast(request.Code, msg.SocketId, "chat-message", payload)
}

func (b *Broker) handleGetGame(ctx context.Context, msg *comm.WSMessage) {
	var request struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(msg.Data, &request); err != nil {
		log.Errorf("Error decoding get-game: %s", err)
		return
	}

	g, err := b.GameService.Get(ctx, request.Code)
	if err != nil {
		b.publishError(msg.SocketId, err)
		return
	}
	history, err := b.ChatService.History(ctx, g.ID)
	if err != nil {
		b.publishError(msg.SocketId, err)
		return
	}

	b.publishTo(msg.SocketId, "game-state", comm.GameData{
		Game:     comm.ToGamePayload(g),
		Messages: comm.ToMessagePayloads(history),
	})
}

// publishGameUpdated answers the acting socket and notifies the rest of the
// room with the same public projection.
func (b *Broker) publishGameUpdated(g *models.Game, actingSocketId string) {
	payload := comm.ToGamePayload(g)
	b.publishTo(actingSocketId, "game-updated", payload)
	b.broadcast(g.Code, actingSocketId, "game-updated", payload)
}

func (b *Broker) publishError(socketId string, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrBadRequest),
		errors.Is(err, engine.ErrInvalidMove):
		// expected rejections go straight back to the acting client
	default:
		log.Errorf("Error handling game action: %s", err)
	}
	b.publishTo(socketId, "error", comm.ErrorData{Error: err.Error()})
}

package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/gridline/tictac-services/internal/comm"
	"github.com/gridline/tictac-services/internal/socketsvc/broker"
)

// Ws keeps the live socket registries: which connection a socket id maps to
// and which game room (code) each socket watches.
type Ws struct {
	connMap sync.Map // socketId -> *websocket.Conn
	roomMap sync.Map // socketId -> game code
	Broker  *broker.Broker
}

func NewWs() *Ws {
	return &Ws{}
}

// gameActions are the message types forwarded to the game service.
var gameActions = map[string]bool{
	"create-game":     true,
	"join-game":       true,
	"make-move":       true,
	"request-rematch": true,
	"accept-rematch":  true,
	"forfeit":         true,
	"change-timer":    true,
	"leave-game":      true,
	"chat":            true,
	"get-game":        true,
}

// SocketMessage handles one message from a web client.
func (s *Ws) SocketMessage(socketId string, message *comm.WSMessage) {
	switch {
	case message.Type == "subscribe-game":
		s.handleSubscribe(socketId, message)
	case gameActions[message.Type]:
		s.forward(socketId, message)
		if message.Type == "leave-game" {
			s.roomMap.Delete(socketId)
		}
	default:
		log.Warnf("unknown event received: %s", message.Type)
	}
}

// handleSubscribe puts the socket in a game room so broadcasts reach it.
// The game code itself acts as authorization.
func (s *Ws) handleSubscribe(socketId string, msg *comm.WSMessage) {
	var payload struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		log.Errorf("Error: malformed subscribe-game payload %s", err)
		return
	}
	if payload.Code == "" {
		log.Error("Invalid subscribe-game payload: missing game code")
		return
	}

	s.StoreRoom(socketId, payload.Code)
	log.Infof("socket %s subscribed to game %s", socketId, payload.Code)
}

// forward stamps the socket id on the message and hands it to the game
// service over NATS.
func (s *Ws) forward(socketId string, msg *comm.WSMessage) {
	msg.SocketId = socketId

	bytes, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Failed to marshal WSMessage for NATS: %v", err)
		return
	}

	topic := "socket.service"
	if err := s.Broker.Publish(topic, bytes); err != nil {
		log.Errorf("Failed to publish to NATS topic %s: %v", topic, err)
		return
	}

	log.Debugf("forwarded %s from socket %s to topic %s", msg.Type, socketId, topic)
}

func (s *Ws) StoreConnection(socketId string, conn *websocket.Conn) {
	s.connMap.Store(socketId, conn)
}

func (s *Ws) GetConnection(socketId string) (*websocket.Conn, bool) {
	conn, ok := s.connMap.Load(socketId)
	if !ok {
		return nil, false
	}
	return conn.(*websocket.Conn), true
}

func (s *Ws) StoreRoom(socketId string, roomId string) {
	s.roomMap.Store(socketId, roomId)
}

func (s *Ws) GetRoom(socketId string) (string, bool) {
	room, ok := s.roomMap.Load(socketId)
	if !ok {
		return "", false
	}
	return room.(string), true
}

// GetRoomSockets lists every socket watching the given game.
func (s *Ws) GetRoomSockets(roomId string) ([]string, bool) {
	var sockets []string
	found := false

	s.roomMap.Range(func(key, value interface{}) bool {
		if value.(string) == roomId {
			sockets = append(sockets, key.(string))
			found = true
		}
		return true // continue iterating
	})

	return sockets, found
}

// HandleDisconnect drops a closed socket from both registries.
func (s *Ws) HandleDisconnect(socketId string) {
	s.connMap.Delete(socketId)
	s.roomMap.Delete(socketId)
}

package broker

import (
	"encoding/json"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/gridline/tictac-services/internal/comm"
)

// Broker receives events from the game service and delivers them to web
// clients. Room-scoped events fan out to every socket in the game's room
// except the acting socket; direct replies go to one socket.
type Broker struct {
	Conn           *nats.Conn
	GetConnection  func(string) (*websocket.Conn, bool)
	GetRoomSockets func(string) ([]string, bool)
}

func NewBroker(conn *nats.Conn, fncGetConnection func(string) (*websocket.Conn, bool), fncGetRoomSockets func(string) ([]string, bool)) *Broker {
	return &Broker{
		Conn:           conn,
		GetConnection:  fncGetConnection,
		GetRoomSockets: fncGetRoomSockets,
	}
}

// Subscribe consumes events published by the game service.
func (b *Broker) Subscribe(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleMessages)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// Publish forwards a client action to the game service.
func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}

// handleMessages receives one event from the game service.
func (b *Broker) handleMessages(msgNats *nats.Msg) {
	message := &comm.WSMessage{}
	err := json.Unmarshal(msgNats.Data, &message)
	if err != nil {
		log.Errorf("Error %s", err)
		return
	}

	if message.Room != "" {
		b.broadcastToRoom(message)
		return
	}
	b.sendMessage(message, message.SocketId)
}

// broadcastToRoom delivers a game event to everyone watching the game
// except the socket that triggered it.
func (b *Broker) broadcastToRoom(m *comm.WSMessage) {
	sockets, ok := b.GetRoomSockets(m.Room)
	if !ok {
		return
	}
	for _, socketId := range sockets {
		if socketId == m.Exclude {
			continue
		}
		b.sendMessage(m, socketId)
	}
}

// sendMessage writes the message to one web client.
func (b *Broker) sendMessage(m *comm.WSMessage, socketId string) {
	if conn, ok := b.GetConnection(socketId); ok {
		if err := conn.WriteJSON(m); err != nil {
			log.Println(err)
		}
	}
}

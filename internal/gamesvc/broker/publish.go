package broker

import (
	"encoding/json"

	log "github.com/sirupsen/logrus"

	"github.com/gridline/tictac-services/internal/comm"
)

// gameServiceTopic carries everything headed for the socket service.
const gameServiceTopic = "game.service"

// publishTo sends a direct reply to one socket.
func (b *Broker) publishTo(socketId, msgType string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Errorf("Error marshaling %s payload: %s", msgType, err)
		return
	}

	b.publish(&comm.WSMessage{
		Type:     msgType,
		Data:     data,
		SocketId: socketId,
	})
}

// broadcast sends a room-scoped event to every socket subscribed to the
// game except the acting one.
func (b *Broker) broadcast(room, excludeSocketId, msgType string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Errorf("Error marshaling %s payload: %s", msgType, err)
		return
	}

	b.publish(&comm.WSMessage{
		Type:    msgType,
		Data:    data,
		Room:    room,
		Exclude: excludeSocketId,
	})
}

func (b *Broker) publish(msg *comm.WSMessage) {
	bytes, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Error marshaling WSMessage: %s", err)
		return
	}
	if err := b.Conn.Publish(gameServiceTopic, bytes); err != nil {
		log.Errorf("Error publishing to topic %s: %s", gameServiceTopic, err)
	}
}

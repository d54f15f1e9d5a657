package eventbus

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wireMessage is the envelope written to dashboard websocket clients so a
// single connection can carry both topics.
type wireMessage struct {
	Topic string      `json:"topic"`
	Data  interface{} `json:"data"`
}

// ServeWebsocket upgrades the connection and streams both topics to it
// until the client disconnects or the write fails.
func (b *Bus) ServeWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	sub := b.Subscribe()
	defer sub.Close()

	for {
		select {
		case update, ok := <-sub.LocationUpdates:
			if !ok {
				return
			}
			if err := writeJSON(conn, "location-updates", update, b.log); err != nil {
				return
			}
		case event, ok := <-sub.GeofenceEvents:
			if !ok {
				return
			}
			if err := writeJSON(conn, "geofence-events", event, b.log); err != nil {
				return
			}
		}
	}
}

func writeJSON(conn *websocket.Conn, topic string, data interface{}, log zerolog.Logger) error {
	payload, err := json.Marshal(wireMessage{Topic: topic, Data: data})
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("marshal websocket payload failed")
		return nil
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}

package ingress

import (
	"context"
	"encoding/json"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"geofence-service/internal/wire"
)

// mqttPingPayload is the wire shape a vehicle telematics unit publishes on
// the configured topic, mirroring PingRequest but with string identifiers
// since MQTT payloads carry no native UUID type.
type mqttPingPayload struct {
	VehicleID string             `json:"vehicleId"`
	TripID    string             `json:"tripId"`
	Lat       float64            `json:"lat"`
	Lon       float64            `json:"lon"`
	SpeedKmh  float64            `json:"speed"`
	Timestamp wire.LocalDateTime `json:"timestamp"`
}

// MQTTIngress subscribes to a broker topic and feeds every well-formed
// ping into the dispatcher's async path, giving vehicles a push-based
// alternative to the HTTP ingress endpoints.
type MQTTIngress struct {
	client     mqtt.Client
	dispatcher *Dispatcher
	topic      string
	log        zerolog.Logger
}

// NewMQTTIngress connects to brokerURL and returns an MQTTIngress ready to
// Start subscribing. The connection is established eagerly so a
// misconfigured broker fails fast at startup rather than on first message.
func NewMQTTIngress(brokerURL, clientID, topic string, d *Dispatcher, log zerolog.Logger) (*MQTTIngress, error) {
	ingress := &MQTTIngress{dispatcher: d, topic: topic, log: log}

	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true)
	opts.SetDefaultPublishHandler(ingress.handleMessage)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	ingress.client = client
	return ingress, nil
}

// Start subscribes to the configured topic. Each message is decoded and
// dispatched asynchronously; malformed payloads are logged and dropped.
func (m *MQTTIngress) Start() error {
	token := m.client.Subscribe(m.topic, 1, m.handleMessage)
	token.Wait()
	return token.Error()
}

func (m *MQTTIngress) handleMessage(client mqtt.Client, msg mqtt.Message) {
	var payload mqttPingPayload
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		m.log.Warn().Err(err).Msg("mqtt ping payload decode failed")
		return
	}

	vehicleID, err := uuid.Parse(payload.VehicleID)
	if err != nil {
		m.log.Warn().Err(err).Str("raw", payload.VehicleID).Msg("mqtt ping vehicleId invalid")
		return
	}
	tripID, err := uuid.Parse(payload.TripID)
	if err != nil {
		m.log.Warn().Err(err).Str("raw", payload.TripID).Msg("mqtt ping tripId invalid")
		return
	}

	m.dispatcher.Async(context.Background(), PingRequest{
		VehicleID: vehicleID,
		TripID:    tripID,
		Lat:       payload.Lat,
		Lon:       payload.Lon,
		SpeedKmh:  payload.SpeedKmh,
		Timestamp: payload.Timestamp.Time,
	})
}

// Stop disconnects from the broker, waiting up to the given number of
// milliseconds for in-flight acknowledgements to drain.
func (m *MQTTIngress) Stop(quiesceMs uint) {
	m.client.Disconnect(quiesceMs)
}

// Package eventbus fans out live location updates and typed geofence
// events to subscribers. Delivery is best-effort: a slow subscriber must
// never block a producer, so every publish is a non-blocking send with a
// default case that drops and logs.
package eventbus

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const subscriberBuffer = 32

type LocationUpdate struct {
	VehicleID       string    `json:"vehicleId"`
	TripID          string    `json:"tripId"`
	VehicleReg      string    `json:"vehicleReg"`
	Lat             float64   `json:"lat"`
	Lon             float64   `json:"lon"`
	SpeedKmh        float64   `json:"speed"`
	Timestamp       time.Time `json:"timestamp"`
	TripStatus      string    `json:"tripStatus"`
	TotalDistanceKm float64   `json:"totalDistanceKm"`
}

type GeofenceEvent struct {
	EventType  string    `json:"eventType"`
	VehicleID  string    `json:"vehicleId"`
	TripID     string    `json:"tripId"`
	VehicleReg string    `json:"vehicleReg"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	Timestamp  time.Time `json:"timestamp"`
}

type subscriber struct {
	locationUpdates chan LocationUpdate
	geofenceEvents  chan GeofenceEvent
}

// Bus is the in-process pub/sub hub for the two live topics. No durability:
// a subscriber only receives messages published after it subscribes.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[*subscriber]struct{}
	log         zerolog.Logger
}

func New(log zerolog.Logger) *Bus {
	return &Bus{
		subscribers: make(map[*subscriber]struct{}),
		log:         log,
	}
}

// Subscription is the handle returned to a caller of Subscribe.
type Subscription struct {
	LocationUpdates <-chan LocationUpdate
	GeofenceEvents  <-chan GeofenceEvent
	bus             *Bus
	sub             *subscriber
}

func (b *Bus) Subscribe() *Subscription {
	sub := &subscriber{
		locationUpdates: make(chan LocationUpdate, subscriberBuffer),
		geofenceEvents:  make(chan GeofenceEvent, subscriberBuffer),
	}
	b.mu.Lock()
	b.subscribers[sub] = struct{}{}
	b.mu.Unlock()
	return &Subscription{
		LocationUpdates: sub.locationUpdates,
		GeofenceEvents:  sub.geofenceEvents,
		bus:             b,
		sub:             sub,
	}
}

func (s *Subscription) Close() {
	s.bus.mu.Lock()
	delete(s.bus.subscribers, s.sub)
	s.bus.mu.Unlock()
	close(s.sub.locationUpdates)
	close(s.sub.geofenceEvents)
}

// PublishLocationUpdate broadcasts to every current subscriber without
// holding the subscriber-list lock across the sends.
func (b *Bus) PublishLocationUpdate(update LocationUpdate) {
	for _, sub := range b.snapshot() {
		select {
		case sub.locationUpdates <- update:
		default:
			b.log.Warn().Str("trip_id", update.TripID).Msg("location-updates subscriber full, dropping message")
		}
	}
}

// PublishGeofenceEvent broadcasts a typed transition, including the
// TRIP_STARTED and TRIP_RESET lifecycle notifications from AdminAPI.
func (b *Bus) PublishGeofenceEvent(event GeofenceEvent) {
	for _, sub := range b.snapshot() {
		select {
		case sub.geofenceEvents <- event:
		default:
			b.log.Warn().Str("event_type", event.EventType).Str("trip_id", event.TripID).Msg("geofence-events subscriber full, dropping message")
		}
	}
}

func (b *Bus) snapshot() []*subscriber {
	b.mu.RLock()
	defer b.mu.RUnlock()
	subs := make([]*subscriber, 0, len(b.subscribers))
	for s := range b.subscribers {
		subs = append(subs, s)
	}
	return subs
}

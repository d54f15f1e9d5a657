package notifier

import (
	"context"

	"github.com/rs/zerolog"
)

// LoggingNotifier is the default, dependency-free implementation: it logs
// every side effect instead of dispatching it. Used in development and in
// tests.
type LoggingNotifier struct {
	log zerolog.Logger
}

func NewLoggingNotifier(log zerolog.Logger) *LoggingNotifier {
	return &LoggingNotifier{log: log}
}

func (n *LoggingNotifier) PickupArrival(ctx context.Context, vehicleID, tripID string, lat, lon float64) {
	n.log.Info().
		Str("vehicle_id", vehicleID).
		Str("trip_id", tripID).
		Float64("lat", lat).
		Float64("lon", lon).
		Msg("pickup arrival notification")
}

func (n *LoggingNotifier) TripCompletion(ctx context.Context, vehicleID, tripID string) {
	n.log.Info().
		Str("vehicle_id", vehicleID).
		Str("trip_id", tripID).
		Msg("trip completion notification")
}

func (n *LoggingNotifier) AdminAlert(ctx context.Context, vehicleID, tripID, reason string) {
	n.log.Warn().
		Str("vehicle_id", vehicleID).
		Str("trip_id", tripID).
		Str("reason", reason).
		Msg("admin alert notification")
}

// Package coordinator orchestrates a single ping: it holds the trip's
// row-level lock for the shortest time possible, persists the location and
// resulting audit events atomically, then fans out notifications and live
// updates once the transaction has committed. It owns the trip state
// machine's transactional boundary.
package coordinator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"geofence-service/internal/engine"
	"geofence-service/internal/eventbus"
	"geofence-service/internal/geometry"
	"geofence-service/internal/model"
	"geofence-service/internal/notifier"
	"geofence-service/internal/staticdata"
	"geofence-service/internal/store"
)

// Ping is one accepted, validated location reading awaiting processing.
type Ping struct {
	VehicleID uuid.UUID
	TripID    uuid.UUID
	Lat       float64
	Lon       float64
	SpeedKmh  float64
	Timestamp time.Time
}

type Coordinator struct {
	store    store.Interface
	static   *staticdata.Provider
	notifier notifier.Notifier
	bus      *eventbus.Bus
	config   engine.Config
	log      zerolog.Logger
}

func New(s store.Interface, sd *staticdata.Provider, n notifier.Notifier, bus *eventbus.Bus, cfg engine.Config, log zerolog.Logger) *Coordinator {
	return &Coordinator{store: s, static: sd, notifier: n, bus: bus, config: cfg, log: log}
}

// ProcessPing implements the transactional boundary described for a single
// ping: load prior location outside the lock, lock and mutate the trip
// inside a transaction, then publish and notify once committed.
func (c *Coordinator) ProcessPing(ctx context.Context, ping Ping) (*model.Trip, error) {
	prevLocation, err := c.store.LatestLocation(ctx, ping.TripID)
	if err != nil {
		return nil, err
	}

	geofences, err := c.static.Geofences(ctx)
	if err != nil {
		return nil, err
	}

	var finalTrip *model.Trip
	var deferred []engine.Effect
	now := time.Now()

	err = c.store.WithinTrip(ctx, func(tx store.TxInterface) error {
		trip, err := tx.LoadTripForUpdate(ctx, ping.TripID)
		if err != nil {
			return err
		}

		locationLog := &model.LocationLog{
			VehicleID: ping.VehicleID,
			TripID:    ping.TripID,
			Lat:       ping.Lat,
			Lon:       ping.Lon,
			SpeedKmh:  ping.SpeedKmh,
			Timestamp: ping.Timestamp,
		}
		if err := tx.AppendLocation(ctx, locationLog); err != nil {
			return err
		}

		if prevLocation != nil {
			delta := geometry.DistanceMetres(
				geometry.Point{Lat: prevLocation.Lat, Lon: prevLocation.Lon},
				geometry.Point{Lat: ping.Lat, Lon: ping.Lon},
			) / 1000
			trip.TotalDistanceKm += delta
		}

		pickups, err := tx.PickupsForTrip(ctx, ping.TripID)
		if err != nil {
			return err
		}

		effects, err := engine.Evaluate(engine.Input{
			Trip:      trip,
			Pickups:   pickups,
			Geofences: geofences,
			Ping: engine.Ping{
				Lat:       ping.Lat,
				Lon:       ping.Lon,
				SpeedKmh:  ping.SpeedKmh,
				Timestamp: ping.Timestamp,
			},
			Config: c.config,
			Now:    now,
			ExistsEvent: func(kind model.EventKind) (bool, error) {
				return tx.ExistsEvent(ctx, ping.TripID, kind)
			},
		})
		if err != nil {
			return err
		}

		deferred = applyEffects(ctx, tx, trip, ping.VehicleID, ping.TripID, now, effects, c.log)

		if err := tx.SaveTrip(ctx, trip); err != nil {
			return err
		}

		finalTrip = trip
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.publishLocationUpdate(ctx, ping, finalTrip)
	c.runDeferred(ctx, ping.VehicleID, ping.TripID, ping.Lat, ping.Lon, deferred)

	return finalTrip, nil
}

// ManualClose closes a trip on admin request regardless of whether the
// closing point falls inside a geofence.
func (c *Coordinator) ManualClose(ctx context.Context, tripID uuid.UUID, lat, lon float64, reason string) (*model.Trip, error) {
	geofences, err := c.static.Geofences(ctx)
	if err != nil {
		return nil, err
	}

	var finalTrip *model.Trip
	var deferred []engine.Effect
	now := time.Now()

	err = c.store.WithinTrip(ctx, func(tx store.TxInterface) error {
		trip, err := tx.LoadTripForUpdate(ctx, tripID)
		if err != nil {
			return err
		}

		effects, err := engine.ManualClose(engine.ManualCloseInput{
			Trip:      trip,
			Lat:       lat,
			Lon:       lon,
			Reason:    reason,
			Geofences: geofences,
			Now:       now,
		})
		if err != nil {
			return err
		}

		deferred = applyEffects(ctx, tx, trip, trip.VehicleID, tripID, now, effects, c.log)

		if err := tx.SaveTrip(ctx, trip); err != nil {
			return err
		}

		finalTrip = trip
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.runDeferred(ctx, finalTrip.VehicleID, tripID, lat, lon, deferred)

	return finalTrip, nil
}

// applyEffects mutates trip and writes store-durable effects inside the
// active transaction. Audit-write failures are logged and swallowed per
// AUDIT_BEST_EFFORT policy; they never abort the transaction. Notify and
// Publish effects are returned for the caller to run after commit.
func applyEffects(ctx context.Context, tx store.TxInterface, trip *model.Trip, vehicleID, tripID uuid.UUID, now time.Time, effects []engine.Effect, log zerolog.Logger) []engine.Effect {
	var deferred []engine.Effect
	for _, effect := range effects {
		switch e := effect.(type) {
		case engine.MarkPickupArrived:
			if err := tx.MarkPickupArrived(ctx, e.PickupID); err != nil {
				log.Error().Err(err).Str("pickup_id", e.PickupID.String()).Msg("mark pickup arrived failed")
			}
		case engine.EmitEvent:
			event := &model.EventLog{
				VehicleID:      vehicleID,
				TripID:         &tripID,
				EventType:      e.Kind,
				Lat:            e.Lat,
				Lon:            e.Lon,
				EventTimestamp: now,
			}
			if err := tx.SaveEvent(ctx, event); err != nil {
				log.Error().Err(err).Str("event_type", string(e.Kind)).Msg("audit event write failed, swallowed under AUDIT_BEST_EFFORT")
			}
		case engine.SetOfficeEntry:
			trip.OfficeEntryTime = e.Time
		case engine.CompleteTrip:
			trip.Status = model.TripStatusCompleted
			endTime := e.EndTime
			trip.EndTime = &endTime
			duration := e.DurationMinutes
			trip.DurationMinutes = &duration
			trip.OfficeEntryTime = nil
		default:
			deferred = append(deferred, effect)
		}
	}
	return deferred
}

func (c *Coordinator) publishLocationUpdate(ctx context.Context, ping Ping, trip *model.Trip) {
	vehicle, err := c.static.VehicleByID(ctx, ping.VehicleID)
	reg := ""
	if err == nil && vehicle != nil {
		reg = vehicle.Registration
	}
	c.bus.PublishLocationUpdate(eventbus.LocationUpdate{
		VehicleID:       ping.VehicleID.String(),
		TripID:          ping.TripID.String(),
		VehicleReg:      reg,
		Lat:             ping.Lat,
		Lon:             ping.Lon,
		SpeedKmh:        ping.SpeedKmh,
		Timestamp:       ping.Timestamp,
		TripStatus:      string(trip.Status),
		TotalDistanceKm: trip.TotalDistanceKm,
	})
}

func (c *Coordinator) runDeferred(ctx context.Context, vehicleID, tripID uuid.UUID, lat, lon float64, deferred []engine.Effect) {
	vehicleIDStr := vehicleID.String()
	tripIDStr := tripID.String()

	vehicle, err := c.static.VehicleByID(ctx, vehicleID)
	reg := ""
	if err == nil && vehicle != nil {
		reg = vehicle.Registration
	}

	for _, effect := range deferred {
		switch e := effect.(type) {
		case engine.NotifyPickup:
			c.notifier.PickupArrival(ctx, vehicleIDStr, tripIDStr, e.Lat, e.Lon)
		case engine.NotifyCompletion:
			c.notifier.TripCompletion(ctx, vehicleIDStr, tripIDStr)
		case engine.NotifyAdminAlert:
			c.notifier.AdminAlert(ctx, vehicleIDStr, tripIDStr, e.Reason)
		case engine.PublishGeofence:
			c.bus.PublishGeofenceEvent(eventbus.GeofenceEvent{
				EventType:  string(e.Kind),
				VehicleID:  vehicleIDStr,
				TripID:     tripIDStr,
				VehicleReg: reg,
				Lat:        lat,
				Lon:        lon,
				Timestamp:  time.Now(),
			})
		}
	}
}

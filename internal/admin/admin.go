// Package admin implements geofence CRUD, manual trip closure, trip start,
// and full reset — the operator-facing surface that mutates configuration
// and recovers from stuck trips.
package admin

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"geofence-service/internal/coordinator"
	"geofence-service/internal/errs"
	"geofence-service/internal/eventbus"
	"geofence-service/internal/model"
	"geofence-service/internal/staticdata"
	"geofence-service/internal/store"
)

const minPolygonVertices = 3

// TRIP_STARTED and TRIP_RESET are event-bus notifications only, not part
// of the closed EventLog event-kind set audited to the database.
const (
	busEventTripStarted = "TRIP_STARTED"
	busEventTripReset   = "TRIP_RESET"
)

type Admin struct {
	store       store.Interface
	static      *staticdata.Provider
	coordinator *coordinator.Coordinator
	bus         *eventbus.Bus
	log         zerolog.Logger
}

func New(s store.Interface, sd *staticdata.Provider, c *coordinator.Coordinator, bus *eventbus.Bus, log zerolog.Logger) *Admin {
	return &Admin{store: s, static: sd, coordinator: c, bus: bus, log: log}
}

// CreateGeofence validates radius and polygon shape then invalidates the
// geofence cache so the next read picks up the new row.
func (a *Admin) CreateGeofence(ctx context.Context, g *model.OfficeGeofence) error {
	if err := validateGeofence(g); err != nil {
		return err
	}
	if err := a.store.CreateGeofence(ctx, g); err != nil {
		return err
	}
	a.static.InvalidateGeofences()
	return nil
}

func (a *Admin) UpdateGeofence(ctx context.Context, g *model.OfficeGeofence) error {
	if err := validateGeofence(g); err != nil {
		return err
	}
	if err := a.store.UpdateGeofence(ctx, g); err != nil {
		return err
	}
	a.static.InvalidateGeofences()
	return nil
}

func (a *Admin) DeleteGeofence(ctx context.Context, id uuid.UUID) error {
	if err := a.store.DeleteGeofence(ctx, id); err != nil {
		return err
	}
	a.static.InvalidateGeofences()
	return nil
}

func (a *Admin) ListGeofences(ctx context.Context) ([]model.OfficeGeofence, error) {
	return a.store.ListGeofences(ctx)
}

func validateGeofence(g *model.OfficeGeofence) error {
	if g.RadiusMeters <= 0 {
		return errs.New(errs.Validation, "radiusMeters must be > 0")
	}
	if g.Shape == model.ShapePolygon && len(g.Polygon) < minPolygonVertices {
		return errs.New(errs.Validation, "polygon shape requires at least 3 vertices")
	}
	return nil
}

// ManualClose delegates to the coordinator so the row lock, effect
// application, notifier fan-out, and event-bus publish all go through the
// same transactional boundary a ping does, rather than duplicating it here.
func (a *Admin) ManualClose(ctx context.Context, tripID uuid.UUID, lat, lon float64, reason string) (*model.Trip, error) {
	return a.coordinator.ManualClose(ctx, tripID, lat, lon, reason)
}

// StartTrip transitions a PENDING trip into IN_PROGRESS, stamping the
// start time and clearing any leftover derived state from a prior reset.
func (a *Admin) StartTrip(ctx context.Context, tripID uuid.UUID) (*model.Trip, error) {
	var started *model.Trip
	err := a.store.WithinTrip(ctx, func(tx store.TxInterface) error {
		trip, err := tx.LoadTripForUpdate(ctx, tripID)
		if err != nil {
			return err
		}
		if trip.Status != model.TripStatusPending {
			return errs.New(errs.AlreadyTerminal, "trip is not PENDING")
		}
		now := time.Now()
		trip.Status = model.TripStatusInProgress
		trip.StartTime = &now
		trip.EndTime = nil
		trip.DurationMinutes = nil
		trip.OfficeEntryTime = nil
		if err := tx.SaveTrip(ctx, trip); err != nil {
			return err
		}
		started = trip
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.bus.PublishGeofenceEvent(eventbus.GeofenceEvent{
		VehicleID: started.VehicleID.String(),
		TripID:    started.ID.String(),
		EventType: busEventTripStarted,
		Timestamp: time.Now(),
	})
	return started, nil
}

// ResetAll clears every trip's derived state and audit history back to
// PENDING, resets every pickup to PENDING, evicts the static caches, and
// publishes a TRIP_RESET event per trip.
func (a *Admin) ResetAll(ctx context.Context) error {
	trips, err := a.store.ListTrips(ctx)
	if err != nil {
		return err
	}
	if len(trips) == 0 {
		return errs.New(errs.Validation, "no trips to reset")
	}

	for _, trip := range trips {
		tripID := trip.ID
		var vehicleID uuid.UUID
		err := a.store.WithinTrip(ctx, func(tx store.TxInterface) error {
			t, err := tx.LoadTripForUpdate(ctx, tripID)
			if err != nil {
				return err
			}
			vehicleID = t.VehicleID
			return tx.ResetTrip(ctx, tripID)
		})
		if err != nil {
			a.log.Error().Err(err).Str("trip_id", tripID.String()).Msg("trip reset failed")
			continue
		}
		a.bus.PublishGeofenceEvent(eventbus.GeofenceEvent{
			VehicleID: vehicleID.String(),
			TripID:    tripID.String(),
			EventType: busEventTripReset,
			Timestamp: time.Now(),
		})
	}

	a.static.EvictAll()
	return nil
}

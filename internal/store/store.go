// Package store is the durable persistence layer: typed operations over
// vehicles, drivers, trips, pickups, geofences, location logs and event
// logs, plus the row-level locking primitive that serializes per-trip
// mutation.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"geofence-service/internal/errs"
	"geofence-service/internal/model"
)

// ErrNotFound mirrors gorm's not-found sentinel so callers outside this
// package never need to import gorm directly.
var ErrNotFound = gorm.ErrRecordNotFound

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Tx is the transaction-scoped view of the store handed to callers inside
// WithinTrip. Every method here participates in the enclosing transaction.
type Tx struct {
	db *gorm.DB
}

// WithinTrip opens a transaction and runs fn with a Tx bound to it. Callers
// use tx.LoadTripForUpdate as the serialization point for the trip they are
// about to mutate.
func (s *Store) WithinTrip(ctx context.Context, fn func(tx TxInterface) error) error {
	return s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&Tx{db: gtx})
	})
}

// LoadTripForUpdate acquires a row-level exclusive lock on the trip, held
// until the enclosing transaction commits or rolls back.
func (tx *Tx) LoadTripForUpdate(ctx context.Context, tripID uuid.UUID) (*model.Trip, error) {
	var trip model.Trip
	err := tx.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", tripID).
		First(&trip).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.New(errs.NotFound, "trip not found")
	}
	if err != nil {
		return nil, errs.Wrap(errs.StorageTransient, "load trip for update", err)
	}
	return &trip, nil
}

func (tx *Tx) SaveTrip(ctx context.Context, trip *model.Trip) error {
	if err := tx.db.WithContext(ctx).Save(trip).Error; err != nil {
		return errs.Wrap(errs.StorageTransient, "save trip", err)
	}
	return nil
}

// AppendLocation is insert-only.
func (tx *Tx) AppendLocation(ctx context.Context, log *model.LocationLog) error {
	if err := tx.db.WithContext(ctx).Create(log).Error; err != nil {
		return errs.Wrap(errs.StorageTransient, "append location", err)
	}
	return nil
}

// SaveEvent is insert-only; failures are reported with AuditBestEffort so
// callers can swallow them without rolling back the trip mutation. The
// insert runs inside a savepoint, so a failed insert is rolled back to that
// savepoint and leaves the enclosing transaction usable.
func (tx *Tx) SaveEvent(ctx context.Context, event *model.EventLog) error {
	err := tx.db.WithContext(ctx).Transaction(func(sp *gorm.DB) error {
		return sp.Create(event).Error
	})
	if err != nil {
		return errs.Wrap(errs.AuditBestEffort, "save event", err)
	}
	return nil
}

func (tx *Tx) ExistsEvent(ctx context.Context, tripID uuid.UUID, kind model.EventKind) (bool, error) {
	var count int64
	err := tx.db.WithContext(ctx).Model(&model.EventLog{}).
		Where("trip_id = ? AND event_type = ?", tripID, kind).
		Count(&count).Error
	if err != nil {
		return false, errs.Wrap(errs.StorageTransient, "exists event", err)
	}
	return count > 0, nil
}

func (tx *Tx) PickupsForTrip(ctx context.Context, tripID uuid.UUID) ([]model.PickupPoint, error) {
	var pickups []model.PickupPoint
	err := tx.db.WithContext(ctx).Where("trip_id = ?", tripID).Order("created_at ASC").Find(&pickups).Error
	if err != nil {
		return nil, errs.Wrap(errs.StorageTransient, "pickups for trip", err)
	}
	return pickups, nil
}

func (tx *Tx) MarkPickupArrived(ctx context.Context, pickupID uuid.UUID) error {
	err := tx.db.WithContext(ctx).Model(&model.PickupPoint{}).
		Where("id = ?", pickupID).
		Update("status", model.PickupStatusArrived).Error
	if err != nil {
		return errs.Wrap(errs.StorageTransient, "mark pickup arrived", err)
	}
	return nil
}

// ResetTrip deletes the trip's owning location logs and event logs, resets
// its pickups to PENDING, and clears derived trip fields back to PENDING.
func (tx *Tx) ResetTrip(ctx context.Context, tripID uuid.UUID) error {
	if err := tx.db.WithContext(ctx).Where("trip_id = ?", tripID).Delete(&model.LocationLog{}).Error; err != nil {
		return errs.Wrap(errs.StorageTransient, "delete location logs", err)
	}
	if err := tx.db.WithContext(ctx).Where("trip_id = ?", tripID).Delete(&model.EventLog{}).Error; err != nil {
		return errs.Wrap(errs.StorageTransient, "delete event logs", err)
	}
	err := tx.db.WithContext(ctx).Model(&model.PickupPoint{}).
		Where("trip_id = ?", tripID).
		Update("status", model.PickupStatusPending).Error
	if err != nil {
		return errs.Wrap(errs.StorageTransient, "reset pickups", err)
	}
	trip := &model.Trip{}
	if err := tx.db.WithContext(ctx).Where("id = ?", tripID).First(trip).Error; err != nil {
		return errs.Wrap(errs.StorageTransient, "load trip for reset", err)
	}
	trip.Status = model.TripStatusPending
	trip.StartTime = nil
	trip.EndTime = nil
	trip.DurationMinutes = nil
	trip.OfficeEntryTime = nil
	trip.TotalDistanceKm = 0
	return tx.SaveTrip(ctx, trip)
}

// --- Non-transactional reads and admin-scoped writes -----------------------

func (s *Store) LatestLocation(ctx context.Context, tripID uuid.UUID) (*model.LocationLog, error) {
	var log model.LocationLog
	err := s.db.WithContext(ctx).Where("trip_id = ?", tripID).Order("timestamp DESC").First(&log).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.StorageTransient, "latest location", err)
	}
	return &log, nil
}

// AllLocationLogs returns every location log across every trip, oldest
// first, for dashboard trail reconstruction.
func (s *Store) AllLocationLogs(ctx context.Context) ([]model.LocationLog, error) {
	var logs []model.LocationLog
	if err := s.db.WithContext(ctx).Order("timestamp ASC").Find(&logs).Error; err != nil {
		return nil, errs.Wrap(errs.StorageTransient, "all location logs", err)
	}
	return logs, nil
}

func (s *Store) GetTrip(ctx context.Context, tripID uuid.UUID) (*model.Trip, error) {
	var trip model.Trip
	err := s.db.WithContext(ctx).Where("id = ?", tripID).First(&trip).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.New(errs.NotFound, "trip not found")
	}
	if err != nil {
		return nil, errs.Wrap(errs.StorageTransient, "get trip", err)
	}
	return &trip, nil
}

func (s *Store) ListTrips(ctx context.Context) ([]model.Trip, error) {
	var trips []model.Trip
	if err := s.db.WithContext(ctx).Find(&trips).Error; err != nil {
		return nil, errs.Wrap(errs.StorageTransient, "list trips", err)
	}
	return trips, nil
}

func (s *Store) CreateTrip(ctx context.Context, trip *model.Trip) error {
	if err := s.db.WithContext(ctx).Create(trip).Error; err != nil {
		return errs.Wrap(errs.StorageTransient, "create trip", err)
	}
	return nil
}

func (s *Store) CreatePickup(ctx context.Context, pickup *model.PickupPoint) error {
	if err := s.db.WithContext(ctx).Create(pickup).Error; err != nil {
		return errs.Wrap(errs.StorageTransient, "create pickup", err)
	}
	return nil
}

func (s *Store) PickupsForTrip(ctx context.Context, tripID uuid.UUID) ([]model.PickupPoint, error) {
	var pickups []model.PickupPoint
	err := s.db.WithContext(ctx).Where("trip_id = ?", tripID).Order("created_at ASC").Find(&pickups).Error
	if err != nil {
		return nil, errs.Wrap(errs.StorageTransient, "pickups for trip", err)
	}
	return pickups, nil
}

// AllPickups returns every pickup point across every trip, for the
// dashboard aggregate.
func (s *Store) AllPickups(ctx context.Context) ([]model.PickupPoint, error) {
	var pickups []model.PickupPoint
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&pickups).Error; err != nil {
		return nil, errs.Wrap(errs.StorageTransient, "all pickups", err)
	}
	return pickups, nil
}

func (s *Store) ListGeofences(ctx context.Context) ([]model.OfficeGeofence, error) {
	var geofences []model.OfficeGeofence
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&geofences).Error; err != nil {
		return nil, errs.Wrap(errs.StorageTransient, "list geofences", err)
	}
	return geofences, nil
}

func (s *Store) GetGeofence(ctx context.Context, id uuid.UUID) (*model.OfficeGeofence, error) {
	var geofence model.OfficeGeofence
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&geofence).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.New(errs.NotFound, "geofence not found")
	}
	if err != nil {
		return nil, errs.Wrap(errs.StorageTransient, "get geofence", err)
	}
	return &geofence, nil
}

func (s *Store) CreateGeofence(ctx context.Context, geofence *model.OfficeGeofence) error {
	if err := s.db.WithContext(ctx).Create(geofence).Error; err != nil {
		return errs.Wrap(errs.StorageTransient, "create geofence", err)
	}
	return nil
}

func (s *Store) UpdateGeofence(ctx context.Context, geofence *model.OfficeGeofence) error {
	if err := s.db.WithContext(ctx).Save(geofence).Error; err != nil {
		return errs.Wrap(errs.StorageTransient, "update geofence", err)
	}
	return nil
}

func (s *Store) DeleteGeofence(ctx context.Context, id uuid.UUID) error {
	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.OfficeGeofence{}).Error; err != nil {
		return errs.Wrap(errs.StorageTransient, "delete geofence", err)
	}
	return nil
}

func (s *Store) ListVehicles(ctx context.Context) ([]model.Vehicle, error) {
	var vehicles []model.Vehicle
	if err := s.db.WithContext(ctx).Find(&vehicles).Error; err != nil {
		return nil, errs.Wrap(errs.StorageTransient, "list vehicles", err)
	}
	return vehicles, nil
}

func (s *Store) GetVehicle(ctx context.Context, id uuid.UUID) (*model.Vehicle, error) {
	var vehicle model.Vehicle
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&vehicle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.New(errs.NotFound, "vehicle not found")
	}
	if err != nil {
		return nil, errs.Wrap(errs.StorageTransient, "get vehicle", err)
	}
	return &vehicle, nil
}

func (s *Store) DriverForVehicle(ctx context.Context, vehicleID uuid.UUID) (*model.Driver, error) {
	var driver model.Driver
	err := s.db.WithContext(ctx).Where("vehicle_id = ?", vehicleID).First(&driver).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.StorageTransient, "driver for vehicle", err)
	}
	return &driver, nil
}

// EventsByTrip returns the audit trail for a trip in chronological order.
func (s *Store) EventsByTrip(ctx context.Context, tripID uuid.UUID) ([]model.EventLog, error) {
	var events []model.EventLog
	err := s.db.WithContext(ctx).Where("trip_id = ?", tripID).Order("event_timestamp ASC").Find(&events).Error
	if err != nil {
		return nil, errs.Wrap(errs.StorageTransient, "events by trip", err)
	}
	return events, nil
}

// EventsByVehicle returns the audit trail for a vehicle newest first.
func (s *Store) EventsByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]model.EventLog, error) {
	var events []model.EventLog
	err := s.db.WithContext(ctx).Where("vehicle_id = ?", vehicleID).Order("event_timestamp DESC").Find(&events).Error
	if err != nil {
		return nil, errs.Wrap(errs.StorageTransient, "events by vehicle", err)
	}
	return events, nil
}

func (s *Store) EventsByTimeRange(ctx context.Context, from, to time.Time) ([]model.EventLog, error) {
	var events []model.EventLog
	err := s.db.WithContext(ctx).
		Where("event_timestamp >= ? AND event_timestamp <= ?", from, to).
		Order("event_timestamp ASC").
		Find(&events).Error
	if err != nil {
		return nil, errs.Wrap(errs.StorageTransient, "events by time range", err)
	}
	return events, nil
}

// AllEvents returns every event across every vehicle, newest first, for the
// dashboard aggregate.
func (s *Store) AllEvents(ctx context.Context) ([]model.EventLog, error) {
	var events []model.EventLog
	if err := s.db.WithContext(ctx).Order("event_timestamp DESC").Find(&events).Error; err != nil {
		return nil, errs.Wrap(errs.StorageTransient, "all events", err)
	}
	return events, nil
}

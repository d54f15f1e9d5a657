package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"geofence-service/internal/model"
)

// TxInterface is the transaction-scoped surface the engine and coordinator
// depend on. It lets tests inject a fake store without a database.
type TxInterface interface {
	LoadTripForUpdate(ctx context.Context, tripID uuid.UUID) (*model.Trip, error)
	SaveTrip(ctx context.Context, trip *model.Trip) error
	AppendLocation(ctx context.Context, log *model.LocationLog) error
	SaveEvent(ctx context.Context, event *model.EventLog) error
	ExistsEvent(ctx context.Context, tripID uuid.UUID, kind model.EventKind) (bool, error)
	PickupsForTrip(ctx context.Context, tripID uuid.UUID) ([]model.PickupPoint, error)
	MarkPickupArrived(ctx context.Context, pickupID uuid.UUID) error
	ResetTrip(ctx context.Context, tripID uuid.UUID) error
}

// Interface is the full store surface the coordinator and admin API depend
// on, split into the read/admin side and the transactional side.
type Interface interface {
	WithinTrip(ctx context.Context, fn func(tx TxInterface) error) error

	LatestLocation(ctx context.Context, tripID uuid.UUID) (*model.LocationLog, error)
	AllLocationLogs(ctx context.Context) ([]model.LocationLog, error)
	GetTrip(ctx context.Context, tripID uuid.UUID) (*model.Trip, error)
	ListTrips(ctx context.Context) ([]model.Trip, error)
	CreateTrip(ctx context.Context, trip *model.Trip) error
	CreatePickup(ctx context.Context, pickup *model.PickupPoint) error
	PickupsForTrip(ctx context.Context, tripID uuid.UUID) ([]model.PickupPoint, error)
	AllPickups(ctx context.Context) ([]model.PickupPoint, error)

	ListGeofences(ctx context.Context) ([]model.OfficeGeofence, error)
	GetGeofence(ctx context.Context, id uuid.UUID) (*model.OfficeGeofence, error)
	CreateGeofence(ctx context.Context, geofence *model.OfficeGeofence) error
	UpdateGeofence(ctx context.Context, geofence *model.OfficeGeofence) error
	DeleteGeofence(ctx context.Context, id uuid.UUID) error

	ListVehicles(ctx context.Context) ([]model.Vehicle, error)
	GetVehicle(ctx context.Context, id uuid.UUID) (*model.Vehicle, error)
	DriverForVehicle(ctx context.Context, vehicleID uuid.UUID) (*model.Driver, error)

	EventsByTrip(ctx context.Context, tripID uuid.UUID) ([]model.EventLog, error)
	EventsByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]model.EventLog, error)
	EventsByTimeRange(ctx context.Context, from, to time.Time) ([]model.EventLog, error)
	AllEvents(ctx context.Context) ([]model.EventLog, error)
}

var _ Interface = (*Store)(nil)
var _ TxInterface = (*Tx)(nil)

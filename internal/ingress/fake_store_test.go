package ingress_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"geofence-service/internal/errs"
	"geofence-service/internal/model"
	"geofence-service/internal/store"
)

// testStore is a minimal in-memory store.Interface used to exercise the
// dispatcher without a database.
type testStore struct {
	mu        sync.Mutex
	trips     map[uuid.UUID]*model.Trip
	locations map[uuid.UUID][]*model.LocationLog
	events    map[uuid.UUID][]*model.EventLog
	pickups   map[uuid.UUID][]*model.PickupPoint
	vehicles  []model.Vehicle
	geofences []model.OfficeGeofence
}

func newTestStore() *testStore {
	return &testStore{
		trips:     make(map[uuid.UUID]*model.Trip),
		locations: make(map[uuid.UUID][]*model.LocationLog),
		events:    make(map[uuid.UUID][]*model.EventLog),
		pickups:   make(map[uuid.UUID][]*model.PickupPoint),
	}
}

func (f *testStore) WithinTrip(ctx context.Context, fn func(tx store.TxInterface) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(&testTx{f: f})
}

func (f *testStore) LatestLocation(ctx context.Context, tripID uuid.UUID) (*model.LocationLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	logs := f.locations[tripID]
	if len(logs) == 0 {
		return nil, nil
	}
	return logs[len(logs)-1], nil
}

func (f *testStore) GetTrip(ctx context.Context, tripID uuid.UUID) (*model.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.trips[tripID], nil
}

func (f *testStore) ListTrips(ctx context.Context) ([]model.Trip, error) { return nil, nil }

func (f *testStore) AllLocationLogs(ctx context.Context) ([]model.LocationLog, error) {
	return nil, nil
}

func (f *testStore) AllPickups(ctx context.Context) ([]model.PickupPoint, error) { return nil, nil }

func (f *testStore) AllEvents(ctx context.Context) ([]model.EventLog, error) { return nil, nil }

func (f *testStore) CreateTrip(ctx context.Context, trip *model.Trip) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trips[trip.ID] = trip
	return nil
}

func (f *testStore) CreatePickup(ctx context.Context, pickup *model.PickupPoint) error { return nil }

func (f *testStore) PickupsForTrip(ctx context.Context, tripID uuid.UUID) ([]model.PickupPoint, error) {
	return nil, nil
}

func (f *testStore) ListGeofences(ctx context.Context) ([]model.OfficeGeofence, error) {
	return f.geofences, nil
}

func (f *testStore) GetGeofence(ctx context.Context, id uuid.UUID) (*model.OfficeGeofence, error) {
	return nil, nil
}
func (f *testStore) CreateGeofence(ctx context.Context, geofence *model.OfficeGeofence) error {
	return nil
}
func (f *testStore) UpdateGeofence(ctx context.Context, geofence *model.OfficeGeofence) error {
	return nil
}
func (f *testStore) DeleteGeofence(ctx context.Context, id uuid.UUID) error { return nil }

func (f *testStore) ListVehicles(ctx context.Context) ([]model.Vehicle, error) {
	return f.vehicles, nil
}

func (f *testStore) GetVehicle(ctx context.Context, id uuid.UUID) (*model.Vehicle, error) {
	return nil, nil
}

func (f *testStore) DriverForVehicle(ctx context.Context, vehicleID uuid.UUID) (*model.Driver, error) {
	return nil, nil
}

func (f *testStore) EventsByTrip(ctx context.Context, tripID uuid.UUID) ([]model.EventLog, error) {
	return nil, nil
}
func (f *testStore) EventsByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]model.EventLog, error) {
	return nil, nil
}
func (f *testStore) EventsByTimeRange(ctx context.Context, from, to time.Time) ([]model.EventLog, error) {
	return nil, nil
}

type testTx struct {
	f *testStore
}

func (tx *testTx) LoadTripForUpdate(ctx context.Context, tripID uuid.UUID) (*model.Trip, error) {
	trip, ok := tx.f.trips[tripID]
	if !ok {
		return nil, errs.New(errs.NotFound, "trip not found")
	}
	copyTrip := *trip
	return &copyTrip, nil
}

func (tx *testTx) SaveTrip(ctx context.Context, trip *model.Trip) error {
	stored := *trip
	tx.f.trips[trip.ID] = &stored
	return nil
}

func (tx *testTx) AppendLocation(ctx context.Context, log *model.LocationLog) error {
	tx.f.locations[log.TripID] = append(tx.f.locations[log.TripID], log)
	return nil
}

func (tx *testTx) SaveEvent(ctx context.Context, event *model.EventLog) error {
	tripID := uuid.Nil
	if event.TripID != nil {
		tripID = *event.TripID
	}
	tx.f.events[tripID] = append(tx.f.events[tripID], event)
	return nil
}

func (tx *testTx) ExistsEvent(ctx context.Context, tripID uuid.UUID, kind model.EventKind) (bool, error) {
	for _, e := range tx.f.events[tripID] {
		if e.EventType == kind {
			return true, nil
		}
	}
	return false, nil
}

func (tx *testTx) PickupsForTrip(ctx context.Context, tripID uuid.UUID) ([]model.PickupPoint, error) {
	return nil, nil
}

func (tx *testTx) MarkPickupArrived(ctx context.Context, pickupID uuid.UUID) error { return nil }

func (tx *testTx) ResetTrip(ctx context.Context, tripID uuid.UUID) error { return nil }

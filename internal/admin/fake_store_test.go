package admin_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"geofence-service/internal/errs"
	"geofence-service/internal/model"
	"geofence-service/internal/store"
)

type fakeStore struct {
	mu        sync.Mutex
	trips     map[uuid.UUID]*model.Trip
	pickups   map[uuid.UUID][]*model.PickupPoint
	locations map[uuid.UUID][]*model.LocationLog
	events    map[uuid.UUID][]*model.EventLog
	geofences []model.OfficeGeofence
	vehicles  []model.Vehicle
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		trips:     make(map[uuid.UUID]*model.Trip),
		pickups:   make(map[uuid.UUID][]*model.PickupPoint),
		locations: make(map[uuid.UUID][]*model.LocationLog),
		events:    make(map[uuid.UUID][]*model.EventLog),
	}
}

func (f *fakeStore) WithinTrip(ctx context.Context, fn func(tx store.TxInterface) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(&fakeTx{f: f})
}

func (f *fakeStore) LatestLocation(ctx context.Context, tripID uuid.UUID) (*model.LocationLog, error) {
	return nil, nil
}
func (f *fakeStore) AllLocationLogs(ctx context.Context) ([]model.LocationLog, error) {
	return nil, nil
}
func (f *fakeStore) GetTrip(ctx context.Context, tripID uuid.UUID) (*model.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.trips[tripID], nil
}
func (f *fakeStore) ListTrips(ctx context.Context) ([]model.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Trip
	for _, t := range f.trips {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}
func (f *fakeStore) CreateTrip(ctx context.Context, trip *model.Trip) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trips[trip.ID] = trip
	return nil
}
func (f *fakeStore) CreatePickup(ctx context.Context, pickup *model.PickupPoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pickups[pickup.TripID] = append(f.pickups[pickup.TripID], pickup)
	return nil
}
func (f *fakeStore) PickupsForTrip(ctx context.Context, tripID uuid.UUID) ([]model.PickupPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.PickupPoint
	for _, p := range f.pickups[tripID] {
		out = append(out, *p)
	}
	return out, nil
}
func (f *fakeStore) AllPickups(ctx context.Context) ([]model.PickupPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.PickupPoint
	for _, list := range f.pickups {
		for _, p := range list {
			out = append(out, *p)
		}
	}
	return out, nil
}
func (f *fakeStore) ListGeofences(ctx context.Context) ([]model.OfficeGeofence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.geofences, nil
}
func (f *fakeStore) GetGeofence(ctx context.Context, id uuid.UUID) (*model.OfficeGeofence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.geofences {
		if f.geofences[i].ID == id {
			g := f.geofences[i]
			return &g, nil
		}
	}
	return nil, errs.New(errs.NotFound, "geofence not found")
}
func (f *fakeStore) CreateGeofence(ctx context.Context, geofence *model.OfficeGeofence) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if geofence.ID == uuid.Nil {
		geofence.ID = uuid.New()
	}
	f.geofences = append(f.geofences, *geofence)
	return nil
}
func (f *fakeStore) UpdateGeofence(ctx context.Context, geofence *model.OfficeGeofence) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.geofences {
		if f.geofences[i].ID == geofence.ID {
			f.geofences[i] = *geofence
			return nil
		}
	}
	return errs.New(errs.NotFound, "geofence not found")
}
func (f *fakeStore) DeleteGeofence(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.geofences {
		if f.geofences[i].ID == id {
			f.geofences = append(f.geofences[:i], f.geofences[i+1:]...)
			return nil
		}
	}
	return errs.New(errs.NotFound, "geofence not found")
}
func (f *fakeStore) ListVehicles(ctx context.Context) ([]model.Vehicle, error) {
	return f.vehicles, nil
}
func (f *fakeStore) GetVehicle(ctx context.Context, id uuid.UUID) (*model.Vehicle, error) {
	return nil, nil
}
func (f *fakeStore) DriverForVehicle(ctx context.Context, vehicleID uuid.UUID) (*model.Driver, error) {
	return nil, nil
}
func (f *fakeStore) EventsByTrip(ctx context.Context, tripID uuid.UUID) ([]model.EventLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.EventLog
	for _, e := range f.events[tripID] {
		out = append(out, *e)
	}
	return out, nil
}
func (f *fakeStore) EventsByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]model.EventLog, error) {
	return nil, nil
}
func (f *fakeStore) EventsByTimeRange(ctx context.Context, from, to time.Time) ([]model.EventLog, error) {
	return nil, nil
}
func (f *fakeStore) AllEvents(ctx context.Context) ([]model.EventLog, error) { return nil, nil }

type fakeTx struct {
	f *fakeStore
}

func (tx *fakeTx) LoadTripForUpdate(ctx context.Context, tripID uuid.UUID) (*model.Trip, error) {
	trip, ok := tx.f.trips[tripID]
	if !ok {
		return nil, errs.New(errs.NotFound, "trip not found")
	}
	copyTrip := *trip
	return &copyTrip, nil
}
func (tx *fakeTx) SaveTrip(ctx context.Context, trip *model.Trip) error {
	stored := *trip
	tx.f.trips[trip.ID] = &stored
	return nil
}
func (tx *fakeTx) AppendLocation(ctx context.Context, log *model.LocationLog) error {
	tx.f.locations[log.TripID] = append(tx.f.locations[log.TripID], log)
	return nil
}
func (tx *fakeTx) SaveEvent(ctx context.Context, event *model.EventLog) error {
	tripID := uuid.Nil
	if event.TripID != nil {
		tripID = *event.TripID
	}
	tx.f.events[tripID] = append(tx.f.events[tripID], event)
	return nil
}
func (tx *fakeTx) ExistsEvent(ctx context.Context, tripID uuid.UUID, kind model.EventKind) (bool, error) {
	for _, e := range tx.f.events[tripID] {
		if e.EventType == kind {
			return true, nil
		}
	}
	return false, nil
}
func (tx *fakeTx) PickupsForTrip(ctx context.Context, tripID uuid.UUID) ([]model.PickupPoint, error) {
	var out []model.PickupPoint
	for _, p := range tx.f.pickups[tripID] {
		out = append(out, *p)
	}
	return out, nil
}
func (tx *fakeTx) MarkPickupArrived(ctx context.Context, pickupID uuid.UUID) error {
	for _, list := range tx.f.pickups {
		for _, p := range list {
			if p.ID == pickupID {
				p.Status = model.PickupStatusArrived
				return nil
			}
		}
	}
	return errs.New(errs.NotFound, "pickup not found")
}
func (tx *fakeTx) ResetTrip(ctx context.Context, tripID uuid.UUID) error {
	delete(tx.f.locations, tripID)
	delete(tx.f.events, tripID)
	for _, p := range tx.f.pickups[tripID] {
		p.Status = model.PickupStatusPending
	}
	trip, ok := tx.f.trips[tripID]
	if !ok {
		return errs.New(errs.NotFound, "trip not found")
	}
	trip.Status = model.TripStatusPending
	trip.StartTime = nil
	trip.EndTime = nil
	trip.DurationMinutes = nil
	trip.OfficeEntryTime = nil
	trip.TotalDistanceKm = 0
	return nil
}

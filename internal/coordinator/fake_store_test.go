package coordinator_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"geofence-service/internal/model"
	"geofence-service/internal/store"
)

// fakeStore is an in-memory implementation of store.Interface used to test
// the coordinator without a database, per the injected-fake-store design
// note.
type fakeStore struct {
	mu        sync.Mutex
	trips     map[uuid.UUID]*model.Trip
	pickups   map[uuid.UUID][]*model.PickupPoint
	locations map[uuid.UUID][]*model.LocationLog
	events    map[uuid.UUID][]*model.EventLog
	geofences []model.OfficeGeofence
	vehicles  []model.Vehicle

	saveEventFails bool
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
	f.mu.Lock()
	defer f.mu.Unlock()
	logs := f.locations[tripID]
	if len(logs) == 0 {
		return nil, nil
	}
	latest := logs[0]
	for _, l := range logs {
		if l.Timestamp.After(latest.Timestamp) {
			latest = l
		}
	}
	return latest, nil
}

func (f *fakeStore) AllLocationLogs(ctx context.Context) ([]model.LocationLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.LocationLog
	for _, logs := range f.locations {
		for _, l := range logs {
			out = append(out, *l)
		}
	}
	return out, nil
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
	return out, nil
}

func (f *fakeStore) CreateTrip(ctx context.Context, trip *model.Trip) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if trip.ID == uuid.Nil {
		trip.ID = uuid.New()
	}
	f.trips[trip.ID] = trip
	return nil
}

func (f *fakeStore) CreatePickup(ctx context.Context, pickup *model.PickupPoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pickup.ID == uuid.Nil {
		pickup.ID = uuid.New()
	}
	f.pickups[pickup.TripID] = append(f.pickups[pickup.TripID], pickup)
	return nil
}

func (f *fakeStore) PickupsForTrip(ctx context.Context, tripID uuid.UUID) ([]model.PickupPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return snapshotPickups(f.pickups[tripID]), nil
}

func (f *fakeStore) AllPickups(ctx context.Context) ([]model.PickupPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.PickupPoint
	for _, pickups := range f.pickups {
		out = append(out, snapshotPickups(pickups)...)
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
	for _, g := range f.geofences {
		if g.ID == id {
			return &g, nil
		}
	}
	return nil, nil
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
	for i, g := range f.geofences {
		if g.ID == geofence.ID {
			f.geofences[i] = *geofence
		}
	}
	return nil
}

func (f *fakeStore) DeleteGeofence(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.OfficeGeofence
	for _, g := range f.geofences {
		if g.ID != id {
			out = append(out, g)
		}
	}
	f.geofences = out
	return nil
}

func (f *fakeStore) ListVehicles(ctx context.Context) ([]model.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.vehicles, nil
}

func (f *fakeStore) GetVehicle(ctx context.Context, id uuid.UUID) (*model.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.vehicles {
		if v.ID == id {
			return &v, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) DriverForVehicle(ctx context.Context, vehicleID uuid.UUID) (*model.Driver, error) {
	return nil, nil
}

func (f *fakeStore) EventsByTrip(ctx context.Context, tripID uuid.UUID) ([]model.EventLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return snapshotEvents(f.events[tripID]), nil
}

func (f *fakeStore) EventsByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]model.EventLog, error) {
	return nil, nil
}

func (f *fakeStore) EventsByTimeRange(ctx context.Context, from, to time.Time) ([]model.EventLog, error) {
	return nil, nil
}

func (f *fakeStore) AllEvents(ctx context.Context) ([]model.EventLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.EventLog
	for _, events := range f.events {
		out = append(out, snapshotEvents(events)...)
	}
	return out, nil
}

// fakeTx is the transaction-scoped view; since fakeStore.WithinTrip already
// holds the lock for the whole call, its methods operate directly on the
// enclosing fakeStore's maps.
type fakeTx struct {
	f *fakeStore
}

func (tx *fakeTx) LoadTripForUpdate(ctx context.Context, tripID uuid.UUID) (*model.Trip, error) {
	trip, ok := tx.f.trips[tripID]
	if !ok {
		return nil, errNotFound
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
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	tx.f.locations[log.TripID] = append(tx.f.locations[log.TripID], log)
	return nil
}

func (tx *fakeTx) SaveEvent(ctx context.Context, event *model.EventLog) error {
	if tx.f.saveEventFails {
		return errAuditWriteFailed
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
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
	return snapshotPickups(tx.f.pickups[tripID]), nil
}

func (tx *fakeTx) MarkPickupArrived(ctx context.Context, pickupID uuid.UUID) error {
	for _, pickups := range tx.f.pickups {
		for _, p := range pickups {
			if p.ID == pickupID {
				p.Status = model.PickupStatusArrived
			}
		}
	}
	return nil
}

func (tx *fakeTx) ResetTrip(ctx context.Context, tripID uuid.UUID) error {
	delete(tx.f.locations, tripID)
	delete(tx.f.events, tripID)
	for _, p := range tx.f.pickups[tripID] {
		p.Status = model.PickupStatusPending
	}
	if trip, ok := tx.f.trips[tripID]; ok {
		trip.Status = model.TripStatusPending
		trip.StartTime = nil
		trip.EndTime = nil
		trip.DurationMinutes = nil
		trip.OfficeEntryTime = nil
		trip.TotalDistanceKm = 0
	}
	return nil
}

func snapshotPickups(pickups []*model.PickupPoint) []model.PickupPoint {
	out := make([]model.PickupPoint, len(pickups))
	for i, p := range pickups {
		out[i] = *p
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

func snapshotEvents(events []*model.EventLog) []model.EventLog {
	out := make([]model.EventLog, len(events))
	for i, e := range events {
		out[i] = *e
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventTimestamp.Before(out[j].EventTimestamp) })
	return out
}

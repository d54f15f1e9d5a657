// Package staticdata is the read-through cache in front of the Store for
// geofences, vehicles, and per-vehicle drivers: bounded LRU with a
// write-TTL, plus explicit full eviction on admin reset.
package staticdata

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"

	"geofence-service/internal/model"
	"geofence-service/internal/store"
)

const (
	geofenceCacheSize     = 20
	vehicleDriverCacheSize = 50
	writeTTL              = 60 * time.Minute
)

const (
	geofencesKey = "all"
	vehiclesKey  = "all"
)

type entry struct {
	value    interface{}
	expireAt time.Time
}

// ttlCache wraps an LRU cache with a write-time TTL. golang-lru handles
// size-bounded eviction; expiry is checked lazily on Get.
type ttlCache struct {
	mu  sync.Mutex
	lru *lru.Cache
}

func newTTLCache(size int) *ttlCache {
	c, err := lru.New(size)
	if err != nil {
		// Only possible if size <= 0, which never happens with our constants.
		panic(err)
	}
	return &ttlCache{lru: c}
}

func (c *ttlCache) get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	e := raw.(entry)
	if time.Now().After(e.expireAt) {
		c.lru.Remove(key)
		return nil, false
	}
	return e.value, true
}

func (c *ttlCache) set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, entry{value: value, expireAt: time.Now().Add(writeTTL)})
}

func (c *ttlCache) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// Provider is the read-through cache facade handed to the engine and
// coordinator; a cache miss triggers a single load from the Store.
type Provider struct {
	store         store.Interface
	geofences     *ttlCache
	vehicleDriver *ttlCache
}

func New(s store.Interface) *Provider {
	return &Provider{
		store:         s,
		geofences:     newTTLCache(geofenceCacheSize),
		vehicleDriver: newTTLCache(vehicleDriverCacheSize),
	}
}

// Geofences returns every configured office geofence, in insertion order.
func (p *Provider) Geofences(ctx context.Context) ([]model.OfficeGeofence, error) {
	if cached, ok := p.geofences.get(geofencesKey); ok {
		return cached.([]model.OfficeGeofence), nil
	}
	geofences, err := p.store.ListGeofences(ctx)
	if err != nil {
		return nil, err
	}
	p.geofences.set(geofencesKey, geofences)
	return geofences, nil
}

// Vehicles returns every vehicle in the fleet.
func (p *Provider) Vehicles(ctx context.Context) ([]model.Vehicle, error) {
	if cached, ok := p.vehicleDriver.get(vehiclesKey); ok {
		return cached.([]model.Vehicle), nil
	}
	vehicles, err := p.store.ListVehicles(ctx)
	if err != nil {
		return nil, err
	}
	p.vehicleDriver.set(vehiclesKey, vehicles)
	return vehicles, nil
}

// VehicleByID returns a single vehicle from the cached fleet list, or nil
// if no vehicle with that id exists.
func (p *Provider) VehicleByID(ctx context.Context, vehicleID uuid.UUID) (*model.Vehicle, error) {
	vehicles, err := p.Vehicles(ctx)
	if err != nil {
		return nil, err
	}
	for i := range vehicles {
		if vehicles[i].ID == vehicleID {
			return &vehicles[i], nil
		}
	}
	return nil, nil
}

// DriverForVehicle returns the driver currently assigned to vehicleID, or
// nil if none is assigned.
func (p *Provider) DriverForVehicle(ctx context.Context, vehicleID uuid.UUID) (*model.Driver, error) {
	key := "driver:" + vehicleID.String()
	if cached, ok := p.vehicleDriver.get(key); ok {
		if cached == nil {
			return nil, nil
		}
		return cached.(*model.Driver), nil
	}
	driver, err := p.store.DriverForVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	p.vehicleDriver.set(key, driver)
	return driver, nil
}

// InvalidateGeofences drops the geofences cache. Called after any
// geofence CRUD write.
func (p *Provider) InvalidateGeofences() {
	p.geofences.purge()
}

// EvictAll drops every cached entry. Called from the admin reset path.
func (p *Provider) EvictAll() {
	p.geofences.purge()
	p.vehicleDriver.purge()
}

// Package engine is the pure per-ping geofence evaluation logic: pickup
// arrival, office dwell/drift/speed defences, multi-stop gating, and
// idempotency. It has no side effects of its own; it returns an ordered
// list of Effects for the coordinator to apply atomically.
package engine

import (
	"sort"
	"time"

	"geofence-service/internal/errs"
	"geofence-service/internal/geometry"
	"geofence-service/internal/model"
)

// Config carries the tunables the engine needs.
type Config struct {
	DwellTimeSeconds  int
	SpeedThresholdKmh float64
}

// Ping is one accepted location reading.
type Ping struct {
	Lat      float64
	Lon      float64
	SpeedKmh float64
	Timestamp time.Time
}

// ExistsEventFunc checks whether an event of the given kind has already
// been recorded for the trip; it is the secondary idempotency guard for
// office closure and must be answered from within the same transaction
// that will apply the resulting effects.
type ExistsEventFunc func(kind model.EventKind) (bool, error)

// Input bundles everything a single evaluation needs.
type Input struct {
	Trip        *model.Trip
	Pickups     []model.PickupPoint
	Geofences   []model.OfficeGeofence
	Ping        Ping
	Config      Config
	Now         time.Time
	ExistsEvent ExistsEventFunc
}

// Evaluate runs the pickup and office evaluation passes and returns their
// combined effect list: pickup effects first (in pickup id order), then
// office effects.
func Evaluate(in Input) ([]Effect, error) {
	p := geometry.Point{Lat: in.Ping.Lat, Lon: in.Ping.Lon}

	effects := evaluatePickups(in, p)

	officeEffects, err := evaluateOffice(in, p)
	if err != nil {
		return nil, err
	}
	effects = append(effects, officeEffects...)

	return effects, nil
}

func evaluatePickups(in Input, p geometry.Point) []Effect {
	pickups := make([]model.PickupPoint, len(in.Pickups))
	copy(pickups, in.Pickups)
	sort.Slice(pickups, func(i, j int) bool { return pickups[i].ID.String() < pickups[j].ID.String() })

	var effects []Effect
	for _, pickup := range pickups {
		if pickup.Status != model.PickupStatusPending {
			continue
		}
		centre := geometry.Point{Lat: pickup.Lat, Lon: pickup.Lon}
		if !geometry.InsideCircle(p, centre, pickup.RadiusMeters) {
			continue
		}
		effects = append(effects,
			MarkPickupArrived{PickupID: pickup.ID},
			EmitEvent{Kind: model.EventPickupArrived, Lat: in.Ping.Lat, Lon: in.Ping.Lon},
			NotifyPickup{Lat: in.Ping.Lat, Lon: in.Ping.Lon},
			PublishGeofence{Kind: model.EventPickupArrived},
		)
	}
	return effects
}

func evaluateOffice(in Input, p geometry.Point) ([]Effect, error) {
	trip := in.Trip
	now := in.Now
	_, inside := firstMatchingGeofence(in.Geofences, p)

	// 1. Drift reset.
	if !inside && trip.OfficeEntryTime != nil && trip.Status == model.TripStatusInProgress {
		return []Effect{
			SetOfficeEntry{Time: nil},
			EmitEvent{Kind: model.EventGeofenceExit, Lat: in.Ping.Lat, Lon: in.Ping.Lon},
		}, nil
	}
	// 2.
	if !inside {
		return nil, nil
	}
	// 3. Terminal idempotency.
	if trip.Status != model.TripStatusInProgress {
		return nil, nil
	}
	// 4. Dwell anchor.
	if trip.OfficeEntryTime == nil {
		anchor := now
		return []Effect{SetOfficeEntry{Time: &anchor}}, nil
	}
	// 5. Dwell check.
	dwell := now.Sub(*trip.OfficeEntryTime)
	if dwell < time.Duration(in.Config.DwellTimeSeconds)*time.Second {
		return nil, nil
	}
	// 6. Drive-through defence.
	if in.Ping.SpeedKmh >= in.Config.SpeedThresholdKmh {
		return nil, nil
	}
	// 7. Multi-stop gating.
	for _, pickup := range in.Pickups {
		if pickup.Status != model.PickupStatusArrived {
			return []Effect{
				EmitEvent{Kind: model.EventClosureBlockedPickups, Lat: in.Ping.Lat, Lon: in.Ping.Lon},
			}, nil
		}
	}
	// 8. Secondary idempotency guard.
	exists, err := in.ExistsEvent(model.EventOfficeReached)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, nil
	}
	// 9. Close.
	duration := int64(now.Sub(*trip.StartTime) / time.Minute)
	return []Effect{
		EmitEvent{Kind: model.EventOfficeReached, Lat: in.Ping.Lat, Lon: in.Ping.Lon},
		CompleteTrip{EndTime: now, DurationMinutes: duration},
		EmitEvent{Kind: model.EventTripCompleted, Lat: in.Ping.Lat, Lon: in.Ping.Lon},
		NotifyCompletion{},
		PublishGeofence{Kind: model.EventTripCompleted},
	}, nil
}

// ManualCloseInput bundles the parameters for an admin-triggered closure.
type ManualCloseInput struct {
	Trip      *model.Trip
	Lat       float64
	Lon       float64
	Reason    string
	Geofences []model.OfficeGeofence
	Now       time.Time
}

// ManualClose closes a trip on admin request, whether or not the closing
// point falls inside a geofence.
func ManualClose(in ManualCloseInput) ([]Effect, error) {
	if in.Trip.Status == model.TripStatusCompleted {
		return nil, errs.New(errs.AlreadyTerminal, "trip is already completed")
	}

	p := geometry.Point{Lat: in.Lat, Lon: in.Lon}
	_, inside := firstMatchingGeofence(in.Geofences, p)

	var effects []Effect
	if inside {
		effects = append(effects, EmitEvent{Kind: model.EventManualClosure, Lat: in.Lat, Lon: in.Lon}, PublishGeofence{Kind: model.EventManualClosure})
	} else {
		effects = append(effects,
			EmitEvent{Kind: model.EventManualClosureOutside, Lat: in.Lat, Lon: in.Lon},
			EmitEvent{Kind: model.EventAdminAlert, Lat: in.Lat, Lon: in.Lon},
			NotifyAdminAlert{Reason: in.Reason},
			PublishGeofence{Kind: model.EventManualClosureOutside},
		)
	}

	var duration int64
	if in.Trip.StartTime != nil {
		duration = int64(in.Now.Sub(*in.Trip.StartTime) / time.Minute)
	}

	effects = append(effects,
		SetOfficeEntry{Time: nil},
		CompleteTrip{EndTime: in.Now, DurationMinutes: duration},
	)

	return effects, nil
}

func firstMatchingGeofence(geofences []model.OfficeGeofence, p geometry.Point) (*model.OfficeGeofence, bool) {
	for i := range geofences {
		if geofenceContains(geofences[i], p) {
			return &geofences[i], true
		}
	}
	return nil, false
}

func geofenceContains(g model.OfficeGeofence, p geometry.Point) bool {
	if g.Shape == model.ShapePolygon {
		vertices := make([]geometry.Point, len(g.Polygon))
		for i, v := range g.Polygon {
			vertices[i] = geometry.Point{Lat: v.Lat, Lon: v.Lon}
		}
		return geometry.InsidePolygon(p, vertices)
	}
	centre := geometry.Point{Lat: g.Lat, Lon: g.Lon}
	return geometry.InsideCircle(p, centre, g.RadiusMeters)
}

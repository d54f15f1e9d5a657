// Package audit serves the read-only projections of the event log:
// by trip, by vehicle, by time range, plus a small aggregate stats
// endpoint over a vehicle's dwell and speed history.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"

	"geofence-service/internal/errs"
	"geofence-service/internal/model"
	"geofence-service/internal/store"
)

// Query is the read-only projection surface over the event log. It
// touches only Store, never TripCoordinator or Notifier.
type Query struct {
	store store.Interface
}

func New(s store.Interface) *Query {
	return &Query{store: s}
}

// ByTrip returns a trip's events oldest first.
func (q *Query) ByTrip(ctx context.Context, tripID uuid.UUID) ([]model.EventLog, error) {
	return q.store.EventsByTrip(ctx, tripID)
}

// ByVehicle returns a vehicle's events newest first.
func (q *Query) ByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]model.EventLog, error) {
	return q.store.EventsByVehicle(ctx, vehicleID)
}

// ByTimeRange returns events in [from, to], oldest first.
func (q *Query) ByTimeRange(ctx context.Context, from, to time.Time) ([]model.EventLog, error) {
	if from.After(to) {
		return nil, errs.New(errs.InvalidArgument, "from must not be after to")
	}
	return q.store.EventsByTimeRange(ctx, from, to)
}

// VehicleStats summarizes dwell time (minutes spent between OFFICE_REACHED
// and TRIP_COMPLETED across a vehicle's completed trips) and location-log
// speed for a vehicle's audit trail. It is a reporting supplement, not
// part of the event log's own semantics.
type VehicleStats struct {
	DwellMinutesMean   float64
	DwellMinutesMedian float64
	DwellMinutesP95    float64
	SpeedKmhMean       float64
	SpeedKmhMedian     float64
	SpeedKmhP95        float64
	SampleTrips        int
}

// Stats computes VehicleStats from a vehicle's event log, pairing each
// OFFICE_REACHED with the next TRIP_COMPLETED for the same trip to derive
// a dwell duration, and reading speed off the same events' recorded lat/lon
// pings is not possible from EventLog alone, so speed samples are drawn
// from the raw location history via the caller-supplied speed slice.
func (q *Query) Stats(ctx context.Context, vehicleID uuid.UUID, speedSamplesKmh []float64) (VehicleStats, error) {
	events, err := q.store.EventsByVehicle(ctx, vehicleID)
	if err != nil {
		return VehicleStats{}, err
	}

	byTrip := make(map[uuid.UUID][]model.EventLog)
	for _, e := range events {
		if e.TripID == nil {
			continue
		}
		byTrip[*e.TripID] = append(byTrip[*e.TripID], e)
	}

	var dwellMinutes []float64
	for _, tripEvents := range byTrip {
		var reachedAt, completedAt *time.Time
		for i := len(tripEvents) - 1; i >= 0; i-- {
			e := tripEvents[i]
			if e.EventType == model.EventOfficeReached && reachedAt == nil {
				t := e.EventTimestamp
				reachedAt = &t
			}
			if e.EventType == model.EventTripCompleted && completedAt == nil {
				t := e.EventTimestamp
				completedAt = &t
			}
		}
		if reachedAt != nil && completedAt != nil && !completedAt.Before(*reachedAt) {
			dwellMinutes = append(dwellMinutes, completedAt.Sub(*reachedAt).Minutes())
		}
	}

	result := VehicleStats{SampleTrips: len(dwellMinutes)}
	if len(dwellMinutes) > 0 {
		result.DwellMinutesMean, _ = stats.Mean(dwellMinutes)
		result.DwellMinutesMedian, _ = stats.Median(dwellMinutes)
		result.DwellMinutesP95, _ = stats.Percentile(dwellMinutes, 95)
	}
	if len(speedSamplesKmh) > 0 {
		result.SpeedKmhMean, _ = stats.Mean(speedSamplesKmh)
		result.SpeedKmhMedian, _ = stats.Median(speedSamplesKmh)
		result.SpeedKmhP95, _ = stats.Percentile(speedSamplesKmh, 95)
	}
	return result, nil
}

package httpapi

import (
	"context"
	"math"

	"github.com/google/uuid"

	"geofence-service/internal/geometry"
	"geofence-service/internal/model"
	"geofence-service/internal/staticdata"
)

const (
	dashboardFallbackSpeedKmh  = 30.0
	dashboardMinMovingSpeedKmh = 2.0
)

// dashboardTrip enriches a Trip with the driver and ETA context the
// dashboard renders, so the whole board comes back in one call.
type dashboardTrip struct {
	model.Trip
	DriverName      *string `json:"driver_name,omitempty"`
	DriverPhone     *string `json:"driver_phone,omitempty"`
	DriverLicence   *string `json:"driver_licence,omitempty"`
	CurrentSpeedKmh float64 `json:"current_speed_kmh"`
	ETAMinutes      *int64  `json:"eta_minutes,omitempty"`
	ETADestination  string  `json:"eta_destination,omitempty"`
}

// buildDashboardTrips resolves each trip's driver from the static-data
// cache and estimates time to its next pickup (or the office once pickups
// are done), the same aggregate the dashboard's original single-call
// endpoint returned.
func buildDashboardTrips(
	ctx context.Context,
	static *staticdata.Provider,
	trips []model.Trip,
	locations []model.LocationLog,
	pickups []model.PickupPoint,
	geofences []model.OfficeGeofence,
) ([]dashboardTrip, error) {
	latestByTrip := latestLocationByTrip(locations)
	firstPickupByTrip := firstPickupByTrip(pickups)

	out := make([]dashboardTrip, 0, len(trips))
	for _, trip := range trips {
		dt := dashboardTrip{Trip: trip}

		driver, err := static.DriverForVehicle(ctx, trip.VehicleID)
		if err != nil {
			return nil, err
		}
		if driver != nil {
			dt.DriverName = &driver.Name
			dt.DriverPhone = &driver.Phone
			dt.DriverLicence = &driver.Licence
		}

		latest, hasLatest := latestByTrip[trip.ID]
		if hasLatest {
			dt.CurrentSpeedKmh = latest.SpeedKmh
		}

		if hasLatest && trip.Status == model.TripStatusInProgress {
			eta, dest := computeETA(latest, firstPickupByTrip[trip.ID], geofences)
			dt.ETAMinutes = eta
			dt.ETADestination = dest
		}

		out = append(out, dt)
	}
	return out, nil
}

func latestLocationByTrip(locations []model.LocationLog) map[uuid.UUID]model.LocationLog {
	latest := make(map[uuid.UUID]model.LocationLog)
	for _, l := range locations {
		current, ok := latest[l.TripID]
		if !ok || l.Timestamp.After(current.Timestamp) {
			latest[l.TripID] = l
		}
	}
	return latest
}

func firstPickupByTrip(pickups []model.PickupPoint) map[uuid.UUID]model.PickupPoint {
	first := make(map[uuid.UUID]model.PickupPoint)
	for _, p := range pickups {
		current, ok := first[p.TripID]
		if !ok || (current.Status != model.PickupStatusPending && p.Status == model.PickupStatusPending) {
			first[p.TripID] = p
		}
	}
	return first
}

// computeETA estimates minutes to the trip's next pending pickup, falling
// back to the first configured office once the pickup is done. Speeds at
// or below 2 km/h are replaced with a 30 km/h cruise assumption so an
// idling vehicle doesn't report an infinite ETA.
func computeETA(latest model.LocationLog, pickup model.PickupPoint, geofences []model.OfficeGeofence) (*int64, string) {
	speed := latest.SpeedKmh
	if speed <= dashboardMinMovingSpeedKmh {
		speed = dashboardFallbackSpeedKmh
	}
	here := geometry.Point{Lat: latest.Lat, Lon: latest.Lon}

	if pickup.Status == model.PickupStatusPending {
		target := geometry.Point{Lat: pickup.Lat, Lon: pickup.Lon}
		return etaMinutes(here, target, speed), "Pickup"
	}
	if len(geofences) > 0 {
		office := geofences[0]
		target := geometry.Point{Lat: office.Lat, Lon: office.Lon}
		return etaMinutes(here, target, speed), "Office"
	}
	return nil, ""
}

func etaMinutes(here, target geometry.Point, speedKmh float64) *int64 {
	distKm := geometry.DistanceMetres(here, target) / 1000.0
	minutes := int64(math.Round(distKm / speedKmh * 60))
	return &minutes
}

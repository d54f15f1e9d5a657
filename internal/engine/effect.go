package engine

import (
	"time"

	"github.com/google/uuid"

	"geofence-service/internal/model"
)

// Effect is one atomic mutation the coordinator must apply, in the order
// the engine returned it.
type Effect interface {
	isEffect()
}

type MarkPickupArrived struct {
	PickupID uuid.UUID
}

type EmitEvent struct {
	Kind model.EventKind
	Lat  float64
	Lon  float64
}

type SetOfficeEntry struct {
	Time *time.Time
}

type CompleteTrip struct {
	EndTime         time.Time
	DurationMinutes int64
}

type NotifyPickup struct {
	Lat float64
	Lon float64
}

type NotifyCompletion struct{}

type NotifyAdminAlert struct {
	Reason string
}

type PublishGeofence struct {
	Kind model.EventKind
}

func (MarkPickupArrived) isEffect() {}
func (EmitEvent) isEffect()         {}
func (SetOfficeEntry) isEffect()    {}
func (CompleteTrip) isEffect()      {}
func (NotifyPickup) isEffect()      {}
func (NotifyCompletion) isEffect()  {}
func (NotifyAdminAlert) isEffect()  {}
func (PublishGeofence) isEffect()   {}

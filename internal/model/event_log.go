package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EventKind string

const (
	EventPickupArrived              EventKind = "PICKUP_ARRIVED"
	EventOfficeReached              EventKind = "OFFICE_REACHED"
	EventTripCompleted              EventKind = "TRIP_COMPLETED"
	EventGeofenceExit               EventKind = "GEOFENCE_EXIT"
	EventManualClosure              EventKind = "MANUAL_CLOSURE"
	EventManualClosureOutside       EventKind = "MANUAL_CLOSURE_OUTSIDE_GEOFENCE"
	EventAdminAlert                 EventKind = "ADMIN_ALERT"
	EventClosureBlockedPickups      EventKind = "TRIP_CLOSURE_BLOCKED_PENDING_PICKUPS"
	EventClosureBlockedMinDuration  EventKind = "TRIP_CLOSURE_BLOCKED_MIN_DURATION"
)

// EventLog is the append-only audit trail. EventTimestamp is always the
// server clock at the moment the engine evaluated the ping that produced
// it, never the device timestamp on the triggering LocationLog.
type EventLog struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	VehicleID      uuid.UUID  `gorm:"type:uuid;index;not null" json:"vehicle_id"`
	TripID         *uuid.UUID `gorm:"type:uuid;index;index:idx_event_logs_trip_type,priority:1" json:"trip_id"`
	EventType      EventKind  `gorm:"type:varchar(48);not null;index:idx_event_logs_trip_type,priority:2" json:"event_type"`
	Lat            float64    `gorm:"not null" json:"lat"`
	Lon            float64    `gorm:"not null" json:"lon"`
	EventTimestamp time.Time  `gorm:"not null" json:"event_timestamp"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (EventLog) TableName() string { return "event_logs" }

func (e *EventLog) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

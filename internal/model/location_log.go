package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LocationLog is the append-only ping history used for distance increments
// and dashboard trails. Timestamp is the device-reported clock, never the
// server clock.
type LocationLog struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	VehicleID uuid.UUID `gorm:"type:uuid;index;not null" json:"vehicle_id"`
	TripID    uuid.UUID `gorm:"type:uuid;index;not null" json:"trip_id"`
	Lat       float64   `gorm:"not null" json:"lat"`
	Lon       float64   `gorm:"not null" json:"lon"`
	SpeedKmh  float64   `gorm:"not null" json:"speed_kmh"`
	Timestamp time.Time `gorm:"not null;index:idx_location_logs_trip_ts,priority:2" json:"timestamp"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (LocationLog) TableName() string { return "location_logs" }

func (l *LocationLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type GeofenceShape string

const (
	ShapeCircular GeofenceShape = "CIRCULAR"
	ShapePolygon  GeofenceShape = "POLYGON"
)

// PolygonVertex is one (lat, lon) point of a POLYGON-shaped geofence,
// stored as a JSON array in the polygon column.
type PolygonVertex struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type OfficeGeofence struct {
	ID           uuid.UUID                    `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	Name         string                       `gorm:"type:varchar(128)" json:"name"`
	Lat          float64                      `gorm:"not null" json:"lat"`
	Lon          float64                      `gorm:"not null" json:"lon"`
	RadiusMeters float64                      `gorm:"not null" json:"radius_meters"`
	Shape        GeofenceShape                `gorm:"type:varchar(16);not null;default:CIRCULAR" json:"shape"`
	Polygon      datatypes.JSONSlice[PolygonVertex] `gorm:"type:jsonb" json:"polygon,omitempty"`
	CreatedAt    time.Time                    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time                    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (OfficeGeofence) TableName() string { return "office_geofences" }

func (g *OfficeGeofence) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PickupStatus string

const (
	PickupStatusPending PickupStatus = "PENDING"
	PickupStatusArrived PickupStatus = "ARRIVED"
)

type PickupPoint struct {
	ID           uuid.UUID    `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	TripID       uuid.UUID    `gorm:"type:uuid;index;not null" json:"trip_id"`
	Lat          float64      `gorm:"not null" json:"lat"`
	Lon          float64      `gorm:"not null" json:"lon"`
	RadiusMeters float64      `gorm:"not null" json:"radius_meters"`
	Status       PickupStatus `gorm:"type:varchar(16);not null;default:PENDING" json:"status"`
	CreatedAt    time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PickupPoint) TableName() string { return "pickup_points" }

func (p *PickupPoint) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

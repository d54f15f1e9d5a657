package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Driver struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	Name      string     `gorm:"type:varchar(128);not null" json:"name"`
	Phone     string     `gorm:"type:varchar(32)" json:"phone"`
	Licence   string     `gorm:"type:varchar(64)" json:"licence"`
	VehicleID *uuid.UUID `gorm:"type:uuid;index" json:"vehicle_id"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Driver) TableName() string { return "drivers" }

func (d *Driver) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

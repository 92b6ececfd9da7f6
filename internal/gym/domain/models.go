// Package domain contains persistence models for the gym service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Gym is the tenant boundary. Every gym-owned row carries its gym_id.
type Gym struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name         string            `gorm:"type:text;not null" json:"name"`
	Slug         string            `gorm:"type:varchar(120);not null;uniqueIndex:ux_gyms_slug" json:"slug"`
	TimezoneName string            `gorm:"column:timezone_name;type:varchar(64);not null;default:UTC" json:"timezone_name"`
	Metadata     datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Gym) TableName() string { return "gyms" }

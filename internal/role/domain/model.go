// Package domain contains the role model and its persistence contract.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Names of the roles every gym is provisioned with. They can have their
// permissions edited but are never renamed or deleted.
const (
	RoleNameGymOwner = "GymOwner"
	RoleNameTrainer  = "Trainer"
	RoleNameStudent  = "Student"
)

var systemRoleNames = map[string]struct{}{
	RoleNameGymOwner: {},
	RoleNameTrainer:  {},
	RoleNameStudent:  {},
}

// IsSystemName reports whether name is reserved for a built-in role.
func IsSystemName(name string) bool {
	_, ok := systemRoleNames[name]
	return ok
}

// Role is a gym-scoped permission set. Names are unique within a gym and
// compared case-sensitively.
type Role struct {
	ID          snowflake.ID   `gorm:"primaryKey" json:"id"`
	GymID       snowflake.ID   `gorm:"column:gym_id;not null;uniqueIndex:ux_roles_gym_name,priority:1" json:"gym_id"`
	Name        string         `gorm:"type:varchar(100);not null;uniqueIndex:ux_roles_gym_name,priority:2" json:"name"`
	Description *string        `gorm:"type:text" json:"description,omitempty"`
	Permissions datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'" json:"permissions"`
	IsSystem    bool           `gorm:"column:is_system;not null;default:false" json:"is_system"`
	TemplateKey *string        `gorm:"column:template_key;type:varchar(64)" json:"template_key,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Role) TableName() string { return "roles" }

// Protected reports whether the role is one of the built-ins.
func (r Role) Protected() bool {
	return r.IsSystem || IsSystemName(r.Name)
}

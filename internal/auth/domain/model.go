// Package domain contains core types for authentication and user accounts.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// User is an account. Gym members carry both a gym and a role; platform
// operators carry neither and are governed by platform policies instead.
type User struct {
	ID                  snowflake.ID  `gorm:"primaryKey"`
	GymID               *snowflake.ID `gorm:"column:gym_id;index"`
	RoleID              *snowflake.ID `gorm:"column:role_id;index"`
	Email               string        `gorm:"column:email;type:varchar(255);not null;uniqueIndex"`
	DisplayName         string        `gorm:"column:display_name;type:varchar(255);not null"`
	PasswordHash        string        `gorm:"column:password_hash;type:text;not null"`
	Status              UserStatus    `gorm:"column:status;type:varchar(16);not null;default:active"`
	LastPasswordChanged *time.Time    `gorm:"column:last_password_changed"`
	CreatedAt           time.Time     `gorm:"not null"`
	UpdatedAt           time.Time     `gorm:"not null"`
}

func (User) TableName() string { return "users" }

func (u User) Active() bool {
	return u.Status == "" || u.Status == UserStatusActive
}

// Session is a persisted login. Only the SHA-256 of the token is stored.
type Session struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	UserID           snowflake.ID `gorm:"column:user_id;not null;index"`
	SessionTokenHash string       `gorm:"column:session_token_hash;type:varchar(64);not null;uniqueIndex"`
	UserAgent        string       `gorm:"column:user_agent;type:text"`
	IPAddress        string       `gorm:"column:ip_address;type:varchar(64)"`
	ExpiresAt        time.Time    `gorm:"column:expires_at;not null;index"`
	RevokedAt        *time.Time   `gorm:"column:revoked_at"`
	CreatedAt        time.Time    `gorm:"column:created_at;not null"`
	LastSeenAt       time.Time    `gorm:"column:last_seen_at;not null"`
}

func (Session) TableName() string { return "sessions" }

// Identity is the authenticated caller resolved from a session token.
type Identity struct {
	SessionID   snowflake.ID
	UserID      snowflake.ID
	GymID       *snowflake.ID
	RoleID      *snowflake.ID
	Email       string
	DisplayName string
}

// PlatformOperator reports whether the identity sits outside any gym.
func (i Identity) PlatformOperator() bool {
	return i.GymID == nil || *i.GymID == 0
}

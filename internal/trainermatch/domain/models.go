// Package domain models trainer–student pairings.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusActive  Status = "active"
	StatusPending Status = "pending"
	StatusEnded   Status = "ended"
)

// Current reports whether the match still occupies its trainer/student
// pair. At most one current match may exist per pair.
func (s Status) Current() bool {
	return s == StatusActive || s == StatusPending
}

// TrainerMatch pairs a trainer with a student of the same gym. Ended
// matches are kept as history.
type TrainerMatch struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	GymID     snowflake.ID `gorm:"column:gym_id;not null;index" json:"gym_id"`
	TrainerID snowflake.ID `gorm:"column:trainer_id;not null;index" json:"trainer_id"`
	StudentID snowflake.ID `gorm:"column:student_id;not null;index" json:"student_id"`
	Status    Status       `gorm:"type:varchar(16);not null" json:"status"`
	Notes     *string      `gorm:"type:text" json:"notes,omitempty"`
	EndedAt   *time.Time   `gorm:"column:ended_at" json:"ended_at,omitempty"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (TrainerMatch) TableName() string { return "trainer_matches" }

// MatchView is a match joined with the display names of both members.
type MatchView struct {
	TrainerMatch
	TrainerName string `gorm:"column:trainer_name"`
	StudentName string `gorm:"column:student_name"`
}

// MemberRole is the role a gym member currently holds.
type MemberRole struct {
	UserID      snowflake.ID `gorm:"column:user_id"`
	DisplayName string       `gorm:"column:display_name"`
	Status      string       `gorm:"column:status"`
	RoleName    *string      `gorm:"column:role_name"`
}

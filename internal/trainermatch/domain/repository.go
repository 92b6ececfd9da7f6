package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gymcore/pkg/db/pagination"
	"gorm.io/gorm"
)

type HistoryFilter struct {
	TrainerID *snowflake.ID
	StudentID *snowflake.ID
	Status    Status
	Cursor    *pagination.TimeCursor
	Limit     int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, match *TrainerMatch) error
	FindByID(ctx context.Context, db *gorm.DB, gymID, id snowflake.ID) (*MatchView, error)
	FindCurrentPair(ctx context.Context, db *gorm.DB, gymID, trainerID, studentID snowflake.ID) (*TrainerMatch, error)
	// CompareAndSetStatus moves a match from one status to another and
	// reports whether the row was still in the expected status.
	CompareAndSetStatus(ctx context.Context, db *gorm.DB, gymID, id snowflake.ID, from, to Status, endedAt *time.Time, updatedAt time.Time) (bool, error)
	ListCurrentByTrainer(ctx context.Context, db *gorm.DB, gymID, trainerID snowflake.ID) ([]MatchView, error)
	FindCurrentByStudent(ctx context.Context, db *gorm.DB, gymID, studentID snowflake.ID) (*MatchView, error)
	ListHistory(ctx context.Context, db *gorm.DB, gymID snowflake.ID, filter HistoryFilter) ([]MatchView, error)
	FindMemberRole(ctx context.Context, db *gorm.DB, gymID, userID snowflake.ID) (*MemberRole, error)
}

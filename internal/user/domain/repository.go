package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/gymcore/internal/auth/domain"
	"github.com/smallbiznis/gymcore/pkg/db/option"
	"gorm.io/gorm"
)

// Member is a gym user joined with the name of its role.
type Member struct {
	authdomain.User
	RoleName *string `gorm:"column:role_name"`
}

// SortColumns are the member columns a list may be ordered by.
var SortColumns = map[string]bool{
	"created_at":   true,
	"email":        true,
	"display_name": true,
}

// ListCursor resumes a list after the member it was cut at. Value holds the
// sort column's value when the list is not ordered by created_at.
type ListCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
	Value     string
}

type ListFilter struct {
	RoleID *snowflake.ID
	Status string
	Sort   option.SortBy
	Cursor *ListCursor
	Limit  int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, user *authdomain.User) error
	FindByID(ctx context.Context, db *gorm.DB, gymID, id snowflake.ID) (*Member, error)
	List(ctx context.Context, db *gorm.DB, gymID snowflake.ID, filter ListFilter) ([]Member, error)
	UpdateRole(ctx context.Context, db *gorm.DB, gymID, id, roleID snowflake.ID, updatedAt time.Time) (int64, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, gymID, id snowflake.ID, status authdomain.UserStatus, updatedAt time.Time) (int64, error)
}

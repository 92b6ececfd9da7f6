package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, role *Role) error
	FindByID(ctx context.Context, db *gorm.DB, gymID, id snowflake.ID) (*Role, error)
	FindByName(ctx context.Context, db *gorm.DB, gymID snowflake.ID, name string) (*Role, error)
	List(ctx context.Context, db *gorm.DB, gymID snowflake.ID) ([]Role, error)
	Update(ctx context.Context, db *gorm.DB, role *Role) error
	Delete(ctx context.Context, db *gorm.DB, gymID, id snowflake.ID) (int64, error)
	CountAssignedUsers(ctx context.Context, db *gorm.DB, gymID, roleID snowflake.ID) (int64, error)
}

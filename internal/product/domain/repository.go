package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	CategoryID *snowflake.ID
	Name       string
	Active     *bool
	SortBy     string
	OrderBy    string
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, product *Product) error
	FindByID(ctx context.Context, db *gorm.DB, gymID, id snowflake.ID) (*Product, error)
	List(ctx context.Context, db *gorm.DB, gymID snowflake.ID, filter ListFilter) ([]Product, error)
	Update(ctx context.Context, db *gorm.DB, product *Product) error
}

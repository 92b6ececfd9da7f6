package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateGym(ctx context.Context, gym Gym) error
	GetGym(ctx context.Context, id snowflake.ID) (*Gym, error)
	GetGymBySlug(ctx context.Context, slug string) (*Gym, error)
	ListGyms(ctx context.Context) ([]Gym, error)
}

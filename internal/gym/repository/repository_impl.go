package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gymcore/internal/gym/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) CreateGym(ctx context.Context, gym domain.Gym) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO gyms (id, name, slug, timezone_name, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		gym.ID,
		gym.Name,
		gym.Slug,
		gym.TimezoneName,
		gym.Metadata,
		gym.CreatedAt,
		gym.UpdatedAt,
	).Error
}

func (r *repository) GetGym(ctx context.Context, id snowflake.ID) (*domain.Gym, error) {
	return r.getOne(ctx, `id = ?`, id)
}

func (r *repository) GetGymBySlug(ctx context.Context, slug string) (*domain.Gym, error) {
	return r.getOne(ctx, `slug = ?`, slug)
}

func (r *repository) getOne(ctx context.Context, where string, arg any) (*domain.Gym, error) {
	var gym domain.Gym
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, name, slug, timezone_name, metadata, created_at, updated_at
		 FROM gyms WHERE `+where+` LIMIT 1`,
		arg,
	).Scan(&gym).Error
	if err != nil {
		return nil, err
	}
	if gym.ID == 0 {
		return nil, nil
	}
	return &gym, nil
}

func (r *repository) ListGyms(ctx context.Context) ([]domain.Gym, error) {
	var items []domain.Gym
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, name, slug, timezone_name, metadata, created_at, updated_at
		 FROM gyms
		 ORDER BY created_at ASC`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gymcore/internal/role/domain"
	"gorm.io/gorm"
)

const roleColumns = `id, gym_id, name, description, permissions, is_system, template_key, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, role *domain.Role) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO roles (`+roleColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		role.ID,
		role.GymID,
		role.Name,
		role.Description,
		role.Permissions,
		role.IsSystem,
		role.TemplateKey,
		role.CreatedAt,
		role.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, gymID, id snowflake.ID) (*domain.Role, error) {
	return r.findOne(ctx, db, `gym_id = ? AND id = ?`, gymID, id)
}

func (r *repo) FindByName(ctx context.Context, db *gorm.DB, gymID snowflake.ID, name string) (*domain.Role, error) {
	return r.findOne(ctx, db, `gym_id = ? AND name = ?`, gymID, name)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, where string, args ...any) (*domain.Role, error) {
	var role domain.Role
	err := db.WithContext(ctx).Raw(
		`SELECT `+roleColumns+` FROM roles WHERE `+where+` LIMIT 1`,
		args...,
	).Scan(&role).Error
	if err != nil {
		return nil, err
	}
	if role.ID == 0 {
		return nil, nil
	}
	return &role, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, gymID snowflake.ID) ([]domain.Role, error) {
	var items []domain.Role
	err := db.WithContext(ctx).Raw(
		`SELECT `+roleColumns+` FROM roles WHERE gym_id = ? ORDER BY is_system DESC, name ASC`,
		gymID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, role *domain.Role) error {
	if role == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE roles
		 SET name = ?, description = ?, permissions = ?, updated_at = ?
		 WHERE gym_id = ? AND id = ?`,
		role.Name,
		role.Description,
		role.Permissions,
		role.UpdatedAt,
		role.GymID,
		role.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, gymID, id snowflake.ID) (int64, error) {
	tx := db.WithContext(ctx).Exec(
		`DELETE FROM roles WHERE gym_id = ? AND id = ? AND is_system = ?`,
		gymID,
		id,
		false,
	)
	return tx.RowsAffected, tx.Error
}

func (r *repo) CountAssignedUsers(ctx context.Context, db *gorm.DB, gymID, roleID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM users WHERE gym_id = ? AND role_id = ?`,
		gymID,
		roleID,
	).Scan(&count).Error
	return count, err
}

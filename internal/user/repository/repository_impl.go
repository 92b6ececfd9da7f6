package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/gymcore/internal/auth/domain"
	"github.com/smallbiznis/gymcore/internal/user/domain"
	"github.com/smallbiznis/gymcore/pkg/db/option"
	"gorm.io/gorm"
)

const memberSelect = `u.id, u.gym_id, u.role_id, u.email, u.display_name, u.password_hash, u.status,
	u.last_password_changed, u.created_at, u.updated_at, r.name AS role_name`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, user *authdomain.User) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO users (id, gym_id, role_id, email, display_name, password_hash, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.GymID,
		user.RoleID,
		user.Email,
		user.DisplayName,
		user.PasswordHash,
		user.Status,
		user.CreatedAt,
		user.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, gymID, id snowflake.ID) (*domain.Member, error) {
	var member domain.Member
	err := db.WithContext(ctx).Raw(
		`SELECT `+memberSelect+`
		 FROM users u
		 LEFT JOIN roles r ON r.id = u.role_id AND r.gym_id = u.gym_id
		 WHERE u.gym_id = ? AND u.id = ?
		 LIMIT 1`,
		gymID,
		id,
	).Scan(&member).Error
	if err != nil {
		return nil, err
	}
	if member.ID == 0 {
		return nil, nil
	}
	return &member, nil
}

// List orders members by filter.Sort with the id as tie-break and returns up
// to filter.Limit+1 rows.
func (r *repo) List(ctx context.Context, db *gorm.DB, gymID snowflake.ID, filter domain.ListFilter) ([]domain.Member, error) {
	stmt := db.WithContext(ctx).
		Table("users AS u").
		Select(memberSelect).
		Joins("LEFT JOIN roles r ON r.id = u.role_id AND r.gym_id = u.gym_id").
		Where("u.gym_id = ?", gymID)

	if filter.RoleID != nil {
		stmt = stmt.Where("u.role_id = ?", *filter.RoleID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		stmt = stmt.Where("u.status = ?", status)
	}

	column := "u." + filter.Sort.Column
	if c := filter.Cursor; c != nil {
		op := ">"
		if filter.Sort.Desc {
			op = "<"
		}
		var key any = c.Value
		if filter.Sort.Column == "created_at" {
			key = c.CreatedAt
		}
		stmt = stmt.Where(fmt.Sprintf("(%[1]s %[2]s ? OR (%[1]s = ? AND u.id %[2]s ?))", column, op), key, key, c.ID)
	}

	stmt = option.WithOrder(column, filter.Sort.Desc).Apply(stmt)
	stmt = option.WithOrder("u.id", filter.Sort.Desc).Apply(stmt)
	if filter.Limit > 0 {
		stmt = option.WithLimit(filter.Limit + 1).Apply(stmt)
	}

	var items []domain.Member
	if err := stmt.Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UpdateRole(ctx context.Context, db *gorm.DB, gymID, id, roleID snowflake.ID, updatedAt time.Time) (int64, error) {
	tx := db.WithContext(ctx).Exec(
		`UPDATE users SET role_id = ?, updated_at = ? WHERE gym_id = ? AND id = ?`,
		roleID,
		updatedAt,
		gymID,
		id,
	)
	return tx.RowsAffected, tx.Error
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, gymID, id snowflake.ID, status authdomain.UserStatus, updatedAt time.Time) (int64, error) {
	tx := db.WithContext(ctx).Exec(
		`UPDATE users SET status = ?, updated_at = ? WHERE gym_id = ? AND id = ?`,
		status,
		updatedAt,
		gymID,
		id,
	)
	return tx.RowsAffected, tx.Error
}

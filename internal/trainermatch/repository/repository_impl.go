package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gymcore/internal/trainermatch/domain"
	"gorm.io/gorm"
)

const viewSelect = `SELECT m.id, m.gym_id, m.trainer_id, m.student_id, m.status, m.notes, m.ended_at,
	m.created_at, m.updated_at, t.display_name AS trainer_name, s.display_name AS student_name
	FROM trainer_matches m
	LEFT JOIN users t ON t.id = m.trainer_id
	LEFT JOIN users s ON s.id = m.student_id`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, match *domain.TrainerMatch) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO trainer_matches (id, gym_id, trainer_id, student_id, status, notes, ended_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		match.ID,
		match.GymID,
		match.TrainerID,
		match.StudentID,
		match.Status,
		match.Notes,
		match.EndedAt,
		match.CreatedAt,
		match.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, gymID, id snowflake.ID) (*domain.MatchView, error) {
	var view domain.MatchView
	err := db.WithContext(ctx).Raw(
		viewSelect+` WHERE m.gym_id = ? AND m.id = ? LIMIT 1`,
		gymID,
		id,
	).Scan(&view).Error
	if err != nil {
		return nil, err
	}
	if view.ID == 0 {
		return nil, nil
	}
	return &view, nil
}

func (r *repo) FindCurrentPair(ctx context.Context, db *gorm.DB, gymID, trainerID, studentID snowflake.ID) (*domain.TrainerMatch, error) {
	var match domain.TrainerMatch
	err := db.WithContext(ctx).Raw(
		`SELECT id, gym_id, trainer_id, student_id, status, notes, ended_at, created_at, updated_at
		 FROM trainer_matches
		 WHERE gym_id = ? AND trainer_id = ? AND student_id = ? AND status <> ?
		 LIMIT 1`,
		gymID,
		trainerID,
		studentID,
		domain.StatusEnded,
	).Scan(&match).Error
	if err != nil {
		return nil, err
	}
	if match.ID == 0 {
		return nil, nil
	}
	return &match, nil
}

func (r *repo) CompareAndSetStatus(ctx context.Context, db *gorm.DB, gymID, id snowflake.ID, from, to domain.Status, endedAt *time.Time, updatedAt time.Time) (bool, error) {
	tx := db.WithContext(ctx).Exec(
		`UPDATE trainer_matches
		 SET status = ?, ended_at = ?, updated_at = ?
		 WHERE gym_id = ? AND id = ? AND status = ?`,
		to,
		endedAt,
		updatedAt,
		gymID,
		id,
		from,
	)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

func (r *repo) ListCurrentByTrainer(ctx context.Context, db *gorm.DB, gymID, trainerID snowflake.ID) ([]domain.MatchView, error) {
	var items []domain.MatchView
	err := db.WithContext(ctx).Raw(
		viewSelect+` WHERE m.gym_id = ? AND m.trainer_id = ? AND m.status <> ?
		 ORDER BY m.created_at ASC, m.id ASC`,
		gymID,
		trainerID,
		domain.StatusEnded,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindCurrentByStudent(ctx context.Context, db *gorm.DB, gymID, studentID snowflake.ID) (*domain.MatchView, error) {
	var view domain.MatchView
	err := db.WithContext(ctx).Raw(
		viewSelect+` WHERE m.gym_id = ? AND m.student_id = ? AND m.status <> ?
		 ORDER BY m.created_at DESC, m.id DESC
		 LIMIT 1`,
		gymID,
		studentID,
		domain.StatusEnded,
	).Scan(&view).Error
	if err != nil {
		return nil, err
	}
	if view.ID == 0 {
		return nil, nil
	}
	return &view, nil
}

// ListHistory returns up to filter.Limit+1 rows so the caller can tell
// whether another page follows.
func (r *repo) ListHistory(ctx context.Context, db *gorm.DB, gymID snowflake.ID, filter domain.HistoryFilter) ([]domain.MatchView, error) {
	query := viewSelect + ` WHERE m.gym_id = ?`
	args := []any{gymID}
	if filter.TrainerID != nil {
		query += ` AND m.trainer_id = ?`
		args = append(args, *filter.TrainerID)
	}
	if filter.StudentID != nil {
		query += ` AND m.student_id = ?`
		args = append(args, *filter.StudentID)
	}
	if filter.Status != "" {
		query += ` AND m.status = ?`
		args = append(args, filter.Status)
	}
	if filter.Cursor != nil {
		query += ` AND (m.created_at < ? OR (m.created_at = ? AND m.id < ?))`
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.CreatedAt, filter.Cursor.ID)
	}
	query += ` ORDER BY m.created_at DESC, m.id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit+1)
	}

	var items []domain.MatchView
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindMemberRole(ctx context.Context, db *gorm.DB, gymID, userID snowflake.ID) (*domain.MemberRole, error) {
	var member domain.MemberRole
	err := db.WithContext(ctx).Raw(
		`SELECT u.id AS user_id, u.display_name, u.status, r.name AS role_name
		 FROM users u
		 LEFT JOIN roles r ON r.id = u.role_id AND r.gym_id = u.gym_id
		 WHERE u.gym_id = ? AND u.id = ?
		 LIMIT 1`,
		gymID,
		userID,
	).Scan(&member).Error
	if err != nil {
		return nil, err
	}
	if member.UserID == 0 {
		return nil, nil
	}
	return &member, nil
}

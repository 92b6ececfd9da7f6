package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/gymcore/pkg/db/pagination"
)

//go:generate mockgen -source=service.go -destination=../mocks/mock_service.go -package=mocks

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	UpdateStatus(ctx context.Context, req UpdateStatusRequest) (*Response, error)
	End(ctx context.Context, id string) (*Response, error)
	ListTrainerStudents(ctx context.Context, trainerID string) ([]Response, error)
	GetStudentTrainer(ctx context.Context, studentID string) (*Response, error)
	ListHistory(ctx context.Context, req HistoryRequest) (HistoryResponse, error)
}

type CreateRequest struct {
	TrainerID string  `json:"trainer_id"`
	StudentID string  `json:"student_id"`
	Status    string  `json:"status"`
	Notes     *string `json:"notes"`
}

type UpdateStatusRequest struct {
	ID     string `json:"-"`
	Status string `json:"status"`
}

type HistoryRequest struct {
	TrainerID string
	StudentID string
	Status    string
	PageToken string
	PageSize  int
}

type HistoryResponse struct {
	pagination.PageInfo
	Matches []Response `json:"matches"`
}

type Response struct {
	ID          string     `json:"id"`
	GymID       string     `json:"gym_id"`
	TrainerID   string     `json:"trainer_id"`
	TrainerName string     `json:"trainer_name,omitempty"`
	StudentID   string     `json:"student_id"`
	StudentName string     `json:"student_name,omitempty"`
	Status      string     `json:"status"`
	Notes       *string    `json:"notes,omitempty"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

var (
	ErrInvalidGym        = errors.New("invalid_gym")
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidTrainer    = errors.New("invalid_trainer")
	ErrInvalidStudent    = errors.New("invalid_student")
	ErrSamePerson        = errors.New("trainer_is_student")
	ErrRoleMismatch      = errors.New("role_mismatch")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidPageToken  = errors.New("invalid_page_token")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrConflict          = errors.New("match_exists")
	ErrBusy              = errors.New("match_busy")
	ErrNotFound          = errors.New("not_found")
)

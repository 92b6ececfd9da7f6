package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
}

type CreateRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type UpdateRequest struct {
	ID          string  `json:"-"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type ListRequest struct {
	SortBy  string
	OrderBy string
}

type Response struct {
	ID          string    `json:"id"`
	GymID       string    `json:"gym_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

var (
	ErrInvalidGym  = errors.New("invalid_gym")
	ErrInvalidID   = errors.New("invalid_id")
	ErrInvalidName = errors.New("invalid_name")
	ErrNameTaken   = errors.New("category_name_taken")
	ErrNotFound    = errors.New("not_found")
)

package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// Create provisions a gym with its built-in roles and owner account in
	// a single transaction.
	Create(ctx context.Context, actorID snowflake.ID, req CreateGymRequest) (*CreateGymResponse, error)
	GetByID(ctx context.Context, id string) (*GymResponse, error)
	List(ctx context.Context) ([]GymResponse, error)
}

type OwnerRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type CreateGymRequest struct {
	Name         string         `json:"name"`
	Slug         string         `json:"slug"`
	TimezoneName string         `json:"timezone_name"`
	Metadata     map[string]any `json:"metadata"`
	Owner        OwnerRequest   `json:"owner"`
}

type GymResponse struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Slug         string         `json:"slug"`
	TimezoneName string         `json:"timezone_name"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

type SystemRole struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type CreateGymResponse struct {
	GymResponse
	OwnerUserID string       `json:"owner_user_id"`
	Roles       []SystemRole `json:"roles"`
}

var (
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidSlug     = errors.New("invalid_slug")
	ErrInvalidTimezone = errors.New("invalid_timezone")
	ErrInvalidUser     = errors.New("invalid_user")
	ErrInvalidID       = errors.New("invalid_id")
	ErrSlugTaken       = errors.New("slug_taken")
	ErrNotFound        = errors.New("not_found")
)

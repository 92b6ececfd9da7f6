// Package domain defines gym user management: members of a gym and the
// single role each of them holds.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gymcore/pkg/db/pagination"
	"gorm.io/gorm"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	// CreateInTx adds a member to gymID inside an outer transaction.
	CreateInTx(ctx context.Context, tx *gorm.DB, gymID snowflake.ID, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	ChangeRole(ctx context.Context, req ChangeRoleRequest) (*Response, error)
	UpdateStatus(ctx context.Context, req UpdateStatusRequest) (*Response, error)
}

type CreateRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
	RoleID      string `json:"role_id"`
}

type ListRequest struct {
	RoleID    string
	Status    string
	PageToken string
	PageSize  int
	SortBy    string
	OrderBy   string
}

type ListResponse struct {
	pagination.PageInfo
	Users []Response `json:"users"`
}

type ChangeRoleRequest struct {
	ID     string `json:"-"`
	RoleID string `json:"role_id"`
}

type UpdateStatusRequest struct {
	ID     string `json:"-"`
	Status string `json:"status"`
}

type Response struct {
	ID          string    `json:"id"`
	GymID       string    `json:"gym_id"`
	RoleID      string    `json:"role_id"`
	RoleName    string    `json:"role_name"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

var (
	ErrInvalidGym       = errors.New("invalid_gym")
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidEmail     = errors.New("invalid_email")
	ErrInvalidName      = errors.New("invalid_display_name")
	ErrInvalidRole      = errors.New("invalid_role")
	ErrInvalidStatus    = errors.New("invalid_status")
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrWeakPassword     = errors.New("weak_password")
	ErrEmailTaken       = errors.New("email_taken")
	ErrNotFound         = errors.New("not_found")
	ErrSelfDeactivate   = errors.New("self_deactivation")
)

package domain

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	CreateFromTemplate(ctx context.Context, req CreateFromTemplateRequest) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context) ([]Response, error)
	Delete(ctx context.Context, id string) error
	ListTemplates(ctx context.Context) []TemplateResponse

	// SeedSystemRoles creates the built-in roles of a new gym inside tx and
	// returns them keyed by role name.
	SeedSystemRoles(ctx context.Context, tx *gorm.DB, gymID snowflake.ID) (map[string]Role, error)
}

type CreateRequest struct {
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Permissions json.RawMessage `json:"permissions"`
}

type CreateFromTemplateRequest struct {
	Template    string          `json:"template"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Permissions json.RawMessage `json:"permissions"`
}

// UpdateRequest carries a partial update. Permissions, when present, is a
// patch: each resource it names replaces that resource's flags and every
// other resource is kept.
type UpdateRequest struct {
	ID          string          `json:"-"`
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	Permissions json.RawMessage `json:"permissions"`
}

type Response struct {
	ID          string          `json:"id"`
	GymID       string          `json:"gym_id"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Permissions json.RawMessage `json:"permissions"`
	IsSystem    bool            `json:"is_system"`
	TemplateKey *string         `json:"template_key,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type TemplateResponse struct {
	Key         string          `json:"key"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Permissions json.RawMessage `json:"permissions"`
}

var (
	ErrInvalidGym         = errors.New("invalid_gym")
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidName        = errors.New("invalid_name")
	ErrInvalidPermissions = errors.New("invalid_permissions")
	ErrNotFound           = errors.New("not_found")
	ErrTemplateNotFound   = errors.New("template_not_found")
	ErrNameTaken          = errors.New("role_name_taken")
	ErrSystemRoleRename   = errors.New("system_role_rename")
	ErrSystemRoleDelete   = errors.New("system_role_delete")
	ErrRoleInUse          = errors.New("role_in_use")
)

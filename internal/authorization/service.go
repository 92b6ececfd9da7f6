package authorization

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gymcore/internal/permission"
)

//go:generate mockgen -source=service.go -destination=./mocks/mock_service.go -package=mocks

const (
	ObjectGym = "gym"

	ActionGymCreate = "gym.create"
	ActionGymRead   = "gym.read"

	PlatformDomain = "platform"
	RoleSuperAdmin = "superadmin"
)

type Service interface {
	// Authorize loads the user and role from storage and evaluates the
	// role's permissions for resource and action within gymID.
	Authorize(ctx context.Context, userID, gymID snowflake.ID, resource permission.Resource, action permission.Action) (*Grant, error)
	// AuthorizeOwned is Authorize restricted to records owned by the caller.
	AuthorizeOwned(ctx context.Context, userID, gymID snowflake.ID, resource permission.Resource, action permission.Action, ownerID snowflake.ID) (*Grant, error)
	// AuthorizePlatform checks a platform-level capability outside any gym.
	AuthorizePlatform(ctx context.Context, userID snowflake.ID, object, action string) error
	GrantPlatformRole(ctx context.Context, userID snowflake.ID, role string) error
}

var (
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidActor = errors.New("invalid_actor")
)

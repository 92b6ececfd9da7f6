// Package seed creates the records a fresh installation needs to be usable.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/gymcore/internal/auth/domain"
	"github.com/smallbiznis/gymcore/internal/auth/password"
	authservice "github.com/smallbiznis/gymcore/internal/auth/service"
	"github.com/smallbiznis/gymcore/internal/authorization"
	"github.com/smallbiznis/gymcore/internal/clock"
	"github.com/smallbiznis/gymcore/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrAdminIsMember = errors.New("bootstrap admin email belongs to a gym member")

var Module = fx.Module("seed",
	fx.Provide(New),
)

type Params struct {
	fx.In

	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Users    authdomain.Repository
	AuthzSvc authorization.Service
}

type Seeder struct {
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	users    authdomain.Repository
	authzSvc authorization.Service
}

func New(p Params) *Seeder {
	return &Seeder{
		log:      p.Log.Named("seed"),
		genID:    p.GenID,
		clock:    p.Clock,
		users:    p.Users,
		authzSvc: p.AuthzSvc,
	}
}

// EnsurePlatformAdmin makes sure the configured bootstrap account exists and
// holds the super-admin platform role. Without a configured email it does
// nothing. Running it again is harmless.
func (s *Seeder) EnsurePlatformAdmin(ctx context.Context, cfg config.BootstrapConfig) error {
	if strings.TrimSpace(cfg.AdminEmail) == "" {
		s.log.Info("bootstrap admin not configured")
		return nil
	}

	email, err := authservice.NormalizeEmail(cfg.AdminEmail)
	if err != nil {
		return fmt.Errorf("bootstrap admin email: %w", err)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, authdomain.ErrUserNotFound) {
		return err
	}
	if user == nil {
		if err := password.Validate(cfg.AdminPassword); err != nil {
			return fmt.Errorf("bootstrap admin password: %w", err)
		}
		hashed, err := password.Hash(cfg.AdminPassword)
		if err != nil {
			return err
		}

		name := strings.TrimSpace(cfg.AdminName)
		if name == "" {
			name = "Platform Admin"
		}
		now := s.clock.Now()
		user = &authdomain.User{
			ID:           s.genID.Generate(),
			Email:        email,
			DisplayName:  name,
			PasswordHash: hashed,
			Status:       authdomain.UserStatusActive,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return err
		}
		s.log.Info("bootstrap admin created", zap.String("user_id", user.ID.String()))
	}
	if user.GymID != nil {
		return ErrAdminIsMember
	}

	return s.authzSvc.GrantPlatformRole(ctx, user.ID, authorization.RoleSuperAdmin)
}

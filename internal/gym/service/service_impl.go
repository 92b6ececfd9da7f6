package service

import (
	"context"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	auditdomain "github.com/smallbiznis/gymcore/internal/audit/domain"
	"github.com/smallbiznis/gymcore/internal/clock"
	"github.com/smallbiznis/gymcore/internal/gym/domain"
	roledomain "github.com/smallbiznis/gymcore/internal/role/domain"
	userdomain "github.com/smallbiznis/gymcore/internal/user/domain"
	"github.com/smallbiznis/gymcore/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultTimezone = "UTC"

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	RoleSvc  roledomain.Service
	UserSvc  userdomain.Service
	AuditSvc auditdomain.Service `optional:"true"`
}

type service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	roleSvc  roledomain.Service
	userSvc  userdomain.Service
	auditSvc auditdomain.Service
}

func NewService(p Params) domain.Service {
	return &service{
		db:       p.DB,
		log:      p.Log.Named("gym.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		roleSvc:  p.RoleSvc,
		userSvc:  p.UserSvc,
		auditSvc: p.AuditSvc,
	}
}

func (s *service) Create(ctx context.Context, actorID snowflake.ID, req domain.CreateGymRequest) (*domain.CreateGymResponse, error) {
	if actorID == 0 {
		return nil, domain.ErrInvalidUser
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	gymSlug := strings.TrimSpace(req.Slug)
	if gymSlug == "" {
		gymSlug = name
	}
	gymSlug = slug.Make(gymSlug)
	if gymSlug == "" {
		return nil, domain.ErrInvalidSlug
	}

	timezoneName := strings.TrimSpace(req.TimezoneName)
	if timezoneName == "" {
		timezoneName = defaultTimezone
	}
	if _, err := time.LoadLocation(timezoneName); err != nil {
		return nil, domain.ErrInvalidTimezone
	}

	metadata := datatypes.JSONMap{}
	for k, v := range req.Metadata {
		metadata[k] = v
	}

	now := s.clock.Now()
	gym := domain.Gym{
		ID:           s.genID.Generate(),
		Name:         name,
		Slug:         gymSlug,
		TimezoneName: timezoneName,
		Metadata:     metadata,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var (
		owner *userdomain.Response
		roles map[string]roledomain.Role
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.GetGymBySlug(ctx, gymSlug)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrSlugTaken
		}
		if err := repo.CreateGym(ctx, gym); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrSlugTaken
			}
			return err
		}

		roles, err = s.roleSvc.SeedSystemRoles(ctx, tx, gym.ID)
		if err != nil {
			return err
		}

		ownerRole := roles[roledomain.RoleNameGymOwner]
		owner, err = s.userSvc.CreateInTx(ctx, tx, gym.ID, userdomain.CreateRequest{
			Email:       req.Owner.Email,
			DisplayName: req.Owner.DisplayName,
			Password:    req.Owner.Password,
			RoleID:      ownerRole.ID.String(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("gym provisioned",
		zap.String("gym_id", gym.ID.String()),
		zap.String("slug", gym.Slug),
	)
	s.audit(ctx, actorID, gym, owner.ID)

	resp := &domain.CreateGymResponse{
		GymResponse: toResponse(&gym),
		OwnerUserID: owner.ID,
	}
	for _, name := range []string{roledomain.RoleNameGymOwner, roledomain.RoleNameTrainer, roledomain.RoleNameStudent} {
		if role, ok := roles[name]; ok {
			resp.Roles = append(resp.Roles, domain.SystemRole{ID: role.ID.String(), Name: role.Name})
		}
	}
	return resp, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*domain.GymResponse, error) {
	gymID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	gym, err := s.repo.GetGym(ctx, gymID)
	if err != nil {
		return nil, err
	}
	if gym == nil {
		return nil, domain.ErrNotFound
	}

	resp := toResponse(gym)
	return &resp, nil
}

func (s *service) List(ctx context.Context) ([]domain.GymResponse, error) {
	items, err := s.repo.ListGyms(ctx)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.GymResponse, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

func (s *service) audit(ctx context.Context, actorID snowflake.ID, gym domain.Gym, ownerID string) {
	if s.auditSvc == nil {
		return
	}
	actor := actorID.String()
	target := gym.ID.String()
	if err := s.auditSvc.AuditLog(ctx, &gym.ID, string(auditdomain.ActorTypeUser), &actor, "gym.created", "gym", &target, map[string]any{
		"slug":          gym.Slug,
		"owner_user_id": ownerID,
	}); err != nil {
		s.log.Warn("audit write failed", zap.Error(err))
	}
}

func toResponse(gym *domain.Gym) domain.GymResponse {
	return domain.GymResponse{
		ID:           gym.ID.String(),
		Name:         gym.Name,
		Slug:         gym.Slug,
		TimezoneName: gym.TimezoneName,
		Metadata:     gym.Metadata,
		CreatedAt:    gym.CreatedAt,
	}
}

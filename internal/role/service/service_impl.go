package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/gymcore/internal/audit/domain"
	"github.com/smallbiznis/gymcore/internal/clock"
	"github.com/smallbiznis/gymcore/internal/config"
	"github.com/smallbiznis/gymcore/internal/gymcontext"
	"github.com/smallbiznis/gymcore/internal/permission"
	"github.com/smallbiznis/gymcore/internal/role/domain"
	"github.com/smallbiznis/gymcore/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// systemTemplates maps the built-in template keys to the fixed role names
// they are seeded under.
var systemTemplates = []struct {
	key  string
	name string
}{
	{config.TemplateGymOwner, domain.RoleNameGymOwner},
	{config.TemplateTrainer, domain.RoleNameTrainer},
	{config.TemplateStudent, domain.RoleNameStudent},
}

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Templates *config.RoleTemplateHolder
	AuditSvc  auditdomain.Service `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	templates *config.RoleTemplateHolder
	auditSvc  auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("role.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		templates: p.Templates,
		auditSvc:  p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	gymID, ok := gymcontext.GymIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidGym
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	perms, err := parsePermissions(req.Permissions)
	if err != nil {
		return nil, err
	}

	role, err := s.insert(ctx, s.db, gymID, name, normalizeDescription(req.Description), perms, false, nil)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, gymID, "role.created", role, nil)
	return toResponse(role), nil
}

func (s *Service) CreateFromTemplate(ctx context.Context, req domain.CreateFromTemplateRequest) (*domain.Response, error) {
	gymID, ok := gymcontext.GymIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidGym
	}

	key := strings.TrimSpace(req.Template)
	tpl, found := s.templates.Lookup(key)
	if !found {
		return nil, domain.ErrTemplateNotFound
	}

	base, err := templatePermissions(tpl)
	if err != nil {
		return nil, err
	}
	overrides, err := parsePermissions(req.Permissions)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = tpl.Name
	}

	description := normalizeDescription(req.Description)
	if description == nil && tpl.Description != "" {
		desc := tpl.Description
		description = &desc
	}

	role, err := s.insert(ctx, s.db, gymID, name, description, permission.Merge(base, overrides), false, &key)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, gymID, "role.created", role, map[string]any{"template": key})
	return toResponse(role), nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	gymID, ok := gymcontext.GymIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidGym
	}

	roleID, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	var patch permission.Permissions
	if len(req.Permissions) > 0 {
		patch, err = parsePermissions(req.Permissions)
		if err != nil {
			return nil, err
		}
	}

	var (
		updated *domain.Role
		changes = map[string]any{}
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		role, err := s.repo.FindByID(ctx, tx, gymID, roleID)
		if err != nil {
			return err
		}
		if role == nil {
			return domain.ErrNotFound
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return domain.ErrInvalidName
			}
			if name != role.Name {
				if role.Protected() {
					return domain.ErrSystemRoleRename
				}
				existing, err := s.repo.FindByName(ctx, tx, gymID, name)
				if err != nil {
					return err
				}
				if existing != nil {
					return domain.ErrNameTaken
				}
				changes["name"] = map[string]any{"from": role.Name, "to": name}
				role.Name = name
			}
		}

		if req.Description != nil {
			role.Description = normalizeDescription(req.Description)
		}

		if patch != nil {
			current, err := permission.Parse(role.Permissions)
			if err != nil {
				s.log.Warn("stored permissions unreadable, replacing",
					zap.String("role_id", role.ID.String()),
					zap.Error(err),
				)
				current = permission.Permissions{}
			}
			merged, err := permission.Merge(current, patch).Marshal()
			if err != nil {
				return err
			}
			role.Permissions = datatypes.JSON(merged)
			changes["permissions"] = patchedResources(patch)
		}

		role.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, role); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrNameTaken
			}
			return err
		}
		updated = role
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, gymID, "role.updated", updated, changes)
	return toResponse(updated), nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	gymID, ok := gymcontext.GymIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidGym
	}

	roleID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	role, err := s.repo.FindByID(ctx, s.db, gymID, roleID)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, domain.ErrNotFound
	}
	return toResponse(role), nil
}

func (s *Service) List(ctx context.Context) ([]domain.Response, error) {
	gymID, ok := gymcontext.GymIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidGym
	}

	items, err := s.repo.List(ctx, s.db, gymID)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, *toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	gymID, ok := gymcontext.GymIDFromContext(ctx)
	if !ok {
		return domain.ErrInvalidGym
	}

	roleID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.ErrInvalidID
	}

	var deleted *domain.Role
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		role, err := s.repo.FindByID(ctx, tx, gymID, roleID)
		if err != nil {
			return err
		}
		if role == nil {
			return domain.ErrNotFound
		}
		if role.Protected() {
			return domain.ErrSystemRoleDelete
		}

		assigned, err := s.repo.CountAssignedUsers(ctx, tx, gymID, roleID)
		if err != nil {
			return err
		}
		if assigned > 0 {
			return domain.ErrRoleInUse
		}

		affected, err := s.repo.Delete(ctx, tx, gymID, roleID)
		if err != nil {
			if db.IsForeignKeyErr(err) {
				return domain.ErrRoleInUse
			}
			return err
		}
		if affected == 0 {
			return domain.ErrNotFound
		}
		deleted = role
		return nil
	})
	if err != nil {
		return err
	}

	s.audit(ctx, gymID, "role.deleted", deleted, nil)
	return nil
}

func (s *Service) ListTemplates(ctx context.Context) []domain.TemplateResponse {
	templates := s.templates.Get().Templates
	resp := make([]domain.TemplateResponse, 0, len(templates))
	for _, tpl := range templates {
		raw, err := json.Marshal(tpl.Permissions)
		if err != nil {
			s.log.Warn("template not serializable", zap.String("template", tpl.Key), zap.Error(err))
			continue
		}
		resp = append(resp, domain.TemplateResponse{
			Key:         tpl.Key,
			Name:        tpl.Name,
			Description: tpl.Description,
			Permissions: raw,
		})
	}
	return resp
}

func (s *Service) SeedSystemRoles(ctx context.Context, tx *gorm.DB, gymID snowflake.ID) (map[string]domain.Role, error) {
	if gymID == 0 {
		return nil, domain.ErrInvalidGym
	}

	seeded := make(map[string]domain.Role, len(systemTemplates))
	for _, sys := range systemTemplates {
		tpl, found := s.templates.Lookup(sys.key)
		if !found {
			return nil, fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, sys.key)
		}
		perms, err := templatePermissions(tpl)
		if err != nil {
			return nil, err
		}

		key := sys.key
		var description *string
		if tpl.Description != "" {
			desc := tpl.Description
			description = &desc
		}
		role, err := s.insert(ctx, tx, gymID, sys.name, description, perms, true, &key)
		if err != nil {
			return nil, err
		}
		seeded[role.Name] = *role
	}
	return seeded, nil
}

func (s *Service) insert(ctx context.Context, conn *gorm.DB, gymID snowflake.ID, name string, description *string, perms permission.Permissions, system bool, templateKey *string) (*domain.Role, error) {
	raw, err := perms.Marshal()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	role := &domain.Role{
		ID:          s.genID.Generate(),
		GymID:       gymID,
		Name:        name,
		Description: description,
		Permissions: datatypes.JSON(raw),
		IsSystem:    system,
		TemplateKey: templateKey,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	existing, err := s.repo.FindByName(ctx, conn, gymID, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrNameTaken
	}

	if err := s.repo.Insert(ctx, conn, role); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrNameTaken
		}
		return nil, err
	}
	return role, nil
}

func (s *Service) audit(ctx context.Context, gymID snowflake.ID, action string, role *domain.Role, metadata map[string]any) {
	if s.auditSvc == nil || role == nil {
		return
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["name"] = role.Name

	targetID := role.ID.String()
	if err := s.auditSvc.AuditLog(ctx, &gymID, "", nil, action, "role", &targetID, metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

func parsePermissions(raw json.RawMessage) (permission.Permissions, error) {
	perms, err := permission.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidPermissions, err)
	}
	return perms, nil
}

func templatePermissions(tpl config.RoleTemplate) (permission.Permissions, error) {
	raw, err := json.Marshal(tpl.Permissions)
	if err != nil {
		return nil, err
	}
	return parsePermissions(raw)
}

func patchedResources(patch permission.Permissions) []string {
	out := make([]string, 0, len(patch))
	for _, r := range permission.Resources() {
		if _, ok := patch[r]; ok {
			out = append(out, string(r))
		}
	}
	return out
}

func normalizeDescription(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func toResponse(role *domain.Role) *domain.Response {
	perms := json.RawMessage(role.Permissions)
	if len(perms) == 0 {
		perms = json.RawMessage("{}")
	}
	return &domain.Response{
		ID:          role.ID.String(),
		GymID:       role.GymID.String(),
		Name:        role.Name,
		Description: role.Description,
		Permissions: perms,
		IsSystem:    role.IsSystem,
		TemplateKey: role.TemplateKey,
		CreatedAt:   role.CreatedAt,
		UpdatedAt:   role.UpdatedAt,
	}
}

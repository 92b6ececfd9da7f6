package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/gymcore/internal/audit/domain"
	authdomain "github.com/smallbiznis/gymcore/internal/auth/domain"
	"github.com/smallbiznis/gymcore/internal/auth/password"
	authservice "github.com/smallbiznis/gymcore/internal/auth/service"
	"github.com/smallbiznis/gymcore/internal/clock"
	"github.com/smallbiznis/gymcore/internal/gymcontext"
	roledomain "github.com/smallbiznis/gymcore/internal/role/domain"
	"github.com/smallbiznis/gymcore/internal/user/domain"
	"github.com/smallbiznis/gymcore/pkg/db"
	"github.com/smallbiznis/gymcore/pkg/db/option"
	"github.com/smallbiznis/gymcore/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	RoleRepo roledomain.Repository
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	roleRepo roledomain.Repository
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("user.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		roleRepo: p.RoleRepo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	gymID, ok := gymcontext.GymIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidGym
	}

	var created *domain.Response
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		resp, err := s.CreateInTx(ctx, tx, gymID, req)
		if err != nil {
			return err
		}
		created = resp
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, gymID, "user.created", created.ID, map[string]any{"role_id": created.RoleID})
	return created, nil
}

func (s *Service) CreateInTx(ctx context.Context, tx *gorm.DB, gymID snowflake.ID, req domain.CreateRequest) (*domain.Response, error) {
	if gymID == 0 {
		return nil, domain.ErrInvalidGym
	}

	email, err := authservice.NormalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidEmail
	}
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		return nil, domain.ErrInvalidName
	}
	if err := password.Validate(req.Password); err != nil {
		return nil, domain.ErrWeakPassword
	}

	role, err := s.resolveRole(ctx, tx, gymID, req.RoleID)
	if err != nil {
		return nil, err
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	user := &authdomain.User{
		ID:           s.genID.Generate(),
		GymID:        &gymID,
		RoleID:       &role.ID,
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hashed,
		Status:       authdomain.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Insert(ctx, tx, user); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrEmailTaken
		}
		return nil, err
	}

	name := role.Name
	return toResponse(&domain.Member{User: *user, RoleName: &name}), nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	gymID, ok := gymcontext.GymIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidGym
	}

	userID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	member, err := s.repo.FindByID(ctx, s.db, gymID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, domain.ErrNotFound
	}
	return toResponse(member), nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	gymID, ok := gymcontext.GymIDFromContext(ctx)
	if !ok {
		return domain.ListResponse{}, domain.ErrInvalidGym
	}

	sort := option.WithQuerySortBy(req.SortBy, req.OrderBy, domain.SortColumns)
	cursor, err := decodeListCursor(req.PageToken, sort.Column)
	if err != nil {
		return domain.ListResponse{}, err
	}
	filter := domain.ListFilter{
		Status: strings.TrimSpace(req.Status),
		Sort:   sort,
		Cursor: cursor,
		Limit:  pagination.Pagination{PageSize: req.PageSize}.Limit(),
	}
	if raw := strings.TrimSpace(req.RoleID); raw != "" {
		roleID, err := snowflake.ParseString(raw)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidRole
		}
		filter.RoleID = &roleID
	}

	items, err := s.repo.List(ctx, s.db, gymID, filter)
	if err != nil {
		return domain.ListResponse{}, err
	}

	members := make([]*domain.Member, 0, len(items))
	for i := range items {
		members = append(members, &items[i])
	}
	members, pageInfo := pagination.BuildCursorPageInfo(members, filter.Limit, func(m *domain.Member) string {
		return encodeListCursor(m, sort.Column)
	})

	resp := make([]domain.Response, 0, len(members))
	for _, m := range members {
		resp = append(resp, *toResponse(m))
	}
	return domain.ListResponse{PageInfo: *pageInfo, Users: resp}, nil
}

// encodeListCursor records the sort column so a token cannot resume a list
// ordered another way.
func encodeListCursor(m *domain.Member, column string) string {
	cursor := pagination.Cursor{
		ID:        m.ID.String(),
		CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339Nano),
		Sort:      column,
	}
	switch column {
	case "email":
		cursor.Value = m.Email
	case "display_name":
		cursor.Value = m.DisplayName
	}
	token, err := pagination.EncodeCursor(cursor)
	if err != nil {
		return ""
	}
	return token
}

func decodeListCursor(token, column string) (*domain.ListCursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	decoded, err := pagination.DecodeCursor(token)
	if err != nil || decoded.Sort != column {
		return nil, domain.ErrInvalidPageToken
	}
	createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
	if err != nil {
		return nil, domain.ErrInvalidPageToken
	}
	id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
	if err != nil || id <= 0 {
		return nil, domain.ErrInvalidPageToken
	}
	return &domain.ListCursor{ID: id, CreatedAt: createdAt.UTC(), Value: decoded.Value}, nil
}

// ChangeRole moves a member to another role of the same gym. The new role
// applies from the member's next request.
func (s *Service) ChangeRole(ctx context.Context, req domain.ChangeRoleRequest) (*domain.Response, error) {
	gymID, ok := gymcontext.GymIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidGym
	}

	userID, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	var (
		updated  *domain.Member
		previous *string
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		member, err := s.repo.FindByID(ctx, tx, gymID, userID)
		if err != nil {
			return err
		}
		if member == nil {
			return domain.ErrNotFound
		}

		role, err := s.resolveRole(ctx, tx, gymID, req.RoleID)
		if err != nil {
			return err
		}

		if _, err := s.repo.UpdateRole(ctx, tx, gymID, userID, role.ID, s.clock.Now()); err != nil {
			return err
		}
		previous = member.RoleName

		updated, err = s.repo.FindByID(ctx, tx, gymID, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	metadata := map[string]any{"role_id": updated.RoleID.String()}
	if previous != nil {
		metadata["previous_role"] = *previous
	}
	s.audit(ctx, gymID, "user.role_changed", updated.ID.String(), metadata)
	return toResponse(updated), nil
}

func (s *Service) UpdateStatus(ctx context.Context, req domain.UpdateStatusRequest) (*domain.Response, error) {
	gymID, ok := gymcontext.GymIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidGym
	}

	userID, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	status := authdomain.UserStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	switch status {
	case authdomain.UserStatusActive, authdomain.UserStatusDisabled:
	default:
		return nil, domain.ErrInvalidStatus
	}

	if actorID, ok := gymcontext.UserIDFromContext(ctx); ok && actorID == userID && status == authdomain.UserStatusDisabled {
		return nil, domain.ErrSelfDeactivate
	}

	affected, err := s.repo.UpdateStatus(ctx, s.db, gymID, userID, status, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, domain.ErrNotFound
	}

	member, err := s.repo.FindByID(ctx, s.db, gymID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, domain.ErrNotFound
	}

	s.audit(ctx, gymID, "user.status_changed", member.ID.String(), map[string]any{"status": string(status)})
	return toResponse(member), nil
}

func (s *Service) resolveRole(ctx context.Context, tx *gorm.DB, gymID snowflake.ID, raw string) (*roledomain.Role, error) {
	roleID, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || roleID == 0 {
		return nil, domain.ErrInvalidRole
	}
	role, err := s.roleRepo.FindByID(ctx, tx, gymID, roleID)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, domain.ErrInvalidRole
	}
	return role, nil
}

func (s *Service) audit(ctx context.Context, gymID snowflake.ID, action, userID string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	if err := s.auditSvc.AuditLog(ctx, &gymID, "", nil, action, "user", &userID, metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

func toResponse(m *domain.Member) *domain.Response {
	resp := &domain.Response{
		ID:          m.ID.String(),
		Email:       m.Email,
		DisplayName: m.DisplayName,
		Status:      string(m.Status),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.GymID != nil {
		resp.GymID = m.GymID.String()
	}
	if m.RoleID != nil {
		resp.RoleID = m.RoleID.String()
	}
	if m.RoleName != nil {
		resp.RoleName = *m.RoleName
	}
	if resp.Status == "" {
		resp.Status = string(authdomain.UserStatusActive)
	}
	return resp
}

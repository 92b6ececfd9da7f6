package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/gymcore/internal/audit/domain"
	"github.com/smallbiznis/gymcore/internal/observability/metrics"
	"github.com/smallbiznis/gymcore/internal/permission"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
	Metrics  *metrics.Metrics    `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
	metrics  *metrics.Metrics
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}
}

// actorRow is the user and role as stored right now. Role columns are nil
// when the user has no role or the role row is gone.
type actorRow struct {
	UserID      int64   `gorm:"column:user_id"`
	UserGymID   *int64  `gorm:"column:user_gym_id"`
	Status      string  `gorm:"column:status"`
	RoleID      *int64  `gorm:"column:role_id"`
	RoleGymID   *int64  `gorm:"column:role_gym_id"`
	RoleName    *string `gorm:"column:role_name"`
	Permissions *string `gorm:"column:permissions"`
}

func (s *ServiceImpl) Authorize(ctx context.Context, userID, gymID snowflake.ID, resource permission.Resource, action permission.Action) (*Grant, error) {
	return s.authorize(ctx, userID, gymID, resource, action, Unscoped)
}

func (s *ServiceImpl) AuthorizeOwned(ctx context.Context, userID, gymID snowflake.ID, resource permission.Resource, action permission.Action, ownerID snowflake.ID) (*Grant, error) {
	return s.authorize(ctx, userID, gymID, resource, action, Ownership{
		Scoped: true,
		Owned:  ownerID != 0 && ownerID == userID,
	})
}

func (s *ServiceImpl) authorize(ctx context.Context, userID, gymID snowflake.ID, resource permission.Resource, action permission.Action, own Ownership) (*Grant, error) {
	if userID == 0 {
		return nil, ErrInvalidActor
	}

	grant, reason, err := s.evaluate(ctx, userID, gymID, resource, action, own)
	if err != nil {
		return nil, err
	}

	allowed := reason == ""
	s.metrics.RecordAuthorization(ctx, string(resource), string(action), allowed)
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("user_id", userID.String()),
			zap.String("resource", string(resource)),
			zap.String("action", string(action)),
			zap.String("reason", reason),
		)
		s.auditDenied(ctx, userID, gymID, string(resource), string(action), reason)
		return nil, ErrForbidden
	}
	return grant, nil
}

// evaluate returns a non-empty reason when the check is denied. Storage
// failures are the only errors returned.
func (s *ServiceImpl) evaluate(ctx context.Context, userID, gymID snowflake.ID, resource permission.Resource, action permission.Action, own Ownership) (*Grant, string, error) {
	if gymID == 0 {
		return nil, "no_gym", nil
	}
	if !resource.Valid() {
		return nil, "unknown_resource", nil
	}

	row, err := s.loadActor(ctx, userID)
	if err != nil {
		return nil, "", fmt.Errorf("load actor: %w", err)
	}
	if row == nil {
		return nil, "unknown_user", nil
	}
	if row.Status != "" && row.Status != "active" {
		return nil, "user_disabled", nil
	}
	if row.UserGymID == nil || *row.UserGymID != gymID.Int64() {
		return nil, "gym_mismatch", nil
	}
	if row.RoleID == nil || row.RoleGymID == nil {
		return nil, "no_role", nil
	}
	if *row.RoleGymID != gymID.Int64() {
		return nil, "role_gym_mismatch", nil
	}

	var raw []byte
	if row.Permissions != nil {
		raw = []byte(*row.Permissions)
	}
	perms, err := permission.Parse(raw)
	if err != nil {
		s.log.Warn("role permissions unreadable",
			zap.Int64("role_id", *row.RoleID),
			zap.Error(err),
		)
		return nil, "malformed_permissions", nil
	}

	if !Evaluate(perms, resource, action, own) {
		if own.Scoped && perms.Allows(resource, action) {
			return nil, "not_owner", nil
		}
		return nil, "not_permitted", nil
	}

	roleName := ""
	if row.RoleName != nil {
		roleName = *row.RoleName
	}
	return &Grant{
		UserID:      userID,
		GymID:       gymID,
		RoleID:      snowflake.ID(*row.RoleID),
		RoleName:    roleName,
		Permissions: perms,
	}, "", nil
}

func (s *ServiceImpl) loadActor(ctx context.Context, userID snowflake.ID) (*actorRow, error) {
	var row actorRow
	err := s.db.WithContext(ctx).Raw(
		`SELECT u.id AS user_id, u.gym_id AS user_gym_id, u.status,
		        r.id AS role_id, r.gym_id AS role_gym_id, r.name AS role_name, r.permissions
		 FROM users u
		 LEFT JOIN roles r ON r.id = u.role_id
		 WHERE u.id = ?
		 LIMIT 1`,
		userID,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.UserID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (s *ServiceImpl) AuthorizePlatform(ctx context.Context, userID snowflake.ID, object, action string) error {
	if userID == 0 {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	action = strings.TrimSpace(action)

	row, err := s.loadActor(ctx, userID)
	if err != nil {
		return fmt.Errorf("load actor: %w", err)
	}
	if row == nil || (row.Status != "" && row.Status != "active") {
		s.metrics.RecordAuthorization(ctx, object, action, false)
		return ErrForbidden
	}

	allowed, err := s.enforcer.Enforce(subjectFor(userID), PlatformDomain, object, action)
	if err != nil {
		return err
	}
	s.metrics.RecordAuthorization(ctx, object, action, allowed)
	if !allowed {
		s.auditDenied(ctx, userID, 0, object, action, "platform_policy")
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) GrantPlatformRole(ctx context.Context, userID snowflake.ID, role string) error {
	if userID == 0 {
		return ErrInvalidActor
	}
	roleName := fmt.Sprintf("role:%s", strings.ToLower(strings.TrimSpace(role)))

	has, err := s.enforcer.HasGroupingPolicy(subjectFor(userID), roleName, PlatformDomain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	if _, err := s.enforcer.AddGroupingPolicy(subjectFor(userID), roleName, PlatformDomain); err != nil {
		return err
	}
	s.log.Info("platform role granted", zap.String("user_id", userID.String()), zap.String("role", roleName))
	return nil
}

func (s *ServiceImpl) auditDenied(ctx context.Context, userID, gymID snowflake.ID, object, action, reason string) {
	if s.auditSvc == nil {
		return
	}
	var gymPtr *snowflake.ID
	if gymID != 0 {
		gymPtr = &gymID
	}
	actorID := userID.String()
	targetID := object
	if err := s.auditSvc.AuditLog(ctx, gymPtr, string(auditdomain.ActorTypeUser), &actorID, "authorization.denied", "authorization", &targetID, map[string]any{
		"resource": object,
		"action":   action,
		"reason":   reason,
	}); err != nil {
		s.log.Warn("audit write failed", zap.Error(err))
	}
}

func subjectFor(userID snowflake.ID) string {
	return fmt.Sprintf("user:%s", userID.String())
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	superAdmin := fmt.Sprintf("role:%s", RoleSuperAdmin)
	policies := [][]string{
		{superAdmin, ObjectGym, ActionGymCreate},
		{superAdmin, ObjectGym, ActionGymRead},
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}

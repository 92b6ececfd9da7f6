package authorization

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/gymcore/internal/auth/domain"
	"github.com/smallbiznis/gymcore/internal/permission"
	roledomain "github.com/smallbiznis/gymcore/internal/role/domain"
	"github.com/smallbiznis/gymcore/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fixture struct {
	conn *gorm.DB
	node *snowflake.Node
	svc  Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&roledomain.Role{}, &authdomain.User{}))

	enforcer, err := NewEnforcer(conn)
	require.NoError(t, err)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return &fixture{
		conn: conn,
		node: node,
		svc:  NewService(Params{DB: conn, Log: zap.NewNop(), Enforcer: enforcer}),
	}
}

func (f *fixture) role(t *testing.T, gymID snowflake.ID, name, perms string) snowflake.ID {
	t.Helper()
	now := time.Now().UTC()
	role := roledomain.Role{
		ID:          f.node.Generate(),
		GymID:       gymID,
		Name:        name,
		Permissions: datatypes.JSON(perms),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, f.conn.Create(&role).Error)
	return role.ID
}

func (f *fixture) user(t *testing.T, gymID, roleID *snowflake.ID) snowflake.ID {
	t.Helper()
	now := time.Now().UTC()
	user := authdomain.User{
		ID:           f.node.Generate(),
		GymID:        gymID,
		RoleID:       roleID,
		Email:        f.node.Generate().String() + "@example.com",
		DisplayName:  "Member",
		PasswordHash: "x",
		Status:       authdomain.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, f.conn.Create(&user).Error)
	return user.ID
}

func TestAuthorizeNutritionistScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	gymID := f.node.Generate()
	roleID := f.role(t, gymID, "Nutritionist", `{"students":{"read":true},"workouts":{"read":true}}`)
	userID := f.user(t, &gymID, &roleID)

	grant, err := f.svc.Authorize(ctx, userID, gymID, permission.Students, permission.ActionRead)
	require.NoError(t, err)
	assert.Equal(t, "Nutritionist", grant.RoleName)
	assert.Equal(t, roleID, grant.RoleID)

	_, err = f.svc.Authorize(ctx, userID, gymID, permission.Products, permission.ActionCreate)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Authorize(ctx, userID, gymID, permission.Students, permission.ActionUpdate)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAuthorizeReadsRoleOnEveryCall(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	gymID := f.node.Generate()
	roleID := f.role(t, gymID, "Coach", `{"workouts":{"read":true}}`)
	userID := f.user(t, &gymID, &roleID)

	_, err := f.svc.Authorize(ctx, userID, gymID, permission.Workouts, permission.ActionRead)
	require.NoError(t, err)

	require.NoError(t, f.conn.Model(&roledomain.Role{}).Where("id = ?", roleID).
		Update("permissions", datatypes.JSON(`{"workouts":{"read":false}}`)).Error)

	_, err = f.svc.Authorize(ctx, userID, gymID, permission.Workouts, permission.ActionRead)
	assert.ErrorIs(t, err, ErrForbidden, "revocation applies to the next check")

	otherRole := f.role(t, gymID, "Owner", `{"workouts":{"read":true}}`)
	require.NoError(t, f.conn.Model(&authdomain.User{}).Where("id = ?", userID).Update("role_id", otherRole).Error)

	_, err = f.svc.Authorize(ctx, userID, gymID, permission.Workouts, permission.ActionRead)
	assert.NoError(t, err, "role change applies to the next check")
}

func TestAuthorizeFailsClosed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	gymID := f.node.Generate()
	otherGym := f.node.Generate()

	validRole := f.role(t, gymID, "Valid", `{"orders":{"read":true}}`)
	brokenRole := f.role(t, gymID, "Broken", `{not json`)
	foreignRole := f.role(t, otherGym, "Foreign", `{"orders":{"read":true}}`)
	missingRole := f.node.Generate()

	cases := []struct {
		name   string
		userID snowflake.ID
	}{
		{"malformed permissions", f.user(t, &gymID, &brokenRole)},
		{"no role", f.user(t, &gymID, nil)},
		{"role row missing", f.user(t, &gymID, &missingRole)},
		{"role from another gym", f.user(t, &gymID, &foreignRole)},
		{"user of another gym", f.user(t, &otherGym, &validRole)},
		{"platform user", f.user(t, nil, nil)},
		{"unknown user", f.node.Generate()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Authorize(ctx, tc.userID, gymID, permission.Orders, permission.ActionRead)
			assert.ErrorIs(t, err, ErrForbidden)
		})
	}

	t.Run("disabled user", func(t *testing.T) {
		userID := f.user(t, &gymID, &validRole)
		require.NoError(t, f.conn.Model(&authdomain.User{}).Where("id = ?", userID).Update("status", authdomain.UserStatusDisabled).Error)

		_, err := f.svc.Authorize(ctx, userID, gymID, permission.Orders, permission.ActionRead)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("unknown resource", func(t *testing.T) {
		userID := f.user(t, &gymID, &validRole)
		_, err := f.svc.Authorize(ctx, userID, gymID, permission.Resource("gyms"), permission.ActionRead)
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestAuthorizeOwned(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	gymID := f.node.Generate()
	roleID := f.role(t, gymID, "Student", `{"orders":{"read":true,"delete":true}}`)
	userID := f.user(t, &gymID, &roleID)

	_, err := f.svc.AuthorizeOwned(ctx, userID, gymID, permission.Orders, permission.ActionDelete, userID)
	assert.NoError(t, err)

	_, err = f.svc.AuthorizeOwned(ctx, userID, gymID, permission.Orders, permission.ActionDelete, f.node.Generate())
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestPlatformPolicy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	admin := f.user(t, nil, nil)
	other := f.user(t, nil, nil)

	require.NoError(t, f.svc.GrantPlatformRole(ctx, admin, RoleSuperAdmin))
	require.NoError(t, f.svc.GrantPlatformRole(ctx, admin, RoleSuperAdmin), "granting twice is a no-op")

	assert.NoError(t, f.svc.AuthorizePlatform(ctx, admin, ObjectGym, ActionGymCreate))
	assert.NoError(t, f.svc.AuthorizePlatform(ctx, admin, ObjectGym, ActionGymRead))
	assert.ErrorIs(t, f.svc.AuthorizePlatform(ctx, admin, ObjectGym, "gym.delete"), ErrForbidden)
	assert.ErrorIs(t, f.svc.AuthorizePlatform(ctx, other, ObjectGym, ActionGymCreate), ErrForbidden)
	assert.ErrorIs(t, f.svc.AuthorizePlatform(ctx, f.node.Generate(), ObjectGym, ActionGymCreate), ErrForbidden)
}

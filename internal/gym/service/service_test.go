package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/gymcore/internal/auth/domain"
	"github.com/smallbiznis/gymcore/internal/clock"
	"github.com/smallbiznis/gymcore/internal/config"
	"github.com/smallbiznis/gymcore/internal/gym/domain"
	"github.com/smallbiznis/gymcore/internal/gym/repository"
	roledomain "github.com/smallbiznis/gymcore/internal/role/domain"
	rolerepository "github.com/smallbiznis/gymcore/internal/role/repository"
	roleservice "github.com/smallbiznis/gymcore/internal/role/service"
	userrepository "github.com/smallbiznis/gymcore/internal/user/repository"
	userservice "github.com/smallbiznis/gymcore/internal/user/service"
	"github.com/smallbiznis/gymcore/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(t *testing.T) (domain.Service, *gorm.DB, snowflake.ID) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Gym{}, &roledomain.Role{}, &authdomain.User{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	roleRepo := rolerepository.Provide()
	roleSvc := roleservice.New(roleservice.Params{
		DB: conn, Log: log, GenID: node, Clock: fake, Repo: roleRepo,
		Templates: config.NewStaticRoleTemplateHolder(config.DefaultRoleTemplates()),
	})
	userSvc := userservice.New(userservice.Params{
		DB: conn, Log: log, GenID: node, Clock: fake, Repo: userrepository.Provide(), RoleRepo: roleRepo,
	})

	svc := NewService(Params{
		DB:      conn,
		Log:     log,
		GenID:   node,
		Clock:   fake,
		Repo:    repository.NewRepository(conn),
		RoleSvc: roleSvc,
		UserSvc: userSvc,
	})
	return svc, conn, node.Generate()
}

func validRequest() domain.CreateGymRequest {
	return domain.CreateGymRequest{
		Name:         "Iron Temple Downtown",
		TimezoneName: "America/Sao_Paulo",
		Owner: domain.OwnerRequest{
			Email:       "owner@irontemple.test",
			DisplayName: "Olga Owner",
			Password:    "owner-password",
		},
	}
}

func TestCreateGymProvisionsRolesAndOwner(t *testing.T) {
	ctx := context.Background()
	svc, conn, actor := newService(t)

	resp, err := svc.Create(ctx, actor, validRequest())
	require.NoError(t, err)
	assert.Equal(t, "iron-temple-downtown", resp.Slug)
	assert.Equal(t, "America/Sao_Paulo", resp.TimezoneName)
	require.Len(t, resp.Roles, 3)
	assert.Equal(t, roledomain.RoleNameGymOwner, resp.Roles[0].Name)

	var owner authdomain.User
	require.NoError(t, conn.Where("email = ?", "owner@irontemple.test").First(&owner).Error)
	assert.Equal(t, resp.OwnerUserID, owner.ID.String())
	require.NotNil(t, owner.RoleID)
	assert.Equal(t, resp.Roles[0].ID, owner.RoleID.String())

	got, err := svc.GetByID(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "Iron Temple Downtown", got.Name)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCreateGymRejectsDuplicateSlug(t *testing.T) {
	ctx := context.Background()
	svc, _, actor := newService(t)

	_, err := svc.Create(ctx, actor, validRequest())
	require.NoError(t, err)

	again := validRequest()
	again.Owner.Email = "second@irontemple.test"
	_, err = svc.Create(ctx, actor, again)
	assert.ErrorIs(t, err, domain.ErrSlugTaken)
}

func TestCreateGymRollsBackOnOwnerFailure(t *testing.T) {
	ctx := context.Background()
	svc, conn, actor := newService(t)

	req := validRequest()
	req.Owner.Password = "short"
	_, err := svc.Create(ctx, actor, req)
	require.Error(t, err)

	var gyms, roles int64
	require.NoError(t, conn.Model(&domain.Gym{}).Count(&gyms).Error)
	require.NoError(t, conn.Model(&roledomain.Role{}).Count(&roles).Error)
	assert.Zero(t, gyms)
	assert.Zero(t, roles)
}

func TestCreateGymValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, actor := newService(t)

	req := validRequest()
	req.Name = " "
	_, err := svc.Create(ctx, actor, req)
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	req = validRequest()
	req.TimezoneName = "Mars/Olympus"
	_, err = svc.Create(ctx, actor, req)
	assert.ErrorIs(t, err, domain.ErrInvalidTimezone)

	_, err = svc.Create(ctx, 0, validRequest())
	assert.ErrorIs(t, err, domain.ErrInvalidUser)

	_, err = svc.GetByID(ctx, "123456")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

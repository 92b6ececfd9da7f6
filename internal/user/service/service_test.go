package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/gymcore/internal/auth/domain"
	"github.com/smallbiznis/gymcore/internal/clock"
	"github.com/smallbiznis/gymcore/internal/gymcontext"
	roledomain "github.com/smallbiznis/gymcore/internal/role/domain"
	rolerepository "github.com/smallbiznis/gymcore/internal/role/repository"
	"github.com/smallbiznis/gymcore/internal/user/domain"
	"github.com/smallbiznis/gymcore/internal/user/repository"
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
	svc  domain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&roledomain.Role{}, &authdomain.User{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:       conn,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		Repo:     repository.Provide(),
		RoleRepo: rolerepository.Provide(),
	})
	return &fixture{conn: conn, node: node, svc: svc}
}

func (f *fixture) role(t *testing.T, gymID snowflake.ID, name string) string {
	t.Helper()
	now := time.Now().UTC()
	role := roledomain.Role{
		ID:          f.node.Generate(),
		GymID:       gymID,
		Name:        name,
		Permissions: datatypes.JSON(`{}`),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, f.conn.Create(&role).Error)
	return role.ID.String()
}

func gymCtx(gymID snowflake.ID) context.Context {
	return gymcontext.WithGymID(context.Background(), gymID.Int64())
}

func TestCreateUser(t *testing.T) {
	f := newFixture(t)
	gymID := f.node.Generate()
	ctx := gymCtx(gymID)
	student := f.role(t, gymID, "Student")

	created, err := f.svc.Create(ctx, domain.CreateRequest{
		Email:       "  Maria@Example.com ",
		DisplayName: "Maria",
		Password:    "long-enough-pass",
		RoleID:      student,
	})
	require.NoError(t, err)
	assert.Equal(t, "maria@example.com", created.Email)
	assert.Equal(t, "Student", created.RoleName)
	assert.Equal(t, gymID.String(), created.GymID)
	assert.Equal(t, "active", created.Status)

	t.Run("duplicate email", func(t *testing.T) {
		_, err := f.svc.Create(ctx, domain.CreateRequest{
			Email: "maria@example.com", DisplayName: "Other", Password: "long-enough-pass", RoleID: student,
		})
		assert.ErrorIs(t, err, domain.ErrEmailTaken)
	})

	t.Run("email is unique across gyms", func(t *testing.T) {
		otherGym := f.node.Generate()
		_, err := f.svc.Create(gymCtx(otherGym), domain.CreateRequest{
			Email: "maria@example.com", DisplayName: "Other", Password: "long-enough-pass", RoleID: f.role(t, otherGym, "Student"),
		})
		assert.ErrorIs(t, err, domain.ErrEmailTaken)
	})

	t.Run("role from another gym", func(t *testing.T) {
		foreign := f.role(t, f.node.Generate(), "Student")
		_, err := f.svc.Create(ctx, domain.CreateRequest{
			Email: "joe@example.com", DisplayName: "Joe", Password: "long-enough-pass", RoleID: foreign,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidRole)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := f.svc.Create(ctx, domain.CreateRequest{Email: "nope", DisplayName: "Joe", Password: "long-enough-pass", RoleID: student})
		assert.ErrorIs(t, err, domain.ErrInvalidEmail)

		_, err = f.svc.Create(ctx, domain.CreateRequest{Email: "joe@example.com", DisplayName: " ", Password: "long-enough-pass", RoleID: student})
		assert.ErrorIs(t, err, domain.ErrInvalidName)

		_, err = f.svc.Create(ctx, domain.CreateRequest{Email: "joe@example.com", DisplayName: "Joe", Password: "short", RoleID: student})
		assert.ErrorIs(t, err, domain.ErrWeakPassword)
	})
}

func TestChangeRole(t *testing.T) {
	f := newFixture(t)
	gymID := f.node.Generate()
	ctx := gymCtx(gymID)
	student := f.role(t, gymID, "Student")
	trainer := f.role(t, gymID, "Trainer")

	created, err := f.svc.Create(ctx, domain.CreateRequest{
		Email: "sam@example.com", DisplayName: "Sam", Password: "long-enough-pass", RoleID: student,
	})
	require.NoError(t, err)

	updated, err := f.svc.ChangeRole(ctx, domain.ChangeRoleRequest{ID: created.ID, RoleID: trainer})
	require.NoError(t, err)
	assert.Equal(t, trainer, updated.RoleID)
	assert.Equal(t, "Trainer", updated.RoleName)

	_, err = f.svc.ChangeRole(ctx, domain.ChangeRoleRequest{ID: created.ID, RoleID: f.node.Generate().String()})
	assert.ErrorIs(t, err, domain.ErrInvalidRole)

	_, err = f.svc.ChangeRole(gymCtx(f.node.Generate()), domain.ChangeRoleRequest{ID: created.ID, RoleID: trainer})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListAndStatus(t *testing.T) {
	f := newFixture(t)
	gymID := f.node.Generate()
	ctx := gymCtx(gymID)
	student := f.role(t, gymID, "Student")
	trainer := f.role(t, gymID, "Trainer")

	var ids []string
	for _, u := range []struct{ email, role string }{
		{"a@example.com", student},
		{"b@example.com", student},
		{"c@example.com", trainer},
	} {
		created, err := f.svc.Create(ctx, domain.CreateRequest{Email: u.email, DisplayName: u.email, Password: "long-enough-pass", RoleID: u.role})
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}

	all, err := f.svc.List(ctx, domain.ListRequest{SortBy: "email"})
	require.NoError(t, err)
	require.Len(t, all.Users, 3)
	assert.Equal(t, "a@example.com", all.Users[0].Email)
	assert.False(t, all.HasMore)

	students, err := f.svc.List(ctx, domain.ListRequest{RoleID: student})
	require.NoError(t, err)
	assert.Len(t, students.Users, 2)

	disabled, err := f.svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: ids[0], Status: "disabled"})
	require.NoError(t, err)
	assert.Equal(t, "disabled", disabled.Status)

	active, err := f.svc.List(ctx, domain.ListRequest{Status: "active"})
	require.NoError(t, err)
	assert.Len(t, active.Users, 2)

	_, err = f.svc.UpdateStatus(ctx, domain.UpdateStatusRequest{ID: ids[1], Status: "banned"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	self, err := snowflake.ParseString(ids[2])
	require.NoError(t, err)
	selfCtx := gymcontext.WithUserID(ctx, self.Int64())
	_, err = f.svc.UpdateStatus(selfCtx, domain.UpdateStatusRequest{ID: ids[2], Status: "disabled"})
	assert.ErrorIs(t, err, domain.ErrSelfDeactivate)

	other, err := f.svc.List(gymCtx(f.node.Generate()), domain.ListRequest{})
	require.NoError(t, err)
	assert.Empty(t, other.Users)
}

func TestListPagesByCursor(t *testing.T) {
	f := newFixture(t)
	gymID := f.node.Generate()
	ctx := gymCtx(gymID)
	student := f.role(t, gymID, "Student")

	// Created in reverse email order under a frozen clock.
	var ids []string
	for _, email := range []string{"e@example.com", "d@example.com", "c@example.com", "b@example.com", "a@example.com"} {
		created, err := f.svc.Create(ctx, domain.CreateRequest{Email: email, DisplayName: email, Password: "long-enough-pass", RoleID: student})
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}

	collect := func(req domain.ListRequest, field func(domain.Response) string) []string {
		t.Helper()
		req.PageSize = 2
		var got []string
		for page := 0; ; page++ {
			require.Less(t, page, 5, "pagination does not terminate")
			resp, err := f.svc.List(ctx, req)
			require.NoError(t, err)
			for _, u := range resp.Users {
				got = append(got, field(u))
			}
			if !resp.HasMore {
				assert.Empty(t, resp.NextPageToken)
				return got
			}
			require.Len(t, resp.Users, 2)
			req.PageToken = resp.NextPageToken
		}
	}
	id := func(u domain.Response) string { return u.ID }
	email := func(u domain.Response) string { return u.Email }

	assert.Equal(t, ids, collect(domain.ListRequest{}, id))
	assert.Equal(t, []string{ids[4], ids[3], ids[2], ids[1], ids[0]}, collect(domain.ListRequest{OrderBy: "desc"}, id))
	assert.Equal(t,
		[]string{"a@example.com", "b@example.com", "c@example.com", "d@example.com", "e@example.com"},
		collect(domain.ListRequest{SortBy: "email"}, email),
	)
	assert.Equal(t,
		[]string{"e@example.com", "d@example.com", "c@example.com", "b@example.com", "a@example.com"},
		collect(domain.ListRequest{SortBy: "email", OrderBy: "desc"}, email),
	)

	first, err := f.svc.List(ctx, domain.ListRequest{PageSize: 2})
	require.NoError(t, err)
	_, err = f.svc.List(ctx, domain.ListRequest{PageSize: 2, SortBy: "email", PageToken: first.NextPageToken})
	assert.ErrorIs(t, err, domain.ErrInvalidPageToken, "token from another ordering")
	_, err = f.svc.List(ctx, domain.ListRequest{PageToken: "garbage"})
	assert.ErrorIs(t, err, domain.ErrInvalidPageToken)
}

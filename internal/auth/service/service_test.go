package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/gymcore/internal/auth/domain"
	"github.com/smallbiznis/gymcore/internal/auth/password"
	"github.com/smallbiznis/gymcore/internal/auth/repository"
	"github.com/smallbiznis/gymcore/internal/clock"
	"github.com/smallbiznis/gymcore/internal/config"
	"github.com/smallbiznis/gymcore/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	svc   authdomain.Service
	repo  authdomain.Repository
	clock *clock.FakeClock
	node  *snowflake.Node
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&authdomain.User{}, &authdomain.Session{}))

	repo, sessionRepo := repository.New(conn)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	svc := New(Params{
		Log:         zap.NewNop(),
		Config:      config.Config{SessionTTL: time.Hour},
		Repo:        repo,
		SessionRepo: sessionRepo,
		GenID:       node,
		Clock:       fake,
	})
	return &fixture{svc: svc, repo: repo, clock: fake, node: node}
}

func (f *fixture) createUser(t *testing.T, email, pass string, status authdomain.UserStatus) *authdomain.User {
	t.Helper()
	hashed, err := password.Hash(pass)
	require.NoError(t, err)
	gymID := f.node.Generate()
	user := &authdomain.User{
		ID:           f.node.Generate(),
		GymID:        &gymID,
		Email:        email,
		DisplayName:  "Test",
		PasswordHash: hashed,
		Status:       status,
		CreatedAt:    f.clock.Now(),
		UpdatedAt:    f.clock.Now(),
	}
	require.NoError(t, f.repo.Create(context.Background(), user))
	return user
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.createUser(t, "alice@example.com", "correct-password", authdomain.UserStatusActive)

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.svc.Login(ctx, authdomain.LoginRequest{Email: "alice@example.com", Password: "wrong-password"})
		assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := f.svc.Login(ctx, authdomain.LoginRequest{Email: "nobody@example.com", Password: "correct-password"})
		assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)
	})

	t.Run("email is case insensitive", func(t *testing.T) {
		res, err := f.svc.Login(ctx, authdomain.LoginRequest{Email: " Alice@Example.com ", Password: "correct-password"})
		require.NoError(t, err)
		assert.NotEmpty(t, res.RawToken)
		assert.Equal(t, user.ID, res.User.ID)
		assert.Equal(t, f.clock.Now().Add(time.Hour), res.ExpiresAt)
	})
}

func TestLoginDisabledUser(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "bob@example.com", "correct-password", authdomain.UserStatusDisabled)

	_, err := f.svc.Login(context.Background(), authdomain.LoginRequest{Email: "bob@example.com", Password: "correct-password"})
	assert.ErrorIs(t, err, authdomain.ErrUserDisabled)
}

func TestAuthenticateLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.createUser(t, "carol@example.com", "correct-password", authdomain.UserStatusActive)

	res, err := f.svc.Login(ctx, authdomain.LoginRequest{Email: "carol@example.com", Password: "correct-password"})
	require.NoError(t, err)

	identity, err := f.svc.Authenticate(ctx, res.RawToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, identity.UserID)
	require.NotNil(t, identity.GymID)
	assert.Equal(t, *user.GymID, *identity.GymID)
	assert.False(t, identity.PlatformOperator())

	_, err = f.svc.Authenticate(ctx, "not-a-token")
	assert.ErrorIs(t, err, authdomain.ErrInvalidSession)

	f.clock.Advance(2 * time.Hour)
	_, err = f.svc.Authenticate(ctx, res.RawToken)
	assert.ErrorIs(t, err, authdomain.ErrSessionExpired)
}

func TestLogoutRevokesSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.createUser(t, "dan@example.com", "correct-password", authdomain.UserStatusActive)

	res, err := f.svc.Login(ctx, authdomain.LoginRequest{Email: "dan@example.com", Password: "correct-password"})
	require.NoError(t, err)
	require.NoError(t, f.svc.Logout(ctx, res.RawToken))

	_, err = f.svc.Authenticate(ctx, res.RawToken)
	assert.ErrorIs(t, err, authdomain.ErrSessionRevoked)
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.createUser(t, "erin@example.com", "correct-password", authdomain.UserStatusActive)

	res, err := f.svc.Login(ctx, authdomain.LoginRequest{Email: "erin@example.com", Password: "correct-password"})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.ChangePassword(ctx, user.ID, "wrong", "new-password-1"), authdomain.ErrInvalidCredentials)
	assert.ErrorIs(t, f.svc.ChangePassword(ctx, user.ID, "correct-password", "short"), authdomain.ErrWeakPassword)
	require.NoError(t, f.svc.ChangePassword(ctx, user.ID, "correct-password", "new-password-1"))

	_, err = f.svc.Authenticate(ctx, res.RawToken)
	assert.ErrorIs(t, err, authdomain.ErrSessionRevoked)

	_, err = f.svc.Login(ctx, authdomain.LoginRequest{Email: "erin@example.com", Password: "new-password-1"})
	assert.NoError(t, err)
}

func TestNormalizeEmail(t *testing.T) {
	email, err := NormalizeEmail("  Jane.Doe@Gym.Test ")
	require.NoError(t, err)
	assert.Equal(t, "jane.doe@gym.test", email)

	_, err = NormalizeEmail("not an email")
	assert.ErrorIs(t, err, authdomain.ErrInvalidEmail)
}

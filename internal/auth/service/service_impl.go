package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/gymcore/internal/audit/domain"
	"github.com/smallbiznis/gymcore/internal/audit/masking"
	"github.com/smallbiznis/gymcore/internal/auth/domain"
	"github.com/smallbiznis/gymcore/internal/auth/password"
	"github.com/smallbiznis/gymcore/internal/clock"
	"github.com/smallbiznis/gymcore/internal/config"
	"github.com/smallbiznis/gymcore/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	sessionTokenBytes = 32
	defaultSessionTTL = 7 * 24 * time.Hour
)

type Params struct {
	fx.In

	Log         *zap.Logger
	Config      config.Config
	Repo        domain.Repository
	SessionRepo domain.SessionRepository
	GenID       *snowflake.Node
	Clock       clock.Clock
	AuditSvc    auditdomain.Service `optional:"true"`
	Metrics     *metrics.Metrics    `optional:"true"`
}

type Service struct {
	log         *zap.Logger
	repo        domain.Repository
	sessionRepo domain.SessionRepository
	genID       *snowflake.Node
	clock       clock.Clock
	auditSvc    auditdomain.Service
	metrics     *metrics.Metrics
	sessionTTL  time.Duration
}

func New(p Params) domain.Service {
	ttl := p.Config.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &Service{
		log:         p.Log.Named("auth.service"),
		repo:        p.Repo,
		sessionRepo: p.SessionRepo,
		genID:       p.GenID,
		clock:       p.Clock,
		auditSvc:    p.AuditSvc,
		metrics:     p.Metrics,
		sessionTTL:  ttl,
	}
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	email, err := NormalizeEmail(req.Email)
	if err != nil || req.Password == "" {
		s.metrics.RecordLoginAttempt(ctx, "invalid_request")
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.loginFailed(ctx, nil, email, "unknown_email")
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !password.Verify(req.Password, user.PasswordHash) {
		s.loginFailed(ctx, user, email, "wrong_password")
		return nil, domain.ErrInvalidCredentials
	}
	if !user.Active() {
		s.loginFailed(ctx, user, email, "disabled")
		return nil, domain.ErrUserDisabled
	}

	rawToken, err := newSessionToken()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	session := &domain.Session{
		ID:               s.genID.Generate(),
		UserID:           user.ID,
		SessionTokenHash: hashToken(rawToken),
		UserAgent:        strings.TrimSpace(req.UserAgent),
		IPAddress:        strings.TrimSpace(req.IPAddress),
		ExpiresAt:        now.Add(s.sessionTTL),
		CreatedAt:        now,
		LastSeenAt:       now,
	}
	if err := s.sessionRepo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	s.metrics.RecordLoginAttempt(ctx, "success")
	s.audit(ctx, user, "user.login", map[string]any{"session_id": session.ID.String()})

	return &domain.LoginResult{
		RawToken:  rawToken,
		ExpiresAt: session.ExpiresAt,
		SessionID: session.ID,
		User:      user,
	}, nil
}

func (s *Service) Logout(ctx context.Context, rawToken string) error {
	session, err := s.lookupSession(ctx, rawToken)
	if err != nil {
		return err
	}
	return s.sessionRepo.RevokeSession(ctx, session.ID, s.clock.Now())
}

// Authenticate resolves a raw token to the caller. The user row is read on
// every call so disabled accounts lose access immediately.
func (s *Service) Authenticate(ctx context.Context, rawToken string) (*domain.Identity, error) {
	session, err := s.lookupSession(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if session.RevokedAt != nil {
		return nil, domain.ErrSessionRevoked
	}
	if now.After(session.ExpiresAt) {
		return nil, domain.ErrSessionExpired
	}

	user, err := s.repo.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidSession
		}
		return nil, err
	}
	if !user.Active() {
		return nil, domain.ErrUserDisabled
	}

	if err := s.sessionRepo.UpdateLastSeen(ctx, session.ID, now); err != nil {
		return nil, err
	}

	return &domain.Identity{
		SessionID:   session.ID,
		UserID:      user.ID,
		GymID:       user.GymID,
		RoleID:      user.RoleID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}, nil
}

// ChangePassword rotates the password and revokes every existing session
// of the user.
func (s *Service) ChangePassword(ctx context.Context, userID snowflake.ID, currentPassword, newPassword string) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !password.Verify(currentPassword, user.PasswordHash) {
		return domain.ErrInvalidCredentials
	}
	if err := password.Validate(newPassword); err != nil {
		return domain.ErrWeakPassword
	}

	hashed, err := password.Hash(newPassword)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	if err := s.repo.UpdateFields(ctx, userID, map[string]any{
		"password_hash":         hashed,
		"last_password_changed": now,
		"updated_at":            now,
	}); err != nil {
		return err
	}
	if err := s.sessionRepo.RevokeUserSessions(ctx, userID, now); err != nil {
		return err
	}

	s.audit(ctx, user, "user.password_changed", nil)
	return nil
}

func (s *Service) lookupSession(ctx context.Context, rawToken string) (*domain.Session, error) {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return nil, domain.ErrInvalidSession
	}

	session, err := s.sessionRepo.GetSessionByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrInvalidSession
		}
		return nil, err
	}
	return session, nil
}

func (s *Service) loginFailed(ctx context.Context, user *domain.User, email, reason string) {
	s.metrics.RecordLoginAttempt(ctx, reason)
	s.log.Info("login failed", zap.String("email", masking.MaskEmail(email)), zap.String("reason", reason))
	if user == nil {
		return
	}
	s.audit(ctx, user, "user.login_failed", map[string]any{"reason": reason})
}

func (s *Service) audit(ctx context.Context, user *domain.User, action string, metadata map[string]any) {
	if s.auditSvc == nil || user == nil {
		return
	}
	userID := user.ID.String()
	if err := s.auditSvc.AuditLog(ctx, user.GymID, string(auditdomain.ActorTypeUser), &userID, action, "user", &userID, metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

// NormalizeEmail validates an address and lowercases it.
func NormalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", domain.ErrInvalidEmail
	}
	return strings.ToLower(strings.TrimSpace(addr.Address)), nil
}

func newSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

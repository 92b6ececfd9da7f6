package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, rawToken string) error
	Authenticate(ctx context.Context, rawToken string) (*Identity, error)
	ChangePassword(ctx context.Context, userID snowflake.ID, currentPassword, newPassword string) error
}

type LoginRequest struct {
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

type LoginResult struct {
	RawToken  string
	ExpiresAt time.Time
	SessionID snowflake.ID
	User      *User
}

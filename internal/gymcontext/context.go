package gymcontext

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// GymContextKey is the request context key for the active gym ID.
type GymContextKey struct{}

// UserContextKey is the request context key for the authenticated user ID.
type UserContextKey struct{}

// WithGymID stores the gym ID in the context.
func WithGymID(ctx context.Context, gymID int64) context.Context {
	return context.WithValue(ctx, GymContextKey{}, gymID)
}

// GymIDFromContext returns the gym ID from context, if set.
func GymIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}
	return asID(ctx.Value(GymContextKey{}))
}

// WithUserID stores the acting user ID in the context.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, UserContextKey{}, userID)
}

// UserIDFromContext returns the acting user ID from context, if set.
func UserIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}
	return asID(ctx.Value(UserContextKey{}))
}

func asID(value any) (snowflake.ID, bool) {
	switch typed := value.(type) {
	case int64:
		return snowflake.ID(typed), typed != 0
	case snowflake.ID:
		return typed, typed != 0
	case string:
		parsed, err := snowflake.ParseString(strings.TrimSpace(typed))
		if err == nil && parsed != 0 {
			return parsed, true
		}
	}
	return 0, false
}

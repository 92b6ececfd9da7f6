package ratelimit

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/gymcore/internal/config"
)

const keyLoginAttempt = "auth:login:%s:%s"

// LoginLimiter throttles password attempts per client address and email.
// A nil limiter allows everything.
type LoginLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewLoginLimiter(cfg config.Config, bucket *TokenBucket) *LoginLimiter {
	if bucket == nil || cfg.RateLimit.LoginRate <= 0 || cfg.RateLimit.LoginBurst <= 0 {
		return nil
	}
	return &LoginLimiter{
		bucket: bucket,
		rate:   cfg.RateLimit.LoginRate,
		burst:  cfg.RateLimit.LoginBurst,
	}
}

func (l *LoginLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *LoginLimiter) Allow(ctx context.Context, ip, email string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, LoginKey(ip, email), l.rate, l.burst)
}

func LoginKey(ip, email string) string {
	return fmt.Sprintf(keyLoginAttempt, strings.TrimSpace(ip), strings.ToLower(strings.TrimSpace(email)))
}

// PairLockKey names the lease that serializes match creation for one
// trainer and student.
func PairLockKey(gymID, trainerID, studentID string) string {
	return fmt.Sprintf("trainer_match:lock:%s:%s:%s", gymID, trainerID, studentID)
}

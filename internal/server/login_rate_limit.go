package server

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/gymcore/internal/observability/logger"
	"go.uber.org/zap"
)

const (
	rateLimitReasonLogin = "login-attempts"
	maxLoginBodyBytes    = 64 << 10
)

type loginRateLimitKey struct {
	Email string `json:"email"`
}

// LoginRateLimit throttles password attempts per client address and email.
// It is a no-op unless redis is configured.
func (s *Server) LoginRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.loginLimiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		email, err := readLoginEmail(c)
		if err != nil {
			logger.FromContext(ctx).Warn("login rate limit read body failed", zap.Error(err))
			AbortWithError(c, invalidRequestError())
			return
		}

		result, err := s.loginLimiter.Allow(ctx, c.ClientIP(), email)
		if err != nil {
			logger.FromContext(ctx).Warn("login rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !result.Allowed {
			endpoint := normalizeRateLimitEndpoint(c)
			logger.FromContext(ctx).Warn("login rate limit exceeded",
				zap.String("reason", rateLimitReasonLogin),
				zap.String("endpoint", endpoint),
			)
			s.obsMetrics.RecordRateLimitDenied(ctx, endpoint, rateLimitReasonLogin)

			retryAfter := max(int(result.RetryAfter.Seconds()), 1)
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.Header("X-Rate-Limited-Reason", rateLimitReasonLogin)
			AbortWithError(c, ErrRateLimited)
			return
		}

		c.Next()
	}
}

func readLoginEmail(c *gin.Context) (string, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxLoginBodyBytes))
	if err != nil {
		return "", err
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	if len(body) == 0 {
		return "", nil
	}

	var payload loginRateLimitKey
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", nil
	}
	return strings.TrimSpace(payload.Email), nil
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}

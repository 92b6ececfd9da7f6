package server

import (
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/gymcore/internal/auditcontext"
	auditdomain "github.com/smallbiznis/gymcore/internal/audit/domain"
	authdomain "github.com/smallbiznis/gymcore/internal/auth/domain"
	"github.com/smallbiznis/gymcore/internal/authorization"
	"github.com/smallbiznis/gymcore/internal/gymcontext"
	obscontext "github.com/smallbiznis/gymcore/internal/observability/context"
	"github.com/smallbiznis/gymcore/internal/permission"
)

const contextIdentityKey = "identity"

// AuthRequired resolves the session token to an identity and scopes the
// request context to the caller's gym. Platform operators carry no gym.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		identity, err := s.authsvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		actorID := identity.UserID.String()
		ctx := c.Request.Context()
		ctx = gymcontext.WithUserID(ctx, identity.UserID.Int64())
		ctx = obscontext.WithActor(ctx, string(auditdomain.ActorTypeUser), actorID)
		ctx = auditcontext.WithActor(ctx, string(auditdomain.ActorTypeUser), actorID)
		if !identity.PlatformOperator() {
			ctx = gymcontext.WithGymID(ctx, identity.GymID.Int64())
			ctx = obscontext.WithGymID(ctx, identity.GymID.String())
		}
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextIdentityKey, identity)
		c.Next()
	}
}

func identityFromContext(c *gin.Context) (*authdomain.Identity, bool) {
	value, ok := c.Get(contextIdentityKey)
	if !ok {
		return nil, false
	}
	identity, ok := value.(*authdomain.Identity)
	return identity, ok && identity != nil
}

func gymOf(identity *authdomain.Identity) snowflake.ID {
	if identity == nil || identity.GymID == nil {
		return 0
	}
	return *identity.GymID
}

// authorize checks resource/action against the caller's role as stored
// right now and keeps the grant on the request for handlers that need a
// second look at the same permissions.
func (s *Server) authorize(resource permission.Resource, action permission.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := identityFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		grant, err := s.authzSvc.Authorize(c.Request.Context(), identity.UserID, gymOf(identity), resource, action)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Request = c.Request.WithContext(authorization.WithGrant(c.Request.Context(), grant))
		c.Next()
	}
}

func (s *Server) platformAuthorize(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := identityFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authzSvc.AuthorizePlatform(c.Request.Context(), identity.UserID, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

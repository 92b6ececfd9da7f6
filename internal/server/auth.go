package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/gymcore/internal/auth/domain"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type identityResponse struct {
	UserID      string  `json:"user_id"`
	GymID       *string `json:"gym_id,omitempty"`
	RoleID      *string `json:"role_id,omitempty"`
	Email       string  `json:"email"`
	DisplayName string  `json:"display_name"`
	Platform    bool    `json:"platform_operator"`
}

type loginResponse struct {
	identityResponse
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Server) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.authsvc.Login(c.Request.Context(), authdomain.LoginRequest{
		Email:     strings.TrimSpace(req.Email),
		Password:  req.Password,
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, result.RawToken, result.ExpiresAt)

	user := result.User
	c.JSON(http.StatusOK, gin.H{"data": loginResponse{
		identityResponse: toIdentityResponse(&authdomain.Identity{
			SessionID:   result.SessionID,
			UserID:      user.ID,
			GymID:       user.GymID,
			RoleID:      user.RoleID,
			Email:       user.Email,
			DisplayName: user.DisplayName,
		}),
		Token:     result.RawToken,
		ExpiresAt: result.ExpiresAt,
	}})
}

func (s *Server) Logout(c *gin.Context) {
	token, ok := s.sessions.ReadToken(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if err := s.authsvc.Logout(c.Request.Context(), token); err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Clear(c)
	c.Status(http.StatusNoContent)
}

func (s *Server) Me(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toIdentityResponse(identity)})
}

func (s *Server) ChangePassword(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.CurrentPassword == "" {
		AbortWithError(c, newValidationError("current_password", "required", "current password is required"))
		return
	}
	if req.NewPassword == "" {
		AbortWithError(c, newValidationError("new_password", "required", "new password is required"))
		return
	}
	if req.CurrentPassword == req.NewPassword {
		AbortWithError(c, newValidationError("new_password", "must_differ", "new password must be different"))
		return
	}

	if err := s.authsvc.ChangePassword(c.Request.Context(), identity.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Clear(c)
	c.Status(http.StatusNoContent)
}

func toIdentityResponse(identity *authdomain.Identity) identityResponse {
	resp := identityResponse{
		UserID:      identity.UserID.String(),
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
		Platform:    identity.PlatformOperator(),
	}
	if identity.GymID != nil && *identity.GymID != 0 {
		gymID := identity.GymID.String()
		resp.GymID = &gymID
	}
	if identity.RoleID != nil && *identity.RoleID != 0 {
		roleID := identity.RoleID.String()
		resp.RoleID = &roleID
	}
	return resp
}

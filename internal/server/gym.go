package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	gymdomain "github.com/smallbiznis/gymcore/internal/gym/domain"
)

func (s *Server) CreateGym(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req gymdomain.CreateGymRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.gymSvc.Create(c.Request.Context(), identity.UserID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListGyms(c *gin.Context) {
	resp, err := s.gymSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetGymByID(c *gin.Context) {
	resp, err := s.gymSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isGymValidationError(err error) bool {
	switch err {
	case gymdomain.ErrInvalidName,
		gymdomain.ErrInvalidSlug,
		gymdomain.ErrInvalidTimezone,
		gymdomain.ErrInvalidUser,
		gymdomain.ErrInvalidID:
		return true
	default:
		return false
	}
}

package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	roledomain "github.com/smallbiznis/gymcore/internal/role/domain"
)

func (s *Server) CreateRole(c *gin.Context) {
	var req roledomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.roleSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) CreateRoleFromTemplate(c *gin.Context) {
	var req roledomain.CreateFromTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.roleSvc.CreateFromTemplate(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListRoles(c *gin.Context) {
	resp, err := s.roleSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListRoleTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.roleSvc.ListTemplates(c.Request.Context())})
}

func (s *Server) GetRoleByID(c *gin.Context) {
	resp, err := s.roleSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateRole(c *gin.Context) {
	var req roledomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.roleSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteRole(c *gin.Context) {
	if err := s.roleSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func isRoleValidationError(err error) bool {
	return errors.Is(err, roledomain.ErrInvalidGym) ||
		errors.Is(err, roledomain.ErrInvalidID) ||
		errors.Is(err, roledomain.ErrInvalidName) ||
		errors.Is(err, roledomain.ErrInvalidPermissions)
}

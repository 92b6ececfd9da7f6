package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	roledomain "github.com/smallbiznis/gymcore/internal/role/domain"
	userdomain "github.com/smallbiznis/gymcore/internal/user/domain"
)

// Students are gym members holding the built-in Student role. These
// endpoints are guarded by the students resource instead of users.

func (s *Server) ListStudents(c *gin.Context) {
	var query struct {
		Status    string `form:"status"`
		PageToken string `form:"page_token"`
		PageSize  int    `form:"page_size"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	roleID, err := s.studentRoleID(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.userSvc.List(ctx, userdomain.ListRequest{
		RoleID:    roleID,
		Status:    strings.TrimSpace(query.Status),
		PageToken: strings.TrimSpace(query.PageToken),
		PageSize:  query.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Users, "page_info": resp.PageInfo})
}

func (s *Server) UpdateStudentStatus(c *gin.Context) {
	var req userdomain.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	ctx := c.Request.Context()
	current, err := s.userSvc.Get(ctx, req.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if current.RoleName != roledomain.RoleNameStudent {
		AbortWithError(c, userdomain.ErrNotFound)
		return
	}

	resp, err := s.userSvc.UpdateStatus(ctx, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) studentRoleID(ctx context.Context) (string, error) {
	roles, err := s.roleSvc.List(ctx)
	if err != nil {
		return "", err
	}
	for _, r := range roles {
		if r.IsSystem && r.Name == roledomain.RoleNameStudent {
			return r.ID, nil
		}
	}
	return "", roledomain.ErrNotFound
}

package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	matchdomain "github.com/smallbiznis/gymcore/internal/trainermatch/domain"
)

func (s *Server) CreateTrainerMatch(c *gin.Context) {
	var req matchdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.matchSvc.Create(c.Request.Context(), matchdomain.CreateRequest{
		TrainerID: strings.TrimSpace(req.TrainerID),
		StudentID: strings.TrimSpace(req.StudentID),
		Status:    strings.TrimSpace(req.Status),
		Notes:     req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetTrainerMatchByID(c *gin.Context) {
	resp, err := s.matchSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateTrainerMatchStatus(c *gin.Context) {
	var req matchdomain.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))
	req.Status = strings.TrimSpace(req.Status)

	resp, err := s.matchSvc.UpdateStatus(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) EndTrainerMatch(c *gin.Context) {
	resp, err := s.matchSvc.End(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListTrainerStudents(c *gin.Context) {
	resp, err := s.matchSvc.ListTrainerStudents(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetStudentTrainer(c *gin.Context) {
	resp, err := s.matchSvc.GetStudentTrainer(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListTrainerMatchHistory(c *gin.Context) {
	var query struct {
		TrainerID string `form:"trainer_id"`
		StudentID string `form:"student_id"`
		Status    string `form:"status"`
		PageToken string `form:"page_token"`
		PageSize  int    `form:"page_size"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.matchSvc.ListHistory(c.Request.Context(), matchdomain.HistoryRequest{
		TrainerID: strings.TrimSpace(query.TrainerID),
		StudentID: strings.TrimSpace(query.StudentID),
		Status:    strings.TrimSpace(query.Status),
		PageToken: strings.TrimSpace(query.PageToken),
		PageSize:  query.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Matches, "page_info": resp.PageInfo})
}

func isTrainerMatchValidationError(err error) bool {
	switch err {
	case matchdomain.ErrInvalidGym,
		matchdomain.ErrInvalidID,
		matchdomain.ErrInvalidTrainer,
		matchdomain.ErrInvalidStudent,
		matchdomain.ErrSamePerson,
		matchdomain.ErrRoleMismatch,
		matchdomain.ErrInvalidStatus,
		matchdomain.ErrInvalidPageToken:
		return true
	default:
		return false
	}
}

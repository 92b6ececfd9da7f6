package server

import (
	"net/http"
	"testing"

	"github.com/golang/mock/gomock"
	matchdomain "github.com/smallbiznis/gymcore/internal/trainermatch/domain"
	matchmocks "github.com/smallbiznis/gymcore/internal/trainermatch/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTrainerMatchErrors(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		status   int
		wantType string
		wantCode string
	}{
		{"duplicate pair", matchdomain.ErrConflict, http.StatusConflict, "conflict", ""},
		{"swapped roles", matchdomain.ErrRoleMismatch, http.StatusBadRequest, "validation_error", "role_mismatch"},
		{"same person", matchdomain.ErrSamePerson, http.StatusBadRequest, "validation_error", "trainer_is_student"},
		{"disabled trainer", matchdomain.ErrInvalidTrainer, http.StatusBadRequest, "validation_error", "invalid_trainer"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			matches := matchmocks.NewMockService(ctrl)
			matches.EXPECT().
				Create(gomock.Any(), matchdomain.CreateRequest{TrainerID: "1", StudentID: "2"}).
				Return(nil, tc.err)

			s := &Server{matchSvc: matches}
			r := newTestEngine()
			r.Use(withCaller(testUserID, nil))
			r.POST("/trainer-matches", s.CreateTrainerMatch)

			w := perform(r, http.MethodPost, "/trainer-matches", map[string]string{
				"trainer_id": " 1 ",
				"student_id": "2",
			})
			assert.Equal(t, tc.status, w.Code)

			payload := decodeError(t, w)
			assert.Equal(t, tc.wantType, payload.Type)
			if tc.wantCode != "" {
				require.Len(t, payload.Errors, 1)
				assert.Equal(t, tc.wantCode, payload.Errors[0].Code)
			}
		})
	}
}

func TestUpdateTrainerMatchStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	matches := matchmocks.NewMockService(ctrl)

	s := &Server{matchSvc: matches}
	r := newTestEngine()
	r.Use(withCaller(testUserID, nil))
	r.PATCH("/trainer-matches/:id/status", s.UpdateTrainerMatchStatus)
	r.POST("/trainer-matches/:id/end", s.EndTrainerMatch)

	matches.EXPECT().
		UpdateStatus(gomock.Any(), matchdomain.UpdateStatusRequest{ID: "7", Status: "pending"}).
		Return(&matchdomain.Response{ID: "7", Status: "pending"}, nil)
	w := perform(r, http.MethodPatch, "/trainer-matches/7/status", map[string]string{"status": " pending "})
	assert.Equal(t, http.StatusOK, w.Code)

	matches.EXPECT().
		UpdateStatus(gomock.Any(), matchdomain.UpdateStatusRequest{ID: "7", Status: "active"}).
		Return(nil, matchdomain.ErrInvalidTransition)
	w = perform(r, http.MethodPatch, "/trainer-matches/7/status", map[string]string{"status": "active"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_transition", decodeError(t, w).Type)

	matches.EXPECT().End(gomock.Any(), "8").Return(nil, matchdomain.ErrNotFound)
	w = perform(r, http.MethodPost, "/trainer-matches/8/end", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/gymcore/internal/auth/domain"
	"github.com/smallbiznis/gymcore/internal/authorization"
	"github.com/smallbiznis/gymcore/internal/gymcontext"
	"github.com/smallbiznis/gymcore/internal/permission"
	"github.com/stretchr/testify/require"
)

const (
	testGymID  snowflake.ID = 1001
	testUserID snowflake.ID = 2002
)

func init() {
	gin.SetMode(gin.TestMode)
}

// withCaller stands in for AuthRequired and authorize: it scopes the request
// to a gym member and attaches the grant built from perms.
func withCaller(userID snowflake.ID, perms permission.Permissions) gin.HandlerFunc {
	return func(c *gin.Context) {
		gymID := testGymID
		identity := &authdomain.Identity{UserID: userID, GymID: &gymID}

		ctx := c.Request.Context()
		ctx = gymcontext.WithGymID(ctx, gymID.Int64())
		ctx = gymcontext.WithUserID(ctx, userID.Int64())
		if perms != nil {
			ctx = authorization.WithGrant(ctx, &authorization.Grant{
				UserID:      userID,
				GymID:       gymID,
				Permissions: perms,
			})
		}
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextIdentityKey, identity)
		c.Next()
	}
}

func newTestEngine() *gin.Engine {
	r := gin.New()
	r.Use(ErrorHandlingMiddleware())
	return r
}

func perform(r http.Handler, method, path string, payload any) *httptest.ResponseRecorder {
	var body *bytes.Reader
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

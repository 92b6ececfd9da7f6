package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/gymcore/internal/config"
	"github.com/stretchr/testify/assert"
)

func newContext(req *http.Request) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req
	return c
}

func TestReadToken(t *testing.T) {
	m := NewManager(config.Config{})

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "from-cookie"})
		token, ok := m.ReadToken(newContext(req))
		assert.True(t, ok)
		assert.Equal(t, "from-cookie", token)
	})

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "bearer from-header")
		token, ok := m.ReadToken(newContext(req))
		assert.True(t, ok)
		assert.Equal(t, "from-header", token)
	})

	t.Run("other scheme ignored", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		_, ok := m.ReadToken(newContext(req))
		assert.False(t, ok)
	})

	t.Run("missing", func(t *testing.T) {
		_, ok := m.ReadToken(newContext(httptest.NewRequest(http.MethodGet, "/", nil)))
		assert.False(t, ok)
	})
}

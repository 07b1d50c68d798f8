package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"govportal/internal/auth"
	"govportal/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(tokens *auth.Tokens) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(sessions.Sessions("govportal_session", cookie.NewStore([]byte("test-secret"))))
	r.Use(LoadIdentity(tokens))
	r.GET("/login/:token", func(c *gin.Context) {
		s := sessions.Default(c)
		s.Set(SessionTokenKey, c.Param("token"))
		_ = s.Save()
		c.Status(http.StatusNoContent)
	})
	r.POST("/votes", Require(auth.OpCastVote), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": CurrentIdentity(c).ID})
	})
	return r
}

func TestRequireWithBearerToken(t *testing.T) {
	tokens := auth.NewTokens("jwt-secret", time.Hour)
	r := newEngine(tokens)

	user, err := tokens.Issue(&auth.Identity{ID: "u-1", Email: "u@example.com", Role: models.RoleUser})
	require.NoError(t, err)
	admin, err := tokens.Issue(&auth.Identity{ID: "a-1", Email: "a@example.com", Role: models.RoleAdmin})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		code   int
		kind   string
	}{
		{"anonymous", "", http.StatusUnauthorized, "Unauthorized"},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized, "Unauthorized"},
		{"admin cannot vote", "Bearer " + admin, http.StatusForbidden, "Forbidden"},
		{"user", "bearer " + user, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/votes", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.code, w.Code)
			if tt.kind != "" {
				assert.Contains(t, w.Body.String(), `"error":"`+tt.kind+`"`)
				assert.Contains(t, w.Body.String(), `"success":false`)
			}
		})
	}
}

func TestSessionToken(t *testing.T) {
	tokens := auth.NewTokens("jwt-secret", time.Hour)
	r := newEngine(tokens)
	raw, err := tokens.Issue(&auth.Identity{ID: "u-2", Role: models.RoleUser})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login/"+raw, nil))
	require.Equal(t, http.StatusNoContent, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/votes", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"u-2"}`, w.Body.String())
}

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, method jwt.SigningMethod, secret string, expires time.Time) string {
	token := jwt.NewWithClaims(method, jwt.MapClaims{
		"sub": "reader@example.org",
		"exp": expires.Unix(),
	})
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func newRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/private", AuthMiddleware(secret), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("subject"))
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter("s3cret")
	valid := signedToken(t, jwt.SigningMethodHS256, "s3cret", time.Now().Add(time.Hour))

	tests := []struct {
		name   string
		header string
		query  string
		status int
	}{
		{name: "valid header", header: "Bearer " + valid, status: http.StatusOK},
		{name: "valid query token", query: "?token=" + valid, status: http.StatusOK},
		{name: "missing", status: http.StatusUnauthorized},
		{name: "malformed header", header: "Token", status: http.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + signedToken(t, jwt.SigningMethodHS256, "other", time.Now().Add(time.Hour)), status: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + signedToken(t, jwt.SigningMethodHS256, "s3cret", time.Now().Add(-time.Hour)), status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/private"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "reader@example.org", w.Body.String())
			}
		})
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/private", nil)
	newRouter("").ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

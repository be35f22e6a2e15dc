package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type fakeSessionValidator struct {
	keyID string
	err   error
}

func (f *fakeSessionValidator) ValidateSession(ctx context.Context, sessionID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.keyID, nil
}

func TestOperatorAuthMiddleware_MissingHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(OperatorAuthMiddleware(&fakeSessionValidator{}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOperatorAuthMiddleware_InvalidSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(OperatorAuthMiddleware(&fakeSessionValidator{err: http.ErrNoCookie}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Session-Id", "sess_bad")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOperatorAuthMiddleware_ValidSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(OperatorAuthMiddleware(&fakeSessionValidator{keyID: "key_1"}))
	r.GET("/x", func(c *gin.Context) {
		keyID, _ := c.Get(OperatorKeyIDKey)
		c.JSON(http.StatusOK, gin.H{"key_id": keyID})
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Session-Id", "sess_good")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "key_1")
}

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	domainerrors "paysync.backend/internal/domain/errors"
)

type fakeOperatorAuthenticator struct {
	sessionID string
	err       error
}

func (f *fakeOperatorAuthenticator) Authenticate(ctx context.Context, apiKey, signature, timestamp, method, path, bodyHash string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.sessionID, nil
}

func TestOperatorSessionHandler_CreateSession_MissingHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewOperatorSessionHandler(&fakeOperatorAuthenticator{})
	r := gin.New()
	r.POST("/operator/session", h.CreateSession)

	req := httptest.NewRequest(http.MethodPost, "/operator/session", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOperatorSessionHandler_CreateSession_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewOperatorSessionHandler(&fakeOperatorAuthenticator{sessionID: "sess_123"})
	r := gin.New()
	r.POST("/operator/session", h.CreateSession)

	req := httptest.NewRequest(http.MethodPost, "/operator/session", nil)
	req.Header.Set("X-Api-Key", "key")
	req.Header.Set("X-Signature", "sig")
	req.Header.Set("X-Timestamp", "1234567890")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "sess_123")
}

func TestOperatorSessionHandler_CreateSession_AuthFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewOperatorSessionHandler(&fakeOperatorAuthenticator{err: domainerrors.Unauthorized("bad signature")})
	r := gin.New()
	r.POST("/operator/session", h.CreateSession)

	req := httptest.NewRequest(http.MethodPost, "/operator/session", nil)
	req.Header.Set("X-Api-Key", "key")
	req.Header.Set("X-Signature", "sig")
	req.Header.Set("X-Timestamp", "1234567890")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

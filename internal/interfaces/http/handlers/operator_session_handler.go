package handlers

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	domainerrors "paysync.backend/internal/domain/errors"
	"paysync.backend/internal/interfaces/http/response"
)

// OperatorAuthenticator exchanges a verified API key + HMAC request
// signature for an opaque, Redis-backed session id.
// *usecases.OperatorUsecase implements this.
type OperatorAuthenticator interface {
	Authenticate(ctx context.Context, apiKey, signature, timestamp, method, path, bodyHash string) (string, error)
}

// OperatorSessionHandler implements the operator console's login step:
// trade an API key and HMAC signature over the request for a
// short-lived session id (SPEC_FULL.md §2c, grounded on the teacher's
// DualAuthMiddleware API-key path).
type OperatorSessionHandler struct {
	auth OperatorAuthenticator
}

func NewOperatorSessionHandler(auth OperatorAuthenticator) *OperatorSessionHandler {
	return &OperatorSessionHandler{auth: auth}
}

// CreateSession handles POST /operator/session.
func (h *OperatorSessionHandler) CreateSession(c *gin.Context) {
	apiKey := c.GetHeader("X-Api-Key")
	signature := c.GetHeader("X-Signature")
	timestamp := c.GetHeader("X-Timestamp")
	if apiKey == "" || signature == "" || timestamp == "" {
		response.Error(c, domainerrors.Unauthorized("api key, signature, and timestamp are required"))
		return
	}

	var body []byte
	if c.Request.Body != nil {
		var err error
		body, err = io.ReadAll(c.Request.Body)
		if err != nil {
			response.Error(c, domainerrors.BadRequest("failed to read request body"))
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
	}

	sessionID, err := h.auth.Authenticate(c.Request.Context(), apiKey, signature, timestamp,
		c.Request.Method, c.Request.URL.RequestURI(), sha256Hex(body))
	if err != nil {
		response.Error(c, domainerrors.AsAppError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session_id": sessionID})
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

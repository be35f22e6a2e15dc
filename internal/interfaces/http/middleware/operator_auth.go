package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// OperatorKeyIDKey is the gin context key the authenticated operator
// key's id is stored under once OperatorAuthMiddleware succeeds.
const OperatorKeyIDKey = "operatorKeyId"

// SessionValidator resolves a session id minted by the operator
// session exchange back to the operator key it belongs to.
// *usecases.OperatorUsecase implements this.
type SessionValidator interface {
	ValidateSession(ctx context.Context, sessionID string) (string, error)
}

// OperatorAuthMiddleware requires a valid X-Session-Id header minted
// by POST /operator/session. There's only one audience for the
// console, so unlike the teacher's DualAuthMiddleware there's no
// separate JWT-direct or API-key-direct path on every request — the
// session exchange is the only place the HMAC signature gets checked.
func OperatorAuthMiddleware(validator SessionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader("X-Session-Id")
		if sessionID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session required"})
			return
		}

		keyID, err := validator.ValidateSession(c.Request.Context(), sessionID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired session"})
			return
		}

		c.Set(OperatorKeyIDKey, keyID)
		c.Next()
	}
}

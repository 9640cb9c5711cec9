package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
	// SessionCookie is set on login for browser clients.
	SessionCookie = "session"
)

// RequireAccessToken verifies the bearer token (or the session cookie) and
// injects the user id into the request context.
func RequireAccessToken(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := ""
		if raw := strings.TrimSpace(c.GetHeader(authorizationHeader)); strings.HasPrefix(raw, bearerPrefix) {
			tok = strings.TrimPrefix(raw, bearerPrefix)
		} else if ck, err := c.Cookie(SessionCookie); err == nil {
			tok = ck
		}
		if tok == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := m.Verify(tok, time.Now())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Request = c.Request.WithContext(WithUserID(c.Request.Context(), claims.UserID))
		c.Set("user_id", claims.UserID)
		c.Next()
	}
}

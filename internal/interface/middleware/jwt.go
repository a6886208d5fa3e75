package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/dishpal/coupon-core/internal/application"
	"github.com/dishpal/coupon-core/pkg/helpers"
)

// OptionalAuth attaches the caller when a valid token with a live session is
// present and lets anonymous requests through untouched.
func OptionalAuth(jwt *helpers.JWTManager, sessions *application.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := accessToken(c)
		if token == "" {
			c.Next()
			return
		}
		claims, err := jwt.ParseAccessToken(token)
		if err != nil {
			c.Next()
			return
		}
		if ok, err := sessions.Exists(c.Request.Context(), claims.UserID, claims.SessionID); err == nil && ok {
			setCaller(c, claims)
		}
		c.Next()
	}
}

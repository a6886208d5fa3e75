package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dishpal/coupon-core/internal/application"
	"github.com/dishpal/coupon-core/pkg/helpers"
	"github.com/dishpal/coupon-core/pkg/response"
)

const (
	CtxUserIDKey    = "userID"
	CtxSessionIDKey = "sessionID"
	CtxCallerKey    = "caller"
)

// accessToken reads the Bearer header first and falls back to the access_token cookie.
func accessToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if scheme, tok, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
	}
	if tok, err := c.Cookie(helpers.AccessCookie); err == nil {
		return tok
	}
	return ""
}

func setCaller(c *gin.Context, claims *helpers.Claims) {
	caller := application.Caller{UserID: claims.UserID, SessionID: claims.SessionID}
	c.Set(CtxUserIDKey, claims.UserID)
	c.Set(CtxSessionIDKey, claims.SessionID)
	c.Set(CtxCallerKey, caller)
}

// Auth validates the access token and ensures its session still exists in Redis.
// On success the caller identity is stored in the Gin context.
func Auth(jwt *helpers.JWTManager, sessions *application.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := accessToken(c)
		if token == "" {
			response.Abort(c, http.StatusUnauthorized, "missing access token", nil)
			return
		}
		claims, err := jwt.ParseAccessToken(token)
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, "invalid access token", err.Error())
			return
		}
		ok, err := sessions.Exists(c.Request.Context(), claims.UserID, claims.SessionID)
		if err != nil || !ok {
			response.Abort(c, http.StatusUnauthorized, "session not found", nil)
			return
		}
		setCaller(c, claims)
		c.Next()
	}
}

// CallerFrom returns the identity set by Auth or OptionalAuth; anonymous otherwise.
func CallerFrom(c *gin.Context) application.Caller {
	if v, ok := c.Get(CtxCallerKey); ok {
		if caller, ok := v.(application.Caller); ok {
			return caller
		}
	}
	return application.Caller{}
}

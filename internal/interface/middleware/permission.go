package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dishpal/coupon-core/internal/application"
	repo "github.com/dishpal/coupon-core/internal/domain/repository"
	"github.com/dishpal/coupon-core/pkg/response"
)

// RequireAdmin allows staff users and holders of the admin role. Must run after Auth.
func RequireAdmin(auth application.Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := CallerFrom(c)
		if caller.Anonymous() {
			response.Abort(c, http.StatusUnauthorized, "authentication required", nil)
			return
		}
		if !auth.IsAdmin(c.Request.Context(), caller) {
			response.Abort(c, http.StatusForbidden, "You do not have permission to perform this action.", nil)
			return
		}
		c.Next()
	}
}

// RequireNonGuest rejects guest accounts. The flag is read from the user
// record, so an upgraded guest passes with its existing token.
func RequireNonGuest(users repo.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := CallerFrom(c)
		if caller.Anonymous() {
			response.Abort(c, http.StatusUnauthorized, "authentication required", nil)
			return
		}
		u, err := users.GetByID(c.Request.Context(), caller.UserID)
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, "user not found", nil)
			return
		}
		if u.IsGuest {
			response.Abort(c, http.StatusForbidden, "Guest accounts are not allowed to perform this action.", nil)
			return
		}
		c.Next()
	}
}

// RequireVerified rejects callers whose email address is not confirmed yet.
// Only mutating methods are checked so reads stay open to every user.
func RequireVerified(users repo.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		caller := CallerFrom(c)
		if caller.Anonymous() {
			response.Abort(c, http.StatusUnauthorized, "authentication required", nil)
			return
		}
		u, err := users.GetByID(c.Request.Context(), caller.UserID)
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, "user not found", nil)
			return
		}
		if !u.IsVerified() && !u.IsAdmin() {
			response.Abort(c, http.StatusForbidden, "Please verify your email address first.", nil)
			return
		}
		c.Next()
	}
}

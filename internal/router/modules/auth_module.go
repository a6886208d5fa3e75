package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dishpal/coupon-core/internal/application"
	"github.com/dishpal/coupon-core/internal/container"
	handlers "github.com/dishpal/coupon-core/internal/interface/http"
	"github.com/dishpal/coupon-core/internal/interface/middleware"
	"github.com/dishpal/coupon-core/pkg/helpers"
)

// AuthModule mounts /authentication/v1: tokens, registration, email
// verification, password reset, the caller's profile and administration.
type AuthModule struct {
	Auth     *handlers.AuthHandler
	Users    *handlers.UserHandler
	Admin    *handlers.AdminHandler
	JWT      *helpers.JWTManager
	Sessions *application.SessionStore
	Authz    application.Authorizer
}

func NewAuthModule(auth *handlers.AuthHandler, users *handlers.UserHandler, admin *handlers.AdminHandler,
	jwt *helpers.JWTManager, sessions *application.SessionStore, authz application.Authorizer) *AuthModule {
	return &AuthModule{Auth: auth, Users: users, Admin: admin, JWT: jwt, Sessions: sessions, Authz: authz}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	g := rg.Group("/authentication/v1")

	loginLimiter := middleware.RateLimit(rdb, 5, time.Minute, middleware.KeyByIPAndPath(), nil)
	resetLimiter := middleware.RateLimit(rdb, 5, time.Minute, middleware.KeyByIPAndPath(), nil)
	refreshLimiter := middleware.RateLimit(rdb, 60, time.Minute, middleware.KeyByIP(), nil)
	publicLimiter := middleware.RateLimit(rdb, 30, time.Minute, middleware.KeyByIPAndPath(), nil)
	optional := middleware.OptionalAuth(m.JWT, m.Sessions)

	g.POST("/login/", loginLimiter, m.Auth.Login)
	g.POST("/token/refresh/", refreshLimiter, m.Auth.Refresh)
	g.POST("/token/verify/", refreshLimiter, m.Auth.Verify)
	g.POST("/guest-token/", publicLimiter, m.Auth.GuestToken)
	g.POST("/register/", publicLimiter, optional, m.Auth.Register)
	g.GET("/activate/", publicLimiter, m.Auth.Activate)
	g.PUT("/activate/", publicLimiter, m.Auth.ResendActivation)
	g.POST("/password-reset/", resetLimiter, m.Auth.PasswordReset)
	g.POST("/password-reset/confirm/", publicLimiter, m.Auth.PasswordResetConfirm)

	authed := g.Group("/")
	authed.Use(
		middleware.Auth(m.JWT, m.Sessions),
		middleware.RateLimit(rdb, 120, time.Minute, middleware.KeyByUserID(), nil),
	)
	{
		authed.POST("/logout/", m.Auth.Logout)
		authed.POST("/logout-all/", m.Auth.LogoutAll)
		authed.POST("/send-verification-email/",
			middleware.RateLimit(rdb, 5, time.Minute, middleware.KeyByUserID(), nil), m.Auth.SendVerification)

		authed.GET("/user-profile/", m.Users.GetProfile)
		authed.PUT("/user-profile/", m.Users.ReplaceProfile)
		authed.PATCH("/user-profile/", m.Users.PatchProfile)
		authed.DELETE("/user-profile/", m.Users.DeleteAccount)
		authed.POST("/user-profile/image/", m.Users.UploadImage)
		authed.DELETE("/user-profile/image/", m.Users.DeleteImage)
	}

	admin := authed.Group("/admin")
	admin.Use(middleware.RequireAdmin(m.Authz))
	{
		admin.GET("/users/", m.Admin.ListUsers)
		admin.POST("/users/", m.Admin.CreateUser)
		admin.GET("/users/search/", m.Admin.SearchUsers)
		admin.POST("/users/bulk/", m.Admin.BulkCreateUsers)
		admin.PATCH("/users/bulk/", m.Admin.BulkUpdateUsers)
		admin.DELETE("/users/bulk/", m.Admin.BulkDeleteUsers)
		admin.GET("/users/:id/", m.Admin.GetUser)
		admin.PATCH("/users/:id/", m.Admin.UpdateUser)
		admin.DELETE("/users/:id/", m.Admin.DeleteUser)
		admin.POST("/users/:id/roles/", m.Admin.AssignRole)
		admin.DELETE("/users/:id/roles/:role_id/", m.Admin.UnassignRole)

		admin.GET("/roles/", m.Admin.ListRoles)
		admin.POST("/roles/", m.Admin.CreateRole)
		admin.GET("/roles/:id/", m.Admin.GetRole)
		admin.PATCH("/roles/:id/", m.Admin.UpdateRole)
		admin.DELETE("/roles/:id/", m.Admin.DeleteRole)

		admin.GET("/user-profiles/bulk/", m.Admin.GetProfiles)
		admin.PUT("/user-profiles/bulk/", m.Admin.UpdateProfiles)
		admin.DELETE("/user-profiles/bulk/", m.Admin.DeleteProfiles)
	}
}

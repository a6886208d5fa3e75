package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dishpal/coupon-core/internal/application"
	"github.com/dishpal/coupon-core/internal/container"
	repo "github.com/dishpal/coupon-core/internal/domain/repository"
	handlers "github.com/dishpal/coupon-core/internal/interface/http"
	"github.com/dishpal/coupon-core/internal/interface/middleware"
	"github.com/dishpal/coupon-core/pkg/helpers"
)

// GeoDiscountModule mounts /geodiscounts/v1. Everything except the category
// list requires a session.
type GeoDiscountModule struct {
	Discounts *handlers.DiscountHandler
	Retailers *handlers.RetailerHandler
	Shared    *handlers.SharedDiscountHandler
	Users     repo.UserRepository
	JWT       *helpers.JWTManager
	Sessions  *application.SessionStore
}

func NewGeoDiscountModule(d *handlers.DiscountHandler, r *handlers.RetailerHandler, s *handlers.SharedDiscountHandler,
	users repo.UserRepository, jwt *helpers.JWTManager, sessions *application.SessionStore) *GeoDiscountModule {
	return &GeoDiscountModule{Discounts: d, Retailers: r, Shared: s, Users: users, JWT: jwt, Sessions: sessions}
}

func (m *GeoDiscountModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	g := rg.Group("/geodiscounts/v1", middleware.NoStore())

	g.GET("/discounts/categories/", m.Discounts.Categories)

	authed := g.Group("/")
	authed.Use(
		middleware.Auth(m.JWT, m.Sessions),
		middleware.RateLimit(rdb, 120, time.Minute, middleware.KeyByUserID(), nil),
	)
	geoloc := middleware.Geolocation(container.GetGeoResolver(), container.GetLogger())
	{
		authed.GET("/discounts/", m.Discounts.List)
		authed.POST("/discounts/", m.Discounts.Create)
		authed.GET("/discounts/nearby/", geoloc, m.Discounts.Nearby)
		authed.GET("/discounts/search/", m.Discounts.TextSearch)
		authed.POST("/discounts/search/", m.Discounts.SemanticSearch)
		authed.GET("/discounts/:id/", m.Discounts.Get)
		authed.PUT("/discounts/:id/", m.Discounts.Update)
		authed.PATCH("/discounts/:id/", m.Discounts.Update)
		authed.DELETE("/discounts/:id/", m.Discounts.Delete)
		authed.POST("/discounts/:id/image/", m.Discounts.UploadImage)

		authed.GET("/retailers/", m.Retailers.List)
		authed.POST("/retailers/", middleware.RequireNonGuest(m.Users), middleware.RequireVerified(m.Users), m.Retailers.Create)
		authed.GET("/retailers/nearby/", m.Retailers.Nearby)
		authed.GET("/retailers/:id/", m.Retailers.Get)
		authed.PUT("/retailers/:id/", m.Retailers.Update)
		authed.PATCH("/retailers/:id/", m.Retailers.Update)
		authed.DELETE("/retailers/:id/", m.Retailers.Delete)
		authed.GET("/retailers/:id/analytics/", m.Retailers.Analytics)

		authed.GET("/shared-discounts/", m.Shared.List)
		authed.POST("/shared-discounts/", m.Shared.Create)
		authed.GET("/shared-discounts/:id/", m.Shared.Get)
		authed.PUT("/shared-discounts/:id/", m.Shared.Update)
		authed.PATCH("/shared-discounts/:id/", m.Shared.Update)
		authed.DELETE("/shared-discounts/:id/", m.Shared.Delete)
		authed.POST("/shared-discounts/:id/join/", m.Shared.Join)
		authed.POST("/shared-discounts/:id/leave/", m.Shared.Leave)
	}
}

package router

import (
	"context"

	"github.com/dishpal/coupon-core/internal/application"
	"github.com/dishpal/coupon-core/internal/container"
	"github.com/dishpal/coupon-core/internal/embedding"
	pginfra "github.com/dishpal/coupon-core/internal/infrastructure/postgres"
	handlers "github.com/dishpal/coupon-core/internal/interface/http"
	"github.com/dishpal/coupon-core/internal/interface/middleware"
	"github.com/dishpal/coupon-core/internal/router/modules"
)

// Services is the application layer wired against the container's clients.
type Services struct {
	Sessions  *application.SessionStore
	Authz     application.Authorizer
	Auth      *application.AuthService
	Profiles  *application.ProfileService
	Admin     *application.AdminService
	Discounts *application.DiscountService
	Retailers *application.RetailerService
	Shared    *application.SharedDiscountService
	Tasks     *application.Tasks
}

// Publisher returns the container's RabbitMQ publisher, or nil when none is configured.
func Publisher() application.Publisher {
	if p := container.GetRabbitPub(); p != nil {
		return p
	}
	return nil
}

func imageStore() application.ImageStore {
	cfg := container.GetConfig()
	if gcs := container.GetGCS(); gcs != nil && cfg.GCSBucket != "" {
		return application.NewGCSImageStore(gcs, cfg.GCSBucket)
	}
	return nil
}

func userIndex() application.UserIndex {
	cfg := container.GetConfig()
	if es := container.GetES(); es != nil {
		return application.NewESUserIndex(es, cfg.ESUsersIndex, container.GetLogger())
	}
	return nil
}

// BuildServices creates repositories over the auth, geodiscount and vector
// pools and the services on top of them.
func BuildServices() *Services {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	rdb := container.GetRedis()

	users := pginfra.NewUserRepository(container.GetAuthPool())
	roles := pginfra.NewRoleRepository(container.GetAuthPool())
	profiles := pginfra.NewProfileRepository(container.GetAuthPool())
	verifications := pginfra.NewVerificationRepository(container.GetAuthPool())

	retailers := pginfra.NewRetailerRepository(container.GetGeoPool())
	discounts := pginfra.NewDiscountRepository(container.GetGeoPool())
	categories := pginfra.NewCategoryRepository(container.GetGeoPool())
	shared := pginfra.NewSharedDiscountRepository(container.GetGeoPool())

	var vectors *pginfra.VectorStore
	if pool := container.GetVectorPool(); pool != nil {
		vectors = pginfra.NewVectorStore(pool, cfg.VectorDimension)
	}

	sessions := application.NewSessionStore(rdb, cfg.RefreshTTL)
	authz := application.Authorizer{Users: users}
	notifier := application.NewNotifier(Publisher(), cfg, container.GetGeoResolver(), logger)
	index := userIndex()
	images := imageStore()

	tasks := application.NewTasks(discounts, shared, retailers, profiles, notifier, logger)

	s := &Services{
		Sessions:  sessions,
		Authz:     authz,
		Auth:      application.NewAuthService(users, profiles, verifications, container.GetJWT(), sessions, rdb, notifier, index, cfg, logger),
		Profiles:  application.NewProfileService(users, profiles, images, index, sessions, logger),
		Admin:     application.NewAdminService(users, roles, profiles, index, sessions, logger),
		Retailers: application.NewRetailerService(retailers, authz, logger),
		Shared:    application.NewSharedDiscountService(shared, discounts, retailers, authz, logger),
		Tasks:     tasks,
	}
	if vectors != nil {
		s.Discounts = application.NewDiscountService(discounts, retailers, categories, vectors,
			embedding.NewHashingEmbedder(cfg.VectorDimension), images, rdb, tasks, authz, logger)
	} else {
		s.Discounts = application.NewDiscountService(discounts, retailers, categories, nil, nil, images, rdb, tasks, authz, logger)
	}
	return s
}

// EnsureSearchIndex creates the Elasticsearch users index when a client is configured.
func EnsureSearchIndex(ctx context.Context) error {
	if idx, ok := userIndex().(*application.ESUserIndex); ok {
		return idx.EnsureIndex(ctx)
	}
	return nil
}

// InitModules builds services and handlers and registers every module with r.
// Call it once during startup, after the container is populated.
func InitModules(r *Registry, metrics *middleware.HTTPMetrics) *Services {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	jwt := container.GetJWT()
	svc := BuildServices()

	authHandler := handlers.NewAuthHandler(svc.Auth, logger, cfg.CookieDomain, cfg.CookieSecure)
	userHandler := handlers.NewUserHandler(svc.Profiles, logger, cfg.CookieDomain, cfg.CookieSecure)
	adminHandler := handlers.NewAdminHandler(svc.Admin, logger)

	r.Add(
		modules.NewAuthModule(authHandler, userHandler, adminHandler, jwt, svc.Sessions, svc.Authz),
		modules.NewGeoDiscountModule(
			handlers.NewDiscountHandler(svc.Discounts, logger),
			handlers.NewRetailerHandler(svc.Retailers, logger),
			handlers.NewSharedDiscountHandler(svc.Shared, logger),
			svc.Authz.Users, jwt, svc.Sessions,
		),
	)
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(metrics))
	}
	return svc
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/dishpal/coupon-core/config"
	"github.com/dishpal/coupon-core/internal/container"
	"github.com/dishpal/coupon-core/internal/geo"
	pginfra "github.com/dishpal/coupon-core/internal/infrastructure/postgres"
	"github.com/dishpal/coupon-core/internal/interface/middleware"
	"github.com/dishpal/coupon-core/internal/router"
	"github.com/dishpal/coupon-core/pkg/helpers"
	"github.com/dishpal/coupon-core/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx := context.Background()

	// One pool per logical database, migrated from its own folder
	authPool := openDB(ctx, cfg, logger, cfg.AuthDSN(), "auth")
	defer authPool.Close()
	geoPool := openDB(ctx, cfg, logger, cfg.GeoDSN(), "geo")
	defer geoPool.Close()
	vectorPool := openDB(ctx, cfg, logger, cfg.VectorDSN(), "vector", pginfra.WithVectorTypes())
	defer vectorPool.Close()
	if err := pginfra.NewVectorStore(vectorPool, cfg.VectorDimension).VerifySchema(ctx); err != nil {
		logger.Fatalf("vector schema check failed: %v", err)
	}

	// Redis
	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer func() { _ = rdb.Close() }()

	// JWT
	jwtManager := helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)

	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetAuthPool(authPool)
	container.SetGeoPool(geoPool)
	container.SetVectorPool(vectorPool)
	container.SetRedis(rdb)
	container.SetJWT(jwtManager)
	container.SetGeoResolver(geo.NewCachedResolver(geo.NewIPAPIResolver(cfg.GeoServiceURL), rdb, cfg.GeoCacheTTL, logger))

	// Optional integrations; the API still serves without them
	if cfg.GCSBucket != "" {
		gcsClient, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			logger.WithError(err).Warn("GCS disabled")
		} else {
			defer func() { _ = gcsClient.Close() }()
			container.SetGCS(gcsClient)
		}
	}
	if pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue); err != nil {
		logger.WithError(err).Warn("RabbitMQ publisher disabled; emails will not be queued")
	} else {
		defer pub.Close()
		container.SetRabbitPub(pub)
	}
	if es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass); err != nil {
		logger.WithError(err).Warn("Elasticsearch disabled")
	} else {
		container.SetES(es)
	}
	if err := router.EnsureSearchIndex(ctx); err != nil {
		logger.WithError(err).Warn("ensure users index failed")
	}

	metrics := middleware.NewHTTPMetrics(cfg.AppName)

	r := gin.New()
	r.Use(
		middleware.RequestIDMiddleware(),
		middleware.RealIP(),
		gin.Recovery(),
		middleware.RequestLogger(logger, cfg.SlowRequestThreshold, cfg.HTTPLogEnabled),
		metrics.Middleware(),
	)
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderRequestID},
		ExposeHeaders:    []string{"Content-Length", middleware.HeaderRequestID, "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	reg := router.NewRegistry(r)
	reg.Use(middleware.RateLimit(rdb, cfg.RateLimitRequests, cfg.RateLimitWindow, middleware.KeyByIPAndPath(), nil))
	svc := router.InitModules(reg, metrics)
	reg.RegisterAll()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}
	// let in-flight notification jobs finish publishing
	svc.Tasks.Wait()
	logger.Info("server exited properly")
}

func openDB(ctx context.Context, cfg *config.Config, logger *logrus.Logger, dsn, name string, opts ...pginfra.PoolOption) *pgxpool.Pool {
	if err := pginfra.RunMigrations(dsn, filepath.Join(cfg.MigrationsDir, name), logger); err != nil {
		log.Fatalf("%s migration failed: %v", name, err)
	}
	pool, err := pginfra.NewPool(ctx, dsn, cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife, opts...)
	if err != nil {
		log.Fatalf("failed to connect to %s postgres: %v", name, err)
	}
	return pool
}

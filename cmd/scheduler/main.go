package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dishpal/coupon-core/config"
	"github.com/dishpal/coupon-core/internal/application"
	"github.com/dishpal/coupon-core/internal/geo"
	pginfra "github.com/dishpal/coupon-core/internal/infrastructure/postgres"
	"github.com/dishpal/coupon-core/pkg/helpers"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-scheduler", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	authPool, err := pginfra.NewPool(ctx, cfg.AuthDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		logger.Fatalf("failed to connect to auth postgres: %v", err)
	}
	defer authPool.Close()
	geoPool, err := pginfra.NewPool(ctx, cfg.GeoDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		logger.Fatalf("failed to connect to geo postgres: %v", err)
	}
	defer geoPool.Close()

	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer func() { _ = rdb.Close() }()

	var pub application.Publisher
	if p, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue); err != nil {
		logger.WithError(err).Warn("RabbitMQ publisher disabled; expiring notices will be skipped")
	} else {
		defer p.Close()
		pub = p
	}
	resolver := geo.NewCachedResolver(geo.NewIPAPIResolver(cfg.GeoServiceURL), rdb, cfg.GeoCacheTTL, logger)

	tasks := application.NewTasks(
		pginfra.NewDiscountRepository(geoPool),
		pginfra.NewSharedDiscountRepository(geoPool),
		pginfra.NewRetailerRepository(geoPool),
		pginfra.NewProfileRepository(authPool),
		application.NewNotifier(pub, cfg, resolver, logger),
		logger,
	)

	logger.Info("scheduler started")
	runAll(ctx, tasks, jobs(tasks, cfg.CleanupInterval, cfg.ExpiringNoticeInterval,
		cfg.SharedStatusInterval, cfg.AnalyticsInterval, cfg.ExpiringNoticeDays))
	tasks.Wait()
	logger.Info("scheduler stopped")
}

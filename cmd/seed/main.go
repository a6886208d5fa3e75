package main

import (
	"context"
	"errors"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/dishpal/coupon-core/config"
	"github.com/dishpal/coupon-core/internal/domain/entity"
	repo "github.com/dishpal/coupon-core/internal/domain/repository"
	pginfra "github.com/dishpal/coupon-core/internal/infrastructure/postgres"
	"github.com/dishpal/coupon-core/pkg/helpers"
)

var baseRoles = []entity.Role{
	{Name: "admin", Description: "Full administrative access"},
	{Name: "user", Description: "Regular marketplace user"},
	{Name: "merchant", Description: "Retailer owner publishing discounts"},
}

var defaultCategories = []string{"Food & Drink", "Groceries", "Fashion", "Electronics", "Health & Beauty", "Entertainment", "Travel", "Services"}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)
	ctx := context.Background()

	authPool, err := pginfra.NewPool(ctx, cfg.AuthDSN(), 2, 1, cfg.DBMaxConnLife)
	if err != nil {
		logger.Fatalf("failed to connect to auth postgres: %v", err)
	}
	defer authPool.Close()
	geoPool, err := pginfra.NewPool(ctx, cfg.GeoDSN(), 2, 1, cfg.DBMaxConnLife)
	if err != nil {
		logger.Fatalf("failed to connect to geo postgres: %v", err)
	}
	defer geoPool.Close()

	roles := pginfra.NewRoleRepository(authPool)
	roleIDs := map[string]int64{}
	for _, r := range baseRoles {
		existing, err := roles.GetByName(ctx, r.Name)
		switch {
		case err == nil:
			roleIDs[r.Name] = existing.ID
		case errors.Is(err, repo.ErrNotFound):
			role := r
			if err := roles.Create(ctx, &role); err != nil {
				logger.Fatalf("failed to create role %s: %v", r.Name, err)
			}
			roleIDs[r.Name] = role.ID
		default:
			logger.Fatalf("failed to load role %s: %v", r.Name, err)
		}
	}
	logger.WithField("roles", roleIDs).Info("roles ensured")

	admin := seedAdmin(ctx, logger, pginfra.NewUserRepository(authPool), pginfra.NewProfileRepository(authPool),
		getenv("SEED_ADMIN_EMAIL", "admin@example.com"), getenv("SEED_ADMIN_PASSWORD", "ChangeMe123!"))
	if err := roles.Assign(ctx, admin.ID, roleIDs["admin"]); err != nil && !errors.Is(err, repo.ErrConflict) {
		logger.Fatalf("failed to assign admin role: %v", err)
	}

	categories := pginfra.NewCategoryRepository(geoPool)
	for _, name := range defaultCategories {
		if err := categories.Upsert(ctx, &entity.Category{Name: name}); err != nil {
			logger.Fatalf("failed to upsert category %s: %v", name, err)
		}
	}
	logger.WithField("count", len(defaultCategories)).Info("categories ensured")
}

func seedAdmin(ctx context.Context, logger *logrus.Logger, users repo.UserRepository, profiles repo.ProfileRepository, email, password string) *entity.User {
	if u, err := users.GetByEmail(ctx, email); err == nil {
		logger.WithField("user_id", u.ID).Info("admin user already present")
		return u
	} else if !errors.Is(err, repo.ErrNotFound) {
		logger.Fatalf("failed to look up admin: %v", err)
	}

	hash, err := helpers.HashPassword(password)
	if err != nil {
		logger.Fatalf("failed to hash password: %v", err)
	}
	verified := true
	u := &entity.User{
		Username:         "admin",
		Email:            email,
		PasswordHash:     hash,
		IsActive:         true,
		IsStaff:          true,
		ActivatedProfile: &verified,
	}
	if err := users.Create(ctx, u); err != nil {
		logger.Fatalf("failed to create admin: %v", err)
	}
	if err := profiles.Create(ctx, &entity.UserProfile{UserID: u.ID, Preferences: map[string]any{}}); err != nil {
		logger.Fatalf("failed to create admin profile: %v", err)
	}
	logger.WithFields(logrus.Fields{"user_id": u.ID, "email": email}).Info("seeded admin user")
	return u
}

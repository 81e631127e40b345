// Command admin_seed creates the first admin account from ADMIN_EMAIL,
// ADMIN_PASSWORD and ADMIN_NAME.
package main

import (
	"context"
	"errors"
	"time"

	"chargeback/internal/config"
	"chargeback/internal/logger"
	"chargeback/internal/repositories"
	"chargeback/internal/services/auth"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck

	if !cfg.EnvFileLoaded {
		log.Debug("no .env file found, using process environment")
	}

	adminEmail := config.GetEnv("ADMIN_EMAIL", "")
	adminPassword := config.GetEnv("ADMIN_PASSWORD", "")
	adminName := config.GetEnv("ADMIN_NAME", "Administrator")
	if adminEmail == "" || adminPassword == "" {
		log.Fatal("ADMIN_EMAIL and ADMIN_PASSWORD must be set in environment")
	}

	db, err := repositories.InitDB(cfg, log)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		if repositories.CacheService != nil {
			_ = repositories.CacheService.Close()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	svc := auth.NewService(repositories.NewUserRepository(db), cfg.JWTSecret, log)
	user, err := svc.CreateUser(ctx, adminEmail, adminName, adminPassword, auth.RoleAdmin)
	if errors.Is(err, auth.ErrEmailTaken) {
		log.Info("admin user already exists", zap.String("email", adminEmail))
		return
	}
	if err != nil {
		log.Fatal("failed to create admin user", zap.Error(err))
	}

	log.Info("admin account created", zap.Uint("user_id", user.ID), zap.String("email", user.Email))
}

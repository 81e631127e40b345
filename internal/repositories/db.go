// Package repositories provides data access layer implementations.
// It handles all database operations and data persistence logic.
package repositories

import (
	"context"
	"fmt"
	"time"

	"chargeback/internal/config"
	"chargeback/internal/models"
	"chargeback/internal/repositories/cache"

	"github.com/glebarez/sqlite"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// CacheService is the shared Redis cache; nil when Redis is unreachable.
var CacheService *cache.CacheService

// InitDB opens the configured database, applies migrations and connects the
// Redis cache. A Redis failure is logged and leaves CacheService nil; the
// application then recomputes everything on read.
func InitDB(cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, eris.Wrap(err, "repositories: get sql db")
	}
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.DBConnMaxIdleTime)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Info("database connected", zap.String("driver", cfg.DBDriver))

	redisClient := cache.NewRedisClient(&cache.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	svc := cache.NewCacheService(redisClient, cfg.CacheTTL)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := svc.HealthCheck(ctx); err != nil {
		log.Warn("redis unavailable, caching disabled", zap.Error(err))
		_ = svc.Close()
	} else {
		CacheService = svc
	}

	return db, nil
}

// Open connects to the database selected by cfg.DBDriver.
func Open(cfg config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	}

	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "sqlite":
		dialector = sqlite.Open(cfg.SQLitePath)
	case "postgres", "":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)
		dialector = postgres.Open(dsn)
	default:
		return nil, eris.Errorf("repositories: unsupported db driver %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, eris.Wrapf(err, "repositories: open %s", cfg.DBDriver)
	}
	return db, nil
}

// Migrate creates or updates the schema of every persisted model.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.Dispute{},
		&models.VampRecord{},
		&models.WorkflowTask{},
		&models.AuditLog{},
		&models.CustomField{},
	)
	return eris.Wrap(err, "repositories: auto-migrate")
}

// Ping checks that the database answers before ctx expires.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return eris.Wrap(err, "repositories: get sql db")
	}
	return sqlDB.PingContext(ctx)
}

// Package main is the entry point for the chargeback API server.
// It loads configuration, connects storage, wires the services and serves
// HTTP until interrupted.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"chargeback/internal/clock"
	"chargeback/internal/config"
	"chargeback/internal/handlers"
	"chargeback/internal/logger"
	"chargeback/internal/middleware"
	"chargeback/internal/repositories"
	"chargeback/internal/routes"
	"chargeback/internal/services/audit"
	"chargeback/internal/services/auth"
	"chargeback/internal/services/currency"
	"chargeback/internal/services/customfield"
	"chargeback/internal/services/dispute"
	"chargeback/internal/services/project"
	"chargeback/internal/services/report"
	"chargeback/internal/services/stripepull"
	"chargeback/internal/services/vamp"
	"chargeback/internal/services/workflow"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
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

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	db, err := repositories.InitDB(cfg, log)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}

	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Warn("failed to close database connection", zap.Error(err))
			}
		}
		if repositories.CacheService != nil {
			if err := repositories.CacheService.Close(); err != nil {
				log.Warn("failed to close redis connection", zap.Error(err))
			}
		}
	}()

	// A nil *CacheService must not reach the services as a non-nil interface.
	var (
		reportCache report.Cache
		fxCache     currency.Cache
		cachePing   handlers.Pinger
	)
	if repositories.CacheService != nil {
		reportCache = repositories.CacheService
		fxCache = repositories.CacheService
		cachePing = repositories.CacheService
	}

	clk := clock.Real{}

	disputeRepo := repositories.NewDisputeRepository(db)
	projectRepo := repositories.NewProjectRepository(db)

	auditService := audit.NewService(repositories.NewAuditRepository(db), log.Named("audit"))
	authService := auth.NewService(repositories.NewUserRepository(db), cfg.JWTSecret, log.Named("auth"))
	fieldService := customfield.NewService(repositories.NewCustomFieldRepository(db), auditService)
	projectService := project.NewService(projectRepo, auditService)
	converter := currency.NewConverter(currency.Options{
		BaseURL:       cfg.FXBaseURL,
		RatePerSecond: cfg.FXRatePerSecond,
		Timeout:       cfg.FXRequestTimeout,
		HistoricalTTL: cfg.CacheTTL,
		Clock:         clk,
	}, fxCache, log.Named("currency"))
	disputeService := dispute.NewService(disputeRepo, fieldService, converter, auditService, log.Named("dispute"))
	workflowService := workflow.NewService(
		repositories.NewTaskRepository(db),
		disputeRepo,
		auditService,
		clk,
		cfg.CoverLetterMinLength,
		log.Named("workflow"),
	)
	vampService := vamp.NewService(repositories.NewVampRepository(db), auditService, vamp.ThresholdsFromConfig(cfg), log.Named("vamp"))
	pullService := stripepull.NewService(projectRepo, vampService, nil, log.Named("stripepull"))
	reportService := report.NewService(disputeRepo, reportCache, clk, cfg.AnomalyThreshold, log.Named("report"))

	app := fiber.New(fiber.Config{
		AppName:      "chargeback-api",
		BodyLimit:    10 * 1024 * 1024,
		ErrorHandler: errorHandler(log),
	})

	app.Use(middleware.RequestID())

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowCredentials: !strings.Contains(cfg.CORSOrigins, "*"),
	}))

	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Use("/api/login", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please try again later.",
			})
		},
	}))

	routes.SetupRoutes(app, routes.Deps{
		Log:          log,
		Auth:         authService,
		Disputes:     disputeService,
		Workflow:     workflowService,
		Vamp:         vampService,
		Reports:      reportService,
		Converter:    converter,
		StripePull:   pullService,
		Projects:     projectService,
		CustomFields: fieldService,
		Audit:        auditService,
		DB: handlers.PingFunc(func(ctx context.Context) error {
			return repositories.Ping(ctx, db)
		}),
		Cache:        cachePing,
		SecureCookie: cfg.IsProduction(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	refresher := report.NewRefresher(reportService, cfg.ReportRefreshInterval, log.Named("refresher"))
	refresher.Start(ctx)
	defer refresher.Stop()

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("server stopped", zap.Error(err))
			stop()
		}
	}()
	log.Info("server started", zap.String("port", cfg.Port), zap.String("env", cfg.Env))

	<-ctx.Done()
	log.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Warn("graceful shutdown failed", zap.Error(err))
	}
}

// errorHandler renders errors that escaped the handlers as JSON.
func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		} else {
			log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		}
		return c.Status(code).JSON(fiber.Map{"error": message})
	}
}

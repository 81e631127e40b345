// Package routes defines the API routing configuration.
// It sets up all HTTP routes and their corresponding handlers,
// including middleware and authentication requirements.
package routes

import (
	"chargeback/internal/handlers"
	"chargeback/internal/middleware"
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
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Deps are the services the HTTP layer is built on.
type Deps struct {
	Log          *zap.Logger
	Auth         auth.Service
	Disputes     *dispute.Service
	Workflow     workflow.Service
	Vamp         vamp.Service
	Reports      report.Service
	Converter    currency.Converter
	StripePull   stripepull.Service
	Projects     project.Service
	CustomFields customfield.Service
	Audit        audit.Service
	DB           handlers.Pinger
	Cache        handlers.Pinger // nil when Redis is unavailable
	SecureCookie bool
}

// SetupRoutes configures all application routes.
// It groups routes by functionality and applies appropriate middleware.
func SetupRoutes(app *fiber.App, d Deps) {
	authHandler := handlers.NewAuthHandler(d.Auth, d.SecureCookie, d.Log)
	disputeHandler := handlers.NewDisputeHandler(d.Disputes, d.Log)
	workflowHandler := handlers.NewWorkflowHandler(d.Workflow, d.Log)
	vampHandler := handlers.NewVampHandler(d.Vamp, d.Log)
	reportHandler := handlers.NewReportHandler(d.Reports, d.Log)
	functionsHandler := handlers.NewFunctionsHandler(d.Converter, d.StripePull, d.Log)
	settingsHandler := handlers.NewSettingsHandler(d.Projects, d.CustomFields, d.Audit, d.Log)
	healthHandler := handlers.NewHealthHandler(d.DB, d.Cache)

	app.Get("/health", healthHandler.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	// Public endpoints (no auth required)
	api.Post("/login", authHandler.LoginUser)
	api.Post("/refresh", authHandler.RefreshToken)

	authMiddleware := middleware.NewAuthMiddleware(d.Auth, d.Log)
	protected := api.Use(authMiddleware.Handler)

	protected.Get("/me", authHandler.Me)
	protected.Post("/logout", authHandler.LogoutUser)
	protected.Post("/change-password", authHandler.ChangePassword)

	setupDisputeRoutes(protected, disputeHandler, workflowHandler)
	setupVampRoutes(protected, vampHandler)
	setupReportRoutes(protected, reportHandler)
	setupSettingsRoutes(protected, settingsHandler)

	functions := protected.Group("/functions")
	functions.Post("/convert-currency", functionsHandler.ConvertCurrency)
	functions.Post("/stripe-vamp-pull", functionsHandler.StripeVampPull)

	admin := protected.Group("/admin", middleware.AdminAuthMiddleware)
	admin.Post("/users", authHandler.CreateUser)
	admin.Post("/reports/refresh", reportHandler.RefreshDashboard)
	admin.Post("/tasks/reconcile", workflowHandler.ReconcileOverdue)
}

func setupDisputeRoutes(router fiber.Router, h *handlers.DisputeHandler, w *handlers.WorkflowHandler) {
	disputes := router.Group("/disputes")

	disputes.Get("/", h.GetDisputes)
	disputes.Post("/", h.CreateDispute)
	disputes.Post("/bulk-status", h.BulkStatus)
	disputes.Get("/:id", h.GetDispute)
	disputes.Put("/:id", h.UpdateDispute)
	disputes.Patch("/:id/status", h.PatchStatus)
	disputes.Delete("/:id", h.DeleteDispute)

	disputes.Get("/:id/tasks", w.GetChecklist)
	disputes.Post("/:id/tasks/generate", w.GenerateTasks)
	router.Patch("/tasks/:id", w.UpdateTask)
}

func setupVampRoutes(router fiber.Router, h *handlers.VampHandler) {
	records := router.Group("/vamp")

	records.Get("/", h.GetRecords)
	records.Post("/", h.CreateRecord)
	records.Get("/summary", h.GetSummary)
	records.Get("/export", h.Export)
	records.Get("/thresholds", h.GetThresholds)
	records.Get("/:id", h.GetRecord)
	records.Put("/:id", h.UpdateRecord)
	records.Delete("/:id", h.DeleteRecord)
}

func setupReportRoutes(router fiber.Router, h *handlers.ReportHandler) {
	reports := router.Group("/reports")

	reports.Get("/aggregate", h.Aggregate)
	reports.Get("/anomalies", h.Anomalies)
	reports.Get("/dashboard", h.Dashboard)
}

func setupSettingsRoutes(router fiber.Router, h *handlers.SettingsHandler) {
	projects := router.Group("/projects")
	projects.Get("/", h.GetProjects)
	projects.Post("/", h.CreateProject)
	projects.Get("/:id", h.GetProject)
	projects.Put("/:id", h.UpdateProject)
	projects.Delete("/:id", h.DeleteProject)

	fields := router.Group("/custom-fields")
	fields.Get("/", h.GetCustomFields)
	fields.Post("/", h.CreateCustomField)
	fields.Put("/:id", h.UpdateCustomField)
	fields.Delete("/:id", h.DeleteCustomField)

	router.Get("/audit", h.GetAuditLog)
}

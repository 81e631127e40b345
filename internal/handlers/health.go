package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

type HealthHandler struct {
	db    Pinger
	cache Pinger
}

// NewHealthHandler builds the health handler. cache may be nil when Redis is
// not configured.
func NewHealthHandler(db, cache Pinger) *HealthHandler {
	return &HealthHandler{db: db, cache: cache}
}

func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status := "ok"
	code := fiber.StatusOK

	database := "connected"
	if err := h.db.HealthCheck(ctx); err != nil {
		database = "unreachable"
		status = "degraded"
		code = fiber.StatusServiceUnavailable
	}

	redis := "disabled"
	if h.cache != nil {
		redis = "connected"
		if err := h.cache.HealthCheck(ctx); err != nil {
			redis = "unreachable"
			status = "degraded"
		}
	}

	return c.Status(code).JSON(fiber.Map{
		"status": status,
		"services": fiber.Map{
			"database": database,
			"redis":    redis,
		},
	})
}

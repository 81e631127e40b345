package middleware

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"chargeback/internal/models"
	"chargeback/internal/services/audit"
	"chargeback/internal/services/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubAuth struct{}

func (stubAuth) Authenticate(_ context.Context, token string) (*models.UserClaims, error) {
	switch token {
	case "good":
		return &models.UserClaims{UserID: 1, Email: "a@example.com", Role: "analyst"}, nil
	case "admin":
		return &models.UserClaims{UserID: 2, Email: "root@example.com", Role: auth.RoleAdmin}, nil
	case "stale":
		return nil, auth.ErrSessionExpired
	}
	return nil, auth.ErrInvalidToken
}

func newApp() *fiber.App {
	app := fiber.New()
	mw := NewAuthMiddleware(stubAuth{}, zap.NewNop())
	app.Use(RequestID())
	app.Get("/me", mw.Handler, func(c *fiber.Ctx) error {
		return c.SendString(audit.ActorFrom(c.UserContext()))
	})
	app.Get("/admin", mw.Handler, AdminAuthMiddleware, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func do(t *testing.T, app *fiber.App, path, token string) int {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get(HeaderRequestID))
	return resp.StatusCode
}

func TestAuthMiddleware(t *testing.T) {
	app := newApp()

	assert.Equal(t, fiber.StatusOK, do(t, app, "/me", "good"))
	assert.Equal(t, fiber.StatusUnauthorized, do(t, app, "/me", ""))
	assert.Equal(t, fiber.StatusUnauthorized, do(t, app, "/me", "stale"))
	assert.Equal(t, fiber.StatusUnauthorized, do(t, app, "/me", "junk"))

	assert.Equal(t, fiber.StatusForbidden, do(t, app, "/admin", "good"))
	assert.Equal(t, fiber.StatusNoContent, do(t, app, "/admin", "admin"))
}

func TestAuthMiddleware_SetsActor(t *testing.T) {
	app := newApp()
	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	resp, err := app.Test(req)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", string(body))
}

func TestRequestID_KeepsCallerValue(t *testing.T) {
	app := newApp()
	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", resp.Header.Get(HeaderRequestID))
}

// Package middleware provides HTTP middleware components for the application.
package middleware

import (
	"context"
	"errors"
	"strings"

	"chargeback/internal/models"
	"chargeback/internal/services/audit"
	"chargeback/internal/services/auth"
	"chargeback/internal/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Authenticator is the slice of the auth service the middleware needs.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.UserClaims, error)
}

// AuthMiddleware handles JWT token validation and user authentication.
// It extracts the JWT token from the Authorization header (or the
// access_token cookie), validates it and adds the user claims to the request
// context.
type AuthMiddleware struct {
	auth Authenticator
	log  *zap.Logger
}

func NewAuthMiddleware(a Authenticator, log *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		auth: a,
		log:  log,
	}
}

// Handler rejects requests without a valid token whose version matches the
// user's current one.
func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	tokenString, err := bearerToken(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	claims, err := m.auth.Authenticate(c.UserContext(), tokenString)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrSessionExpired):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "session expired"})
		case errors.Is(err, auth.ErrInvalidToken):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}
		m.log.Error("token check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "authentication failed"})
	}

	c.Locals(utils.ClaimsKey, claims)
	c.Locals("userID", claims.UserID)
	c.SetUserContext(audit.WithActor(c.UserContext(), claims.Email))

	return c.Next()
}

// AdminAuthMiddleware verifies that the request has valid admin claims.
func AdminAuthMiddleware(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid claims"})
	}
	if claims.Role != auth.RoleAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Insufficient permissions"})
	}
	return c.Next()
}

func bearerToken(c *fiber.Ctx) (string, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		if cookie := c.Cookies("access_token"); cookie != "" {
			return cookie, nil
		}
		return "", errors.New("missing authorization header")
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return "", errors.New("invalid authorization format")
	}
	return strings.TrimPrefix(header, "Bearer "), nil
}

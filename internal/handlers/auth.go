package handlers

import (
	"time"

	"chargeback/internal/services/auth"
	"chargeback/internal/utils"
	"chargeback/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService  auth.Service
	secureCookie bool
	log          *zap.Logger
}

func NewAuthHandler(authService auth.Service, secureCookie bool, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		secureCookie: secureCookie,
		log:          log,
	}
}

// LoginUser handles user authentication and returns JWT tokens
func (h *AuthHandler) LoginUser(c *fiber.Ctx) error {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if input.Email == "" || input.Password == "" {
		return response.BadRequest(c, "Email and password are required")
	}

	user, accessToken, refreshToken, err := h.authService.Login(c.UserContext(), input.Email, input.Password)
	if err != nil {
		return respondError(c, h.log, err)
	}

	h.setAuthCookies(c, accessToken, refreshToken)

	return c.JSON(fiber.Map{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user": fiber.Map{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.Name,
			"role":  user.Role,
		},
	})
}

// RefreshToken handles token refresh requests
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	refreshToken := c.Cookies("refresh_token")
	if refreshToken == "" {
		var input struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := c.BodyParser(&input); err == nil {
			refreshToken = input.RefreshToken
		}
	}
	if refreshToken == "" {
		return response.Error(c, fiber.StatusUnauthorized, "Refresh token not provided")
	}

	accessToken, newRefreshToken, err := h.authService.RefreshTokens(c.UserContext(), refreshToken)
	if err != nil {
		return respondError(c, h.log, err)
	}

	h.setAuthCookies(c, accessToken, newRefreshToken)

	return c.JSON(fiber.Map{
		"access_token":  accessToken,
		"refresh_token": newRefreshToken,
	})
}

// LogoutUser invalidates every token of the caller.
func (h *AuthHandler) LogoutUser(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	if err := h.authService.Logout(c.UserContext(), claims.UserID); err != nil {
		return respondError(c, h.log, err)
	}

	h.clearAuthCookies(c)
	return response.Success(c, "Successfully logged out", nil)
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var input struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	if err := h.authService.ChangePassword(c.UserContext(), claims.UserID, input.OldPassword, input.NewPassword); err != nil {
		return respondError(c, h.log, err)
	}
	h.clearAuthCookies(c)
	return response.Success(c, "Password changed successfully", nil)
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}
	user, err := h.authService.GetUserByID(c.UserContext(), claims.UserID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(user)
}

// CreateUser lets an admin add an analyst or another admin.
func (h *AuthHandler) CreateUser(c *fiber.Ctx) error {
	var input struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.authService.CreateUser(c.UserContext(), input.Email, input.Name, input.Password, input.Role)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return response.Created(c, user)
}

func (h *AuthHandler) setAuthCookies(c *fiber.Ctx, accessToken, refreshToken string) {
	c.Cookie(&fiber.Cookie{
		Name:     "access_token",
		Value:    accessToken,
		HTTPOnly: true,
		Secure:   h.secureCookie,
		Path:     "/",
		SameSite: "Strict",
		MaxAge:   int(utils.AccessTokenTTL.Seconds()),
	})
	c.Cookie(&fiber.Cookie{
		Name:     "refresh_token",
		Value:    refreshToken,
		HTTPOnly: true,
		Secure:   h.secureCookie,
		Path:     "/",
		SameSite: "Strict",
		MaxAge:   int(utils.RefreshTokenTTL.Seconds()),
	})
}

func (h *AuthHandler) clearAuthCookies(c *fiber.Ctx) {
	for _, name := range []string{"access_token", "refresh_token"} {
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    "",
			Expires:  time.Now().Add(-time.Hour),
			HTTPOnly: true,
			Secure:   h.secureCookie,
			Path:     "/",
		})
	}
}

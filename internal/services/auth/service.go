package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"chargeback/internal/models"
	"chargeback/internal/repositories"
	"chargeback/internal/utils"
	"chargeback/internal/validation"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleAdmin   = "admin"
	RoleAnalyst = "analyst"

	StatusActive = "active"
)

type Service interface {
	Login(ctx context.Context, email, password string) (*models.User, string, string, error)
	RefreshTokens(ctx context.Context, refreshToken string) (string, string, error)
	Logout(ctx context.Context, userID uint) error
	ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error
	CreateUser(ctx context.Context, email, name, password, role string) (*models.User, error)
	GetUserByID(ctx context.Context, userID uint) (*models.User, error)
	GetUserTokenVersion(ctx context.Context, userID uint) (int, error)
	// Authenticate parses an access token and checks it against the user's
	// current token version.
	Authenticate(ctx context.Context, token string) (*models.UserClaims, error)
}

type service struct {
	userRepo repositories.UserRepository
	secret   string
	log      *zap.Logger
}

func NewService(userRepo repositories.UserRepository, jwtSecret string, log *zap.Logger) Service {
	return &service{
		userRepo: userRepo,
		secret:   jwtSecret,
		log:      log,
	}
}

func (s *service) Login(ctx context.Context, email, password string) (*models.User, string, string, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			s.log.Info("login failed: unknown email")
			return nil, "", "", ErrInvalidCredentials
		}
		return nil, "", "", eris.Wrap(err, "auth: load user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		s.log.Info("login failed: wrong password", zap.Uint("user_id", user.ID))
		return nil, "", "", ErrInvalidCredentials
	}
	if user.Status != StatusActive {
		return nil, "", "", ErrUserInactive
	}

	accessToken, refreshToken, err := utils.GenerateTokens(s.secret, claimsFor(user))
	if err != nil {
		return nil, "", "", eris.Wrap(err, "auth: generate tokens")
	}

	now := time.Now().UTC()
	user.LastLoginAt = &now
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.log.Warn("failed to record last login", zap.Uint("user_id", user.ID), zap.Error(err))
	}

	return user, accessToken, refreshToken, nil
}

func (s *service) RefreshTokens(ctx context.Context, refreshToken string) (string, string, error) {
	claims, err := s.Authenticate(ctx, refreshToken)
	if err != nil {
		return "", "", err
	}
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return "", "", eris.Wrap(err, "auth: load user")
	}
	access, refresh, err := utils.GenerateTokens(s.secret, claimsFor(user))
	if err != nil {
		return "", "", eris.Wrap(err, "auth: generate tokens")
	}
	return access, refresh, nil
}

func (s *service) Authenticate(ctx context.Context, token string) (*models.UserClaims, error) {
	_, claims, err := utils.ParseToken(s.secret, token)
	if err != nil {
		s.log.Debug("token rejected", zap.Error(err))
		return nil, ErrInvalidToken
	}

	version, err := s.GetUserTokenVersion(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if version != claims.TokenVersion {
		return nil, ErrSessionExpired
	}
	return claims, nil
}

// Logout bumps the token version, invalidating every issued token.
func (s *service) Logout(ctx context.Context, userID uint) error {
	if err := s.userRepo.IncrementTokenVersion(ctx, userID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrUserNotFound
		}
		return eris.Wrap(err, "auth: logout")
	}
	return nil
}

func (s *service) ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)); err != nil {
		return ErrInvalidCredentials
	}

	v := validation.New()
	v.Password("new_password", newPassword)
	if err := v.Err(); err != nil {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return eris.Wrap(err, "auth: hash password")
	}

	user.Password = string(hashed)
	user.TokenVersion++

	if err := s.userRepo.Update(ctx, user); err != nil {
		return eris.Wrap(err, "auth: update password")
	}
	return nil
}

func (s *service) CreateUser(ctx context.Context, email, name, password, role string) (*models.User, error) {
	email = normalizeEmail(email)
	if role == "" {
		role = RoleAnalyst
	}

	v := validation.New()
	v.Required("email", email)
	v.Email("email", email)
	v.Required("name", strings.TrimSpace(name))
	v.Password("password", password)
	v.OneOf("role", role, RoleAdmin, RoleAnalyst)
	if err := v.Err(); err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, eris.Wrap(err, "auth: hash password")
	}

	user := &models.User{
		Email:        email,
		Name:         strings.TrimSpace(name),
		Password:     string(hashed),
		Role:         role,
		Status:       StatusActive,
		TokenVersion: 1,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, eris.Wrap(err, "auth: create user")
	}
	return user, nil
}

func (s *service) GetUserByID(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, eris.Wrap(err, "auth: load user")
	}
	return user, nil
}

func (s *service) GetUserTokenVersion(ctx context.Context, userID uint) (int, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return user.TokenVersion, nil
}

func claimsFor(user *models.User) *models.UserClaims {
	return &models.UserClaims{
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

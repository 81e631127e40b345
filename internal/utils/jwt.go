package utils

import (
	"errors"
	"strconv"
	"time"

	"chargeback/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenIssuer     = "chargeback-api"
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
)

var ErrMissingSecret = errors.New("jwt secret not configured")

// GenerateTokens signs an access token and a refresh token for the given user claims.
func GenerateTokens(secret string, claims *models.UserClaims) (accessToken string, refreshToken string, err error) {
	if secret == "" {
		return "", "", ErrMissingSecret
	}

	now := time.Now()
	accessToken, err = sign(secret, claims, now, AccessTokenTTL)
	if err != nil {
		return "", "", err
	}
	refreshToken, err = sign(secret, claims, now, RefreshTokenTTL)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func sign(secret string, claims *models.UserClaims, now time.Time, ttl time.Duration) (string, error) {
	c := models.UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    TokenIssuer,
			Subject:   strconv.FormatUint(uint64(claims.UserID), 10),
		},
		UserID:       claims.UserID,
		Email:        claims.Email,
		Role:         claims.Role,
		TokenVersion: claims.TokenVersion,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}

// ParseToken parses and validates a JWT token string.
// It returns the token if valid, or an error if something is wrong.
func ParseToken(secret, tokenStr string) (*jwt.Token, *models.UserClaims, error) {
	if secret == "" {
		return nil, nil, ErrMissingSecret
	}

	token, err := jwt.ParseWithClaims(tokenStr, &models.UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(TokenIssuer))
	if err != nil {
		return nil, nil, err
	}

	claims, ok := token.Claims.(*models.UserClaims)
	if !ok || !token.Valid {
		return nil, nil, errors.New("invalid token claims")
	}

	return token, claims, nil
}

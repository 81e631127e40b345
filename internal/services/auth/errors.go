package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrSessionExpired     = errors.New("session expired")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user is not active")
	ErrEmailTaken         = errors.New("email already registered")
)

package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")

	// Password does not match the stored hash
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Any token failure: malformed, unsigned, wrong secret, expired
	// or already rotated. Callers must not be able to tell which.
	ErrInvalidToken = errors.New("token invalid or expired")
)

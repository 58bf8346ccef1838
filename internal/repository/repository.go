package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/adasgupta/videotube/internal/models"
)

type CreateUserParams struct {
	Username       string
	Email          string
	FullName       string
	HashedPassword string
	AvatarURL      string
	CoverImageURL  string
}

// User repository interface
type UserRepo interface {
	// Create user
	// If user with same username or email exists already has to return apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, arg CreateUserParams) (models.User, error)

	// Get user by id, or by username or email with a single identifier
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GetUserByIdentifier(ctx context.Context, identifier string) (models.User, error)

	// Replace stored password hash. Must not touch the refresh token:
	// existing sessions survive a password change
	UpdatePassword(ctx context.Context, userID uuid.UUID, hashedPassword string) error

	// Overwrite stored refresh token unconditionally. nil clears it (logout)
	SetRefreshToken(ctx context.Context, userID uuid.UUID, token *string) error

	// Replace oldToken with newToken in a single conditional update.
	// If the stored value is not oldToken anymore (rotated, cleared or
	// never issued) must return apperrors.ErrInvalidToken
	RotateRefreshToken(ctx context.Context, userID uuid.UUID, oldToken string, newToken string) error
}

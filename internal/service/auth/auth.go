package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/adasgupta/videotube/internal/apperrors"
	"github.com/adasgupta/videotube/internal/models"
	"github.com/adasgupta/videotube/internal/repository"
	"github.com/adasgupta/videotube/internal/service/auth/tokenmanager"
)

// Interface to create or compare user password hashes
type PasswordHasher interface {
	// Generate Hash from password
	Hash(password string) (string, error)

	// Compare known hashedPassword and user provided password
	// Must be protected against timing attacks
	Compare(hashedPassword string, password string) error
}

type Config struct {
	// Hasher to use during registration, login and password change.
	// Defaults to BcryptHasher
	Hasher PasswordHasher

	// Cookie and header names used to transport tokens
	// If not set than default is used
	AccessCookieName  string
	RefreshCookieName string
	AccessAuthScheme  string

	// Mark auth cookies Secure. Off by default so local http setups work
	CookieSecure bool
}

type RegisterParams struct {
	Username      string
	Email         string
	FullName      string
	Password      string
	AvatarURL     string
	CoverImageURL string
}

// AuthService sequences login, logout, refresh and password change.
// Tokens are pure crypto (tokenmanager), session revocation is purely
// a matter of the refresh token stored on the user record.
type AuthService struct {
	// Manager to issue and verify token pairs (access and refresh)
	tokens *tokenmanager.TokenManager

	// hasher to hash or compare user passwords
	hasher PasswordHasher

	// Repository to access long term data
	userRepo repository.UserRepo

	accessCookieName  string
	refreshCookieName string
	accessAuthScheme  string
	cookieSecure      bool
}

func NewService(cfg Config, tokens *tokenmanager.TokenManager, userRepo repository.UserRepo) (*AuthService, error) {
	hasher := cfg.Hasher
	if hasher == nil {
		hasher = DefaultHasher
	}

	if tokens == nil {
		return nil, errors.New("token manager must not be nil")
	}
	if userRepo == nil {
		return nil, errors.New("user repo must not be nil")
	}

	setDefaultString := func(field *string, def string) {
		if *field == "" {
			*field = def
		}
	}
	setDefaultString(&cfg.AccessCookieName, defaultAccessCookieName)
	setDefaultString(&cfg.RefreshCookieName, defaultRefreshCookieName)
	setDefaultString(&cfg.AccessAuthScheme, defaultAccessAuthScheme)

	return &AuthService{
		tokens:   tokens,
		hasher:   hasher,
		userRepo: userRepo,

		accessCookieName:  cfg.AccessCookieName,
		refreshCookieName: cfg.RefreshCookieName,
		accessAuthScheme:  cfg.AccessAuthScheme,
		cookieSecure:      cfg.CookieSecure,
	}, nil
}

// Register creates user with hashed password.
// Username and email are stored lowercased, so lookups are case insensitive.
// No tokens are issued: login is a separate step
func (s *AuthService) Register(ctx context.Context, arg RegisterParams) (models.User, error) {
	var user models.User

	hash, err := s.hasher.Hash(arg.Password)
	if err != nil {
		return user, fmt.Errorf("can't use this as password, error=%w", err)
	}

	user, err = s.userRepo.CreateUser(ctx, repository.CreateUserParams{
		Username:       strings.ToLower(strings.TrimSpace(arg.Username)),
		Email:          strings.ToLower(strings.TrimSpace(arg.Email)),
		FullName:       strings.TrimSpace(arg.FullName),
		HashedPassword: hash,
		AvatarURL:      arg.AvatarURL,
		CoverImageURL:  arg.CoverImageURL,
	})
	if err != nil {
		return user, err
	}

	return user, nil
}

// Login verifies credentials and issues fresh token pair.
// The new refresh token overwrites the stored one, so the previous
// session (if any) can't refresh anymore
func (s *AuthService) Login(ctx context.Context, identifier string, password string) (models.User, models.TokenPair, error) {
	var pair models.TokenPair

	user, err := s.userRepo.GetUserByIdentifier(ctx, strings.ToLower(strings.TrimSpace(identifier)))
	if err != nil {
		return user, pair, err
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return models.User{}, pair, apperrors.ErrInvalidCredentials
	}

	pair, err = s.issuePair(user)
	if err != nil {
		return user, pair, err
	}

	if err := s.userRepo.SetRefreshToken(ctx, user.ID, &pair.Refresh.Value); err != nil {
		return user, pair, fmt.Errorf("error while saving refresh token. Err: %w", err)
	}

	return user, pair, nil
}

// Logout clears the stored refresh token of the given user.
// Already issued access tokens stay valid until they expire
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	if err := s.userRepo.SetRefreshToken(ctx, userID, nil); err != nil {
		return fmt.Errorf("error while clearing refresh token. Err: %w", err)
	}
	return nil
}

// RefreshPair exchanges a valid refresh token for a new token pair.
// Each token is single use: the conditional update in the repo replaces
// the stored value only if it still equals the presented one, which
// rejects replay of an already rotated token
func (s *AuthService) RefreshPair(ctx context.Context, refresh string) (models.TokenPair, error) {
	var pair models.TokenPair

	claims, err := s.tokens.ParseRefresh(refresh)
	if err != nil {
		return pair, err
	}

	user, err := s.userRepo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return pair, apperrors.ErrInvalidToken
		}
		return pair, err
	}

	pair, err = s.issuePair(user)
	if err != nil {
		return pair, err
	}

	if err := s.userRepo.RotateRefreshToken(ctx, user.ID, refresh, pair.Refresh.Value); err != nil {
		return models.TokenPair{}, err
	}

	return pair, nil
}

// ChangePassword replaces the stored hash after verifying the old password.
// Stored refresh token is left untouched: existing sessions stay valid
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword string, newPassword string) error {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.hasher.Compare(user.HashedPassword, oldPassword); err != nil {
		return apperrors.ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("can't use this as password, error=%w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("error while updating password. Err: %w", err)
	}

	return nil
}

func (s *AuthService) issuePair(user models.User) (models.TokenPair, error) {
	var pair models.TokenPair

	access, err := s.tokens.IssueAccess(user)
	if err != nil {
		return pair, fmt.Errorf("token could not generated, sorry. %w", err)
	}

	refresh, err := s.tokens.IssueRefresh(user)
	if err != nil {
		return pair, fmt.Errorf("token could not generated, sorry. %w", err)
	}

	return models.TokenPair{Access: access, Refresh: refresh}, nil
}

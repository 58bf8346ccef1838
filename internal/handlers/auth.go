package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/adasgupta/videotube/internal/apperrors"
	"github.com/adasgupta/videotube/internal/handlers/render"
	"github.com/adasgupta/videotube/internal/handlers/userctx"
	"github.com/adasgupta/videotube/internal/models"
	"github.com/adasgupta/videotube/internal/service/auth"
)

// Auth service consumed by the handlers
type AuthService interface {
	// Register new user
	// Has to return apperrors.ErrUserAlreadyExists if username or email taken
	Register(ctx context.Context, arg auth.RegisterParams) (models.User, error)

	// Login user with username or email
	// Has to return apperrors.ErrUserNotFound if user not found
	// and apperrors.ErrInvalidCredentials if password mismatch
	Login(ctx context.Context, identifier string, password string) (models.User, models.TokenPair, error)

	// Clear stored refresh token of the user
	Logout(ctx context.Context, userID uuid.UUID) error

	// Rotate tokens using refresh token
	// Has to return apperrors.ErrInvalidToken for any bad or reused token
	RefreshPair(ctx context.Context, refresh string) (models.TokenPair, error)

	// Replace password after verifying the old one
	ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword string, newPassword string) error

	// Token transport helpers
	SetTokenPairToResponse(w http.ResponseWriter, pair models.TokenPair)
	ClearTokensFromResponse(w http.ResponseWriter)
	GetRefreshString(r *http.Request) (string, error)
}

type AuthHandler struct {
	authService AuthService
}

func NewAuth(auth AuthService) *AuthHandler {
	return &AuthHandler{authService: auth}
}

type tokenPairResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func toTokenPairResponse(pair models.TokenPair) tokenPairResponse {
	return tokenPairResponse{
		AccessToken:  pair.Access.Value,
		RefreshToken: pair.Refresh.Value,
	}
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	type RegisterRequest struct {
		Username   string `json:"username" validate:"required,min=2,max=50"`
		Email      string `json:"email" validate:"required,email"`
		FullName   string `json:"fullname" validate:"required,max=100"`
		Password   string `json:"password" validate:"required,min=8"`
		Avatar     string `json:"avatar"`
		CoverImage string `json:"coverImage"`
	}
	type RegisterSuccessResponse struct {
		Message string            `json:"message"`
		User    models.PublicUser `json:"user"`
	}

	data, err := render.BindAndValidate[RegisterRequest](w, r)
	if err != nil {
		// Response is written already, validation details included
		return
	}

	user, err := h.authService.Register(r.Context(), auth.RegisterParams{
		Username:      data.Username,
		Email:         data.Email,
		FullName:      data.FullName,
		Password:      data.Password,
		AvatarURL:     data.Avatar,
		CoverImageURL: data.CoverImage,
	})
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			render.ServiceError(w, "Username or email already exists", http.StatusConflict)
		default:
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSONWithStatus(w, RegisterSuccessResponse{
		Message: "User registered successfully",
		User:    user.Public(),
	}, http.StatusCreated)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	type LoginRequest struct {
		Identifier string `json:"identifier" validate:"required"`
		Password   string `json:"password" validate:"required"`
	}
	type LoginSuccessResponse struct {
		Message string            `json:"message"`
		User    models.PublicUser `json:"user"`
		Tokens  tokenPairResponse `json:"tokens"`
	}

	data, err := render.BindAndValidate[LoginRequest](w, r)
	if err != nil {
		return
	}

	user, pair, err := h.authService.Login(r.Context(), data.Identifier, data.Password)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "User not found", http.StatusUnauthorized)
		case errors.Is(err, apperrors.ErrInvalidCredentials):
			render.ServiceError(w, "Invalid credentials", http.StatusUnauthorized)
		default:
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.authService.SetTokenPairToResponse(w, pair)
	render.JSON(w, LoginSuccessResponse{
		Message: "User logged in successfully",
		User:    user.Public(),
		Tokens:  toTokenPairResponse(pair),
	})
}

func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	type RefreshSuccessResponse struct {
		Message string            `json:"message"`
		Tokens  tokenPairResponse `json:"tokens"`
	}

	refresh, err := h.authService.GetRefreshString(r)
	if err != nil {
		render.ServiceError(w, "Refresh token is required", http.StatusBadRequest)
		return
	}

	pair, err := h.authService.RefreshPair(r.Context(), refresh)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidToken):
			render.ServiceError(w, "Refresh token expired or reused", http.StatusUnauthorized)
		default:
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.authService.SetTokenPairToResponse(w, pair)
	render.JSON(w, RefreshSuccessResponse{
		Message: "Tokens refreshed successfully",
		Tokens:  toTokenPairResponse(pair),
	})
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	type LogoutSuccessResponse struct {
		Message string `json:"message"`
	}

	user, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.authService.Logout(r.Context(), user.ID); err != nil {
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.authService.ClearTokensFromResponse(w)
	render.JSON(w, LogoutSuccessResponse{Message: "User logged out successfully"})
}

func (h *AuthHandler) changePassword(w http.ResponseWriter, r *http.Request) {
	type ChangePasswordRequest struct {
		OldPassword string `json:"oldPassword" validate:"required"`
		NewPassword string `json:"newPassword" validate:"required,min=8"`
	}
	type ChangePasswordSuccessResponse struct {
		Message string `json:"message"`
	}

	user, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	data, err := render.BindAndValidate[ChangePasswordRequest](w, r)
	if err != nil {
		return
	}

	err = h.authService.ChangePassword(r.Context(), user.ID, data.OldPassword, data.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidCredentials):
			render.ServiceError(w, "Invalid credentials", http.StatusUnauthorized)
		default:
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, ChangePasswordSuccessResponse{Message: "Password changed successfully"})
}

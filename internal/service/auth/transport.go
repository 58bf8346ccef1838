package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/adasgupta/videotube/internal/apperrors"
	"github.com/adasgupta/videotube/internal/models"
)

const (
	defaultAccessCookieName  = "access_token"
	defaultRefreshCookieName = "refresh_token"
	defaultAccessAuthScheme  = "Bearer"
)

// Auth resolves the user behind the request or fails.
// Token is taken from the access cookie, or from the Authorization
// header if no cookie set. Read only: nothing is mutated here
func (s *AuthService) Auth(ctx context.Context, r *http.Request) (models.User, error) {
	var user models.User

	access, err := s.GetAccessString(r)
	if err != nil {
		return user, err
	}

	claims, err := s.tokens.ParseAccess(access)
	if err != nil {
		return user, err
	}

	user, err = s.userRepo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return models.User{}, apperrors.ErrInvalidToken
		}
		return models.User{}, err
	}

	// Project secrets out before the user reaches request context
	user.HashedPassword = ""
	user.RefreshToken = nil

	return user, nil
}

// GetAccessString extracts access token from cookie or 'Authorization' header.
// Cookie wins if both present
func (s *AuthService) GetAccessString(r *http.Request) (string, error) {
	if cookie, err := r.Cookie(s.accessCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	header := r.Header.Get("Authorization")
	if value, ok := strings.CutPrefix(header, s.accessAuthScheme+" "); ok && value != "" {
		return value, nil
	}

	return "", apperrors.ErrInvalidToken
}

// GetRefreshString extracts refresh token from cookie or request body.
// Cookie wins if both present
func (s *AuthService) GetRefreshString(r *http.Request) (string, error) {
	if cookie, err := r.Cookie(s.refreshCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.RefreshToken != "" {
		return body.RefreshToken, nil
	}

	return "", errors.New("refresh token not provided")
}

// SetTokenPairToResponse sets both auth cookies.
// Cookie lifetime matches token expiry
func (s *AuthService) SetTokenPairToResponse(w http.ResponseWriter, pair models.TokenPair) {
	http.SetCookie(w, s.tokenCookie(s.accessCookieName, pair.Access.Value, pair.Access.ExpiresAt))
	http.SetCookie(w, s.tokenCookie(s.refreshCookieName, pair.Refresh.Value, pair.Refresh.ExpiresAt))
}

// SetTokenPairToRequest sets auth cookies to the request. Useful in tests
// and clients that talk to the service directly
func (s *AuthService) SetTokenPairToRequest(r *http.Request, pair models.TokenPair) {
	r.AddCookie(s.tokenCookie(s.accessCookieName, pair.Access.Value, pair.Access.ExpiresAt))
	r.AddCookie(s.tokenCookie(s.refreshCookieName, pair.Refresh.Value, pair.Refresh.ExpiresAt))
}

// ClearTokensFromResponse instructs the client to drop both auth cookies
func (s *AuthService) ClearTokensFromResponse(w http.ResponseWriter) {
	expire := func(name string) *http.Cookie {
		c := s.tokenCookie(name, "", time.Time{})
		c.MaxAge = -1
		return c
	}

	http.SetCookie(w, expire(s.accessCookieName))
	http.SetCookie(w, expire(s.refreshCookieName))
}

func (s *AuthService) tokenCookie(name string, value string, expiresAt time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

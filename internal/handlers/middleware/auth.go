package middleware

import (
	"context"
	"net/http"

	"github.com/adasgupta/videotube/internal/handlers/render"
	"github.com/adasgupta/videotube/internal/handlers/userctx"
	"github.com/adasgupta/videotube/internal/models"
)

type authService interface {
	// Resolve user from the request access token
	Auth(ctx context.Context, r *http.Request) (models.User, error)
}

// AuthMiddleware gates protected routes: any failure to resolve the user
// is a plain 401, no detail about which check tripped
func AuthMiddleware(as authService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := as.Auth(r.Context(), r)
			if err != nil {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := userctx.New(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

package handlers

import (
	"net/http"

	"github.com/adasgupta/videotube/internal/handlers/render"
	"github.com/adasgupta/videotube/internal/handlers/userctx"
)

func handleUserMe() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Gate middleware guarantees the user is set
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		render.JSON(w, user.Public())
	})
}

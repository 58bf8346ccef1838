package handlers

import (
	"net/http"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	auth *AuthHandler,
	authMiddleware func(http.Handler) http.Handler,
	loggerMiddleware func(http.Handler) http.Handler,
) http.Handler {
	withAuth := authMiddleware

	apiusers := http.NewServeMux()

	apiusers.Handle("POST /register", http.HandlerFunc(auth.register))
	apiusers.Handle("POST /login", http.HandlerFunc(auth.login))
	apiusers.Handle("POST /refresh-token", http.HandlerFunc(auth.refresh))

	apiusers.Handle("POST /logout", withAuth(http.HandlerFunc(auth.logout)))
	apiusers.Handle("POST /change-password", withAuth(http.HandlerFunc(auth.changePassword)))
	apiusers.Handle("GET /me", withAuth(handleUserMe()))

	root := http.NewServeMux()
	root.Handle("/api/v1/users/", http.StripPrefix("/api/v1/users", apiusers))

	handler := chain(root,
		loggerMiddleware,
	)

	return handler
}

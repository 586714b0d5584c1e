package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS returns a middleware that lets the listed origins call the JSON API
// from a browser with credentials (the session cookie). Each origin must be
// scheme + host with no trailing slash. With no origins the middleware is a
// pass-through, so same-origin pages keep working.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})
	return c.Handler
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/cors"
)

// CORS allows the browser client to call the API from the listed origins.
// Credentials are allowed so the session cookie travels with cross-origin
// requests, which is why an empty list means same-origin only: no origin is
// echoed back unless it is listed or the list is exactly "*".
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowOriginFunc: AllowedOrigin(allowedOrigins),
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		MaxAge:           3600,
		AllowCredentials: true,
	})
	return c.Handler
}

// AllowedOrigin reports whether an Origin header matches the allowed list,
// ignoring the scheme. An empty list matches nothing.
func AllowedOrigin(allowedOrigins []string) func(origin string) bool {
	trimScheme := func(origin string) string {
		return strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://")
	}
	return func(origin string) bool {
		if len(allowedOrigins) == 0 {
			return false
		}
		if len(allowedOrigins) == 1 && allowedOrigins[0] == "*" {
			return true
		}
		for _, allowedOrigin := range allowedOrigins {
			if allowedOrigin == origin || trimScheme(allowedOrigin) == trimScheme(origin) {
				return true
			}
		}
		return false
	}
}

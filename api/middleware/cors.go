package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

const localOrigin = "http://localhost:3000"

// CORS lets the registration site call the public API from the browser.
// Blank entries are dropped; with none left only localOrigin is allowed.
func CORS(origins []string) func(http.Handler) http.Handler {
	var allowed []string
	for _, origin := range origins {
		if origin = strings.TrimRight(strings.TrimSpace(origin), "/"); origin != "" {
			allowed = append(allowed, origin)
		}
	}
	if len(allowed) == 0 {
		allowed = []string{localOrigin}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: allowed,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", IdempotencyHeader, RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader, ReplayedHeader},
		MaxAge:         300,
	})
}

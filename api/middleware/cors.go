package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS applies the storefront origin policy. The session header is exposed
// so browser clients can keep it between requests.
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", SessionHeader, "Idempotency-Key", "X-Request-Id"},
		ExposedHeaders:   []string{SessionHeader, "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}

package middleware

import (
	"net/http"

	"github.com/aaravmahajanofficial/sellit-backend/internal/config"
	"github.com/go-chi/cors"
)

// CORS allows the configured browser origins to call the API with a bearer token.
func CORS(cfg config.CORS) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           cfg.MaxAge,
	})
}

package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORSMiddleware lets the map page call the host from the origins the
// policy allows. Nothing here is credentialed.
func CORSMiddleware(policy *OriginPolicy) func(next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowOriginFunc: func(r *http.Request, origin string) bool {
			return policy.Allowed(origin)
		},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-Id",
		},

		// Expose headers to the client
		ExposedHeaders: []string{
			"Link",
			"X-Request-Id",
		},

		AllowCredentials: false,

		// Cache preflight requests for 5 minutes
		MaxAge: 300,
	})
}

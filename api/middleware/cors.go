package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
	"github.com/truckflow/dispatch-core/pkg/truckflow"
)

// CORS returns middleware that applies the dashboard's allowed origin policy.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", truckflow.HeaderOrgID, requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}

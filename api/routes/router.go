package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/truckflow/dispatch-core/api/controllers"
	"github.com/truckflow/dispatch-core/api/middleware"
	"github.com/truckflow/dispatch-core/internal/fleet"
	"github.com/truckflow/dispatch-core/internal/pricing"
	"github.com/truckflow/dispatch-core/internal/statements"
	"github.com/truckflow/dispatch-core/pkg/config"
	"github.com/truckflow/dispatch-core/pkg/db"
	"github.com/truckflow/dispatch-core/pkg/logger"
)

type sessionManager interface {
	middleware.UserResolver
	controllers.LoginService
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP db.Pinger,
	sessionManager sessionManager,
	pricingService pricing.Service,
	fleetService fleet.Service,
	jobsClient controllers.JobStatusUpdater,
	notesService statements.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]db.Pinger{
			"db":    dbP,
			"redis": redisP,
		}))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/api/v1/auth/login", controllers.AuthLogin(sessionManager, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Credentials(logg))
		r.Use(middleware.Identity(sessionManager, logg))

		r.Get("/auth/me", controllers.AuthMe(logg))

		r.Route("/pricing", func(r chi.Router) {
			r.Post("/resolve", controllers.PricingResolve(pricingService, logg))
			r.Post("/resolve-batch", controllers.PricingResolveBatch(pricingService, logg))
		})

		r.Route("/fleet", func(r chi.Router) {
			r.Get("/locations", controllers.FleetLocations(fleetService, logg))
			r.Get("/locations.geojson", controllers.FleetLocationsGeoJSON(fleetService, logg))
			r.Post("/refresh", controllers.FleetRefresh(fleetService, logg))
		})

		r.Post("/jobs/{jobId}/status", controllers.JobStatusUpdate(jobsClient, logg))

		r.Route("/statements/{statementId}/notes", func(r chi.Router) {
			r.Get("/", controllers.StatementNotesGet(notesService, logg))
			r.Put("/", controllers.StatementNotesPut(notesService, logg))
		})
	})

	return r
}

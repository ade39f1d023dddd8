package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mapofsmiles/companion/internal/middleware"
)

// Router holds all handlers and creates the chi router
type Router struct {
	mapHandler    *MapHandler
	storyHandler  *StoryHandler
	healthHandler *HealthHandler
	hub           *WebSocketManager
	origins       *middleware.OriginPolicy
	logger        *zap.Logger
}

// NewRouter creates a new router
func NewRouter(
	mapHandler *MapHandler,
	storyHandler *StoryHandler,
	healthHandler *HealthHandler,
	hub *WebSocketManager,
	origins *middleware.OriginPolicy,
	logger *zap.Logger,
) *Router {
	return &Router{
		mapHandler:    mapHandler,
		storyHandler:  storyHandler,
		healthHandler: healthHandler,
		hub:           hub,
		origins:       origins,
		logger:        logger,
	}
}

// Setup configures and returns the chi router
func (rt *Router) Setup() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RecoveryMiddleware(rt.logger))
	r.Use(middleware.LoggingMiddleware(rt.logger))
	r.Use(middleware.CORSMiddleware(rt.origins))
	r.Use(rt.origins.Guard)

	// The stream must not go through Compress; it hijacks the connection.
	r.Get("/ws", rt.hub.ServeWS)

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Compress(5))

		r.Route("/health", func(r chi.Router) {
			r.Get("/", rt.healthHandler.Health)
			r.Get("/ready", rt.healthHandler.Ready)
			r.Get("/live", rt.healthHandler.Live)
		})
		r.Handle("/metrics", promhttp.Handler())

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/config", rt.mapHandler.Config)

			r.Route("/position", func(r chi.Router) {
				r.Get("/", rt.mapHandler.GetPosition)
				r.Post("/fix", rt.mapHandler.ReportFix)
				r.Post("/error", rt.mapHandler.ReportError)
				r.Put("/selection", rt.mapHandler.SelectPosition)
				r.Delete("/selection", rt.mapHandler.ClearSelection)
			})

			r.Post("/map/move", rt.mapHandler.MapMoved)

			r.Route("/markers", func(r chi.Router) {
				r.Get("/", rt.mapHandler.GetMarkers)
				r.Delete("/", rt.mapHandler.ClearMarkers)
			})

			r.Route("/stories", func(r chi.Router) {
				r.Post("/", rt.storyHandler.Submit)
				r.Post("/nearby", rt.storyHandler.Nearby)
			})
		})
	})

	return r
}

package api

import (
	"net/http"
	"time"

	"github.com/dom/empire-backend/internal/api/handlers"
	"github.com/dom/empire-backend/internal/api/middleware"
	"github.com/dom/empire-backend/internal/config"
	"github.com/dom/empire-backend/internal/metrics"
	"github.com/dom/empire-backend/internal/service"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(services *service.Services, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	timeout := cfg.Server.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	// Global middleware
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Timeout(timeout))
	r.Use(middleware.CORS)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, metrics.Handler())
	}

	playerHandler := handlers.NewPlayerHandler(services.Player)
	resourceHandler := handlers.NewResourceHandler(services.Resource)
	buildingHandler := handlers.NewBuildingHandler(services.Building, services.Training)
	trainingHandler := handlers.NewTrainingHandler(services.Training)
	modifierHandler := handlers.NewModifierHandler(services.Modifier)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Auth.JWTSecret))

		r.Route("/players", func(r chi.Router) {
			r.Post("/", playerHandler.Create)
			r.Get("/me", playerHandler.Me)
			r.Put("/me/faction", playerHandler.ChangeFaction)
			r.Delete("/me", playerHandler.Delete)
		})

		r.Route("/resources", func(r chi.Router) {
			r.Get("/", resourceHandler.Snapshot)
			r.Get("/rates", resourceHandler.Rates)
			r.Post("/collect", resourceHandler.Collect)
		})

		r.Route("/buildings", func(r chi.Router) {
			r.Get("/", buildingHandler.List)
			r.Post("/", buildingHandler.Construct)
			r.Get("/available", buildingHandler.Available)
			r.Get("/available/{buildingId}", buildingHandler.Availability)
			r.Post("/{id}/upgrade", buildingHandler.Upgrade)
			r.Post("/{id}/confirm", buildingHandler.Confirm)
			r.Get("/{id}/units", buildingHandler.Units)
		})

		r.Route("/training", func(r chi.Router) {
			r.Get("/", trainingHandler.Queue)
			r.Post("/", trainingHandler.Start)
			r.Delete("/{id}", trainingHandler.Cancel)
		})

		r.Get("/units", trainingHandler.Units)

		r.Route("/modifiers", func(r chi.Router) {
			r.Get("/", modifierHandler.Active)
			r.Get("/history", modifierHandler.History)
			r.Get("/multiplier", modifierHandler.Multiplier)
		})
	})

	return r
}

package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/studio-api/internal/api"
	apiMiddleware "github.com/phrazzld/studio-api/internal/api/middleware"
	"github.com/phrazzld/studio-api/internal/service/auth"
)

// newRouter creates the application router with all routes and middleware.
func newRouter(logger *slog.Logger, jwtService auth.JWTService, service api.StudioService) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.TraceMiddleware(logger))
	r.Use(middleware.Recoverer)

	studioHandler := api.NewStudioHandler(service, api.DefaultMaxBodyBytes)
	authMiddleware := apiMiddleware.NewAuthMiddleware(jwtService)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Post("/analyses", studioHandler.Analyze)

		r.Get("/generations", studioHandler.ListGenerations)
		r.Post("/generations", studioHandler.CreateGeneration)
		r.Get("/generations/{id}", studioHandler.GetGeneration)
		r.Delete("/generations/{id}", studioHandler.DeleteGeneration)
		r.Get("/generations/{id}/artifacts/{index}", studioHandler.GetArtifact)

		r.Get("/credits", studioHandler.GetCredits)
		r.Post("/credits/daily-bonus", studioHandler.ClaimDailyBonus)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}

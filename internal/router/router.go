// Package router assembles the HTTP API.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"minecarbon/internal/config"
	"minecarbon/internal/handlers"
	mw "minecarbon/internal/middleware"
	"minecarbon/internal/services"
)

// New builds the router with every service backed by db.
func New(cfg config.Config, db *sqlx.DB, logger *zap.Logger) http.Handler {
	authMW := mw.NewAuthMiddleware([]byte(cfg.JWTSecret), cfg.TokenTTL)

	users := services.NewUserService(db)
	authHandler := handlers.NewAuthHandler(users, authMW, cfg.IsAdmin, logger)
	userHandler := handlers.NewUserHandler(users, logger)
	emissionHandler := handlers.NewEmissionHandler(services.NewEmissionService(db), logger)
	sinkHandler := handlers.NewSinkHandler(services.NewSinkService(db), logger)
	importHandler := handlers.NewImportHandler(services.NewImportService(db), logger)
	dashboardHandler := handlers.NewDashboardHandler(services.NewDashboardService(db), logger)
	reportHandler := handlers.NewReportHandler(services.NewReportService(db), logger)
	adminHandler := handlers.NewAdminHandler(services.NewAdminService(db), users, logger)
	calcHandler := handlers.NewCalculatorHandler(logger)
	healthHandler := handlers.NewHealthHandler(db, logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.ZapRequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler.Get)

	r.Route("/api", func(api chi.Router) {
		api.Post("/users/register", authHandler.Register)
		api.Post("/users/login", authHandler.Login)

		api.Post("/calculate/emissions", calcHandler.Emissions)
		api.Post("/calculate/sequestration", calcHandler.Sequestration)
		api.Get("/simulations/strategies", calcHandler.Strategies)
		api.Post("/simulations", calcHandler.Simulate)

		api.Group(func(pr chi.Router) {
			pr.Use(authMW.RequireAuth)

			pr.Get("/users/me", userHandler.GetMe)

			pr.Post("/emissions", emissionHandler.Create)
			pr.Get("/emissions/user/{userId}", emissionHandler.ListByUser)
			pr.Put("/emissions/{id}", emissionHandler.Update)
			pr.Delete("/emissions/{id}", emissionHandler.Delete)

			pr.Post("/sinks", sinkHandler.Create)
			pr.Get("/sinks/user/{userId}", sinkHandler.ListByUser)
			pr.Put("/sinks/{id}", sinkHandler.Update)
			pr.Delete("/sinks/{id}", sinkHandler.Delete)

			pr.Post("/import", importHandler.Import)
			pr.Get("/dashboard", dashboardHandler.Get)
			pr.Get("/reports", reportHandler.Get)

			pr.Get("/admin/overview", adminHandler.Overview)
			pr.Get("/admin/users", adminHandler.Users)
		})
	})

	return r
}

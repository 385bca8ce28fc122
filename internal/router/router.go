package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/crave-grocer/api/internal/config"
	"github.com/crave-grocer/api/internal/enum"
	"github.com/crave-grocer/api/internal/handler"
	"github.com/crave-grocer/api/internal/ledger"
	"github.com/crave-grocer/api/internal/metrics"
	mw "github.com/crave-grocer/api/internal/middleware"
	"github.com/crave-grocer/api/internal/service"
	"github.com/crave-grocer/api/internal/session"
	"github.com/crave-grocer/api/internal/ws"
)

// Deps holds the long-lived components the routes are served from.
type Deps struct {
	Sessions *session.Manager
	Catalog  *service.CatalogService
	Orders   *service.OrderService
	Ledger   ledger.Lister
	Hub      *ws.Hub
}

// New creates a Chi router with all application routes wired up.
// Everything except /health, /metrics and the WebSocket feed requires an
// agent token; /admin additionally requires the ADMIN role.
func New(cfg *config.Config, deps Deps) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/orders", ws.Handler(deps.Hub, cfg.JWTSecret, cfg.AllowedOrigins))

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		sessionHandler := handler.NewSessionHandler(deps.Sessions, deps.Catalog, deps.Orders)
		r.Route("/sessions", sessionHandler.RegisterRoutes)

		customerHandler := handler.NewCustomerHandler(deps.Orders)
		r.Route("/customers", customerHandler.RegisterRoutes)

		recipeHandler := handler.NewRecipeHandler(deps.Catalog)
		r.Route("/recipes", recipeHandler.RegisterRoutes)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.AgentRoleAdmin))
			adminHandler := handler.NewAdminHandler(deps.Ledger)
			r.Route("/admin", adminHandler.RegisterRoutes)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}

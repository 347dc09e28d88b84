// Package apiserver assembles the HTTP surface of overcast: routing,
// middleware, health, and swagger documentation.
package apiserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/overcast-io/overcast/docs" // swagger registration
	"github.com/overcast-io/overcast/internal/apiserver/handlers"
	"github.com/overcast-io/overcast/internal/config"
	"github.com/overcast-io/overcast/internal/interfaces"
	"github.com/overcast-io/overcast/pkg/logging"
)

// Version is stamped at build time
var Version = "dev"

// APIServer is the assembled HTTP server
type APIServer struct {
	httpServer *http.Server
	router     chi.Router
	logger     *logging.Logger
}

// NewAPIServer wires routes and middleware around the orchestrator
func NewAPIServer(cfg *config.ServerConfig, orch interfaces.Orchestrator, queue interfaces.OperationQueue) *APIServer {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.StripSlashes)
	router.Use(middleware.Timeout(10 * time.Minute))

	infraHandler := handlers.NewInfrastructureHandler(orch)
	opHandler := handlers.NewOperationHandler(orch, queue)

	router.Get("/health", healthHandler)
	router.Get("/swagger/*", httpSwagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/infrastructure", func(r chi.Router) {
			r.Post("/", infraHandler.Create)
			r.Get("/", infraHandler.List)
			r.Get("/{id}", infraHandler.Get)
			r.Patch("/{id}", infraHandler.Update)
			r.Delete("/{id}", infraHandler.Destroy)
			r.Get("/{id}/operations", opHandler.ListForInfrastructure)
		})
		r.Get("/operations/{id}", opHandler.Get)
		r.Get("/system/queue", opHandler.QueueMetrics)
	})

	return &APIServer{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       1 * time.Minute,
			WriteTimeout:      15 * time.Minute,
			IdleTimeout:       2 * time.Minute,
		},
		router: router,
		logger: logging.NewLogger("apiserver"),
	}
}

// Router exposes the chi router for tests
func (s *APIServer) Router() chi.Router {
	return s.router
}

// Start runs the HTTP server until Shutdown
func (s *APIServer) Start() error {
	s.logger.Infof("API server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

// Shutdown drains connections within the context deadline
func (s *APIServer) Shutdown(ctx context.Context) error {
	s.logger.InfoMsg("API server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// healthHandler reports liveness
//
//	@Summary	Health check
//	@Tags		system
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Router		/health [get]
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","version":%q}`, Version)
}

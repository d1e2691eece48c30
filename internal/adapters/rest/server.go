package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"interior-sync-service/internal/core/port"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Server struct {
	httpServer *http.Server
	logger     port.LoggerPort
}

// NewRouter собирает маршруты отдельно от сервера, чтобы их можно было гонять через httptest
func NewRouter(handlers *SyncHandlers, baseLogger port.LoggerPort, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP, LoggerMiddleware(baseLogger), middleware.Recoverer)
	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Trace-ID"},
			ExposedHeaders: []string{"X-Trace-ID"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1/interior-sync", func(r chi.Router) {
		r.Post("/pull", handlers.HandlePull)
		r.Post("/push", handlers.HandlePush)
		r.Post("/preview", handlers.HandlePreview)

		r.Get("/logs", handlers.HandleListLogs)
		r.Get("/logs/{logID}", handlers.HandleGetLog)
	})

	return r
}

func NewServer(listenPort string, handlers *SyncHandlers, baseLogger port.LoggerPort, allowedOrigins []string) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + listenPort,
			Handler:           NewRouter(handlers, baseLogger, allowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: baseLogger,
	}
}

// Start блокируется, пока сервер не остановят
func (s *Server) Start() error {
	s.logger.Info("Starting REST API server", port.Fields{"address": s.httpServer.Addr})
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("Could not start server", err, nil)
		return fmt.Errorf("could not start server: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping REST API server...", nil)
	return s.httpServer.Shutdown(ctx)
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"indexsheetsync/internal/history"
	"indexsheetsync/internal/updater"
	"indexsheetsync/internal/utils"
)

// Server exposes the run trigger, the latest report and the control page.
type Server struct {
	router  *mux.Router
	logger  utils.Logger
	config  *utils.Config
	runner  *updater.Runner
	history history.Recorder

	// ctx scopes runs started over HTTP; it is cancelled on shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer wires the routes. recorder may be nil when history is disabled.
func NewServer(logger utils.Logger, config *utils.Config, runner *updater.Runner, recorder history.Recorder) *Server {
	if recorder == nil {
		recorder = history.NoopRecorder{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	server := &Server{
		router:  mux.NewRouter(),
		logger:  logger,
		config:  config,
		runner:  runner,
		history: recorder,
		ctx:     ctx,
		cancel:  cancel,
	}

	server.setupRouter()
	server.setupRoutes()
	server.verifyRoutes()
	return server
}

// setupRouter configures middleware for the server.
func (s *Server) setupRouter() {
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			s.logger.Debug("Request started: %s %s", r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
			s.logger.Debug("Request completed: %s %s (%v)", r.Method, r.URL.Path, time.Since(start))
		})
	})
}

// setupRoutes configures APIs for the server.
func (s *Server) setupRoutes() {
	s.logger.Debug("Setting up routes...")

	s.router.HandleFunc("/health", s.healthCheck).Methods("GET")
	s.router.HandleFunc("/", s.index).Methods("GET")

	apiRouter := s.router.PathPrefix("/api").Subrouter()

	routes := []struct {
		path    string
		handler http.HandlerFunc
		methods []string
	}{
		{"/runs", s.StartRun, []string{"POST", "OPTIONS"}},
		{"/runs", s.ListRuns, []string{"GET"}},
		{"/runs/latest", s.LatestRun, []string{"GET"}},
		{"/series", s.ListSeries, []string{"GET"}},
	}

	for _, route := range routes {
		apiRouter.HandleFunc(route.path, route.handler).Methods(route.methods...)
		s.logger.Debug("Registered route: %s /api%s", route.methods[0], route.path)
	}

	s.logger.Info("Routes setup completed")
}

func (s *Server) verifyRoutes() {
	s.logger.Debug("Verifying registered routes:")
	s.router.Walk(func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		pathTemplate, _ := route.GetPathTemplate()
		methods, _ := route.GetMethods()
		s.logger.Debug("Route: %s [%v]", pathTemplate, methods)
		return nil
	})
}

func (s *Server) Router() http.Handler {
	return s.router
}

// Start serves until SIGINT/SIGTERM, then shuts down and waits for a run in
// progress to finish.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stop:
			s.logger.Info("Shutdown signal received")
			cancel()
		case <-ctx.Done():
		}
	}()

	return s.Serve(ctx)
}

// Serve listens on the configured port until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+s.config.Server.Port)
	if err != nil {
		return fmt.Errorf("failed to listen on port %s: %w", s.config.Server.Port, err)
	}
	return s.ServeListener(ctx, ln)
}

func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server starting on %s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	s.logger.Info("Available endpoints:")
	s.logger.Info("  GET  /")
	s.logger.Info("  GET  /health")
	s.logger.Info("  POST /api/runs")
	s.logger.Info("  GET  /api/runs")
	s.logger.Info("  GET  /api/runs/latest")
	s.logger.Info("  GET  /api/series")

	select {
	case err := <-errChan:
		s.cancel()
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	s.cancel()
	s.runner.Wait()
	if err != nil {
		s.logger.Error("Server shutdown failed: %v", err)
		return err
	}

	s.logger.Info("Server stopped gracefully")
	return nil
}

// respondWithError sends an error response with the specified status code and message
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithJSON sends a JSON response with the specified status code and payload
func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: "1.0.0",
		Running: s.runner.Running(),
	})
}

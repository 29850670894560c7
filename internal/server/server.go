// Package server exposes the ledger's external call surface over HTTP.
// Every route is authenticated; handlers translate the ledger's error
// taxonomy to status codes without leaking more than the ledger decided
// to reveal.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/Meghavibansod/HealthLedger/internal/ledger"
	"github.com/Meghavibansod/HealthLedger/pkg/config"
	"github.com/Meghavibansod/HealthLedger/pkg/logger"
	"github.com/Meghavibansod/HealthLedger/pkg/monitoring"
)

// Server is the HTTP front end of the ledger facade.
type Server struct {
	ledger    *ledger.Ledger
	logger    *logger.Logger
	validator *TokenValidator
	cfg       *config.Config
	http      *http.Server
}

// New creates the server and wires its routes.
func New(l *ledger.Ledger, log *logger.Logger, cfg *config.Config) *Server {
	s := &Server{
		ledger:    l,
		logger:    log,
		validator: NewTokenValidator(&cfg.JWT),
		cfg:       cfg,
	}

	router := mux.NewRouter()
	s.setupRoutes(router)

	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}
	return s
}

// setupRoutes configures HTTP routes for the ledger service
func (s *Server) setupRoutes(router *mux.Router) {
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.metricsMiddleware)

	// Health check and metrics stay unauthenticated
	api.HandleFunc(s.cfg.Monitoring.HealthPath, s.healthHandler).Methods("GET")
	if s.cfg.Monitoring.Enabled {
		router.Handle(s.cfg.Monitoring.MetricsPath, monitoring.Handler()).Methods("GET")
	}

	// Ledger call surface, caller identity required
	authed := api.NewRoute().Subrouter()
	authed.Use(s.authMiddleware)
	authed.HandleFunc("/doctors", s.addDoctorHandler).Methods("POST")
	authed.HandleFunc("/records", s.createRecordHandler).Methods("POST")
	authed.HandleFunc("/records/{id}", s.getRecordHandler).Methods("GET")
	authed.HandleFunc("/records/{id}", s.updateRecordHandler).Methods("PUT")
	authed.HandleFunc("/records/{id}/grants", s.grantAccessHandler).Methods("POST")
	authed.HandleFunc("/audit", s.auditHistoryHandler).Methods("GET")

	s.logger.WithComponent("server").Info("Ledger service routes configured")
}

// metricsMiddleware records request counts and latency per route.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		endpoint := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				endpoint = tpl
			}
		}
		monitoring.RecordHTTPRequest(r.Method, endpoint, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Handler returns the root handler, for serving through a custom listener.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.WithComponent("server").WithField("addr", s.http.Addr).Info("Starting HTTP server")
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// healthHandler reports service liveness.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	initialized, err := s.ledger.Initialized()
	status := "healthy"
	code := http.StatusOK
	if err != nil {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	s.writeJSONResponse(w, code, map[string]interface{}{
		"status":      status,
		"initialized": initialized,
		"timestamp":   time.Now().UTC(),
	})
}

// writeJSONResponse writes a JSON response
func (s *Server) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, message string, err error) {
	body := map[string]interface{}{
		"error":  message,
		"status": statusCode,
	}
	if err != nil {
		body["details"] = err.Error()
	}
	s.writeJSONResponse(w, statusCode, body)
}

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/tradfrid/internal/config"
	"github.com/dokzlo13/tradfrid/internal/tradfri"
)

// HealthService provides HTTP health check, metrics and introspection
// endpoints.
type HealthService struct {
	cfg    *config.Config
	server *http.Server
	ready  func() bool
	reg    *tradfri.Registry
}

// NewHealthService creates a new HealthService. The ready callback decides
// the readiness probe result.
func NewHealthService(cfg *config.Config, ready func() bool, reg *tradfri.Registry) *HealthService {
	return &HealthService{
		cfg:   cfg,
		ready: ready,
		reg:   reg,
	}
}

// Start begins the health check server if enabled.
func (s *HealthService) Start(ctx context.Context) {
	if !s.cfg.Healthcheck.Enabled {
		return
	}

	go s.run(ctx)
}

func (s *HealthService) run(ctx context.Context) {
	addr := fmt.Sprintf("%s:%d", s.cfg.Healthcheck.GetHost(), s.cfg.Healthcheck.GetPort())

	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Ready check endpoint - not ready while the broker connection is down
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if s.ready != nil && !s.ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"not_ready"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	})

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Current registry contents, for debugging
	mux.HandleFunc("/devices", s.handleDevices)

	s.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	log.Info().Str("addr", addr).Msg("Starting health check server")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.GetShutdownTimeout())
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Health check server shutdown error")
		}
	}()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("Health check server error")
	}
}

func (s *HealthService) handleDevices(w http.ResponseWriter, r *http.Request) {
	out := struct {
		Lights map[string]tradfri.LightRecord `json:"lights"`
		Groups map[string]tradfri.GroupRecord `json:"groups"`
	}{
		Lights: make(map[string]tradfri.LightRecord),
		Groups: make(map[string]tradfri.GroupRecord),
	}

	for _, l := range s.reg.Lights() {
		out.Lights[l.ID()] = l.Record()
	}
	for _, g := range s.reg.Groups() {
		out.Groups[g.ID()] = g.Record()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		log.Error().Err(err).Msg("Failed to encode devices response")
	}
}

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/huereka/huereka/internal/config"
	"github.com/huereka/huereka/internal/manager"
)

// HealthService provides HTTP health check endpoints.
type HealthService struct {
	cfg      *config.Config
	managers []*manager.Manager
	links    *LinkService
	server   *http.Server
}

// NewHealthService creates a new HealthService.
func NewHealthService(cfg *config.Config, managers []*manager.Manager, links *LinkService) *HealthService {
	return &HealthService{
		cfg:      cfg,
		managers: managers,
		links:    links,
	}
}

// Start begins the health check server if enabled.
func (s *HealthService) Start(ctx context.Context, wg *sync.WaitGroup) {
	if !s.cfg.Healthcheck.Enabled {
		return
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.run(ctx)
	}()
}

// Handler returns the health mux.
func (s *HealthService) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	// Ready once every manager has initialized its strip.
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		for _, m := range s.managers {
			if !m.Status().Initialized {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "initializing", "manager": m.ID()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		managers := make([]manager.Status, 0, len(s.managers))
		for _, m := range s.managers {
			managers = append(managers, m.Status())
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"managers": managers,
			"links":    s.links.Status(),
		})
	})

	return mux
}

func (s *HealthService) run(ctx context.Context) {
	addr := fmt.Sprintf("%s:%d", s.cfg.Healthcheck.Host, s.cfg.Healthcheck.Port)

	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	log.Info().Str("addr", addr).Msg("Starting health check server")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Duration())
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Health check server shutdown error")
		}
	}()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("Health check server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to write health response")
	}
}

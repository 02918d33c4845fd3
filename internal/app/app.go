package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/huereka/huereka/internal/config"
)

// ErrShutdownTimeout is returned by Stop when services outlive the
// configured shutdown timeout.
var ErrShutdownTimeout = errors.New("app: shutdown timed out")

// App owns the service container for one controller fleet: it starts the
// links before the scheduler and tears them down in reverse.
type App struct {
	cfg      *config.Config
	services *Services
	cancel   context.CancelFunc
	stopOnce sync.Once
	stopErr  error
}

// New builds every service without touching any controller.
func New(cfg *config.Config) (*App, error) {
	services, err := NewServices(cfg)
	if err != nil {
		return nil, err
	}
	return &App{cfg: cfg, services: services}, nil
}

// Services exposes the service container.
func (a *App) Services() *Services {
	return a.services
}

// Start launches the links, the scheduler and the health server. The
// first push on each port registers its strips.
func (a *App) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)
	if err := a.services.Start(ctx); err != nil {
		a.cancel()
		return err
	}

	for _, l := range a.services.Links.Status() {
		log.Info().Str("port", l.Port).Msg("Controller link ready")
	}
	log.Info().
		Int("managers", len(a.services.Managers)).
		Int("profiles", len(a.services.Catalog.Profiles())).
		Int("schedules", len(a.services.Catalog.Schedules())).
		Msg("Huereka started")
	return nil
}

// Run starts the app, blocks until ctx is done and stops it.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		a.Stop()
		return fmt.Errorf("failed to start application: %w", err)
	}
	<-ctx.Done()
	return a.Stop()
}

// Stop cancels every service and waits up to the shutdown timeout for
// them to finish. Strips keep whatever they last showed. Stop is safe to
// call more than once.
func (a *App) Stop() error {
	a.stopOnce.Do(func() {
		log.Info().Msg("Shutting down...")
		if a.cancel != nil {
			a.cancel()
		}

		done := make(chan error, 1)
		go func() { done <- a.services.Stop() }()

		timeout := a.cfg.ShutdownTimeout.Duration()
		select {
		case a.stopErr = <-done:
		case <-time.After(timeout):
			log.Warn().Dur("timeout", timeout).Msg("Services did not stop in time")
			a.stopErr = ErrShutdownTimeout
		}
	})
	return a.stopErr
}

// SignalContext creates a context that is cancelled when SIGINT or SIGTERM is received.
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	return ctx
}

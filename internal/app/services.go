package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/huereka/huereka/internal/catalog"
	"github.com/huereka/huereka/internal/config"
	"github.com/huereka/huereka/internal/db"
	"github.com/huereka/huereka/internal/eventbus"
	"github.com/huereka/huereka/internal/ledger"
	"github.com/huereka/huereka/internal/manager"
	"github.com/huereka/huereka/internal/state"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	DB     *db.DB
	Ledger *ledger.Ledger
	Store  *state.Store
	Bus    *eventbus.Bus

	Catalog  *catalog.Catalog
	Links    *LinkService
	Managers []*manager.Manager

	// High-level services
	Scheduler *SchedulerService
	Health    *HealthService

	wg sync.WaitGroup
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	s.DB = database
	s.Ledger = ledger.New(database.DB)
	s.Store = state.NewStore(database.DB)
	s.Bus = eventbus.NewWithConfig(cfg.EventBus.GetWorkers(), cfg.EventBus.GetQueueSize())

	s.Catalog, err = catalog.New(s.Store, s.Bus)
	if err != nil {
		s.Close()
		return nil, err
	}
	if err := s.Catalog.Seed(cfg.Profiles, cfg.Schedules); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to seed catalog: %w", err)
	}

	s.Links = NewLinkService(cfg.Managers)
	for _, mc := range cfg.Managers {
		m, err := s.Links.Bank(mc.Port).New(manager.Config{
			ID:            mc.ID,
			Strip:         mc.Strip,
			Type:          mc.Type,
			Pin:           mc.Pin,
			LEDCount:      mc.LEDCount,
			RefreshMicros: mc.RefreshRate,
			Brightness:    mc.Brightness,
			DiffThreshold: mc.DiffThreshold,
			SettleDelay:   mc.SettleDelay.Duration(),
		})
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Managers = append(s.Managers, m)
	}

	s.Scheduler, err = NewSchedulerService(cfg, s.Catalog, s.Managers, s.Ledger, s.Bus, s.Store)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Health = NewHealthService(cfg, s.Managers, s.Links)

	return s, nil
}

// Start starts all background services in dependency order.
func (s *Services) Start(ctx context.Context) error {
	s.Links.Start(ctx, &s.wg)
	s.Scheduler.Start(ctx, &s.wg)
	s.Health.Start(ctx, &s.wg)
	return nil
}

// Stop waits for background services and releases all resources.
// The caller cancels the context passed to Start first.
func (s *Services) Stop() error {
	s.Links.Close()
	s.wg.Wait()
	s.Close()
	return nil
}

// Close releases all resources.
func (s *Services) Close() {
	if s.Bus != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Duration())
		s.Bus.Close(ctx)
		cancel()
	}
	if s.DB != nil {
		s.DB.Close()
	}
}

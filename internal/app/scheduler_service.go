package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/huereka/huereka/internal/catalog"
	"github.com/huereka/huereka/internal/config"
	"github.com/huereka/huereka/internal/eventbus"
	"github.com/huereka/huereka/internal/ledger"
	"github.com/huereka/huereka/internal/manager"
	"github.com/huereka/huereka/internal/scheduler"
	"github.com/huereka/huereka/internal/state"
)

// SchedulerService wraps the resolution loop and ledger retention.
type SchedulerService struct {
	cfg       *config.Config
	Scheduler *scheduler.Scheduler
	ledger    *ledger.Ledger
}

// NewSchedulerService creates a new SchedulerService.
func NewSchedulerService(
	cfg *config.Config,
	cat *catalog.Catalog,
	managers []*manager.Manager,
	l *ledger.Ledger,
	bus *eventbus.Bus,
	store *state.Store,
) (*SchedulerService, error) {
	tz, err := cfg.Scheduler.Location()
	if err != nil {
		return nil, err
	}

	targets := make([]scheduler.Target, len(managers))
	for i, m := range managers {
		targets[i] = m
	}

	return &SchedulerService{
		cfg: cfg,
		Scheduler: scheduler.New(scheduler.Config{
			Interval: cfg.Scheduler.PollInterval.Duration(),
			Location: tz,
		}, cat, targets, l, bus, store),
		ledger: l,
	}, nil
}

// Start begins the resolution loop and ledger cleanup.
func (s *SchedulerService) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := s.Scheduler.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Scheduler error")
		}
	}()
	go func() {
		defer wg.Done()
		s.runLedgerCleanup(ctx)
	}()
}

// runLedgerCleanup periodically removes ledger entries past retention.
func (s *SchedulerService) runLedgerCleanup(ctx context.Context) {
	retention := time.Duration(s.cfg.Ledger.RetentionDays) * 24 * time.Hour
	interval := s.cfg.Ledger.CleanupInterval.Duration()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.ledger.DeleteOlderThan(time.Now().Add(-retention))
			if err != nil {
				log.Error().Err(err).Msg("Failed to cleanup old ledger entries")
			} else if deleted > 0 {
				log.Info().Int64("deleted", deleted).Dur("retention", retention).Msg("Cleaned up old ledger entries")
			}
		}
	}
}

// Package scheduler runs the resolution loop: on every tick it resolves
// each manager's schedules and pushes the result when it changed.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/huereka/huereka/internal/color"
	"github.com/huereka/huereka/internal/eventbus"
	"github.com/huereka/huereka/internal/ledger"
	"github.com/huereka/huereka/internal/state"
)

// KindActivation is the state kind holding the last applied decision per
// manager.
const KindActivation = "activation"

// Target is the part of manager.Manager the loop drives.
type Target interface {
	ID() string
	DefaultBrightness() uint8
	ApplyProfile(ctx context.Context, p *color.Profile, brightness uint8) error
	Push(ctx context.Context) error
}

// Activation is the persisted record of what a manager last showed.
type Activation struct {
	Manager    string    `json:"manager"`
	Schedule   string    `json:"schedule,omitempty"`
	Routine    string    `json:"routine,omitempty"`
	Profile    string    `json:"profile"`
	Brightness uint8     `json:"brightness"`
	AppliedAt  time.Time `json:"applied_at"`
}

// NewActivations returns the typed store holding Activation records.
func NewActivations(store *state.Store) *state.Typed[Activation] {
	return state.NewTyped[Activation](store, KindActivation)
}

// Config configures a Scheduler.
type Config struct {
	Interval time.Duration
	Location *time.Location
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Scheduler resolves and applies decisions for a fixed set of managers.
type Scheduler struct {
	catalog     Catalog
	targets     []Target
	ledger      *ledger.Ledger
	bus         *eventbus.Bus
	activations *state.Typed[Activation]

	interval time.Duration
	tz       *time.Location
	now      func() time.Time

	mu       sync.Mutex
	applied  map[string]string // manager -> decision key
	resolved map[string]string // manager -> last logged decision key
	failed   map[string]string // manager -> key of the last recorded failure
	nudge    chan struct{}
}

// New creates a scheduler. ledger, bus and store may be nil.
func New(cfg Config, cat Catalog, targets []Target, l *ledger.Ledger, bus *eventbus.Bus, store *state.Store) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Scheduler{
		catalog:  cat,
		targets:  targets,
		ledger:   l,
		bus:      bus,
		interval: cfg.Interval,
		tz:       cfg.Location,
		now:      cfg.Now,
		applied:  make(map[string]string),
		resolved: make(map[string]string),
		failed:   make(map[string]string),
		nudge:    make(chan struct{}, 1),
	}
	if store != nil {
		s.activations = NewActivations(store)
	}
	if bus != nil {
		bus.Subscribe(eventbus.EventCatalogChanged, func(eventbus.Event) { s.Nudge() })
	}
	return s
}

// Nudge asks the loop to resolve now instead of waiting for the next tick.
func (s *Scheduler) Nudge() {
	select {
	case s.nudge <- struct{}{}:
	default:
	}
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Info().Dur("interval", s.interval).Str("timezone", s.tz.String()).Int("managers", len(s.targets)).Msg("Scheduler started")

	s.RunBootRecovery()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.Tick(ctx)

		select {
		case <-ctx.Done():
			log.Info().Msg("Scheduler stopping")
			return nil
		case <-s.nudge:
			log.Debug().Msg("Catalog changed, resolving")
		case <-ticker.C:
		}
	}
}

// RunBootRecovery logs what each manager showed before the restart. The
// controller itself starts blank, so the first tick always repaints.
func (s *Scheduler) RunBootRecovery() {
	if s.activations == nil {
		return
	}
	for _, t := range s.targets {
		a, ok, err := s.activations.Get(t.ID())
		if err != nil {
			log.Warn().Err(err).Str("manager", t.ID()).Msg("Boot recovery: failed to read last activation")
			continue
		}
		if !ok {
			continue
		}
		log.Info().
			Str("manager", a.Manager).
			Str("profile", a.Profile).
			Str("schedule", a.Schedule).
			Uint8("brightness", a.Brightness).
			Time("applied_at", a.AppliedAt).
			Msg("Boot recovery: last applied profile")
	}
}

// Tick resolves every manager once. Managers are driven concurrently and
// Tick returns when all of them are done. Managers sharing a controller
// register through their bank, which keeps strip order.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.now().In(s.tz)

	var wg sync.WaitGroup
	for _, t := range s.targets {
		wg.Add(1)
		go func(t Target) {
			defer wg.Done()
			s.tickOne(ctx, t, now)
		}(t)
	}
	wg.Wait()
}

// Decide resolves manager targets at now without applying anything.
func (s *Scheduler) Decide(now time.Time) []Decision {
	now = now.In(s.tz)
	out := make([]Decision, 0, len(s.targets))
	for _, t := range s.targets {
		out = append(out, Resolve(s.catalog, t.ID(), t.DefaultBrightness(), now))
	}
	return out
}

func (s *Scheduler) tickOne(ctx context.Context, t Target, now time.Time) {
	d := Resolve(s.catalog, t.ID(), t.DefaultBrightness(), now)
	key := d.key()

	s.mu.Lock()
	changed := s.applied[t.ID()] != key
	announce := changed && s.resolved[t.ID()] != key
	if announce {
		s.resolved[t.ID()] = key
	}
	s.mu.Unlock()

	if !changed {
		// Same decision; this only sends when the controller lost its
		// state or an earlier push is still unconfirmed.
		if err := t.Push(ctx); err != nil {
			s.recordFailure(d, key, err)
		}
		return
	}

	if announce {
		log.Info().
			Str("manager", d.Manager).
			Str("schedule", d.Schedule).
			Str("routine", d.Routine).
			Str("profile", d.Profile.ID).
			Uint8("brightness", d.Brightness).
			Msg("Schedule resolved")
		s.append(ledger.Entry{
			EventType: ledger.EventScheduleResolved,
			Timestamp: now,
			Manager:   d.Manager,
			Schedule:  d.Schedule,
			Routine:   d.Routine,
			Profile:   d.Profile.ID,
			Payload:   decisionPayload(d),
		})
	}

	if err := t.ApplyProfile(ctx, d.Profile, d.Brightness); err != nil {
		s.recordFailure(d, key, err)
		return
	}

	s.mu.Lock()
	s.applied[t.ID()] = key
	delete(s.failed, t.ID())
	s.mu.Unlock()

	s.recordApplied(d, now)
}

func (s *Scheduler) recordApplied(d Decision, now time.Time) {
	s.append(ledger.Entry{
		EventType: ledger.EventProfileApplied,
		Timestamp: now,
		Manager:   d.Manager,
		Schedule:  d.Schedule,
		Routine:   d.Routine,
		Profile:   d.Profile.ID,
		Payload:   decisionPayload(d),
	})

	if s.activations != nil {
		_, err := s.activations.Put(d.Manager, Activation{
			Manager:    d.Manager,
			Schedule:   d.Schedule,
			Routine:    d.Routine,
			Profile:    d.Profile.ID,
			Brightness: d.Brightness,
			AppliedAt:  now,
		})
		if err != nil {
			log.Warn().Err(err).Str("manager", d.Manager).Msg("Failed to persist activation")
		}
	}

	s.bus.Publish(eventbus.Event{
		Type:    eventbus.EventProfileApplied,
		Time:    now,
		Manager: d.Manager,
		Data:    map[string]any{"profile": d.Profile.ID, "schedule": d.Schedule, "routine": d.Routine},
	})
}

// recordFailure logs every failure but writes the ledger and the bus once
// per decision until a push succeeds.
func (s *Scheduler) recordFailure(d Decision, key string, err error) {
	log.Warn().Err(err).Str("manager", d.Manager).Str("profile", d.Profile.ID).Msg("Push failed, will retry")

	s.mu.Lock()
	seen := s.failed[d.Manager] == key
	s.failed[d.Manager] = key
	s.mu.Unlock()
	if seen {
		return
	}

	s.append(ledger.Entry{
		EventType: ledger.EventPushFailed,
		Manager:   d.Manager,
		Schedule:  d.Schedule,
		Routine:   d.Routine,
		Profile:   d.Profile.ID,
		Payload:   map[string]any{"error": err.Error()},
	})
	s.bus.Publish(eventbus.Event{
		Type:    eventbus.EventPushFailed,
		Manager: d.Manager,
		Data:    map[string]any{"profile": d.Profile.ID, "error": err.Error()},
	})
}

func (s *Scheduler) append(e ledger.Entry) {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.Append(e); err != nil {
		log.Warn().Err(err).Str("manager", e.Manager).Str("event", string(e.EventType)).Msg("Failed to write ledger")
	}
}

func decisionPayload(d Decision) map[string]any {
	p := map[string]any{"brightness": d.Brightness}
	if !d.Off() {
		p["fingerprint"] = d.Profile.Fingerprint()
	}
	if d.Missing != "" {
		p["missing_profile"] = d.Missing
	}
	return p
}

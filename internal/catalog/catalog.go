// Package catalog owns the stored color profiles and lighting schedules.
// Every read hands out a copy so callers never observe a half applied
// edit, and every write is persisted before it becomes visible.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/unicode/norm"

	"github.com/huereka/huereka/internal/color"
	"github.com/huereka/huereka/internal/eventbus"
	"github.com/huereka/huereka/internal/schedule"
	"github.com/huereka/huereka/internal/state"
)

// State kinds used in the resource store.
const (
	KindProfile  = "profile"
	KindSchedule = "schedule"
)

var (
	// ErrNotFound is returned for unknown profile, schedule or routine ids.
	ErrNotFound = errors.New("catalog: not found")
	// ErrReserved is returned when a write targets the built-in off profile.
	ErrReserved = errors.New("catalog: reserved id")
)

// Catalog is safe for concurrent use.
type Catalog struct {
	profileStore  *state.Typed[color.Profile]
	scheduleStore *state.Typed[schedule.Schedule]
	bus           *eventbus.Bus

	mu        sync.RWMutex
	profiles  map[string]*color.Profile
	schedules map[string]*schedule.Schedule
}

// New loads the catalog from store. bus may be nil.
func New(store *state.Store, bus *eventbus.Bus) (*Catalog, error) {
	c := &Catalog{
		profileStore:  state.NewTyped[color.Profile](store, KindProfile),
		scheduleStore: state.NewTyped[schedule.Schedule](store, KindSchedule),
		bus:           bus,
		profiles:      make(map[string]*color.Profile),
		schedules:     make(map[string]*schedule.Schedule),
	}

	profiles, err := c.profileStore.All()
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}
	for i := range profiles {
		p := profiles[i]
		if p.IsOff() {
			continue
		}
		c.profiles[p.ID] = &p
	}

	schedules, err := c.scheduleStore.All()
	if err != nil {
		return nil, fmt.Errorf("failed to load schedules: %w", err)
	}
	for i := range schedules {
		s := schedules[i]
		c.schedules[s.ID] = &s
	}

	log.Debug().Int("profiles", len(c.profiles)).Int("schedules", len(c.schedules)).Msg("Catalog loaded")
	return c, nil
}

// Seed upserts configured profiles and schedules. Stored entries with the
// same id are replaced.
func (c *Catalog) Seed(profiles []color.Profile, schedules []schedule.Schedule) error {
	for _, p := range profiles {
		if _, err := c.PutProfile(p); err != nil {
			return err
		}
	}
	for _, s := range schedules {
		if _, err := c.PutSchedule(s); err != nil {
			return err
		}
	}
	return nil
}

// Profile returns a copy of the profile with id. The off profile always
// resolves to the built-in blank profile.
func (c *Catalog) Profile(id string) (*color.Profile, error) {
	if id == color.OffProfileID {
		return color.Off(), nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.profiles[id]
	if !ok {
		return nil, fmt.Errorf("%w: profile %q", ErrNotFound, id)
	}
	return p.Clone(), nil
}

// Profiles returns copies of all profiles ordered by name, the built-in
// off profile first.
func (c *Catalog) Profiles() []*color.Profile {
	c.mu.RLock()
	out := make([]*color.Profile, 0, len(c.profiles)+1)
	for _, p := range c.profiles {
		out = append(out, p.Clone())
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return append([]*color.Profile{color.Off()}, out...)
}

// PutProfile stores p, assigning an id when empty, and returns the stored copy.
func (c *Catalog) PutProfile(p color.Profile) (*color.Profile, error) {
	if p.ID == color.OffProfileID || strings.EqualFold(p.Name, color.OffProfileID) {
		return nil, fmt.Errorf("%w: %q", ErrReserved, color.OffProfileID)
	}
	p.Name = normalizeName(p.Name)
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Name == "" {
		p.Name = p.ID
	}
	if p.Mode == "" {
		p.Mode = color.ModeRepeat
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	stored := p.Clone()
	c.mu.Lock()
	if _, err := c.profileStore.Put(stored.ID, *stored); err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("failed to store profile %s: %w", stored.ID, err)
	}
	c.profiles[stored.ID] = stored
	c.mu.Unlock()

	log.Debug().Str("profile", stored.ID).Str("name", stored.Name).Str("mode", string(stored.Mode)).Msg("Profile stored")
	c.changed(KindProfile, stored.ID, "")
	return stored.Clone(), nil
}

// DeleteProfile removes the profile. Routines that still reference it
// resolve to off until rebound.
func (c *Catalog) DeleteProfile(id string) error {
	if id == color.OffProfileID {
		return fmt.Errorf("%w: %q", ErrReserved, id)
	}

	c.mu.Lock()
	if _, ok := c.profiles[id]; !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: profile %q", ErrNotFound, id)
	}
	if _, err := c.profileStore.Delete(id); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("failed to delete profile %s: %w", id, err)
	}
	delete(c.profiles, id)
	c.mu.Unlock()

	log.Debug().Str("profile", id).Msg("Profile deleted")
	c.changed(KindProfile, id, "")
	return nil
}

// Schedule returns a copy of the schedule with id.
func (c *Catalog) Schedule(id string) (*schedule.Schedule, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.schedules[id]
	if !ok {
		return nil, fmt.Errorf("%w: schedule %q", ErrNotFound, id)
	}
	return s.Clone(), nil
}

// Schedules returns copies of every schedule ordered by name then id.
func (c *Catalog) Schedules() []*schedule.Schedule {
	return c.collect(func(*schedule.Schedule) bool { return true })
}

// SchedulesFor returns copies of the schedules driving manager, in the
// order the resolver walks them.
func (c *Catalog) SchedulesFor(manager string) []*schedule.Schedule {
	return c.collect(func(s *schedule.Schedule) bool { return s.Manager == manager })
}

func (c *Catalog) collect(keep func(*schedule.Schedule) bool) []*schedule.Schedule {
	c.mu.RLock()
	var out []*schedule.Schedule
	for _, s := range c.schedules {
		if keep(s) {
			out = append(out, s.Clone())
		}
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// PutSchedule stores s, assigning ids to it and its routines when empty,
// and returns the stored copy.
func (c *Catalog) PutSchedule(s schedule.Schedule) (*schedule.Schedule, error) {
	s = *s.Clone()
	s.Name = normalizeName(s.Name)
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Name == "" {
		s.Name = s.ID
	}
	mode, err := schedule.ParseMode(string(s.Mode))
	if err != nil {
		return nil, err
	}
	s.Mode = mode
	for i := range s.Routines {
		if s.Routines[i].ID == "" {
			s.Routines[i].ID = uuid.NewString()
		}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	if err := c.storeSchedule(&s); err != nil {
		return nil, err
	}
	log.Debug().Str("schedule", s.ID).Str("manager", s.Manager).Int("routines", len(s.Routines)).Msg("Schedule stored")
	return s.Clone(), nil
}

// DeleteSchedule removes the schedule and its routines.
func (c *Catalog) DeleteSchedule(id string) error {
	c.mu.Lock()
	s, ok := c.schedules[id]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: schedule %q", ErrNotFound, id)
	}
	if _, err := c.scheduleStore.Delete(id); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("failed to delete schedule %s: %w", id, err)
	}
	delete(c.schedules, id)
	c.mu.Unlock()

	log.Debug().Str("schedule", id).Msg("Schedule deleted")
	c.changed(KindSchedule, id, s.Manager)
	return nil
}

// BindRoutine adds r to the schedule, or replaces the routine with the
// same id in place. The profile must exist.
func (c *Catalog) BindRoutine(scheduleID string, r schedule.Routine) (schedule.Routine, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if err := r.Validate(); err != nil {
		return schedule.Routine{}, err
	}
	if _, err := c.Profile(r.ProfileID); err != nil {
		return schedule.Routine{}, err
	}

	replaced := false
	err := c.editSchedule(scheduleID, func(s *schedule.Schedule) error {
		for i := range s.Routines {
			if s.Routines[i].ID == r.ID {
				s.Routines[i] = r.Clone()
				replaced = true
				return nil
			}
		}
		s.Routines = append(s.Routines, r.Clone())
		return nil
	})
	if err != nil {
		return schedule.Routine{}, err
	}
	log.Debug().Str("schedule", scheduleID).Str("routine", r.ID).Str("window", r.Window()).Bool("replaced", replaced).Msg("Routine bound")
	return r.Clone(), nil
}

// RemoveRoutine drops the routine from the schedule.
func (c *Catalog) RemoveRoutine(scheduleID, routineID string) error {
	err := c.editSchedule(scheduleID, func(s *schedule.Schedule) error {
		kept := make([]schedule.Routine, 0, len(s.Routines))
		for _, r := range s.Routines {
			if r.ID != routineID {
				kept = append(kept, r)
			}
		}
		if len(kept) == len(s.Routines) {
			return fmt.Errorf("%w: routine %q in schedule %q", ErrNotFound, routineID, scheduleID)
		}
		s.Routines = kept
		return nil
	})
	if err != nil {
		return err
	}
	log.Debug().Str("schedule", scheduleID).Str("routine", routineID).Msg("Routine removed")
	return nil
}

// editSchedule applies edit to a copy of the schedule and stores it, all
// under the write lock.
func (c *Catalog) editSchedule(id string, edit func(*schedule.Schedule) error) error {
	c.mu.Lock()
	current, ok := c.schedules[id]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: schedule %q", ErrNotFound, id)
	}
	s := current.Clone()
	if err := edit(s); err != nil {
		c.mu.Unlock()
		return err
	}
	if _, err := c.scheduleStore.Put(s.ID, *s); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("failed to store schedule %s: %w", s.ID, err)
	}
	c.schedules[s.ID] = s
	c.mu.Unlock()

	c.changed(KindSchedule, s.ID, s.Manager)
	return nil
}

func (c *Catalog) storeSchedule(s *schedule.Schedule) error {
	c.mu.Lock()
	if _, err := c.scheduleStore.Put(s.ID, *s); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("failed to store schedule %s: %w", s.ID, err)
	}
	c.schedules[s.ID] = s.Clone()
	c.mu.Unlock()

	c.changed(KindSchedule, s.ID, s.Manager)
	return nil
}

func (c *Catalog) changed(kind, id, manager string) {
	c.bus.Publish(eventbus.Event{
		Type:    eventbus.EventCatalogChanged,
		Manager: manager,
		Data:    map[string]any{"kind": kind, "id": id},
	})
}

// normalizeName trims and NFC-normalizes a display name so visually equal
// names compare equal.
func normalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

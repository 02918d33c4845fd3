package firmware

import (
	"errors"
	"fmt"

	"github.com/huereka/huereka/internal/color"
	"github.com/huereka/huereka/internal/wire"
)

var (
	// ErrRegistryFull is returned when every strip slot is taken.
	ErrRegistryFull = errors.New("firmware: strip registry full")
	// ErrArenaFull is returned when the pixel arena cannot fit the strip.
	ErrArenaFull = errors.New("firmware: pixel arena full")
	// ErrInvalidStrip is returned for a zero pixel strip or a pin already
	// bound to a strip of a different length.
	ErrInvalidStrip = errors.New("firmware: invalid strip")
)

// State is the lifecycle of a registry slot.
type State uint8

const (
	Uninitialized State = iota
	Ready
	PendingRender
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case PendingRender:
		return "pending_render"
	}
	return "unknown"
}

// Strip is one registry entry. Pixels live in the arena at [First, Last).
type Strip struct {
	Type  uint8
	Pin   uint8
	First int
	Last  int

	Brightness  uint8
	MinInterval uint32
	LastRender  uint32
	Pending     bool

	rendered  bool
	animation *animation
}

// Len returns the strip's pixel count.
func (s *Strip) Len() int { return s.Last - s.First }

// State reports where the strip is in its lifecycle.
func (s *Strip) State() State {
	if s.Pending {
		return PendingRender
	}
	return Ready
}

// RegisterOptions adjusts how Register treats an existing entry.
type RegisterOptions struct {
	// OverrideInterval lets a re-registration lower the refresh interval.
	OverrideInterval bool
}

// Registry owns the pixel arena and the strip table. Entries are only
// added by Register and only removed all at once by Reset.
type Registry struct {
	limits Limits
	arena  []color.RGB
	strips []*Strip
	used   int
}

// NewRegistry allocates the arena for limits.
func NewRegistry(limits Limits) *Registry {
	return &Registry{
		limits: limits,
		arena:  make([]color.RGB, limits.MaxPixels),
		strips: make([]*Strip, 0, limits.MaxStrips),
	}
}

// Register adds a strip and returns its id. Strips are numbered in
// registration order. Registering a pin again with the same pixel count
// reinitializes that entry in place; the refresh interval only rises
// unless opts.OverrideInterval is set.
func (r *Registry) Register(cfg wire.InitStrip, opts RegisterOptions) (int, error) {
	count := int(cfg.Count)
	if count == 0 {
		return -1, fmt.Errorf("%w: pin %d has no pixels", ErrInvalidStrip, cfg.Pin)
	}
	interval := r.limits.clampInterval(uint32(cfg.RefreshMicros))

	for id, s := range r.strips {
		if s.Pin != cfg.Pin {
			continue
		}
		if s.Len() != count {
			return -1, fmt.Errorf("%w: pin %d has %d pixels, not %d", ErrInvalidStrip, cfg.Pin, s.Len(), count)
		}
		clear(r.arena[s.First:s.Last])
		s.Type = cfg.Type
		s.Brightness = 255
		s.Pending = false
		s.rendered = false
		s.animation = nil
		if interval > s.MinInterval || opts.OverrideInterval {
			s.MinInterval = interval
		}
		return id, nil
	}

	if len(r.strips) >= r.limits.MaxStrips {
		return -1, fmt.Errorf("%w: %d strips", ErrRegistryFull, len(r.strips))
	}
	if r.used+count > len(r.arena) {
		return -1, fmt.Errorf("%w: %d of %d pixels used, %d requested", ErrArenaFull, r.used, len(r.arena), count)
	}

	s := &Strip{
		Type:        cfg.Type,
		Pin:         cfg.Pin,
		First:       r.used,
		Last:        r.used + count,
		Brightness:  255,
		MinInterval: interval,
	}
	r.used += count
	r.strips = append(r.strips, s)
	return len(r.strips) - 1, nil
}

// Strip returns the entry for id.
func (r *Registry) Strip(id int) (*Strip, bool) {
	if id < 0 || id >= len(r.strips) {
		return nil, false
	}
	return r.strips[id], true
}

// Len returns the number of registered strips.
func (r *Registry) Len() int { return len(r.strips) }

// Used returns the number of allocated arena pixels.
func (r *Registry) Used() int { return r.used }

// Pixels returns the arena slice backing s. Writes go straight to the
// arena.
func (r *Registry) Pixels(s *Strip) []color.RGB {
	return r.arena[s.First:s.Last:s.Last]
}

// State returns the lifecycle state for id, Uninitialized when the slot
// is empty.
func (r *Registry) State(id int) State {
	s, ok := r.Strip(id)
	if !ok {
		return Uninitialized
	}
	return s.State()
}

// Reset clears every strip and the arena.
func (r *Registry) Reset() {
	clear(r.arena)
	r.strips = r.strips[:0]
	r.used = 0
}

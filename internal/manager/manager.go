// Package manager drives one physical strip: it owns the strip buffer,
// performs the controller init handshake and pushes diffs over a link.
package manager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/huereka/huereka/internal/color"
	"github.com/huereka/huereka/internal/strip"
	"github.com/huereka/huereka/internal/wire"
)

// DefaultSettleDelay is the pause between the init op and the first
// paint, giving the controller time to set up the strip.
const DefaultSettleDelay = 100 * time.Millisecond

// Sender is the part of transport.Link a manager needs.
type Sender interface {
	Send(ctx context.Context, ops []wire.Op) error
	Generation() uint64
}

// Config describes one strip on a controller.
type Config struct {
	ID            string
	Strip         uint8
	Type          uint8
	Pin           uint8
	LEDCount      int
	RefreshMicros uint16
	Brightness    uint8
	DiffThreshold float64
	SettleDelay   time.Duration
}

// Status is a point in time view of a manager.
type Status struct {
	ID          string    `json:"id"`
	Profile     string    `json:"profile"`
	Brightness  uint8     `json:"brightness"`
	Dirty       bool      `json:"dirty"`
	Initialized bool      `json:"initialized"`
	LastPush    time.Time `json:"last_push,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
}

// Manager serializes every change to one strip.
type Manager struct {
	cfg  Config
	bank *Bank

	mu          sync.Mutex
	buf         *strip.Buffer
	initialized bool
	epoch       uint64
	profile     string
	lastPush    time.Time
	lastErr     error
}

// New creates a manager alone on link; nothing is sent until the first
// push. Strips sharing a controller go through one Bank instead.
func New(cfg Config, link Sender) (*Manager, error) {
	return NewBank(link).New(cfg)
}

func newBankManager(cfg Config, bank *Bank) *Manager {
	if cfg.Brightness == 0 {
		cfg.Brightness = strip.MaxBrightness
	}
	return &Manager{
		cfg:  cfg,
		bank: bank,
		buf:  strip.New(cfg.Strip, cfg.LEDCount, cfg.DiffThreshold),
	}
}

// ID returns the manager id.
func (m *Manager) ID() string { return m.cfg.ID }

// DefaultBrightness is the brightness used when no schedule overrides it.
func (m *Manager) DefaultBrightness() uint8 { return m.cfg.Brightness }

// ApplyProfile paints p at brightness and pushes the change. The buffer
// keeps the new state even when the push fails, so the next Push retries.
func (m *Manager) ApplyProfile(ctx context.Context, p *color.Profile, brightness uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.buf.ApplyProfile(p); err != nil {
		return fmt.Errorf("manager %s: profile %s: %w", m.cfg.ID, p.ID, err)
	}
	m.buf.SetBrightness(int(brightness))
	if m.profile != p.ID {
		log.Debug().Str("manager", m.cfg.ID).Str("profile", p.ID).Msg("Profile applied")
		m.profile = p.ID
	}
	return m.push(ctx)
}

// Fill paints the whole strip one color and pushes it.
func (m *Manager) Fill(ctx context.Context, c color.RGB) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buf.SetAll(c)
	m.profile = ""
	return m.push(ctx)
}

// Push sends whatever the controller has not confirmed yet.
func (m *Manager) Push(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.push(ctx)
}

// Diff returns the ops the next push would send.
func (m *Manager) Diff() []wire.Op {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buf.Diff()
}

// Profile returns the id of the last applied profile.
func (m *Manager) Profile() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile
}

// Status reports the manager state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Status{
		ID:          m.cfg.ID,
		Profile:     m.profile,
		Brightness:  m.buf.Brightness(),
		Dirty:       m.buf.Dirty(),
		Initialized: m.initialized,
		LastPush:    m.lastPush,
	}
	if m.lastErr != nil {
		s.LastError = m.lastErr.Error()
	}
	return s
}

func (m *Manager) push(ctx context.Context) error {
	epoch, err := m.bank.ensure(ctx)
	if err != nil {
		m.initialized = false
		m.lastErr = fmt.Errorf("manager %s: %w", m.cfg.ID, err)
		return m.lastErr
	}
	if !m.initialized || m.epoch != epoch {
		m.reset(epoch)
	}

	ops := m.buf.Diff()
	if len(ops) == 0 {
		m.buf.Confirm(nil)
		return nil
	}

	if err := m.bank.link.Send(ctx, ops); err != nil {
		m.bank.invalidate()
		m.initialized = false
		m.lastErr = err
		return fmt.Errorf("manager %s: push: %w", m.cfg.ID, err)
	}
	m.buf.Confirm(ops)
	m.lastPush = time.Now()
	m.lastErr = nil
	log.Debug().Str("manager", m.cfg.ID).Int("ops", len(ops)).Msg("Strip updated")
	return nil
}

// reset records what the bank handshake left on the strip: blank at full
// brightness.
func (m *Manager) reset(epoch uint64) {
	m.buf.Invalidate()
	m.buf.Confirm([]wire.Op{
		wire.SetBrightness{Strip: m.cfg.Strip, Level: strip.MaxBrightness},
		wire.FillStrip{Strip: m.cfg.Strip, Color: color.Black, Apply: true},
	})
	m.initialized = true
	m.epoch = epoch
}

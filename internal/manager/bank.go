package manager

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/huereka/huereka/internal/color"
	"github.com/huereka/huereka/internal/wire"
)

// Bank is the set of strips wired to one controller. The controller numbers
// strips in the order they register, so the whole bank is registered in
// strip order on one goroutine whenever the link connects.
type Bank struct {
	link Sender

	mu          sync.Mutex
	members     []Config
	epoch       uint64
	generation  uint64
	initialized bool
}

// NewBank creates an empty bank on link.
func NewBank(link Sender) *Bank {
	return &Bank{link: link}
}

// New adds a strip to the bank and returns its manager. Strip numbers must
// be unique within the bank.
func (b *Bank) New(cfg Config) (*Manager, error) {
	if cfg.LEDCount <= 0 || cfg.LEDCount > 0xFFFF {
		return nil, fmt.Errorf("manager %s: led count %d out of range", cfg.ID, cfg.LEDCount)
	}
	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.members {
		if c.Strip == cfg.Strip {
			return nil, fmt.Errorf("manager %s: strip %d already taken by %s", cfg.ID, cfg.Strip, c.ID)
		}
	}
	b.members = append(b.members, cfg)
	sort.Slice(b.members, func(i, j int) bool { return b.members[i].Strip < b.members[j].Strip })
	b.initialized = false

	return newBankManager(cfg, b), nil
}

// ensure registers every strip when the link generation moved or an
// earlier push failed, and returns the current handshake epoch.
func (b *Bank) ensure(ctx context.Context) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized && b.link.Generation() == b.generation {
		return b.epoch, nil
	}
	if err := b.handshake(ctx); err != nil {
		b.initialized = false
		return 0, err
	}
	b.initialized = true
	b.generation = b.link.Generation()
	b.epoch++
	return b.epoch, nil
}

// invalidate forces a handshake on the next push.
func (b *Bank) invalidate() {
	b.mu.Lock()
	b.initialized = false
	b.mu.Unlock()
}

// handshake sends every init op, waits for the controller to settle and
// blanks every strip.
func (b *Bank) handshake(ctx context.Context) error {
	var settle time.Duration
	inits := make([]wire.Op, 0, len(b.members))
	blanks := make([]wire.Op, 0, len(b.members))
	for i, c := range b.members {
		if int(c.Strip) != i {
			return fmt.Errorf("manager %s: strip %d leaves a gap, expected %d", c.ID, c.Strip, i)
		}
		inits = append(inits, wire.InitStrip{
			Type:          c.Type,
			Pin:           c.Pin,
			Count:         uint16(c.LEDCount),
			RefreshMicros: c.RefreshMicros,
		})
		blanks = append(blanks, wire.FillStrip{Strip: c.Strip, Color: color.Black, Apply: true})
		if c.SettleDelay > settle {
			settle = c.SettleDelay
		}
	}

	if err := b.link.Send(ctx, inits); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	if settle > 0 {
		select {
		case <-time.After(settle):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := b.link.Send(ctx, blanks); err != nil {
		return fmt.Errorf("init: %w", err)
	}

	for _, c := range b.members {
		log.Info().
			Str("manager", c.ID).
			Uint8("strip", c.Strip).
			Uint8("pin", c.Pin).
			Int("leds", c.LEDCount).
			Msg("Strip initialized")
	}
	return nil
}

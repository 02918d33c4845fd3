package firmware

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/huereka/huereka/internal/color"
	"github.com/huereka/huereka/internal/wire"
)

// DefaultIdlePoll is how long a Step waits for input before sweeping.
const DefaultIdlePoll = time.Millisecond

// Stats counts what the device did with its input.
type Stats struct {
	wire.Stats
	Applied      uint64 `json:"applied"`
	Rejected     uint64 `json:"rejected"`
	Renders      uint64 `json:"renders"`
	Deferred     uint64 `json:"deferred"`
	RenderErrors uint64 `json:"render_errors"`
	Resets       uint64 `json:"resets"`
}

// Config wires a device to its clock and output.
type Config struct {
	Limits   Limits
	Clock    Clock
	Renderer Renderer
	Decoder  wire.DecoderConfig
}

// Device runs the dispatch loop for one controller.
type Device struct {
	limits Limits
	clock  Clock
	out    Renderer
	reg    *Registry
	gov    *governor
	dec    *wire.Decoder
	stats  Stats
}

// NewDevice builds a device reading frames from in. Deferred renders are
// only swept between reads, so in should implement SetReadDeadline (a
// serial port or net.Conn); a plain reader stalls the sweep while idle.
func NewDevice(in io.Reader, cfg Config) (*Device, error) {
	if cfg.Limits == (Limits{}) {
		cfg.Limits = DefaultLimits()
	}
	if err := cfg.Limits.Validate(); err != nil {
		return nil, err
	}
	if cfg.Clock == nil {
		cfg.Clock = NewMonotonicClock(0)
	}
	if cfg.Renderer == nil {
		return nil, fmt.Errorf("firmware: renderer is required")
	}
	if cfg.Decoder.IdlePoll == 0 {
		cfg.Decoder.IdlePoll = DefaultIdlePoll
	}

	d := &Device{
		limits: cfg.Limits,
		clock:  cfg.Clock,
		out:    cfg.Renderer,
		reg:    NewRegistry(cfg.Limits),
	}
	d.gov = &governor{reg: d.reg, out: d.out, stats: &d.stats}
	if in != nil {
		d.dec = wire.NewDecoder(in, cfg.Decoder)
	}
	return d, nil
}

// Registry exposes the strip table for inspection.
func (d *Device) Registry() *Registry { return d.reg }

// Stats returns a snapshot of the counters.
func (d *Device) Stats() Stats {
	s := d.stats
	if d.dec != nil {
		s.Stats = d.dec.Stats()
	}
	return s
}

// Register provisions a strip outside the wire protocol.
func (d *Device) Register(cfg wire.InitStrip, opts RegisterOptions) (int, error) {
	id, err := d.reg.Register(cfg, opts)
	if err != nil {
		return id, err
	}
	if validAnimation(cfg.Animation) {
		d.startAnimation(id, cfg.Animation)
	}
	return id, nil
}

// HardReset clears every strip back to uninitialized.
func (d *Device) HardReset() {
	d.reg.Reset()
	d.stats.Resets++
	if err := d.out.Reset(); err != nil {
		log.Debug().Err(err).Msg("Renderer reset failed")
	}
}

// Step decodes at most one op, applies it and then sweeps pending
// renders. It returns io.EOF once the input is exhausted.
func (d *Device) Step() error {
	if d.dec != nil {
		op, err := d.dec.Next()
		switch {
		case err == nil:
			d.Dispatch(op)
		case errors.Is(err, wire.ErrIdle):
		default:
			d.gov.Sweep(d.clock.Micros())
			return err
		}
	}
	d.gov.Sweep(d.clock.Micros())
	return nil
}

// Run steps until ctx is done or the input closes.
func (d *Device) Run(ctx context.Context) error {
	log.Info().
		Int("max_pixels", d.limits.MaxPixels).
		Int("max_strips", d.limits.MaxStrips).
		Msg("Device started")
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if err := d.Step(); err != nil {
			if errors.Is(err, io.EOF) {
				log.Info().Msg("Device input closed")
				return nil
			}
			return err
		}
	}
}

// Dispatch applies one op. Ops naming an unregistered strip or a pixel
// past the strip end are rejected without touching any state.
func (d *Device) Dispatch(op wire.Op) {
	now := d.clock.Micros()

	switch o := op.(type) {
	case wire.InitStrip:
		id, err := d.Register(o, RegisterOptions{})
		if err != nil {
			d.reject(op, err.Error())
			return
		}
		log.Debug().Int("strip", id).Uint8("pin", o.Pin).Uint16("count", o.Count).Msg("Strip registered")

	case wire.SetBrightness:
		s, ok := d.strip(op, o.Strip)
		if !ok {
			return
		}
		s.Brightness = o.Level
		if o.Apply {
			d.gov.RequestRender(int(o.Strip), now)
		}

	case wire.FillStrip:
		s, ok := d.strip(op, o.Strip)
		if !ok {
			return
		}
		fill(d.reg.Pixels(s), o.Color)
		if o.Apply {
			d.gov.RequestRender(int(o.Strip), now)
		}

	case wire.SetPixel:
		s, ok := d.strip(op, o.Strip)
		if !ok {
			return
		}
		if int(o.Index) >= s.Len() {
			d.reject(op, "pixel index out of range")
			return
		}
		d.reg.Pixels(s)[o.Index] = o.Color
		if o.Apply {
			d.gov.RequestRender(int(o.Strip), now)
		}

	case wire.Render:
		if _, ok := d.strip(op, o.Strip); !ok {
			return
		}
		d.gov.RequestRender(int(o.Strip), now)

	case wire.TestAnimation:
		if _, ok := d.strip(op, o.Strip); !ok {
			return
		}
		if !validAnimation(o.Animation) {
			d.reject(op, "unknown animation")
			return
		}
		d.startAnimation(int(o.Strip), o.Animation)

	case wire.Reset:
		d.HardReset()

	default:
		// Unknown opcodes are counted by the decoder.
		return
	}
	d.stats.Applied++
}

func (d *Device) strip(op wire.Op, id uint8) (*Strip, bool) {
	s, ok := d.reg.Strip(int(id))
	if !ok {
		d.reject(op, "strip not initialized")
		return nil, false
	}
	return s, true
}

func (d *Device) reject(op wire.Op, reason string) {
	d.stats.Rejected++
	log.Debug().Stringer("op", op.Opcode()).Str("reason", reason).Msg("Op rejected")
}

func (d *Device) startAnimation(id int, kind uint8) {
	s, _ := d.reg.Strip(id)
	s.animation = &animation{kind: kind}
	d.gov.RequestRender(id, d.clock.Micros())
}

func fill(pixels []color.RGB, c color.RGB) {
	for i := range pixels {
		pixels[i] = c
	}
}

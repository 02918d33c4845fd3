// Package firmware is the controller side of the strip protocol: a fixed
// capacity strip registry over a shared pixel arena, a dispatcher fed by
// the wire decoder and a refresh governor that spaces out renders.
//
// Everything in this package runs on a single goroutine.
package firmware

import "fmt"

// DefaultRefreshMicros is used when an init op asks for interval 0.
const DefaultRefreshMicros = 2500

// Limits are fixed when the device boots.
type Limits struct {
	// MaxPixels is the arena size shared by all strips.
	MaxPixels int `yaml:"max_pixels"`
	// MaxStrips caps the registry.
	MaxStrips int `yaml:"max_strips"`
	// MinRefreshFloor is the smallest interval between renders of one
	// strip in µs, whatever the init op asks for.
	MinRefreshFloor uint32 `yaml:"min_refresh_floor"`
	// MaxRefreshInterval bounds intervals so elapsed time never reaches
	// half the 32 bit clock range.
	MaxRefreshInterval uint32 `yaml:"max_refresh_interval"`
}

// DefaultLimits returns the stock controller limits.
func DefaultLimits() Limits {
	return Limits{
		MaxPixels:          2048,
		MaxStrips:          8,
		MinRefreshFloor:    1000,
		MaxRefreshInterval: 65535,
	}
}

// Validate checks the limits are usable.
func (l Limits) Validate() error {
	if l.MaxPixels <= 0 || l.MaxStrips <= 0 {
		return fmt.Errorf("firmware: limits must allow at least one strip and pixel")
	}
	if l.MaxStrips > 256 {
		return fmt.Errorf("firmware: max strips %d exceeds one byte of strip id", l.MaxStrips)
	}
	if l.MinRefreshFloor > l.MaxRefreshInterval {
		return fmt.Errorf("firmware: refresh floor %dµs above ceiling %dµs", l.MinRefreshFloor, l.MaxRefreshInterval)
	}
	if l.MaxRefreshInterval >= 1<<31 {
		return fmt.Errorf("firmware: refresh ceiling %dµs reaches half the clock range", l.MaxRefreshInterval)
	}
	return nil
}

func (l Limits) clampInterval(us uint32) uint32 {
	if us == 0 {
		us = DefaultRefreshMicros
	}
	if us < l.MinRefreshFloor {
		return l.MinRefreshFloor
	}
	if us > l.MaxRefreshInterval {
		return l.MaxRefreshInterval
	}
	return us
}

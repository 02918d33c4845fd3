package render

import (
	"errors"

	"github.com/huereka/huereka/internal/color"
	"github.com/huereka/huereka/internal/firmware"
)

// Multi fans each call out to every renderer.
type Multi []firmware.Renderer

func (m Multi) Show(strip int, pixels []color.RGB, brightness uint8) error {
	var errs []error
	for _, r := range m {
		if err := r.Show(strip, pixels, brightness); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Reset() error {
	var errs []error
	for _, r := range m {
		if err := r.Reset(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package render

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/huereka/huereka/internal/color"
)

// LogRenderer writes a one line summary of each frame to the logger.
type LogRenderer struct {
	Level zerolog.Level
}

// NewLogRenderer logs frames at level.
func NewLogRenderer(level zerolog.Level) *LogRenderer {
	return &LogRenderer{Level: level}
}

func (l *LogRenderer) Show(strip int, pixels []color.RGB, brightness uint8) error {
	e := log.WithLevel(l.Level)
	if !e.Enabled() {
		return nil
	}
	distinct := make(map[color.RGB]struct{})
	for _, p := range pixels {
		distinct[p] = struct{}{}
	}
	first := color.Black
	if len(pixels) > 0 {
		first = pixels[0]
	}
	e.Int("strip", strip).
		Int("pixels", len(pixels)).
		Uint8("brightness", brightness).
		Int("colors", len(distinct)).
		Stringer("first", first).
		Msg("Frame rendered")
	return nil
}

func (l *LogRenderer) Reset() error {
	log.WithLevel(l.Level).Msg("Device reset")
	return nil
}

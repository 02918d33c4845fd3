package firmware

import (
	"github.com/rs/zerolog/log"
)

// governor spaces renders of each strip at least MinInterval apart.
// Requests made too early are parked as pending and coalesce.
type governor struct {
	reg   *Registry
	out   Renderer
	stats *Stats
}

// RequestRender renders strip id now if its interval has elapsed and
// otherwise marks it pending. It reports whether a render happened.
func (g *governor) RequestRender(id int, now uint32) bool {
	s, ok := g.reg.Strip(id)
	if !ok {
		return false
	}
	if g.due(s, now) {
		g.render(id, s, now)
		return true
	}
	if !s.Pending {
		s.Pending = true
		g.stats.Deferred++
	}
	return false
}

// Sweep renders every pending strip whose interval has elapsed and
// returns how many were rendered.
func (g *governor) Sweep(now uint32) int {
	n := 0
	for id := 0; id < g.reg.Len(); id++ {
		s, _ := g.reg.Strip(id)
		if s.Pending && g.due(s, now) {
			g.render(id, s, now)
			n++
		}
	}
	return n
}

func (g *governor) due(s *Strip, now uint32) bool {
	return !s.rendered || Elapsed(now, s.LastRender) >= s.MinInterval
}

func (g *governor) render(id int, s *Strip, now uint32) {
	pixels := g.reg.Pixels(s)
	more := false
	if s.animation != nil {
		more = s.animation.paint(pixels)
		if !more {
			s.animation = nil
		}
	}

	if err := g.out.Show(id, pixels, s.Brightness); err != nil {
		g.stats.RenderErrors++
		log.Debug().Err(err).Int("strip", id).Msg("Render failed")
	}
	g.stats.Renders++
	s.LastRender = now
	s.rendered = true
	s.Pending = more
}

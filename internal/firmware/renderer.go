package firmware

import (
	"sync"

	"github.com/huereka/huereka/internal/color"
)

// Renderer pushes a strip's pixels to whatever displays them. Show must
// not retain pixels after it returns.
type Renderer interface {
	Show(strip int, pixels []color.RGB, brightness uint8) error
	Reset() error
}

// Frame is one call to Show as recorded by MemoryRenderer.
type Frame struct {
	Strip      int
	Pixels     []color.RGB
	Brightness uint8
}

// MemoryRenderer records every frame it is shown.
type MemoryRenderer struct {
	mu     sync.Mutex
	frames []Frame
	resets int
}

func (m *MemoryRenderer) Show(strip int, pixels []color.RGB, brightness uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = append(m.frames, Frame{
		Strip:      strip,
		Pixels:     append([]color.RGB(nil), pixels...),
		Brightness: brightness,
	})
	return nil
}

func (m *MemoryRenderer) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
	return nil
}

// Frames returns the frames shown for strip.
func (m *MemoryRenderer) Frames(strip int) []Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Frame
	for _, f := range m.frames {
		if f.Strip == strip {
			out = append(out, f)
		}
	}
	return out
}

// Last returns the latest frame shown for strip.
func (m *MemoryRenderer) Last(strip int) (Frame, bool) {
	frames := m.Frames(strip)
	if len(frames) == 0 {
		return Frame{}, false
	}
	return frames[len(frames)-1], true
}

// Resets returns how many times Reset was called.
func (m *MemoryRenderer) Resets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets
}

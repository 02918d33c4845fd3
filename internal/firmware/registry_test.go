package firmware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huereka/huereka/internal/wire"
)

func TestRegistry_AllocatesContiguousRanges(t *testing.T) {
	r := NewRegistry(DefaultLimits())

	a, err := r.Register(wire.InitStrip{Pin: 5, Count: 100}, RegisterOptions{})
	require.NoError(t, err)
	b, err := r.Register(wire.InitStrip{Pin: 6, Count: 50}, RegisterOptions{})
	require.NoError(t, err)

	assert.Equal(t, 0, a)
	assert.Equal(t, 1, b)

	sa, _ := r.Strip(a)
	sb, _ := r.Strip(b)
	assert.Equal(t, 0, sa.First)
	assert.Equal(t, 100, sa.Last)
	assert.Equal(t, 100, sb.First)
	assert.Equal(t, 150, sb.Last)
	assert.Equal(t, 150, r.Used())
	assert.Equal(t, uint32(DefaultRefreshMicros), sa.MinInterval)
}

func TestRegistry_StripCapacity(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxStrips = 2
	r := NewRegistry(limits)

	for pin := uint8(0); pin < 2; pin++ {
		_, err := r.Register(wire.InitStrip{Pin: pin, Count: 10}, RegisterOptions{})
		require.NoError(t, err)
	}

	_, err := r.Register(wire.InitStrip{Pin: 9, Count: 10}, RegisterOptions{})
	assert.ErrorIs(t, err, ErrRegistryFull)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 20, r.Used())
}

func TestRegistry_ArenaCapacity(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxPixels = 100
	r := NewRegistry(limits)

	_, err := r.Register(wire.InitStrip{Pin: 1, Count: 60}, RegisterOptions{})
	require.NoError(t, err)

	_, err = r.Register(wire.InitStrip{Pin: 2, Count: 41}, RegisterOptions{})
	assert.ErrorIs(t, err, ErrArenaFull)

	_, err = r.Register(wire.InitStrip{Pin: 2, Count: 40}, RegisterOptions{})
	assert.NoError(t, err)
}

func TestRegistry_IntervalClamped(t *testing.T) {
	r := NewRegistry(DefaultLimits())

	id, err := r.Register(wire.InitStrip{Pin: 1, Count: 1, RefreshMicros: 10}, RegisterOptions{})
	require.NoError(t, err)
	s, _ := r.Strip(id)
	assert.Equal(t, uint32(1000), s.MinInterval)
}

func TestRegistry_ReinitIntervalOnlyRises(t *testing.T) {
	r := NewRegistry(DefaultLimits())

	id, err := r.Register(wire.InitStrip{Pin: 4, Count: 10, RefreshMicros: 5000}, RegisterOptions{})
	require.NoError(t, err)
	s, _ := r.Strip(id)
	r.Pixels(s)[0].R = 9

	again, err := r.Register(wire.InitStrip{Pin: 4, Count: 10, RefreshMicros: 2000}, RegisterOptions{})
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.Equal(t, uint32(5000), s.MinInterval)
	assert.Zero(t, r.Pixels(s)[0].R, "reinit clears the pixels")
	assert.Equal(t, 1, r.Len())

	_, err = r.Register(wire.InitStrip{Pin: 4, Count: 10, RefreshMicros: 8000}, RegisterOptions{})
	require.NoError(t, err)
	assert.Equal(t, uint32(8000), s.MinInterval)

	_, err = r.Register(wire.InitStrip{Pin: 4, Count: 10, RefreshMicros: 2000}, RegisterOptions{OverrideInterval: true})
	require.NoError(t, err)
	assert.Equal(t, uint32(2000), s.MinInterval)
}

func TestRegistry_ReinitDifferentLengthRejected(t *testing.T) {
	r := NewRegistry(DefaultLimits())
	_, err := r.Register(wire.InitStrip{Pin: 4, Count: 10}, RegisterOptions{})
	require.NoError(t, err)

	_, err = r.Register(wire.InitStrip{Pin: 4, Count: 11}, RegisterOptions{})
	assert.ErrorIs(t, err, ErrInvalidStrip)

	_, err = r.Register(wire.InitStrip{Pin: 7, Count: 0}, RegisterOptions{})
	assert.ErrorIs(t, err, ErrInvalidStrip)
}

func TestRegistry_Reset(t *testing.T) {
	r := NewRegistry(DefaultLimits())
	id, err := r.Register(wire.InitStrip{Pin: 1, Count: 3}, RegisterOptions{})
	require.NoError(t, err)
	assert.Equal(t, Ready, r.State(id))

	r.Reset()
	assert.Equal(t, Uninitialized, r.State(id))
	assert.Zero(t, r.Len())
	assert.Zero(t, r.Used())
}

func TestLimits_Validate(t *testing.T) {
	assert.NoError(t, DefaultLimits().Validate())

	bad := DefaultLimits()
	bad.MinRefreshFloor = 70000
	assert.Error(t, bad.Validate())

	bad = DefaultLimits()
	bad.MaxRefreshInterval = 1 << 31
	bad.MinRefreshFloor = 0
	assert.Error(t, bad.Validate())
}

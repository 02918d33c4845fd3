package strip

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huereka/huereka/internal/color"
	"github.com/huereka/huereka/internal/wire"
)

func TestBuffer_FreshBufferIsClean(t *testing.T) {
	b := New(0, 10, 0)
	assert.False(t, b.Dirty())
	assert.Nil(t, b.Diff())
	assert.Equal(t, uint8(MaxBrightness), b.Brightness())
}

func TestBuffer_SetPixelBounds(t *testing.T) {
	b := New(0, 4, 0)
	assert.NoError(t, b.SetPixel(3, color.Red))
	assert.True(t, errors.Is(b.SetPixel(4, color.Red), ErrIndexOutOfRange))
	assert.True(t, errors.Is(b.SetPixel(-1, color.Red), ErrIndexOutOfRange))
}

func TestBuffer_SetBrightnessClamps(t *testing.T) {
	b := New(0, 1, 0)
	b.SetBrightness(300)
	assert.Equal(t, uint8(255), b.Brightness())
	assert.False(t, b.Dirty(), "unchanged brightness is not a change")

	b.SetBrightness(-5)
	assert.Equal(t, uint8(0), b.Brightness())
	assert.True(t, b.Dirty())
}

func TestBuffer_ApplyFixedProfileSingleFill(t *testing.T) {
	b := New(2, 1, 0)
	p := &color.Profile{ID: "red", Name: "red", Colors: []color.RGB{color.Red}, Mode: color.ModeFixed}

	require.NoError(t, b.ApplyProfile(p))
	assert.True(t, b.Dirty())
	assert.Equal(t, p.Fingerprint(), b.Fingerprint())

	ops := b.Diff()
	require.Len(t, ops, 1)
	assert.Equal(t, wire.FillStrip{Strip: 2, Color: color.Red, Apply: true}, ops[0])
}

func TestBuffer_ApplyProfileMismatchLeavesBuffer(t *testing.T) {
	b := New(0, 3, 0)
	b.SetAll(color.Green)
	before := b.Pixels()

	p := &color.Profile{Name: "two", Colors: []color.RGB{color.Red, color.Blue}, Mode: color.ModeFixed}
	err := b.ApplyProfile(p)
	assert.ErrorIs(t, err, color.ErrProfileLengthMismatch)
	assert.Equal(t, before, b.Pixels())
}

func TestBuffer_DiffUniformUsesFill(t *testing.T) {
	b := New(0, 100, 0)
	b.SetAll(color.Blue)

	ops := b.Diff()
	require.Len(t, ops, 1)
	assert.Equal(t, wire.FillStrip{Strip: 0, Color: color.Blue, Apply: true}, ops[0])
}

func TestBuffer_DiffFewChangesUsesPixels(t *testing.T) {
	b := New(1, 100, 0)
	require.NoError(t, b.SetPixel(5, color.Red))
	require.NoError(t, b.SetPixel(50, color.Green))

	ops := b.Diff()
	assert.Equal(t, []wire.Op{
		wire.SetPixel{Strip: 1, Index: 5, Color: color.Red},
		wire.SetPixel{Strip: 1, Index: 50, Color: color.Green, Apply: true},
	}, ops)
}

func TestBuffer_DiffManyChangesFillPlusFixups(t *testing.T) {
	b := New(0, 10, 0)
	p := &color.Profile{Name: "rrrg", Colors: []color.RGB{color.Red, color.Red, color.Red, color.Red, color.Green}}
	require.NoError(t, b.ApplyProfile(p))

	ops := b.Diff()
	assert.Equal(t, []wire.Op{
		wire.FillStrip{Strip: 0, Color: color.Red},
		wire.SetPixel{Strip: 0, Index: 4, Color: color.Green},
		wire.SetPixel{Strip: 0, Index: 9, Color: color.Green, Apply: true},
	}, ops)
}

func TestBuffer_DiffBrightnessFirst(t *testing.T) {
	b := New(0, 4, 0)
	b.SetBrightness(64)
	require.NoError(t, b.SetPixel(0, color.White))

	ops := b.Diff()
	assert.Equal(t, []wire.Op{
		wire.SetBrightness{Strip: 0, Level: 64},
		wire.SetPixel{Strip: 0, Index: 0, Color: color.White, Apply: true},
	}, ops)
}

func TestBuffer_DiffBrightnessOnly(t *testing.T) {
	b := New(0, 4, 0)
	b.SetBrightness(10)
	assert.Equal(t, []wire.Op{wire.SetBrightness{Strip: 0, Level: 10, Apply: true}}, b.Diff())
}

func TestBuffer_DirtyUntilConfirmed(t *testing.T) {
	b := New(0, 8, 0)
	b.SetAll(color.Purple)

	first := b.Diff()
	assert.True(t, b.Dirty(), "diff alone does not clean")
	assert.Equal(t, first, b.Diff(), "re-diff after a failed send yields the same ops")

	b.Confirm(first)
	assert.False(t, b.Dirty())
	assert.Nil(t, b.Diff())
}

func TestBuffer_InvalidateForcesRepaint(t *testing.T) {
	b := New(3, 4, 0)
	b.SetAll(color.Cyan)
	b.Confirm(b.Diff())
	require.False(t, b.Dirty())

	b.Invalidate()
	assert.True(t, b.Dirty())

	ops := b.Diff()
	assert.Equal(t, []wire.Op{
		wire.SetBrightness{Strip: 3, Level: 255},
		wire.FillStrip{Strip: 3, Color: color.Cyan, Apply: true},
	}, ops)

	b.Confirm(ops)
	assert.False(t, b.Dirty())
}

func TestBuffer_ConfirmIgnoresOtherStrips(t *testing.T) {
	b := New(0, 2, 0)
	b.SetAll(color.Red)
	b.Confirm([]wire.Op{wire.FillStrip{Strip: 1, Color: color.Red}})
	assert.True(t, b.Dirty())
}

func TestBuffer_RevertedEditConfirmsClean(t *testing.T) {
	b := New(0, 2, 0)
	require.NoError(t, b.SetPixel(0, color.Red))
	require.NoError(t, b.SetPixel(0, color.Black))
	assert.True(t, b.Dirty())
	assert.Nil(t, b.Diff())

	b.Confirm(nil)
	assert.False(t, b.Dirty())
}

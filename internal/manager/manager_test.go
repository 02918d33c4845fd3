package manager

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huereka/huereka/internal/color"
	"github.com/huereka/huereka/internal/wire"
)

type fakeLink struct {
	mu         sync.Mutex
	batches    [][]wire.Op
	fail       bool
	generation uint64
}

func (l *fakeLink) Send(ctx context.Context, ops []wire.Op) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail {
		return errors.New("link down")
	}
	if l.generation == 0 {
		l.generation = 1
	}
	l.batches = append(l.batches, append([]wire.Op(nil), ops...))
	return nil
}

func (l *fakeLink) Generation() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.generation
}

func (l *fakeLink) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.batches = nil
}

func newManager(t *testing.T, link Sender) *Manager {
	t.Helper()
	m, err := New(Config{ID: "porch", Strip: 0, Pin: 5, LEDCount: 4, RefreshMicros: 2500}, link)
	require.NoError(t, err)
	return m
}

var red = &color.Profile{ID: "red", Name: "red", Colors: []color.RGB{color.Red}}

func TestManager_InitHandshakeThenDiff(t *testing.T) {
	link := &fakeLink{}
	m := newManager(t, link)

	require.NoError(t, m.ApplyProfile(context.Background(), red, 255))

	require.Len(t, link.batches, 3)
	assert.Equal(t, []wire.Op{wire.InitStrip{Pin: 5, Count: 4, RefreshMicros: 2500}}, link.batches[0])
	assert.Equal(t, []wire.Op{wire.FillStrip{Strip: 0, Color: color.Black, Apply: true}}, link.batches[1])
	assert.Equal(t, []wire.Op{wire.FillStrip{Strip: 0, Color: color.Red, Apply: true}}, link.batches[2])

	st := m.Status()
	assert.True(t, st.Initialized)
	assert.False(t, st.Dirty)
	assert.Equal(t, "red", st.Profile)
}

func TestManager_SameProfileSendsNothing(t *testing.T) {
	link := &fakeLink{}
	m := newManager(t, link)
	ctx := context.Background()

	require.NoError(t, m.ApplyProfile(ctx, red, 255))
	link.reset()

	require.NoError(t, m.ApplyProfile(ctx, red, 255))
	assert.Empty(t, link.batches)
}

func TestManager_BrightnessChangeOnly(t *testing.T) {
	link := &fakeLink{}
	m := newManager(t, link)
	ctx := context.Background()

	require.NoError(t, m.ApplyProfile(ctx, red, 255))
	link.reset()

	require.NoError(t, m.ApplyProfile(ctx, red, 128))
	require.Len(t, link.batches, 1)
	assert.Equal(t, []wire.Op{wire.SetBrightness{Strip: 0, Level: 128, Apply: true}}, link.batches[0])
}

func TestManager_FailedPushRetries(t *testing.T) {
	link := &fakeLink{}
	m := newManager(t, link)
	ctx := context.Background()

	require.NoError(t, m.ApplyProfile(ctx, red, 255))

	link.fail = true
	blue := &color.Profile{ID: "blue", Name: "blue", Colors: []color.RGB{color.Blue}}
	assert.Error(t, m.ApplyProfile(ctx, blue, 255))
	st := m.Status()
	assert.True(t, st.Dirty)
	assert.NotEmpty(t, st.LastError)

	link.fail = false
	link.reset()
	require.NoError(t, m.Push(ctx))

	// The link dropped, so the strip is registered again before the retry.
	require.Len(t, link.batches, 3)
	assert.IsType(t, wire.InitStrip{}, link.batches[0][0])
	assert.Equal(t, []wire.Op{wire.FillStrip{Strip: 0, Color: color.Blue, Apply: true}}, link.batches[2])
	assert.False(t, m.Status().Dirty)
}

func TestManager_ReconnectByOtherManagerReinitializes(t *testing.T) {
	link := &fakeLink{}
	m := newManager(t, link)
	ctx := context.Background()

	require.NoError(t, m.ApplyProfile(ctx, red, 255))
	link.reset()

	link.generation++
	require.NoError(t, m.Push(ctx))
	require.Len(t, link.batches, 3)
	assert.IsType(t, wire.InitStrip{}, link.batches[0][0])
	assert.Equal(t, []wire.Op{wire.FillStrip{Strip: 0, Color: color.Red, Apply: true}}, link.batches[2])
}

func TestManager_FixedMismatch(t *testing.T) {
	m := newManager(t, &fakeLink{})
	p := &color.Profile{ID: "two", Name: "two", Colors: []color.RGB{color.Red, color.Green}, Mode: color.ModeFixed}
	assert.ErrorIs(t, m.ApplyProfile(context.Background(), p, 255), color.ErrProfileLengthMismatch)
}

func TestNew_RejectsBadCount(t *testing.T) {
	_, err := New(Config{ID: "x", LEDCount: 0}, &fakeLink{})
	assert.Error(t, err)
}

func newBank(t *testing.T, link Sender) (*Manager, *Manager) {
	t.Helper()
	bank := NewBank(link)
	// Added out of order on purpose; registration follows the strip number.
	b, err := bank.New(Config{ID: "eaves", Strip: 1, Pin: 2, LEDCount: 3})
	require.NoError(t, err)
	a, err := bank.New(Config{ID: "porch", Strip: 0, Pin: 1, LEDCount: 3})
	require.NoError(t, err)
	return a, b
}

func TestBank_RegistersInStripOrder(t *testing.T) {
	link := &fakeLink{}
	a, b := newBank(t, link)
	ctx := context.Background()

	require.NoError(t, b.Fill(ctx, color.Blue))

	require.Len(t, link.batches, 3)
	assert.Equal(t, []wire.Op{
		wire.InitStrip{Pin: 1, Count: 3},
		wire.InitStrip{Pin: 2, Count: 3},
	}, link.batches[0])
	assert.Equal(t, []wire.Op{
		wire.FillStrip{Strip: 0, Color: color.Black, Apply: true},
		wire.FillStrip{Strip: 1, Color: color.Black, Apply: true},
	}, link.batches[1])
	assert.Equal(t, []wire.Op{wire.FillStrip{Strip: 1, Color: color.Blue, Apply: true}}, link.batches[2])

	link.reset()
	require.NoError(t, a.Fill(ctx, color.Red))
	require.Len(t, link.batches, 1, "second strip reuses the bank handshake")
	assert.Equal(t, []wire.Op{wire.FillStrip{Strip: 0, Color: color.Red, Apply: true}}, link.batches[0])
	assert.True(t, a.Status().Initialized)
	assert.True(t, b.Status().Initialized)
}

func TestBank_ReconnectReinitializesEveryStrip(t *testing.T) {
	link := &fakeLink{}
	a, b := newBank(t, link)
	ctx := context.Background()

	require.NoError(t, a.Fill(ctx, color.Red))
	require.NoError(t, b.Fill(ctx, color.Blue))
	link.reset()

	link.generation++
	require.NoError(t, a.Push(ctx))
	require.Len(t, link.batches, 3)
	assert.Len(t, link.batches[0], 2)
	assert.Equal(t, []wire.Op{wire.FillStrip{Strip: 0, Color: color.Red, Apply: true}}, link.batches[2])

	// The handshake blanked the other strip too, so it repaints without
	// registering again.
	link.reset()
	require.NoError(t, b.Push(ctx))
	require.Len(t, link.batches, 1)
	assert.Equal(t, []wire.Op{wire.FillStrip{Strip: 1, Color: color.Blue, Apply: true}}, link.batches[0])
}

func TestBank_FailedPushReinitializesBank(t *testing.T) {
	link := &fakeLink{}
	a, b := newBank(t, link)
	ctx := context.Background()

	require.NoError(t, a.Fill(ctx, color.Red))
	link.fail = true
	assert.Error(t, b.Fill(ctx, color.Blue))

	link.fail = false
	link.reset()
	require.NoError(t, b.Push(ctx))
	require.Len(t, link.batches, 3)
	assert.Len(t, link.batches[0], 2)

	link.reset()
	require.NoError(t, a.Push(ctx))
	require.Len(t, link.batches, 1)
	assert.Equal(t, []wire.Op{wire.FillStrip{Strip: 0, Color: color.Red, Apply: true}}, link.batches[0])
}

func TestBank_RejectsDuplicateStrip(t *testing.T) {
	bank := NewBank(&fakeLink{})
	_, err := bank.New(Config{ID: "a", Strip: 0, LEDCount: 3})
	require.NoError(t, err)
	_, err = bank.New(Config{ID: "b", Strip: 0, LEDCount: 3})
	assert.Error(t, err)
}

func TestBank_GapFailsHandshake(t *testing.T) {
	link := &fakeLink{}
	bank := NewBank(link)
	_, err := bank.New(Config{ID: "a", Strip: 0, LEDCount: 3})
	require.NoError(t, err)
	c, err := bank.New(Config{ID: "c", Strip: 2, LEDCount: 3})
	require.NoError(t, err)

	assert.Error(t, c.Fill(context.Background(), color.Red))
	assert.Empty(t, link.batches)
	assert.False(t, c.Status().Initialized)
}

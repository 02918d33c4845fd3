package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huereka/huereka/internal/color"
	"github.com/huereka/huereka/internal/wire"
)

type memConn struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	fail   bool
	closed bool
}

func (c *memConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return 0, errors.New("line down")
	}
	return c.buf.Write(p)
}

func (c *memConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *memConn) Bytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.buf.Bytes()...)
}

type fakeDialer struct {
	mu    sync.Mutex
	conns []*memConn
	fail  bool
}

func (d *fakeDialer) dial(ctx context.Context) (io.WriteCloser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		return nil, errors.New("no device")
	}
	c := &memConn{}
	d.conns = append(d.conns, c)
	return c, nil
}

func startLink(t *testing.T, d *fakeDialer, cfg LinkConfig) *Link {
	t.Helper()
	l := NewLink(d.dial, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = l.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return l
}

func TestLink_BatchesStayContiguous(t *testing.T) {
	d := &fakeDialer{}
	l := startLink(t, d, LinkConfig{Name: "test"})

	const strips = 4
	const perStrip = 20

	var wg sync.WaitGroup
	for s := 0; s < strips; s++ {
		wg.Add(1)
		go func(s int) {
			defer wg.Done()
			ops := make([]wire.Op, perStrip)
			for i := range ops {
				ops[i] = wire.SetPixel{Strip: uint8(s), Index: uint16(i), Color: color.Red}
			}
			assert.NoError(t, l.Send(context.Background(), ops))
		}(s)
	}
	wg.Wait()

	require.Len(t, d.conns, 1)
	dec := wire.NewDecoder(bytes.NewReader(d.conns[0].Bytes()), wire.DecoderConfig{})

	for s := 0; s < strips; s++ {
		first, err := dec.Next()
		require.NoError(t, err)
		strip := first.(wire.SetPixel).Strip
		assert.Equal(t, uint16(0), first.(wire.SetPixel).Index)
		for i := 1; i < perStrip; i++ {
			op, err := dec.Next()
			require.NoError(t, err)
			px := op.(wire.SetPixel)
			assert.Equal(t, strip, px.Strip, "batch interleaved")
			assert.Equal(t, uint16(i), px.Index, "batch reordered")
		}
	}
	_, err := dec.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, uint64(1), l.Generation())
}

func TestLink_FailureReconnects(t *testing.T) {
	d := &fakeDialer{}
	l := startLink(t, d, LinkConfig{Name: "test"})
	ctx := context.Background()

	require.NoError(t, l.Send(ctx, []wire.Op{wire.Render{Strip: 0}}))
	assert.Equal(t, uint64(1), l.Generation())

	d.conns[0].mu.Lock()
	d.conns[0].fail = true
	d.conns[0].mu.Unlock()

	assert.Error(t, l.Send(ctx, []wire.Op{wire.Render{Strip: 0}}))
	assert.Equal(t, uint64(1), l.Failures())

	require.NoError(t, l.Send(ctx, []wire.Op{wire.Render{Strip: 1}}))
	assert.Equal(t, uint64(2), l.Generation(), "a new connection after a failed write")
	assert.True(t, d.conns[0].closed)
	assert.Equal(t, []byte{wire.Sync, byte(wire.OpRender), 1}, d.conns[1].Bytes())
}

func TestLink_DialFailure(t *testing.T) {
	d := &fakeDialer{fail: true}
	l := startLink(t, d, LinkConfig{Name: "test"})
	assert.Error(t, l.Send(context.Background(), []wire.Op{wire.Reset{}}))
	assert.Zero(t, l.Generation())
}

func TestLink_RateLimited(t *testing.T) {
	d := &fakeDialer{}
	// 9600 baud is 960 bytes/s with a 96 byte burst.
	l := startLink(t, d, LinkConfig{Name: "slow", Baud: 9600})

	payload := bytes.Repeat([]byte{0x00}, 96*3)
	start := time.Now()
	require.NoError(t, l.SendRaw(context.Background(), payload))
	// Two refills of 96 bytes at 960 bytes/s.
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
	assert.Equal(t, uint64(len(payload)), l.BytesSent())
}

func TestLink_ClosedRejectsSends(t *testing.T) {
	l := NewLink((&fakeDialer{}).dial, LinkConfig{})
	require.NoError(t, l.Close())
	assert.ErrorIs(t, l.Send(context.Background(), []wire.Op{wire.Reset{}}), ErrClosed)
}

func TestLink_UnencodableOp(t *testing.T) {
	l := NewLink((&fakeDialer{}).dial, LinkConfig{})
	err := l.Send(context.Background(), []wire.Op{wire.Unknown{Code: 3}})
	assert.ErrorIs(t, err, wire.ErrUnencodable)
}

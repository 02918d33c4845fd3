package transport

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/huereka/huereka/internal/wire"
)

// LinkConfig tunes a Link.
type LinkConfig struct {
	// Name labels log lines.
	Name string
	// Baud caps throughput at Baud/10 bytes per second. Zero is unlimited.
	Baud int
	// Queue is how many batches may wait for the writer.
	Queue int
}

type batch struct {
	frames []byte
	result chan error
}

// Link owns one connection and the only goroutine that writes to it.
// Callers submit whole batches and wait for the outcome, so the frames of
// one batch are never interleaved with another's.
type Link struct {
	name    string
	dial    DialFunc
	limiter *rate.Limiter
	burst   int
	queue   chan *batch
	done    chan struct{}
	once    sync.Once

	// conn is only touched by the writer goroutine.
	conn io.WriteCloser
	// generation counts successful connects.
	generation atomic.Uint64
	sent       atomic.Uint64
	failures   atomic.Uint64
}

// NewLink creates a link that connects lazily through dial.
func NewLink(dial DialFunc, cfg LinkConfig) *Link {
	if cfg.Queue <= 0 {
		cfg.Queue = 16
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	burst := 0
	if cfg.Baud > 0 {
		bytesPerSec := cfg.Baud / 10
		burst = max(bytesPerSec/10, 64)
		limiter = rate.NewLimiter(rate.Limit(bytesPerSec), burst)
	}

	return &Link{
		name:    cfg.Name,
		dial:    dial,
		limiter: limiter,
		burst:   burst,
		queue:   make(chan *batch, cfg.Queue),
		done:    make(chan struct{}),
	}
}

// Generation returns how many times the link has connected. A change
// means the controller may have lost its strip setup.
func (l *Link) Generation() uint64 { return l.generation.Load() }

// BytesSent returns the total bytes written.
func (l *Link) BytesSent() uint64 { return l.sent.Load() }

// Failures returns the number of failed batches.
func (l *Link) Failures() uint64 { return l.failures.Load() }

// Send encodes ops as one batch and waits until it is written.
func (l *Link) Send(ctx context.Context, ops []wire.Op) error {
	frames, err := wire.EncodeAll(ops)
	if err != nil {
		return err
	}
	return l.SendRaw(ctx, frames)
}

// SendRaw writes pre-encoded bytes as one batch.
func (l *Link) SendRaw(ctx context.Context, frames []byte) error {
	if len(frames) == 0 {
		return nil
	}
	b := &batch{frames: frames, result: make(chan error, 1)}

	select {
	case l.queue <- b:
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-b.result:
		return err
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run is the writer loop. It returns when ctx is done or Close is called.
func (l *Link) Run(ctx context.Context) error {
	log.Debug().Str("link", l.name).Msg("Link writer started")
	defer l.disconnect()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-l.done:
			return nil
		case b := <-l.queue:
			err := l.write(ctx, b.frames)
			if err != nil {
				l.failures.Add(1)
				l.disconnect()
			}
			b.result <- err
		}
	}
}

// Close stops the writer and fails pending sends.
func (l *Link) Close() error {
	l.once.Do(func() { close(l.done) })
	return nil
}

func (l *Link) write(ctx context.Context, frames []byte) error {
	if l.conn == nil {
		conn, err := l.dial(ctx)
		if err != nil {
			return fmt.Errorf("transport: connect %s: %w", l.name, err)
		}
		l.conn = conn
		gen := l.generation.Add(1)
		log.Info().Str("link", l.name).Uint64("generation", gen).Msg("Link connected")
	}

	for len(frames) > 0 {
		n := len(frames)
		if l.burst > 0 {
			n = min(n, l.burst)
			if err := l.limiter.WaitN(ctx, n); err != nil {
				return err
			}
		}
		written, err := l.conn.Write(frames[:n])
		l.sent.Add(uint64(written))
		if err != nil {
			return fmt.Errorf("transport: write %s: %w", l.name, err)
		}
		frames = frames[n:]
	}
	return nil
}

func (l *Link) disconnect() {
	if l.conn == nil {
		return
	}
	if err := l.conn.Close(); err != nil {
		log.Debug().Err(err).Str("link", l.name).Msg("Link close failed")
	}
	l.conn = nil
}

package wire

import (
	"bufio"
	"errors"
	"io"
	"net"
	"os"
	"time"
)

// ErrIdle is returned by Next when no byte arrived within the idle poll
// window. The decoder is still usable.
var ErrIdle = errors.New("wire: idle")

// DefaultPayloadTimeout bounds how long a started frame may take to arrive.
const DefaultPayloadTimeout = 50 * time.Millisecond

// Stats counts decoder outcomes.
type Stats struct {
	Frames    uint64 `json:"frames"`
	Discarded uint64 `json:"discarded"`
	Timeouts  uint64 `json:"timeouts"`
	Unknown   uint64 `json:"unknown"`
}

// DecoderConfig tunes the read deadlines. Deadlines only apply when the
// underlying reader has a SetReadDeadline method.
type DecoderConfig struct {
	// IdlePoll is how long Next waits for a sync byte before returning
	// ErrIdle. Zero blocks.
	IdlePoll time.Duration
	// PayloadTimeout is how long Next waits for the opcode and payload
	// after a sync byte.
	PayloadTimeout time.Duration
}

type deadliner interface {
	SetReadDeadline(t time.Time) error
}

// Decoder reads ops from a byte stream and resynchronizes on garbage.
type Decoder struct {
	r     *bufio.Reader
	dl    deadliner
	cfg   DecoderConfig
	stats Stats
	buf   [8]byte
}

// NewDecoder wraps r. Both timeouts need r to implement SetReadDeadline,
// as serial ports and net.Conn do. On any other reader Next blocks until a
// byte arrives, never returns ErrIdle and never drops a stalled frame.
func NewDecoder(r io.Reader, cfg DecoderConfig) *Decoder {
	if cfg.PayloadTimeout <= 0 {
		cfg.PayloadTimeout = DefaultPayloadTimeout
	}
	d := &Decoder{r: bufio.NewReader(r), cfg: cfg}
	if dl, ok := r.(deadliner); ok {
		d.dl = dl
	}
	return d
}

// Stats returns a snapshot of the counters.
func (d *Decoder) Stats() Stats {
	return d.stats
}

// Next returns the next op.
//
// Bytes before a sync byte are discarded, as is a sync byte followed by
// another sync byte. An opcode outside the table
// yields Unknown and scanning resumes with the following byte. A frame
// whose payload does not arrive in time is dropped whole and scanning
// resumes. Next returns ErrIdle when nothing arrived within the idle
// window and io.EOF once the stream ends.
func (d *Decoder) Next() (Op, error) {
	for {
		d.deadline(d.cfg.IdlePoll)
		b, err := d.r.ReadByte()
		if err != nil {
			if isTimeout(err) {
				return nil, ErrIdle
			}
			return nil, err
		}
		if b != Sync {
			d.stats.Discarded++
			continue
		}

		d.deadline(d.cfg.PayloadTimeout)
		code, err := d.r.ReadByte()
		// A sync byte where the opcode belongs restarts the frame, so
		// garbage ending in a sync byte cannot swallow a real frame.
		for err == nil && code == Sync {
			d.stats.Discarded++
			code, err = d.r.ReadByte()
		}
		if err != nil {
			if isTimeout(err) {
				d.stats.Timeouts++
				continue
			}
			if errors.Is(err, io.EOF) {
				d.stats.Timeouts++
			}
			return nil, err
		}

		n, ok := PayloadLen(Opcode(code))
		if !ok {
			d.stats.Unknown++
			return Unknown{Code: code}, nil
		}

		payload := d.buf[:n]
		if _, err := io.ReadFull(d.r, payload); err != nil {
			d.stats.Timeouts++
			if isTimeout(err) {
				continue
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, io.EOF
			}
			return nil, err
		}

		d.stats.Frames++
		return parse(Opcode(code), payload), nil
	}
}

func (d *Decoder) deadline(wait time.Duration) {
	if d.dl == nil {
		return
	}
	var t time.Time
	if wait > 0 {
		t = time.Now().Add(wait)
	}
	_ = d.dl.SetReadDeadline(t)
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

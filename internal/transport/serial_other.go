//go:build !linux

package transport

import (
	"fmt"
	"runtime"
	"time"
)

// Port is unavailable on this platform.
type Port struct{}

// OpenSerial always fails outside Linux.
func OpenSerial(device string, baud int) (*Port, error) {
	return nil, fmt.Errorf("transport: serial ports unsupported on %s", runtime.GOOS)
}

func (p *Port) Device() string { return "" }
func (p *Port) SetReadDeadline(t time.Time) error { return ErrClosed }
func (p *Port) Read(buf []byte) (int, error) { return 0, ErrClosed }
func (p *Port) Write(buf []byte) (int, error) { return 0, ErrClosed }
func (p *Port) Close() error { return nil }

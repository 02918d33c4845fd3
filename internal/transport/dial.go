// Package transport carries encoded frames from the host to a strip
// controller over a serial line or a TCP socket.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

// ErrClosed is returned once a port or link has been closed.
var ErrClosed = errors.New("transport: closed")

// DialFunc opens a fresh connection to the controller.
type DialFunc func(ctx context.Context) (io.WriteCloser, error)

// Dialer returns a DialFunc for address. "tcp://host:port" dials TCP,
// anything else is a serial device path opened at baud.
func Dialer(address string, baud int, timeout time.Duration) DialFunc {
	return func(ctx context.Context) (io.WriteCloser, error) {
		return Open(ctx, address, baud, timeout)
	}
}

// Open connects to address once.
func Open(ctx context.Context, address string, baud int, timeout time.Duration) (io.ReadWriteCloser, error) {
	if hostPort, ok := strings.CutPrefix(address, "tcp://"); ok {
		d := net.Dialer{Timeout: timeout}
		conn, err := d.DialContext(ctx, "tcp", hostPort)
		if err != nil {
			return nil, fmt.Errorf("transport: dial %s: %w", hostPort, err)
		}
		return conn, nil
	}
	port, err := OpenSerial(address, baud)
	if err != nil {
		return nil, err
	}
	return port, nil
}

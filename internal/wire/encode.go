package wire

import (
	"errors"
	"fmt"
)

// ErrUnencodable is returned when asked to encode an opcode outside the
// frame table.
var ErrUnencodable = errors.New("wire: opcode cannot be encoded")

// AppendFrame appends the frame for op to b.
func AppendFrame(b []byte, op Op) ([]byte, error) {
	if _, ok := op.(Unknown); ok {
		return b, fmt.Errorf("%w: %s", ErrUnencodable, op.Opcode())
	}
	want, ok := PayloadLen(op.Opcode())
	if !ok {
		return b, fmt.Errorf("%w: %s", ErrUnencodable, op.Opcode())
	}

	start := len(b)
	b = append(b, Sync, byte(op.Opcode()))
	b = op.appendPayload(b)
	if got := len(b) - start - 2; got != want {
		return b[:start], fmt.Errorf("%w: %s payload is %d bytes, want %d", ErrUnencodable, op.Opcode(), got, want)
	}
	return b, nil
}

// Encode returns the frame for a single op.
func Encode(op Op) ([]byte, error) {
	return AppendFrame(nil, op)
}

// EncodeAll concatenates the frames for ops.
func EncodeAll(ops []Op) ([]byte, error) {
	var b []byte
	for _, op := range ops {
		var err error
		if b, err = AppendFrame(b, op); err != nil {
			return nil, err
		}
	}
	return b, nil
}

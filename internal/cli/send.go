package cli

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/huereka/huereka/internal/transport"
	"github.com/huereka/huereka/internal/wire"
)

// SendOptions holds flags for the send command.
type SendOptions struct {
	*RootOptions
	Port    string
	Baud    int
	Timeout time.Duration
}

// NewSendCommand creates the send command.
func NewSendCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SendOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "send [byte...]",
		Short: "Write raw bytes to a controller",
		Long: `Write raw bytes to a controller for bench testing. Bytes are decimal
or 0x-prefixed hex. Without arguments every stdin line is sent as one write.

Example:
  huereka send --port /dev/ttyACM0 127 1 0 5 0 10 0 0 0
  echo "0x7f 0x21 0 0xff 0 0 1" | huereka send --port tcp://127.0.0.1:7777`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := opts.load(true); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			conn, err := transport.Open(ctx, opts.Port, opts.Baud, opts.Timeout)
			cancel()
			if err != nil {
				return err
			}
			defer conn.Close()

			if len(args) > 0 {
				return sendLine(conn, cmd.OutOrStdout(), strings.Join(args, " "))
			}
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				if strings.TrimSpace(scanner.Text()) == "" {
					continue
				}
				if err := sendLine(conn, cmd.OutOrStdout(), scanner.Text()); err != nil {
					return err
				}
			}
			return scanner.Err()
		},
	}

	cmd.Flags().StringVarP(&opts.Port, "port", "p", "/dev/ttyACM0", "serial device or tcp://host:port")
	cmd.Flags().IntVarP(&opts.Baud, "baud", "b", 115200, "serial baud rate")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 5*time.Second, "connect timeout")

	return cmd
}

func sendLine(w io.Writer, out io.Writer, line string) error {
	data, err := parseBytes(line)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	log.Debug().Int("bytes", len(data)).Msg("Sent raw bytes")
	fmt.Fprintf(out, "sent % x%s\n", data, describe(data))
	return nil
}

// parseBytes splits on whitespace or commas. Tokens are decimal unless
// prefixed with 0x.
func parseBytes(s string) ([]byte, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	out := make([]byte, 0, len(fields))
	for _, f := range fields {
		base := 10
		digits := f
		if rest, ok := strings.CutPrefix(strings.ToLower(f), "0x"); ok {
			base, digits = 16, rest
		}
		v, err := strconv.ParseUint(digits, base, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid byte %q", f)
		}
		out = append(out, byte(v))
	}
	return out, nil
}

// describe names the ops a well formed frame sequence decodes to.
func describe(data []byte) string {
	dec := wire.NewDecoder(bytes.NewReader(data), wire.DecoderConfig{})
	var names []string
	for {
		op, err := dec.Next()
		if err != nil {
			break
		}
		names = append(names, op.Opcode().String())
	}
	if len(names) == 0 {
		return ""
	}
	return " (" + strings.Join(names, ", ") + ")"
}

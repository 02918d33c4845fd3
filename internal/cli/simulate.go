package cli

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/huereka/huereka/internal/app"
	"github.com/huereka/huereka/internal/config"
	"github.com/huereka/huereka/internal/firmware"
	"github.com/huereka/huereka/internal/render"
	"github.com/huereka/huereka/internal/transport"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	Listen    string
	WebSocket string
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the controller core on a TCP socket or serial device",
		Long: `Run the strip controller core without hardware. Frames are read from a
TCP listener (one host at a time) or a serial device path. Rendered frames
are logged at debug level and streamed to websocket clients when
--websocket is set.

Example:
  huereka simulate --listen 127.0.0.1:7777 --websocket 127.0.0.1:8080
  huereka simulate --listen /dev/pts/4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(true)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("listen") {
				cfg.Simulator.Listen = opts.Listen
			}
			if cmd.Flags().Changed("websocket") {
				cfg.Simulator.WebSocket = opts.WebSocket
			}
			return runSimulator(app.SignalContext(), cfg.Simulator)
		},
	}

	cmd.Flags().StringVarP(&opts.Listen, "listen", "l", "", "tcp address or serial device (default from config)")
	cmd.Flags().StringVar(&opts.WebSocket, "websocket", "", "address for the websocket preview")

	return cmd
}

func runSimulator(ctx context.Context, cfg config.SimulatorConfig) error {
	renderers := render.Multi{render.NewLogRenderer(zerolog.DebugLevel)}

	if cfg.WebSocket != "" {
		ws := render.NewWebSocketRenderer()
		defer ws.Close()
		renderers = append(renderers, ws)

		mux := http.NewServeMux()
		mux.Handle("/ws", ws)
		server := &http.Server{Addr: cfg.WebSocket, Handler: mux}
		go func() {
			log.Info().Str("addr", cfg.WebSocket).Msg("Websocket preview listening")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Websocket preview server error")
			}
		}()
		defer server.Close()
	}

	if strings.HasPrefix(cfg.Listen, "/") {
		port, err := transport.OpenSerial(cfg.Listen, cfg.Baud)
		if err != nil {
			return err
		}
		defer port.Close()
		log.Info().Str("device", cfg.Listen).Int("baud", cfg.Baud).Msg("Simulator reading serial device")
		return serve(ctx, port, cfg.Limits, renderers)
	}

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	log.Info().Str("addr", ln.Addr().String()).Msg("Simulator listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		log.Info().Str("remote", conn.RemoteAddr().String()).Msg("Host connected")
		// Each connection is a fresh boot: the host re-inits its strips
		// when it reconnects.
		err = serve(ctx, conn, cfg.Limits, renderers)
		conn.Close()
		if err != nil {
			log.Warn().Err(err).Msg("Host connection failed")
		}
		if ctx.Err() != nil {
			return nil
		}
		log.Info().Msg("Host disconnected, waiting for next connection")
	}
}

func serve(ctx context.Context, in io.Reader, limits firmware.Limits, out firmware.Renderer) error {
	dev, err := firmware.NewDevice(in, firmware.Config{Limits: limits, Renderer: out})
	if err != nil {
		return err
	}
	dev.HardReset()
	err = dev.Run(ctx)
	stats := dev.Stats()
	log.Info().
		Uint64("frames", stats.Frames).
		Uint64("applied", stats.Applied).
		Uint64("rejected", stats.Rejected).
		Uint64("renders", stats.Renders).
		Uint64("deferred", stats.Deferred).
		Uint64("discarded", stats.Discarded).
		Msg("Device session ended")
	return err
}

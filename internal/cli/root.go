// Package cli implements the huereka command line.
package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/huereka/huereka/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
}

// NewRootCommand creates the root command for the huereka CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "huereka",
		Short: "Schedule driven LED strip automation",
		Long: `Huereka resolves lighting schedules into color profiles and pushes
them to LED strip controllers over serial or TCP.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "config.yaml", "path to configuration file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override log level (debug|info|warn|error)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewSendCommand(opts))
	cmd.AddCommand(NewSimulateCommand(opts))

	return cmd
}

// load reads the configuration and sets up logging. With optional set a
// missing file yields the defaults.
func (o *RootOptions) load(optional bool) (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil && optional && errors.Is(err, fs.ErrNotExist) {
		cfg, err = config.Parse(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration %s: %w", o.ConfigPath, err)
	}

	level := cfg.Log.Level
	if o.LogLevel != "" {
		level = o.LogLevel
	}
	setupLogging(level, cfg.Log.JSON, cfg.Log.Colors)
	return cfg, nil
}

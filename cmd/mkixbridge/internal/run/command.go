// Package run implements the bridge's "run" subcommand: load config,
// start the bridge, and block until interrupted.
package run

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mkixbridge/bridge/pkg/bridge"
	"github.com/mkixbridge/bridge/pkg/config"
	"github.com/mkixbridge/bridge/pkg/logger"
)

// NewRunCommand builds the "run" subcommand.
func NewRunCommand() *cobra.Command {
	var configPath string
	var debug bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the bridge",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runCmd(configPath, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "./config.yaml", "Path to the bridge config file")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}

func runCmd(configPath string, debug bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level := logger.INFO
	if debug {
		level = logger.DEBUG
	} else if parsed, err := logger.ParseLevel(cfg.LogLevel); err == nil {
		level = parsed
	}
	logger.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := bridge.New(cfg)
	if err := b.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("bridge stopped: %w", err)
	}
	return nil
}

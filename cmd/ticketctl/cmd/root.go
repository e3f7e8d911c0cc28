// Package cmd implements the ticketctl operator commands.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ownerdesk/ticket-engine/internal/app"
	"github.com/ownerdesk/ticket-engine/internal/config"
	"github.com/ownerdesk/ticket-engine/internal/observability"
)

var outputJSON bool

var rootCmd = &cobra.Command{
	Use:           "ticketctl",
	Short:         "Operator CLI for the ticket engine",
	Long:          `Run sweeps, inspect work queues and report calibration against the configured store.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Print results as JSON")
}

// withContainer loads configuration from the environment and hands a wired
// container to fn.
func withContainer(ctx context.Context, fn func(*app.Container) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	container, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("build application", zap.Error(err))
		return err
	}
	defer container.Close()
	return fn(container)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

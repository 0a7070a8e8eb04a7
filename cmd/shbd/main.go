// Command shbd is the shellbench daemon: it owns the SQLite store, the
// in-memory update bus, the block store, and every background goroutine a
// client connection needs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shellbench/shellbench/internal/config"
)

// Version is overridden at build time via -ldflags "-X main.Version=...".
var Version = "dev"

var (
	configPath string
	dataDir    string
	logLevel   string
	otelFlag   string

	rootCtx    context.Context
	rootCancel context.CancelFunc
)

var rootCmd = &cobra.Command{
	Use:   "shbd",
	Short: "shbd - shellbench persistence and session daemon",
	Long:  `shbd hosts the shellbench terminal workbench's server-side session, screen, and command state.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to shellbench.toml (default: ./shellbench.toml or ~/.shellbench/shellbench.toml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "override the configured data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&otelFlag, "otel-exporter", "", "override the configured OTel exporter (none, stdout, otlp)")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("shbd: load config: %w", err)
	}
	if err := cfg.BindFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("shbd: bind flags: %w", err)
	}
	return cfg, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the shbd version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("shbd version %s\n", Version)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shellbench/shellbench/internal/daemon"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the shellbench daemon in the foreground",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		daemon.Version = Version
		d, err := daemon.New(rootCtx, cfg)
		if err != nil {
			return fmt.Errorf("shbd: start daemon: %w", err)
		}

		shutdownTimeout, err := cmd.Flags().GetDuration("shutdown-timeout")
		if err != nil {
			return err
		}
		if err := d.Run(rootCtx, shutdownTimeout); err != nil {
			return fmt.Errorf("shbd: daemon exited with error: %w", err)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().Duration("shutdown-timeout", daemon.WaitShutdownTimeout, "how long to wait for background goroutines to drain on shutdown")
	runCmd.Flags().String("nats-url", "", "NATS server URL for the optional JetStream update mirror (disabled when empty)")
	runCmd.Flags().Bool("pty-watch-enabled", true, "watch pty ring files for external deletion/rename")
}

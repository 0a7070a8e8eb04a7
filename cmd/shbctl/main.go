// Command shbctl is the shellbench operator CLI: status, flush, gc, and
// doctor, all working directly against the data directory since the daemon
// exposes no RPC surface of its own yet.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shellbench/shellbench/internal/config"
)

var (
	configPath string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "shbctl",
	Short: "shbctl - operate a shellbench daemon's data directory",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to shellbench.toml")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit machine-readable JSON output")
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(flushCmd)
	rootCmd.AddCommand(gcCmd)
	rootCmd.AddCommand(doctorCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("shbctl: load config: %w", err)
	}
	if err := cfg.BindFlags(rootCmd.PersistentFlags()); err != nil {
		return nil, fmt.Errorf("shbctl: bind flags: %w", err)
	}
	return cfg, nil
}

func dataDirFromConfig() (string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	return cfg.DataDir()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

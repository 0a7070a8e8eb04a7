package daemon

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"

	"github.com/shellbench/shellbench/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}

	dataDir := t.TempDir()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("data_dir", dataDir, "")
	flags.String("otel_exporter", "none", "")
	if err := cfg.BindFlags(flags); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}
	return cfg
}

func TestNewBootstrapsAndCloseReleasesTheLock(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	d, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	dataDir, err := cfg.DataDir()
	if err != nil {
		t.Fatalf("DataDir: %v", err)
	}
	info, err := ReadLockInfo(dataDir)
	if err != nil {
		t.Fatalf("ReadLockInfo: %v", err)
	}
	if info.IsStale() {
		t.Fatalf("lock appears stale right after New")
	}

	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// A second New over the same data dir must succeed now that Close
	// released the instance lock.
	d2, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New after Close: %v", err)
	}
	if err := d2.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadAppliesDefaultsWhenNoFile(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := c.GetString("log_level"); got != "info" {
		t.Fatalf("log_level = %q, want info", got)
	}
	if got := c.GetInt("update_batch_size"); got != 256 {
		t.Fatalf("update_batch_size = %d, want 256", got)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shellbench.toml")
	if err := os.WriteFile(path, []byte("log_level = \"debug\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := c.GetString("log_level"); got != "debug" {
		t.Fatalf("log_level = %q, want debug", got)
	}
}

func TestEnvVarOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shellbench.toml")
	if err := os.WriteFile(path, []byte("log_level = \"debug\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SHB_LOG_LEVEL", "warn")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := c.GetString("log_level"); got != "warn" {
		t.Fatalf("log_level = %q, want warn (env should win over file)", got)
	}
}

func TestBindFlagsOutranksEverything(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shellbench.toml")
	if err := os.WriteFile(path, []byte("log_level = \"debug\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SHB_LOG_LEVEL", "warn")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log_level", "info", "")
	if err := flags.Set("log_level", "error"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	if err := c.BindFlags(flags); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}

	if got := c.GetString("log_level"); got != "error" {
		t.Fatalf("log_level = %q, want error (flag should win)", got)
	}
}

func TestGetDurationParsesTheBuiltInDefault(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := c.GetDuration("flush_interval"); got != 2*time.Second {
		t.Fatalf("flush_interval = %v, want 2s", got)
	}
}

func TestGetDurationParsesAFileOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shellbench.toml")
	if err := os.WriteFile(path, []byte("flush_interval = \"5s\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := c.GetDuration("flush_interval"); got != 5*time.Second {
		t.Fatalf("flush_interval = %v, want 5s", got)
	}
}

func TestDataDirExpandsHome(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir available")
	}
	dir, err := c.DataDir()
	if err != nil {
		t.Fatalf("DataDir: %v", err)
	}
	want := filepath.Join(home, ".shellbench")
	if dir != want {
		t.Fatalf("DataDir() = %q, want %q", dir, want)
	}
}

// Package config is a thin spf13/viper wrapper over shellbench's layered
// configuration: built-in defaults, a shellbench.toml file, SHB_-prefixed
// environment variables, and CLI flags bound in from cmd/shbd and
// cmd/shbctl — in that increasing order of precedence.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "SHB"

// Defaults holds the built-in configuration baseline, decoded from the
// embedded TOML below before any file, env var, or flag override is
// layered on top of it.
type Defaults struct {
	DataDir         string `toml:"data_dir"`
	ListenAddr      string `toml:"listen_addr"`
	FlushInterval   string `toml:"flush_interval"`
	UpdateBatchSize int    `toml:"update_batch_size"`
	LogLevel        string `toml:"log_level"`
	LogPath         string `toml:"log_path"`
	ScreenStateKind string `toml:"screen_state_kind"`
	RedisURL        string `toml:"redis_url"`
	OTelExporter    string `toml:"otel_exporter"`
	NatsURL         string `toml:"nats_url"`
	PtyWatchEnabled bool   `toml:"pty_watch_enabled"`
}

// defaultsTOML is decoded once at package init to seed viper's defaults,
// the same values an operator would find commented out in a fresh
// shellbench.toml.
const defaultsTOML = `
data_dir = "~/.shellbench"
listen_addr = "unix:///tmp/shellbench.sock"
flush_interval = "2s"
update_batch_size = 256
log_level = "info"
log_path = ""
screen_state_kind = "memory"
redis_url = ""
otel_exporter = "none"
nats_url = ""
pty_watch_enabled = true
`

// Config is a loaded, layered configuration view.
type Config struct {
	v *viper.Viper
}

// Load builds a Config from, in increasing precedence: built-in defaults,
// configPath (or ./shellbench.toml / ~/.shellbench/shellbench.toml if
// configPath is empty and one of those exists), SHB_-prefixed environment
// variables, and flags bound via BindFlags.
//
// A missing config file is not an error; missing env vars and flags simply
// leave the lower layer's value in effect.
func Load(configPath string) (*Config, error) {
	var d Defaults
	if _, err := toml.Decode(defaultsTOML, &d); err != nil {
		return nil, fmt.Errorf("config: decode built-in defaults: %w", err)
	}
	flushInterval, err := time.ParseDuration(d.FlushInterval)
	if err != nil {
		return nil, fmt.Errorf("config: parse built-in flush_interval: %w", err)
	}

	v := viper.New()
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("listen_addr", d.ListenAddr)
	v.SetDefault("flush_interval", flushInterval)
	v.SetDefault("update_batch_size", d.UpdateBatchSize)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_path", d.LogPath)
	v.SetDefault("screen_state_kind", d.ScreenStateKind)
	v.SetDefault("redis_url", d.RedisURL)
	v.SetDefault("otel_exporter", d.OTelExporter)
	v.SetDefault("nats_url", d.NatsURL)
	v.SetDefault("pty_watch_enabled", d.PtyWatchEnabled)

	v.SetConfigType("toml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("shellbench")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".shellbench"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: read %s: %w", configPath, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	return &Config{v: v}, nil
}

// BindFlags binds a cobra command's flag set into the config, giving flags
// the highest precedence. Call once per command that exposes config flags.
// Flag names use CLI dash-case (e.g. "data-dir"); this maps each one to its
// snake_case config key ("data_dir") since viper treats the two as distinct
// keys otherwise.
func (c *Config) BindFlags(flags *pflag.FlagSet) error {
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if bindErr != nil {
			return
		}
		key := strings.ReplaceAll(f.Name, "-", "_")
		if err := c.v.BindPFlag(key, f); err != nil {
			bindErr = fmt.Errorf("config: bind flag %s: %w", f.Name, err)
		}
	})
	return bindErr
}

func (c *Config) GetString(key string) string         { return c.v.GetString(key) }
func (c *Config) GetBool(key string) bool              { return c.v.GetBool(key) }
func (c *Config) GetInt(key string) int                { return c.v.GetInt(key) }
func (c *Config) GetDuration(key string) time.Duration { return c.v.GetDuration(key) }

// DataDir resolves the configured data directory, expanding a leading ~.
func (c *Config) DataDir() (string, error) {
	dir := c.GetString("data_dir")
	if dir == "~" || len(dir) >= 2 && dir[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("config: resolve home dir: %w", err)
		}
		if dir == "~" {
			return home, nil
		}
		return filepath.Join(home, dir[2:]), nil
	}
	return dir, nil
}

// Dump renders the effective configuration as TOML, for debugging which
// layer won a given key.
func (c *Config) Dump() (string, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	settings := c.v.AllSettings()
	if err := enc.Encode(settings); err != nil {
		return "", fmt.Errorf("config: encode dump: %w", err)
	}
	return buf.String(), nil
}

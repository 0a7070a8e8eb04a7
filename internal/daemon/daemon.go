// Package daemon assembles the long-running shellbench server process:
// schema migration, the single-instance lock, background flush/drain
// goroutines, and a signal-aware shutdown sequence.
package daemon

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"

	"github.com/shellbench/shellbench/internal/blockstore"
	"github.com/shellbench/shellbench/internal/config"
	"github.com/shellbench/shellbench/internal/ptyfile"
	"github.com/shellbench/shellbench/internal/screenstate"
	"github.com/shellbench/shellbench/internal/shellstate"
	"github.com/shellbench/shellbench/internal/store"
	"github.com/shellbench/shellbench/internal/telemetry"
	"github.com/shellbench/shellbench/internal/types"
	"github.com/shellbench/shellbench/internal/updatebus"
	"github.com/shellbench/shellbench/internal/workspace"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// Daemon holds every long-lived subsystem the running server wires
// together: storage, the in-memory update bus, the persistent update-log
// writer, per-screen transient state, and the on-disk file blockstore.
type Daemon struct {
	cfg *config.Config
	log *slog.Logger

	Store       *store.Store
	Workspace   *workspace.Workspace
	Blockstore  *blockstore.Blockstore
	Files       *shellstate.Repository
	PtyFiles    *ptyfile.Store
	Bus         *updatebus.Bus
	UpdateWrite *updatebus.UpdateWriter
	ScreenState screenstate.Store

	ptyWatcher *ptyfile.Watcher
	natsConn   *nats.Conn
	lock       io.Closer
	logCloser  io.Closer
	otelStop   telemetry.Shutdown
	dataDir    string
}

// New loads configuration, migrates the database, acquires the
// single-instance lock, and wires every subsystem together without yet
// starting any background goroutines. Call Run to bring it up.
func New(ctx context.Context, cfg *config.Config) (*Daemon, error) {
	dataDir, err := cfg.DataDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("daemon: create data dir: %w", err)
	}

	lock, err := acquireInstanceLock(dataDir, Version)
	if err != nil {
		return nil, fmt.Errorf("daemon: acquire instance lock: %w", err)
	}

	logPath := cfg.GetString("log_path")
	logger, logCloser := NewLogger(logPath, cfg.GetString("log_level"))

	exporter := telemetry.Exporter(cfg.GetString("otel_exporter"))
	otelStop, err := telemetry.Init(ctx, exporter, Version)
	if err != nil {
		_ = lock.Close()
		_ = logCloser.Close()
		return nil, fmt.Errorf("daemon: init telemetry: %w", err)
	}

	s, err := store.New(ctx, store.Config{DBPath: dataDir + "/shellbench.db"})
	if err != nil {
		_ = lock.Close()
		_ = logCloser.Close()
		_ = otelStop(ctx)
		return nil, fmt.Errorf("daemon: open store: %w", err)
	}

	bus := updatebus.New()
	bus.SetLogger(logger)

	var natsConn *nats.Conn
	if natsURL := cfg.GetString("nats_url"); natsURL != "" {
		nc, js, jsErr := updatebus.ConnectJetStream(natsURL)
		if jsErr != nil {
			logger.Warn("jetstream update mirror unavailable, continuing without it", "error", jsErr)
		} else {
			natsConn = nc
			bus.SetJetStream(js)
		}
	}

	var screenState screenstate.Store
	if redisURL := cfg.GetString("redis_url"); redisURL != "" && cfg.GetString("screen_state_kind") == "redis" {
		screenState, err = screenstate.NewRedisStore(redisURL)
		if err != nil {
			logger.Warn("redis screen state unavailable, falling back to in-memory", "error", err)
			screenState = screenstate.NewMemoryStore()
		}
	} else {
		screenState = screenstate.NewMemoryStore()
	}

	ptyFiles := ptyfile.New(dataDir)
	var ptyWatcher *ptyfile.Watcher
	if cfg.GetBool("pty_watch_enabled") {
		ptyWatcher, err = ptyfile.NewWatcher(ptyFiles, logger)
		if err != nil {
			logger.Warn("pty file watcher unavailable, continuing without it", "error", err)
			ptyWatcher = nil
		}
	}

	ws := workspace.New(s, ptyFiles, screenState)
	ptyFiles.IsWebShared = ws.IsScreenWebShared
	ptyFiles.OnAppend = func(screenId types.ScreenId, lineId types.LineId, realOffset int64, data []byte) {
		var pkt types.UpdatePacket
		pkt.AddUpdate(types.PtyDataUpdate{ScreenId: screenId, LineId: lineId, PtyPos: realOffset, Data: data, DataLength: int64(len(data))})
		bus.Publish(pkt)
		if err := updatebus.UpsertWebPtyPos(ctx, s, screenId, lineId, realOffset); err != nil {
			logger.Warn("record pty:pos update", "screenid", screenId, "lineid", lineId, "error", err)
		}
	}
	if err := ensureBootstrapped(ctx, s, ws); err != nil {
		if ptyWatcher != nil {
			_ = ptyWatcher.Close()
		}
		if natsConn != nil {
			natsConn.Close()
		}
		_ = screenState.Close()
		_ = s.Close()
		_ = lock.Close()
		_ = logCloser.Close()
		_ = otelStop(ctx)
		return nil, err
	}

	updateWriter := updatebus.NewUpdateWriter(s, cfg.GetInt("update_batch_size"))
	ws.SetUpdateNotifier(updateWriter.NotifyUpdateWriter)

	d := &Daemon{
		cfg:         cfg,
		log:         logger,
		Store:       s,
		Workspace:   ws,
		Blockstore:  blockstore.New(s),
		Files:       shellstate.New(s),
		PtyFiles:    ptyFiles,
		Bus:         bus,
		UpdateWrite: updateWriter,
		ScreenState: screenState,
		ptyWatcher:  ptyWatcher,
		natsConn:    natsConn,
		lock:        lock,
		logCloser:   logCloser,
		otelStop:    otelStop,
		dataDir:     dataDir,
	}
	return d, nil
}

// Run starts background goroutines (flush ticker, update writer) and blocks
// until the context is canceled or a termination signal arrives, then stops
// the update writer and flush ticker and calls Close. shutdownTimeout bounds how
// long the drain-and-close sequence is given before Run gives up and
// returns anyway, leaving the caller to decide whether to force-exit.
func (d *Daemon) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	d.Blockstore.StartFlushTicker(d.cfg.GetDuration("flush_interval"))
	d.UpdateWrite.Start(d.Bus.WebDispatch())

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gCtx.Done()
		return nil
	})
	if d.ptyWatcher != nil {
		g.Go(func() error {
			watchDone := make(chan struct{})
			go func() {
				d.ptyWatcher.Start()
				close(watchDone)
			}()
			select {
			case <-gCtx.Done():
			case <-watchDone:
			}
			return nil
		})
	}

	d.log.Info("daemon started", "data_dir", d.dataDir, "version", Version)
	err := g.Wait()

	d.log.Info("daemon shutting down")
	shutdownDone := make(chan error, 1)
	go func() {
		d.UpdateWrite.Stop()
		d.Blockstore.StopFlushTicker()
		shutdownDone <- d.Close()
	}()

	select {
	case closeErr := <-shutdownDone:
		if err == nil {
			err = closeErr
		}
	case <-time.After(shutdownTimeout):
		d.log.Warn("shutdown timed out, exiting without a clean drain", "timeout", shutdownTimeout)
	}
	return err
}

// Close releases every resource Run's background goroutines depend on: the
// pty watcher, NATS connection and screen state first, then the store, the
// instance lock, the log writer and telemetry. Safe to call after Run returns, or directly
// in tests that never call Run.
func (d *Daemon) Close() error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if d.ptyWatcher != nil {
		record(d.ptyWatcher.Close())
	}
	if d.natsConn != nil {
		d.natsConn.Close()
	}
	record(d.ScreenState.Close())
	record(d.Store.Close())
	record(d.lock.Close())
	record(d.logCloser.Close())
	record(d.otelStop(context.Background()))
	return firstErr
}

// WaitShutdownTimeout bounds how long Close is given to finish draining
// before the process gives up and exits anyway.
const WaitShutdownTimeout = 5 * time.Second

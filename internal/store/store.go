// Package store implements the relational store: SQL schema and migrations,
// traced exec/query helpers with busy retry, and the single-writer
// transaction wrapper every other subsystem builds its persistence on.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Store wraps a single SQLite connection pool and serializes writer
// transactions through writeMu. The pool holds one connection, so reads and
// writes share it and run one at a time; writes never overlap, matching the
// "single pooled connection, one writer"
// contract every mutator in internal/workspace depends on.
type Store struct {
	db       *sql.DB
	path     string
	readOnly bool
	closed   atomic.Bool
	writeMu  sync.Mutex
}

// New opens (and, unless cfg.ReadOnly, migrates) the SQLite store at
// cfg.DBPath.
func New(ctx context.Context, cfg Config) (*Store, error) {
	applyConfigDefaults(&cfg)
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("store: DBPath is required")
	}

	db, err := sql.Open("sqlite3", sqliteConnString(cfg.DBPath, cfg.ReadOnly, cfg.BusyTimeout))
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", cfg.DBPath, err)
	}
	// The store is logically single-writer; the pool only ever needs one
	// connection open against it so WAL readers and the writer transaction
	// share consistent pragma state.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, wrapLockError(fmt.Errorf("store: ping %s: %w", cfg.DBPath, err))
	}

	s := &Store{db: db, path: cfg.DBPath, readOnly: cfg.ReadOnly}

	if !cfg.ReadOnly {
		if err := s.migrate(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: migrate %s: %w", cfg.DBPath, err)
		}
	}

	return s, nil
}

// Path returns the SQLite database file path this store was opened against.
func (s *Store) Path() string {
	return s.path
}

// UnderlyingDB exposes the raw *sql.DB for tools (shbctl doctor) that need to
// run ad-hoc diagnostic queries outside the mutator/tx API.
func (s *Store) UnderlyingDB() *sql.DB {
	return s.db
}

// Close closes the underlying connection. Safe to call more than once.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.db.Close()
}

package store

import (
	"context"
	"database/sql"
	"fmt"
)

// TxFunc is the body of a WithTx call. It receives the transaction's
// *sql.Tx and passes it to the Store's TxExec/TxQuery/TxQueryRow methods,
// which run statements on it with the same tracing and busy retry as the
// non-transactional Exec/Query/QueryRow.
type TxFunc func(ctx context.Context, tx *sql.Tx) error

// WithTx runs fn inside a transaction against the store's single connection.
// writeMu is held for the duration of the call so at most one writer
// transaction is active at a time; fn's first non-nil error aborts and rolls
// back the transaction, otherwise it is committed.
func (s *Store) WithTx(ctx context.Context, fn TxFunc) error {
	_, err := WithTxRtn(ctx, s, func(ctx context.Context, tx *sql.Tx) (struct{}, error) {
		return struct{}{}, fn(ctx, tx)
	})
	return err
}

// WithTxRtn runs fn inside a transaction and returns its typed result
// alongside the commit/rollback error. It is the generic counterpart of
// WithTx for mutators that need to hand back a value assembled while the
// transaction is open (e.g. an UpdatePacket or a newly inserted row).
func WithTxRtn[T any](ctx context.Context, s *Store, fn func(ctx context.Context, tx *sql.Tx) (T, error)) (T, error) {
	var zero T
	if s.closed.Load() {
		return zero, fmt.Errorf("store: closed")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var tx *sql.Tx
	err := s.withRetry(ctx, func() error {
		var beginErr error
		tx, beginErr = s.db.BeginTx(ctx, nil)
		return beginErr
	})
	if err != nil {
		return zero, wrapLockError(err)
	}

	result, fnErr := fn(ctx, tx)
	if fnErr != nil {
		_ = tx.Rollback()
		return zero, fnErr
	}

	if err := tx.Commit(); err != nil {
		return zero, wrapLockError(fmt.Errorf("store: commit: %w", err))
	}
	return result, nil
}

// Exec runs a statement against the store's connection outside any
// transaction (for reads-adjacent housekeeping, migrations, and tests).
func (s *Store) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.execContext(ctx, s.db, query, args...)
}

// Query runs a query against the store's connection.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.queryContext(ctx, s.db, query, args...)
}

// QueryRow runs a single-row query against the store's connection.
func (s *Store) QueryRow(ctx context.Context, scan func(*sql.Row) error, query string, args ...any) error {
	return s.queryRowContext(ctx, s.db, scan, query, args...)
}

// TxExec runs a statement against an in-flight transaction, with the same
// tracing/retry wrapping as Exec.
func (s *Store) TxExec(ctx context.Context, tx *sql.Tx, query string, args ...any) (sql.Result, error) {
	return s.execContext(ctx, tx, query, args...)
}

// TxQuery runs a query against an in-flight transaction.
func (s *Store) TxQuery(ctx context.Context, tx *sql.Tx, query string, args ...any) (*sql.Rows, error) {
	return s.queryContext(ctx, tx, query, args...)
}

// TxQueryRow runs a single-row query against an in-flight transaction.
func (s *Store) TxQueryRow(ctx context.Context, tx *sql.Tx, scan func(*sql.Row) error, query string, args ...any) error {
	return s.queryRowContext(ctx, tx, scan, query, args...)
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// storeTracer is the OTel tracer for SQL-level spans. It uses the global
// provider, which is a no-op until internal/telemetry.Init runs, so every
// exec/query call is instrumented for free once the daemon wires telemetry.
var storeTracer = otel.Tracer("github.com/shellbench/shellbench/store")

// storeMetrics holds OTel metric instruments for the relational store.
// Instruments are registered against the global delegating provider at init
// time, so they forward automatically once telemetry.Init runs.
var storeMetrics struct {
	retryCount metric.Int64Counter
	busyWaitMs metric.Float64Histogram
}

func init() {
	m := otel.Meter("github.com/shellbench/shellbench/store")
	storeMetrics.retryCount, _ = m.Int64Counter("shb.store.retry_count",
		metric.WithDescription("SQL operations retried due to a transient SQLITE_BUSY"),
		metric.WithUnit("{retry}"),
	)
	storeMetrics.busyWaitMs, _ = m.Float64Histogram("shb.store.busy_wait_ms",
		metric.WithDescription("Time spent retrying a busy SQLite write"),
		metric.WithUnit("ms"),
	)
}

// retryMaxElapsed bounds how long withRetry backs off before giving up and
// surfacing the error to the caller.
const retryMaxElapsed = 10 * time.Second

func newRetryBackoff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = retryMaxElapsed
	bo.InitialInterval = 10 * time.Millisecond
	return bo
}

// isRetryableError reports whether err is a transient SQLite contention
// error worth retrying rather than surfacing immediately. Single-writer
// discipline means these should be rare and short-lived.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "database is locked") ||
		strings.Contains(s, "sqlite_busy") ||
		strings.Contains(s, "database is busy")
}

// isLockError reports whether err indicates the on-disk SQLite file itself
// could not be opened due to another process's stale lock (distinct from
// the transient busy errors withRetry absorbs).
func isLockError(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unable to open database file") ||
		strings.Contains(s, "disk i/o error")
}

// wrapLockError annotates lock-related errors with actionable guidance.
// Non-lock errors and nil pass through unchanged.
func wrapLockError(err error) error {
	if !isLockError(err) {
		return err
	}
	return fmt.Errorf("%w\n\nthe database file could not be opened; check that no stale daemon "+
		"process still holds its lock and that the data directory is writable", err)
}

// withRetry executes op, retrying on isRetryableError with exponential
// backoff up to retryMaxElapsed. Non-retryable errors and context
// cancellation stop immediately.
func (s *Store) withRetry(ctx context.Context, op func() error) error {
	attempts := 0
	start := time.Now()
	bo := newRetryBackoff()
	err := backoff.Retry(func() error {
		attempts++
		err := op()
		if err != nil && isRetryableError(err) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, backoff.WithContext(bo, ctx))
	if attempts > 1 {
		storeMetrics.retryCount.Add(ctx, int64(attempts-1))
		storeMetrics.busyWaitMs.Record(ctx, float64(time.Since(start).Milliseconds()))
	}
	return err
}

func (s *Store) spanAttrs() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("db.system", "sqlite"),
		attribute.Bool("db.readonly", s.readOnly),
	}
}

func spanSQL(q string) string {
	if len(q) > 300 {
		return q[:300] + "…"
	}
	return q
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// execContext wraps conn.ExecContext with tracing and busy retry. conn is
// either s.db or the *sql.Tx of an in-flight WithTx call.
func (s *Store) execContext(ctx context.Context, conn execer, query string, args ...any) (sql.Result, error) {
	ctx, span := storeTracer.Start(ctx, "store.exec",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(s.spanAttrs(),
			attribute.String("db.operation", "exec"),
			attribute.String("db.statement", spanSQL(query)),
		)...),
	)
	var result sql.Result
	err := s.withRetry(ctx, func() error {
		var execErr error
		result, execErr = conn.ExecContext(ctx, query, args...)
		return execErr
	})
	finalErr := wrapLockError(err)
	endSpan(span, finalErr)
	return result, finalErr
}

// queryContext wraps conn.QueryContext with tracing and busy retry.
func (s *Store) queryContext(ctx context.Context, conn querier, query string, args ...any) (*sql.Rows, error) {
	ctx, span := storeTracer.Start(ctx, "store.query",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(s.spanAttrs(),
			attribute.String("db.operation", "query"),
			attribute.String("db.statement", spanSQL(query)),
		)...),
	)
	var rows *sql.Rows
	err := s.withRetry(ctx, func() error {
		var queryErr error
		rows, queryErr = conn.QueryContext(ctx, query, args...)
		return queryErr
	})
	finalErr := wrapLockError(err)
	endSpan(span, finalErr)
	return rows, finalErr
}

// queryRowContext wraps conn.QueryRowContext with tracing and busy retry.
// scan is called with the resulting *sql.Row and should call Scan on it;
// sql.ErrNoRows from scan is treated as a normal (non-retryable) result.
func (s *Store) queryRowContext(ctx context.Context, conn querier, scan func(*sql.Row) error, query string, args ...any) error {
	ctx, span := storeTracer.Start(ctx, "store.query_row",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(s.spanAttrs(),
			attribute.String("db.operation", "query_row"),
			attribute.String("db.statement", spanSQL(query)),
		)...),
	)
	finalErr := wrapLockError(s.withRetry(ctx, func() error {
		row := conn.QueryRowContext(ctx, query, args...)
		return scan(row)
	}))
	endSpan(span, finalErr)
	return finalErr
}

// execer and querier abstract over *sql.DB and *sql.Tx so exec/query helpers
// work identically inside and outside a WithTx call.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

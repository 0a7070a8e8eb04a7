package daemon

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/shellbench/shellbench/internal/ptyfile"
	"github.com/shellbench/shellbench/internal/screenstate"
	"github.com/shellbench/shellbench/internal/store"
	"github.com/shellbench/shellbench/internal/workspace"
)

func TestEnsureBootstrappedCreatesLocalRemoteClientAndSession(t *testing.T) {
	ctx := context.Background()
	s, err := store.New(ctx, store.Config{DBPath: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	defer s.Close()

	ws := workspace.New(s, ptyfile.New(t.TempDir()), screenstate.NewMemoryStore())
	if err := ensureBootstrapped(ctx, s, ws); err != nil {
		t.Fatalf("ensureBootstrapped: %v", err)
	}

	var remoteCount, clientCount, sessionCount int
	if err := s.QueryRow(ctx, func(row *sql.Row) error { return row.Scan(&remoteCount) },
		"SELECT count(*) FROM remote WHERE remotetype = 'local'"); err != nil {
		t.Fatalf("count remotes: %v", err)
	}
	if err := s.QueryRow(ctx, func(row *sql.Row) error { return row.Scan(&clientCount) },
		"SELECT count(*) FROM client"); err != nil {
		t.Fatalf("count clients: %v", err)
	}
	if err := s.QueryRow(ctx, func(row *sql.Row) error { return row.Scan(&sessionCount) },
		"SELECT count(*) FROM session"); err != nil {
		t.Fatalf("count sessions: %v", err)
	}

	if remoteCount != 1 || clientCount != 1 || sessionCount != 1 {
		t.Fatalf("counts = remote=%d client=%d session=%d, want 1/1/1", remoteCount, clientCount, sessionCount)
	}

	// Calling it again must not create duplicates.
	if err := ensureBootstrapped(ctx, s, ws); err != nil {
		t.Fatalf("ensureBootstrapped (second call): %v", err)
	}
	if err := s.QueryRow(ctx, func(row *sql.Row) error { return row.Scan(&sessionCount) },
		"SELECT count(*) FROM session"); err != nil {
		t.Fatalf("count sessions after second call: %v", err)
	}
	if sessionCount != 1 {
		t.Fatalf("sessionCount after second call = %d, want 1 (no duplicate bootstrap)", sessionCount)
	}
}

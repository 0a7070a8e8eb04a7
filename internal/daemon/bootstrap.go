package daemon

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/shellbench/shellbench/internal/store"
	"github.com/shellbench/shellbench/internal/workspace"
)

// ensureBootstrapped guarantees a fresh data directory has a local remote, a
// singleton client row, and at least one session/screen to attach to, the
// same invariant acquireInstanceLock's caller relies on before accepting
// terminal connections.
func ensureBootstrapped(ctx context.Context, s *store.Store, ws *workspace.Workspace) error {
	var remoteCount int
	if err := s.QueryRow(ctx, func(row *sql.Row) error {
		return row.Scan(&remoteCount)
	}, "SELECT count(*) FROM remote WHERE remotetype = 'local'"); err != nil {
		return fmt.Errorf("daemon: count local remotes: %w", err)
	}
	if remoteCount == 0 {
		if _, err := s.Exec(ctx,
			`INSERT INTO remote (remoteid, remotetype, remotecanonicalname, connectmode, remoteidx, local, shellpref, sshconfigsrc)
			 VALUES (?, 'local', 'local', 'startup', 1, true, 'detect', 'manual')`,
			uuid.NewString()); err != nil {
			return fmt.Errorf("daemon: insert local remote: %w", err)
		}
	}

	var clientCount int
	if err := s.QueryRow(ctx, func(row *sql.Row) error {
		return row.Scan(&clientCount)
	}, "SELECT count(*) FROM client"); err != nil {
		return fmt.Errorf("daemon: count clients: %w", err)
	}
	if clientCount == 0 {
		if _, err := s.Exec(ctx, "INSERT INTO client (clientid, userid) VALUES (?, ?)",
			uuid.NewString(), uuid.NewString()); err != nil {
			return fmt.Errorf("daemon: insert client: %w", err)
		}
	}

	var sessionCount int
	if err := s.QueryRow(ctx, func(row *sql.Row) error {
		return row.Scan(&sessionCount)
	}, "SELECT count(*) FROM session"); err != nil {
		return fmt.Errorf("daemon: count sessions: %w", err)
	}
	if sessionCount == 0 {
		if _, _, err := ws.InsertSessionWithName(ctx, "default", true); err != nil {
			return fmt.Errorf("daemon: insert initial session: %w", err)
		}
	}
	return nil
}

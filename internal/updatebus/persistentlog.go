package updatebus

import (
	"context"
	"database/sql"

	"github.com/shellbench/shellbench/internal/store"
	"github.com/shellbench/shellbench/internal/types"
)

// RecordScreenUpdate appends one row to the persisted screenupdate log for a
// web-shared screen, applying the coalescing rule: a line:new or line:del
// insert first deletes any existing row for the same (screenid, lineid), so
// a reconnecting viewer only ever sees the latest state of a line. A
// line:new insert also upserts the line's webptypos row to 0 and appends a
// paired pty:pos row, matching the wire contract that line:new always
// arrives with an initial position.
func RecordScreenUpdate(ctx context.Context, s *store.Store, updateType types.ScreenUpdateType, screenId types.ScreenId, lineId types.LineId) error {
	return s.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return RecordScreenUpdateTx(ctx, s, tx, updateType, screenId, lineId)
	})
}

// RecordScreenUpdateTx is RecordScreenUpdate's tx-scoped variant, for callers
// (e.g. internal/workspace mutators) that already hold an open transaction
// and must not re-enter store.WithTx/WithTxRtn's non-reentrant write lock.
func RecordScreenUpdateTx(ctx context.Context, s *store.Store, tx *sql.Tx, updateType types.ScreenUpdateType, screenId types.ScreenId, lineId types.LineId) error {
	if updateType.ShouldCoalesce() {
		if _, err := s.TxExec(ctx, tx, "DELETE FROM screenupdate WHERE screenid = ? AND lineid = ?", screenId, lineId); err != nil {
			return err
		}
	}

	row := types.ScreenUpdateRow{ScreenId: screenId, LineId: lineId, UpdateType: updateType, UpdateTs: types.NowMillis()}
	m := row.ToMap()
	if _, err := s.TxExec(ctx, tx, "INSERT INTO screenupdate (screenid, lineid, updatetype, updatets) VALUES (?, ?, ?, ?)",
		m["screenid"], m["lineid"], m["updatetype"], m["updatets"]); err != nil {
		return err
	}

	if updateType != types.SULineNew {
		return nil
	}
	if _, err := s.TxExec(ctx, tx,
		`INSERT INTO webptypos (screenid, lineid, ptypos) VALUES (?, ?, 0)
		 ON CONFLICT(screenid, lineid) DO UPDATE SET ptypos = 0`, screenId, lineId); err != nil {
		return err
	}
	posRow := types.ScreenUpdateRow{ScreenId: screenId, LineId: lineId, UpdateType: types.SUPtyPos, UpdateTs: types.NowMillis()}
	pm := posRow.ToMap()
	_, err := s.TxExec(ctx, tx, "INSERT INTO screenupdate (screenid, lineid, updatetype, updatets) VALUES (?, ?, ?, ?)",
		pm["screenid"], pm["lineid"], pm["updatetype"], pm["updatets"])
	return err
}

// UpsertWebPtyPos records the latest announced pty byte position for a
// web-shared (screen, line) and appends the matching pty:pos log row.
func UpsertWebPtyPos(ctx context.Context, s *store.Store, screenId types.ScreenId, lineId types.LineId, pos int64) error {
	return s.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := s.TxExec(ctx, tx,
			`INSERT INTO webptypos (screenid, lineid, ptypos) VALUES (?, ?, ?)
			 ON CONFLICT(screenid, lineid) DO UPDATE SET ptypos = excluded.ptypos`, screenId, lineId, pos); err != nil {
			return err
		}
		return RecordScreenUpdateTx(ctx, s, tx, types.SUPtyPos, screenId, lineId)
	})
}

// CountScreenUpdates reports how many rows are waiting in the persisted log,
// the condition the UpdateWriter wakes on.
func CountScreenUpdates(ctx context.Context, s *store.Store) (int, error) {
	var count int
	err := s.QueryRow(ctx, func(row *sql.Row) error {
		return row.Scan(&count)
	}, "SELECT COUNT(*) FROM screenupdate")
	return count, err
}

// GetScreenUpdates reads up to max rows from the persisted log, ordered by
// insertion, for the UpdateWriter to dispatch. It does not remove them;
// DeleteScreenUpdates does.
func GetScreenUpdates(ctx context.Context, s *store.Store, max int) ([]types.ScreenUpdateRow, error) {
	rows, err := s.Query(ctx, "SELECT updateid, screenid, lineid, updatetype, updatets FROM screenupdate ORDER BY updateid LIMIT ?", max)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.ScreenUpdateRow
	for rows.Next() {
		var updateid, updatets int64
		var screenid, lineid, updatetype string
		if err := rows.Scan(&updateid, &screenid, &lineid, &updatetype, &updatets); err != nil {
			return nil, err
		}
		var row types.ScreenUpdateRow
		row.FromMap(map[string]any{
			"updateid": updateid, "screenid": screenid, "lineid": lineid,
			"updatetype": updatetype, "updatets": updatets,
		})
		out = append(out, row)
	}
	return out, rows.Err()
}

// DeleteScreenUpdates removes rows by id once the UpdateWriter has
// successfully dispatched them.
func DeleteScreenUpdates(ctx context.Context, s *store.Store, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return s.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		for _, id := range ids {
			if _, err := s.TxExec(ctx, tx, "DELETE FROM screenupdate WHERE updateid = ?", id); err != nil {
				return err
			}
		}
		return nil
	})
}

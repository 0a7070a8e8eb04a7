package workspace

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/shellbench/shellbench/internal/store"
	"github.com/shellbench/shellbench/internal/types"
)

// screenResult bundles InsertScreen's two return values so it can flow
// through store.WithTxRtn's single type parameter.
type screenResult struct {
	Screen types.Screen
	Pkt    types.UpdatePacket
}

// InsertScreen creates a screen in sessionId. If baseScreenId is non-empty,
// the new screen copies its CurRemote; no other field of the base screen is
// copied, and no cwd or environment state is carried over.
func (w *Workspace) InsertScreen(ctx context.Context, sessionId types.SessionId, name string, opts types.ScreenOpts, baseScreenId types.ScreenId, activate bool) (types.Screen, types.UpdatePacket, error) {
	res, err := store.WithTxRtn(ctx, w.store, func(ctx context.Context, tx *sql.Tx) (screenResult, error) {
		var pkt types.UpdatePacket

		session, err := w.loadSessionTx(ctx, tx, sessionId)
		if err != nil {
			return screenResult{}, err
		}
		if session.Archived {
			return screenResult{}, ErrSessionArchived
		}

		var localRemoteCount int
		if err := w.store.TxQueryRow(ctx, tx, func(row *sql.Row) error {
			return row.Scan(&localRemoteCount)
		}, "SELECT COUNT(*) FROM remote WHERE remotetype = 'local'"); err != nil {
			return screenResult{}, err
		}
		if localRemoteCount == 0 {
			return screenResult{}, ErrNoLocalRemote
		}

		var maxIdx sql.NullInt64
		if err := w.store.TxQueryRow(ctx, tx, func(row *sql.Row) error {
			return row.Scan(&maxIdx)
		}, "SELECT MAX(screenidx) FROM screen WHERE sessionid = ?", sessionId); err != nil {
			return screenResult{}, err
		}
		idx := int(maxIdx.Int64) + 1

		if name == "" {
			uniqued, err := fmtUniqueName(ctx, tx, w.store, "screen", "s%d", idx)
			if err != nil {
				return screenResult{}, err
			}
			name = uniqued
		}

		screen := types.Screen{
			Id:          uuid.NewString(),
			SessionId:   sessionId,
			Name:        name,
			ScreenIdx:   idx,
			ScreenOpts:  opts,
			NextLineNum: 1,
			FocusType:   types.FocusInput,
		}

		if baseScreenId != "" {
			base, err := w.loadScreenTx(ctx, tx, baseScreenId)
			if err != nil {
				return screenResult{}, err
			}
			screen.CurRemote = base.CurRemote
		}

		if err := w.insertScreenTx(ctx, tx, screen); err != nil {
			return screenResult{}, err
		}
		pkt.AddUpdate(types.ScreenUpdate{Screen: screen})

		if activate {
			session.ActiveScreenId = screen.Id
			if err := w.saveSessionTx(ctx, tx, session); err != nil {
				return screenResult{}, err
			}
			pkt.AddUpdate(types.SessionUpdate{Session: session})
		}

		return screenResult{Screen: screen, Pkt: pkt}, nil
	})
	return res.Screen, res.Pkt, err
}

// ArchiveScreen archives screenId, refusing if it is web-shared or the last
// non-archived screen in its session. If it was the active screen, the next
// non-archived screen by index ordering becomes active, or the closest lower
// one when the archived screen had the highest index.
func (w *Workspace) ArchiveScreen(ctx context.Context, screenId types.ScreenId) (types.UpdatePacket, error) {
	return store.WithTxRtn(ctx, w.store, func(ctx context.Context, tx *sql.Tx) (types.UpdatePacket, error) {
		var pkt types.UpdatePacket

		screen, err := w.loadScreenTx(ctx, tx, screenId)
		if err != nil {
			return pkt, err
		}
		if screen.IsWebShared() {
			return pkt, ErrScreenWebShared
		}

		var nonArchivedCount int
		if err := w.store.TxQueryRow(ctx, tx, func(row *sql.Row) error {
			return row.Scan(&nonArchivedCount)
		}, "SELECT COUNT(*) FROM screen WHERE sessionid = ? AND archived = 0", screen.SessionId); err != nil {
			return pkt, err
		}
		if nonArchivedCount <= 1 {
			return pkt, ErrLastScreen
		}

		screen.Archived = true
		screen.ArchivedTs = types.NowMillis()
		if err := w.saveScreenTx(ctx, tx, screen); err != nil {
			return pkt, err
		}
		pkt.AddUpdate(types.ScreenUpdate{Screen: screen})

		session, err := w.loadSessionTx(ctx, tx, screen.SessionId)
		if err != nil {
			return pkt, err
		}
		if session.ActiveScreenId != screenId {
			return pkt, nil
		}

		var nextId types.ScreenId
		err = w.store.TxQueryRow(ctx, tx, func(row *sql.Row) error {
			return row.Scan(&nextId)
		}, "SELECT screenid FROM screen WHERE sessionid = ? AND archived = 0 AND screenidx > ? ORDER BY screenidx LIMIT 1", screen.SessionId, screen.ScreenIdx)
		if err == sql.ErrNoRows {
			err = w.store.TxQueryRow(ctx, tx, func(row *sql.Row) error {
				return row.Scan(&nextId)
			}, "SELECT screenid FROM screen WHERE sessionid = ? AND archived = 0 ORDER BY screenidx DESC LIMIT 1", screen.SessionId)
		}
		if err != nil && err != sql.ErrNoRows {
			return pkt, err
		}
		session.ActiveScreenId = nextId
		if err := w.saveSessionTx(ctx, tx, session); err != nil {
			return pkt, err
		}
		pkt.AddUpdate(types.SessionUpdate{Session: session})
		return pkt, nil
	})
}

// DeleteScreen cascade-deletes a screen's lines, cmds, and history
// references, inserts a screen tombstone, and removes the screen's on-disk
// pty directory once the row deletes commit.
func (w *Workspace) DeleteScreen(ctx context.Context, screenId types.ScreenId, sessionDel bool) (types.UpdatePacket, error) {
	pkt, err := store.WithTxRtn(ctx, w.store, func(ctx context.Context, tx *sql.Tx) (types.UpdatePacket, error) {
		return w.deleteScreenTx(ctx, tx, screenId, sessionDel)
	})
	if err != nil {
		return pkt, err
	}
	if w.ptyFiles != nil {
		if rmErr := w.ptyFiles.RemoveScreenDir(screenId); rmErr != nil {
			return pkt, fmt.Errorf("workspace: remove screen pty dir: %w", rmErr)
		}
	}
	return pkt, nil
}

func (w *Workspace) deleteScreenTx(ctx context.Context, tx *sql.Tx, screenId types.ScreenId, sessionDel bool) (types.UpdatePacket, error) {
	var pkt types.UpdatePacket

	screen, err := w.loadScreenTx(ctx, tx, screenId)
	if err != nil {
		return pkt, err
	}

	if _, err := w.store.TxExec(ctx, tx, "UPDATE history SET lineid = '' WHERE screenid = ?", screenId); err != nil {
		return pkt, err
	}
	if _, err := w.store.TxExec(ctx, tx, "DELETE FROM cmd WHERE screenid = ?", screenId); err != nil {
		return pkt, err
	}
	if _, err := w.store.TxExec(ctx, tx, "DELETE FROM line WHERE screenid = ?", screenId); err != nil {
		return pkt, err
	}
	if _, err := w.store.TxExec(ctx, tx, "DELETE FROM screen WHERE screenid = ?", screenId); err != nil {
		return pkt, err
	}

	tombstone := types.ScreenTombstone{ScreenId: screenId, SessionId: screen.SessionId, Name: screen.Name, DeletedTs: types.NowMillis(), ScreenOpts: screen.ScreenOpts}
	tm := tombstone.ToMap()
	if _, err := w.store.TxExec(ctx, tx, "INSERT INTO screen_tombstone (screenid, sessionid, name, deletedts, screenopts) VALUES (?, ?, ?, ?, ?)",
		tm["screenid"], tm["sessionid"], tm["name"], tm["deletedts"], tm["screenopts"]); err != nil {
		return pkt, err
	}
	pkt.AddUpdate(types.ScreenTombstoneUpdate{ScreenTombstone: tombstone})

	if !sessionDel {
		pkt.AddUpdate(types.ScreenUpdate{Screen: screen, Remove: true})
	}
	return pkt, nil
}

// IsScreenWebShared reports whether screenId currently allows viewers
// outside its owning client to observe line/pty updates, for callers (e.g.
// ptyfile.Store's AppendNotifier gate) that only have a ScreenId on hand
// and would rather not load the full Screen row.
func (w *Workspace) IsScreenWebShared(screenId types.ScreenId) bool {
	var shareMode, webShareOpts string
	err := w.store.QueryRow(context.Background(), func(row *sql.Row) error {
		return row.Scan(&shareMode, &webShareOpts)
	}, "SELECT sharemode, webshareopts FROM screen WHERE screenid = ?", screenId)
	if err != nil {
		return false
	}
	screen := types.Screen{}
	screen.FromMap(map[string]any{"sharemode": shareMode, "webshareopts": webShareOpts})
	return screen.IsWebShared()
}

func (w *Workspace) loadScreenTx(ctx context.Context, tx *sql.Tx, screenId types.ScreenId) (types.Screen, error) {
	var screen types.Screen
	err := w.store.TxQueryRow(ctx, tx, func(row *sql.Row) error {
		var screenid, sessionid, name, screenopts, screenviewopts, ownerid, sharemode, webshareopts, curremote, anchor, focustype string
		var screenidx, nextlinenum, selectedline int
		var archived bool
		var archivedts int64
		if err := row.Scan(&screenid, &sessionid, &name, &screenidx, &screenopts, &screenviewopts, &ownerid,
			&sharemode, &webshareopts, &curremote, &nextlinenum, &selectedline, &anchor, &focustype, &archived, &archivedts); err != nil {
			return err
		}
		screen.FromMap(map[string]any{
			"screenid": screenid, "sessionid": sessionid, "name": name, "screenidx": screenidx,
			"screenopts": screenopts, "screenviewopts": screenviewopts, "ownerid": ownerid,
			"sharemode": sharemode, "webshareopts": webshareopts, "curremote": curremote,
			"nextlinenum": nextlinenum, "selectedline": selectedline, "anchor": anchor,
			"focustype": focustype, "archived": archived, "archivedts": archivedts,
		})
		return nil
	}, `SELECT screenid, sessionid, name, screenidx, screenopts, screenviewopts, ownerid, sharemode, webshareopts,
		curremote, nextlinenum, selectedline, anchor, focustype, archived, archivedts FROM screen WHERE screenid = ?`, screenId)
	if err == sql.ErrNoRows {
		return types.Screen{}, ErrScreenNotFound
	}
	return screen, err
}

func (w *Workspace) insertScreenTx(ctx context.Context, tx *sql.Tx, screen types.Screen) error {
	m := screen.ToMap()
	_, err := w.store.TxExec(ctx, tx,
		`INSERT INTO screen (screenid, sessionid, name, screenidx, screenopts, screenviewopts, ownerid, sharemode, webshareopts, curremote, nextlinenum, selectedline, anchor, focustype, archived, archivedts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m["screenid"], m["sessionid"], m["name"], m["screenidx"], m["screenopts"], m["screenviewopts"],
		m["ownerid"], m["sharemode"], m["webshareopts"], m["curremote"], m["nextlinenum"], m["selectedline"],
		m["anchor"], m["focustype"], m["archived"], m["archivedts"])
	return err
}

// fixupScreenSelectedLineTx restores screen.SelectedLine to the closest
// surviving line number after one or more lines were deleted: the nearest
// higher line number if one remains, else the nearest lower one, else 0 if
// the screen is now empty. Returns true if the value changed (and the
// in-memory screen.SelectedLine field was updated accordingly), so the
// caller only emits an update when something actually moved.
func (w *Workspace) fixupScreenSelectedLineTx(ctx context.Context, tx *sql.Tx, screen *types.Screen) (bool, error) {
	var stillExists int
	if err := w.store.TxQueryRow(ctx, tx, func(row *sql.Row) error {
		return row.Scan(&stillExists)
	}, "SELECT COUNT(*) FROM line WHERE screenid = ? AND linenum = ?", screen.Id, screen.SelectedLine); err != nil {
		return false, err
	}
	if stillExists > 0 {
		return false, nil
	}

	var nextLineNum sql.NullInt64
	if err := w.store.TxQueryRow(ctx, tx, func(row *sql.Row) error {
		return row.Scan(&nextLineNum)
	}, "SELECT linenum FROM line WHERE screenid = ? AND linenum > ? ORDER BY linenum ASC LIMIT 1", screen.Id, screen.SelectedLine); err != nil && err != sql.ErrNoRows {
		return false, err
	}
	if !nextLineNum.Valid {
		if err := w.store.TxQueryRow(ctx, tx, func(row *sql.Row) error {
			return row.Scan(&nextLineNum)
		}, "SELECT linenum FROM line WHERE screenid = ? AND linenum < ? ORDER BY linenum DESC LIMIT 1", screen.Id, screen.SelectedLine); err != nil && err != sql.ErrNoRows {
			return false, err
		}
	}

	newSelected := 0
	if nextLineNum.Valid {
		newSelected = int(nextLineNum.Int64)
	}
	if newSelected == screen.SelectedLine {
		return false, nil
	}
	screen.SelectedLine = newSelected
	return true, nil
}

func (w *Workspace) saveScreenTx(ctx context.Context, tx *sql.Tx, screen types.Screen) error {
	m := screen.ToMap()
	_, err := w.store.TxExec(ctx, tx,
		`UPDATE screen SET name = ?, screenidx = ?, screenopts = ?, screenviewopts = ?, ownerid = ?, sharemode = ?,
		 webshareopts = ?, curremote = ?, nextlinenum = ?, selectedline = ?, anchor = ?, focustype = ?, archived = ?, archivedts = ?
		 WHERE screenid = ?`,
		m["name"], m["screenidx"], m["screenopts"], m["screenviewopts"], m["ownerid"], m["sharemode"],
		m["webshareopts"], m["curremote"], m["nextlinenum"], m["selectedline"], m["anchor"], m["focustype"],
		m["archived"], m["archivedts"], m["screenid"])
	return err
}

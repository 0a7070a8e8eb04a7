package workspace

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/shellbench/shellbench/internal/ptyfile"
	"github.com/shellbench/shellbench/internal/screenstate"
	"github.com/shellbench/shellbench/internal/store"
	"github.com/shellbench/shellbench/internal/types"
)

// Workspace is the transactional mutator over the relational store. Every
// operation runs inside a single store.WithTx call and returns an
// UpdatePacket describing what changed, for delivery over the update bus.
// ptyFiles may be nil, in which case line/screen lifecycle operations skip
// their pty-file side effects; every test in this repo instead passes a
// real temp-dir-backed store, for better coverage. screenState may also be
// nil, in which case cmd lifecycle operations skip the running-command
// counter and status indicator.
type Workspace struct {
	store       *store.Store
	ptyFiles    *ptyfile.Store
	screenState screenstate.Store
	notify      func()
}

func New(s *store.Store, ptyFiles *ptyfile.Store, screenState screenstate.Store) *Workspace {
	return &Workspace{store: s, ptyFiles: ptyFiles, screenState: screenState}
}

// SetUpdateNotifier registers fn to be called after a transaction commits a
// row to the persisted screenupdate log, waking the UpdateWriter, which does
// not drain the log until it is notified. Set post-construction (not a
// constructor arg) so updatebus need not import workspace, nor workspace the
// concrete *UpdateWriter type.
func (w *Workspace) SetUpdateNotifier(fn func()) {
	w.notify = fn
}

// sessionResult bundles InsertSessionWithName's two return values so it can
// flow through store.WithTxRtn's single type parameter.
type sessionResult struct {
	Session types.Session
	Pkt     types.UpdatePacket
}

// InsertSessionWithName creates a new session (and one initial screen),
// optionally making it the client's active session.
func (w *Workspace) InsertSessionWithName(ctx context.Context, name string, activate bool) (types.Session, types.UpdatePacket, error) {
	res, err := store.WithTxRtn(ctx, w.store, func(ctx context.Context, tx *sql.Tx) (sessionResult, error) {
		session, pkt, err := w.insertSessionWithNameTx(ctx, tx, name, activate)
		return sessionResult{Session: session, Pkt: pkt}, err
	})
	return res.Session, res.Pkt, err
}

func (w *Workspace) insertSessionWithNameTx(ctx context.Context, tx *sql.Tx, name string, activate bool) (types.Session, types.UpdatePacket, error) {
	var pkt types.UpdatePacket

	var maxIdx sql.NullInt64
	if err := w.store.TxQueryRow(ctx, tx, func(row *sql.Row) error {
		return row.Scan(&maxIdx)
	}, "SELECT MAX(sessionidx) FROM session"); err != nil {
		return types.Session{}, pkt, err
	}
	idx := int(maxIdx.Int64) + 1

	if name == "" {
		uniqued, err := fmtUniqueName(ctx, tx, w.store, "session", "workspace-%d", idx)
		if err != nil {
			return types.Session{}, pkt, err
		}
		name = uniqued
	}

	session := types.Session{
		Id:         uuid.NewString(),
		Name:       name,
		SessionIdx: idx,
		ShareMode:  types.ShareModeLocal,
	}

	screen := types.Screen{
		Id:          uuid.NewString(),
		SessionId:   session.Id,
		Name:        "s1",
		ScreenIdx:   1,
		NextLineNum: 1,
		FocusType:   types.FocusInput,
	}
	session.ActiveScreenId = screen.Id

	sm := session.ToMap()
	if _, err := w.store.TxExec(ctx, tx,
		`INSERT INTO session (sessionid, name, sessionidx, activescreenid, sharemode, notifynum, archived, archivedts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sm["sessionid"], sm["name"], sm["sessionidx"], sm["activescreenid"], sm["sharemode"], sm["notifynum"], sm["archived"], sm["archivedts"]); err != nil {
		return types.Session{}, pkt, err
	}

	scm := screen.ToMap()
	if _, err := w.store.TxExec(ctx, tx,
		`INSERT INTO screen (screenid, sessionid, name, screenidx, screenopts, screenviewopts, ownerid, sharemode, webshareopts, curremote, nextlinenum, selectedline, anchor, focustype, archived, archivedts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		scm["screenid"], scm["sessionid"], scm["name"], scm["screenidx"], scm["screenopts"], scm["screenviewopts"],
		scm["ownerid"], scm["sharemode"], scm["webshareopts"], scm["curremote"], scm["nextlinenum"], scm["selectedline"],
		scm["anchor"], scm["focustype"], scm["archived"], scm["archivedts"]); err != nil {
		return types.Session{}, pkt, err
	}

	pkt.AddUpdate(types.SessionUpdate{Session: session})
	pkt.AddUpdate(types.ScreenUpdate{Screen: screen})

	if activate {
		if _, err := w.store.TxExec(ctx, tx, "UPDATE client SET activesessionid = ?", session.Id); err != nil {
			return types.Session{}, pkt, err
		}
		pkt.AddUpdate(types.ActiveSessionIdUpdate{SessionId: session.Id})
	}

	return session, pkt, nil
}

// ArchiveSession marks a session archived. If it was the active session, the
// lowest-index non-archived session becomes active.
func (w *Workspace) ArchiveSession(ctx context.Context, sessionId types.SessionId) (types.UpdatePacket, error) {
	return store.WithTxRtn(ctx, w.store, func(ctx context.Context, tx *sql.Tx) (types.UpdatePacket, error) {
		return w.setSessionArchivedTx(ctx, tx, sessionId, true)
	})
}

// UnArchiveSession clears a session's archived flag.
func (w *Workspace) UnArchiveSession(ctx context.Context, sessionId types.SessionId) (types.UpdatePacket, error) {
	return store.WithTxRtn(ctx, w.store, func(ctx context.Context, tx *sql.Tx) (types.UpdatePacket, error) {
		return w.setSessionArchivedTx(ctx, tx, sessionId, false)
	})
}

func (w *Workspace) setSessionArchivedTx(ctx context.Context, tx *sql.Tx, sessionId types.SessionId, archived bool) (types.UpdatePacket, error) {
	var pkt types.UpdatePacket

	session, err := w.loadSessionTx(ctx, tx, sessionId)
	if err != nil {
		return pkt, err
	}

	session.Archived = archived
	if archived {
		session.ArchivedTs = types.NowMillis()
		session.SessionIdx = 0
	} else {
		session.ArchivedTs = 0
		var maxIdx sql.NullInt64
		if err := w.store.TxQueryRow(ctx, tx, func(row *sql.Row) error {
			return row.Scan(&maxIdx)
		}, "SELECT MAX(sessionidx) FROM session WHERE archived = 0"); err != nil {
			return pkt, err
		}
		session.SessionIdx = int(maxIdx.Int64) + 1
	}
	if err := w.saveSessionTx(ctx, tx, session); err != nil {
		return pkt, err
	}
	pkt.AddUpdate(types.SessionUpdate{Session: session})

	if !archived {
		return pkt, nil
	}

	redensed, err := w.redenseSessionIdxTx(ctx, tx)
	if err != nil {
		return pkt, err
	}
	pkt.Updates = append(pkt.Updates, redensed...)

	var activeSessionId types.SessionId
	if err := w.store.TxQueryRow(ctx, tx, func(row *sql.Row) error {
		return row.Scan(&activeSessionId)
	}, "SELECT activesessionid FROM client"); err != nil && err != sql.ErrNoRows {
		return pkt, err
	}
	if activeSessionId != sessionId {
		return pkt, nil
	}

	var nextId types.SessionId
	err = w.store.TxQueryRow(ctx, tx, func(row *sql.Row) error {
		return row.Scan(&nextId)
	}, "SELECT sessionid FROM session WHERE archived = 0 ORDER BY sessionidx LIMIT 1")
	if err == sql.ErrNoRows {
		nextId = ""
	} else if err != nil {
		return pkt, err
	}

	if _, err := w.store.TxExec(ctx, tx, "UPDATE client SET activesessionid = ?", nextId); err != nil {
		return pkt, err
	}
	pkt.AddUpdate(types.ActiveSessionIdUpdate{SessionId: nextId})
	return pkt, nil
}

// DeleteSession cascade-deletes every screen in sessionId, inserts a session
// tombstone, fixes up the client's active session id if needed, and removes
// each deleted screen's on-disk pty directory once the transaction commits.
func (w *Workspace) DeleteSession(ctx context.Context, sessionId types.SessionId) (types.UpdatePacket, error) {
	var deletedScreenIds []types.ScreenId
	pkt, err := store.WithTxRtn(ctx, w.store, func(ctx context.Context, tx *sql.Tx) (types.UpdatePacket, error) {
		var pkt types.UpdatePacket

		session, err := w.loadSessionTx(ctx, tx, sessionId)
		if err != nil {
			return pkt, err
		}

		var screenIds []types.ScreenId
		rows, err := w.store.TxQuery(ctx, tx, "SELECT screenid FROM screen WHERE sessionid = ?", sessionId)
		if err != nil {
			return pkt, err
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return pkt, err
			}
			screenIds = append(screenIds, id)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return pkt, err
		}
		rows.Close()
		deletedScreenIds = screenIds

		for _, screenId := range screenIds {
			sub, err := w.deleteScreenTx(ctx, tx, screenId, true)
			if err != nil {
				return pkt, err
			}
			pkt.Updates = append(pkt.Updates, sub.Updates...)
		}

		if _, err := w.store.TxExec(ctx, tx, "DELETE FROM session WHERE sessionid = ?", sessionId); err != nil {
			return pkt, err
		}

		tombstone := types.SessionTombstone{SessionId: sessionId, Name: session.Name, DeletedTs: types.NowMillis()}
		tm := tombstone.ToMap()
		if _, err := w.store.TxExec(ctx, tx, "INSERT INTO session_tombstone (sessionid, name, deletedts) VALUES (?, ?, ?)",
			tm["sessionid"], tm["name"], tm["deletedts"]); err != nil {
			return pkt, err
		}
		pkt.AddUpdate(types.SessionTombstoneUpdate{SessionTombstone: tombstone})

		var activeSessionId types.SessionId
		if err := w.store.TxQueryRow(ctx, tx, func(row *sql.Row) error {
			return row.Scan(&activeSessionId)
		}, "SELECT activesessionid FROM client"); err != nil && err != sql.ErrNoRows {
			return pkt, err
		}
		if activeSessionId == sessionId {
			var nextId types.SessionId
			err := w.store.TxQueryRow(ctx, tx, func(row *sql.Row) error {
				return row.Scan(&nextId)
			}, "SELECT sessionid FROM session WHERE archived = 0 ORDER BY sessionidx LIMIT 1")
			if err == sql.ErrNoRows {
				nextId = ""
			} else if err != nil {
				return pkt, err
			}
			if _, err := w.store.TxExec(ctx, tx, "UPDATE client SET activesessionid = ?", nextId); err != nil {
				return pkt, err
			}
			pkt.AddUpdate(types.ActiveSessionIdUpdate{SessionId: nextId})
		}

		redensed, err := w.redenseSessionIdxTx(ctx, tx)
		if err != nil {
			return pkt, err
		}
		pkt.Updates = append(pkt.Updates, redensed...)

		return pkt, nil
	})
	if err != nil {
		return pkt, err
	}
	if w.ptyFiles != nil {
		for _, screenId := range deletedScreenIds {
			if rmErr := w.ptyFiles.RemoveScreenDir(screenId); rmErr != nil {
				return pkt, fmt.Errorf("workspace: remove screen pty dir: %w", rmErr)
			}
		}
	}
	return pkt, nil
}

// redenseSessionIdxTx renumbers every non-archived session, ordered by its
// current sessionidx, to a contiguous 1..N sequence, returning a
// SessionUpdate for each one whose index actually changed. Archived sessions
// keep their cleared (0) index and are left untouched.
func (w *Workspace) redenseSessionIdxTx(ctx context.Context, tx *sql.Tx) ([]types.UpdateRecord, error) {
	rows, err := w.store.TxQuery(ctx, tx, "SELECT sessionid FROM session WHERE archived = 0 ORDER BY sessionidx")
	if err != nil {
		return nil, err
	}
	var ids []types.SessionId
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	var updates []types.UpdateRecord
	for i, id := range ids {
		idx := i + 1
		session, err := w.loadSessionTx(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if session.SessionIdx == idx {
			continue
		}
		session.SessionIdx = idx
		if err := w.saveSessionTx(ctx, tx, session); err != nil {
			return nil, err
		}
		updates = append(updates, types.SessionUpdate{Session: session})
	}
	return updates, nil
}

func (w *Workspace) loadSessionTx(ctx context.Context, tx *sql.Tx, sessionId types.SessionId) (types.Session, error) {
	var session types.Session
	err := w.store.TxQueryRow(ctx, tx, func(row *sql.Row) error {
		var sessionid, name, activescreenid, sharemode string
		var sessionidx, notifynum int
		var archived bool
		var archivedts int64
		if err := row.Scan(&sessionid, &name, &sessionidx, &activescreenid, &sharemode, &notifynum, &archived, &archivedts); err != nil {
			return err
		}
		session.FromMap(map[string]any{
			"sessionid": sessionid, "name": name, "sessionidx": sessionidx,
			"activescreenid": activescreenid, "sharemode": sharemode, "notifynum": notifynum,
			"archived": archived, "archivedts": archivedts,
		})
		return nil
	}, "SELECT sessionid, name, sessionidx, activescreenid, sharemode, notifynum, archived, archivedts FROM session WHERE sessionid = ?", sessionId)
	if err == sql.ErrNoRows {
		return types.Session{}, ErrSessionNotFound
	}
	return session, err
}

func (w *Workspace) saveSessionTx(ctx context.Context, tx *sql.Tx, session types.Session) error {
	m := session.ToMap()
	_, err := w.store.TxExec(ctx, tx,
		`UPDATE session SET name = ?, sessionidx = ?, activescreenid = ?, sharemode = ?, notifynum = ?, archived = ?, archivedts = ?
		 WHERE sessionid = ?`,
		m["name"], m["sessionidx"], m["activescreenid"], m["sharemode"], m["notifynum"], m["archived"], m["archivedts"], m["sessionid"])
	return err
}

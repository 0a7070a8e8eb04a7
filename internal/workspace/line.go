package workspace

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/shellbench/shellbench/internal/store"
	"github.com/shellbench/shellbench/internal/types"
	"github.com/shellbench/shellbench/internal/updatebus"
)

// InsertLine validates that line.LineId is fresh and line.ScreenId exists,
// assigns its LineNum from the screen's next_line_num counter, and inserts
// the line (and cmd, if non-nil) atomically. A cmd line also gets a fresh
// pty ring file once the row insert commits.
func (w *Workspace) InsertLine(ctx context.Context, line types.Line, cmd *types.Cmd) (types.UpdatePacket, error) {
	var webShared bool
	pkt, err := store.WithTxRtn(ctx, w.store, func(ctx context.Context, tx *sql.Tx) (types.UpdatePacket, error) {
		var pkt types.UpdatePacket

		screen, err := w.loadScreenTx(ctx, tx, line.ScreenId)
		if err != nil {
			return pkt, err
		}

		var exists int
		if err := w.store.TxQueryRow(ctx, tx, func(row *sql.Row) error {
			return row.Scan(&exists)
		}, "SELECT COUNT(*) FROM line WHERE screenid = ? AND lineid = ?", line.ScreenId, line.LineId); err != nil {
			return pkt, err
		}
		if exists > 0 {
			return pkt, ErrLineExists
		}

		line.LineNum = screen.NextLineNum
		if line.Ts == 0 {
			line.Ts = types.NowMillis()
		}
		if len(encodeLineState(line.LineState)) > types.MaxLineStateBytes {
			return pkt, fmt.Errorf("workspace: line state exceeds %d bytes", types.MaxLineStateBytes)
		}

		lm := line.ToMap()
		if _, err := w.store.TxExec(ctx, tx,
			`INSERT INTO line (screenid, userid, lineid, ts, linenum, linelocal, linetype, linestate, text, renderer, ephemeral, contentheight, star, archived)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			lm["screenid"], lm["userid"], lm["lineid"], lm["ts"], lm["linenum"], lm["linelocal"], lm["linetype"],
			lm["linestate"], lm["text"], lm["renderer"], lm["ephemeral"], lm["contentheight"], lm["star"], lm["archived"]); err != nil {
			return pkt, err
		}

		if cmd != nil {
			cmd.ScreenId = line.ScreenId
			cmd.LineId = line.LineId
			cm := cmd.ToMap()
			if _, err := w.store.TxExec(ctx, tx,
				`INSERT INTO cmd (screenid, lineid, remote, cmdstr, rawcmdstr, festate, statebasehash, statediffhasharr, termopts, origtermopts,
				 status, cmdpid, remotepid, donets, restartts, exitcode, durationms, rtnstate, rtnbasehash, rtndiffhasharr)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				cm["screenid"], cm["lineid"], cm["remote"], cm["cmdstr"], cm["rawcmdstr"], cm["festate"], cm["statebasehash"],
				cm["statediffhasharr"], cm["termopts"], cm["origtermopts"], cm["status"], cm["cmdpid"], cm["remotepid"],
				cm["donets"], cm["restartts"], cm["exitcode"], cm["durationms"], cm["rtnstate"], cm["rtnbasehash"], cm["rtndiffhasharr"]); err != nil {
				return pkt, err
			}
		}

		screen.NextLineNum++
		if err := w.saveScreenTx(ctx, tx, screen); err != nil {
			return pkt, err
		}

		webShared = screen.IsWebShared()
		if webShared {
			pkt.AddUpdate(types.LineUpdate{Line: line})
			if err := updatebus.RecordScreenUpdateTx(ctx, w.store, tx, types.SULineNew, line.ScreenId, line.LineId); err != nil {
				return pkt, err
			}
		}
		return pkt, nil
	})
	if err != nil {
		return pkt, err
	}
	if cmd != nil && w.ptyFiles != nil {
		if ptyErr := w.ptyFiles.CreateCmdPtyFile(ctx, line.ScreenId, line.LineId, 0); ptyErr != nil {
			return pkt, fmt.Errorf("workspace: create pty file: %w", ptyErr)
		}
	}
	if cmd != nil && w.screenState != nil {
		if _, err := w.screenState.IncrRunning(ctx, line.ScreenId, 1); err != nil {
			return pkt, err
		}
	}
	if webShared && w.notify != nil {
		w.notify()
	}
	return pkt, nil
}

// DeleteLinesByIds deletes the named lines (and their cmd rows) from
// screenId, refusing if any named line's cmd is still running. History
// entries referencing a deleted line have their lineid cleared rather than
// being removed.
func (w *Workspace) DeleteLinesByIds(ctx context.Context, screenId types.ScreenId, lineIds []types.LineId) (types.UpdatePacket, error) {
	var webShared bool
	pkt, err := store.WithTxRtn(ctx, w.store, func(ctx context.Context, tx *sql.Tx) (types.UpdatePacket, error) {
		var pkt types.UpdatePacket

		screen, err := w.loadScreenTx(ctx, tx, screenId)
		if err != nil {
			return pkt, err
		}
		webShared = screen.IsWebShared()

		for _, lineId := range lineIds {
			var status sql.NullString
			err := w.store.TxQueryRow(ctx, tx, func(row *sql.Row) error {
				return row.Scan(&status)
			}, "SELECT status FROM cmd WHERE screenid = ? AND lineid = ?", screenId, lineId)
			if err != nil && err != sql.ErrNoRows {
				return pkt, err
			}
			if status.Valid && types.CmdStatus(status.String) == types.StatusRunning {
				return pkt, ErrCmdRunning
			}
		}

		selectedLineTouched := false
		for _, lineId := range lineIds {
			var lineNum sql.NullInt64
			if err := w.store.TxQueryRow(ctx, tx, func(row *sql.Row) error {
				return row.Scan(&lineNum)
			}, "SELECT linenum FROM line WHERE screenid = ? AND lineid = ?", screenId, lineId); err != nil && err != sql.ErrNoRows {
				return pkt, err
			}
			if lineNum.Valid && int(lineNum.Int64) == screen.SelectedLine {
				selectedLineTouched = true
			}

			if _, err := w.store.TxExec(ctx, tx, "UPDATE history SET lineid = '' WHERE screenid = ? AND lineid = ?", screenId, lineId); err != nil {
				return pkt, err
			}
			if _, err := w.store.TxExec(ctx, tx, "DELETE FROM cmd WHERE screenid = ? AND lineid = ?", screenId, lineId); err != nil {
				return pkt, err
			}
			if _, err := w.store.TxExec(ctx, tx, "DELETE FROM line WHERE screenid = ? AND lineid = ?", screenId, lineId); err != nil {
				return pkt, err
			}
			if webShared {
				pkt.AddUpdate(types.LineUpdate{Line: types.Line{ScreenId: screenId, LineId: lineId}, Remove: true})
				if err := updatebus.RecordScreenUpdateTx(ctx, w.store, tx, types.SULineDel, screenId, lineId); err != nil {
					return pkt, err
				}
			}
		}

		if selectedLineTouched {
			changed, err := w.fixupScreenSelectedLineTx(ctx, tx, &screen)
			if err != nil {
				return pkt, err
			}
			if changed {
				if err := w.saveScreenTx(ctx, tx, screen); err != nil {
					return pkt, err
				}
				if webShared {
					pkt.AddUpdate(types.ScreenUpdate{Screen: screen})
					if err := updatebus.RecordScreenUpdateTx(ctx, w.store, tx, types.SUScreenSelectedLine, screenId, ""); err != nil {
						return pkt, err
					}
				}
			}
		}
		return pkt, nil
	})
	if err != nil {
		return pkt, err
	}
	if w.ptyFiles != nil {
		for _, lineId := range lineIds {
			if ptyErr := w.ptyFiles.RemoveCmdPtyFile(ctx, screenId, lineId); ptyErr != nil {
				return pkt, fmt.Errorf("workspace: remove pty file: %w", ptyErr)
			}
		}
	}
	if webShared && w.notify != nil {
		w.notify()
	}
	return pkt, nil
}

func encodeLineState(state types.LineState) []byte {
	if state == nil {
		return nil
	}
	b, err := json.Marshal(state)
	if err != nil {
		return nil
	}
	return b
}

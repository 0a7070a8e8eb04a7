package workspace

import (
	"context"
	"database/sql"

	"github.com/shellbench/shellbench/internal/store"
	"github.com/shellbench/shellbench/internal/types"
	"github.com/shellbench/shellbench/internal/updatebus"
)

// CmdKey addresses a single cmd row.
type CmdKey struct {
	ScreenId types.ScreenId
	LineId   types.LineId
}

// DoneInfo is the terminal outcome recorded by UpdateCmdDoneInfo.
type DoneInfo struct {
	ExitCode   int
	DurationMs int64
}

// terminalCmdStatuses are the CmdStatus values after which the screen's
// running-command counter is decremented and its status indicator set;
// StatusDetached is a terminal transition too, but the command's output
// keeps streaming to a different owner rather than finishing, so it does
// not touch either.
var terminalCmdStatuses = map[types.CmdStatus]bool{
	types.StatusDone:   true,
	types.StatusError:  true,
	types.StatusHangup: true,
}

// UpdateCmdDoneInfo transitions a cmd to a terminal status, recording its
// exit code and duration. The returned packet carries one update with the
// full updated cmd, not separate exit-code, duration and status updates.
// For web-shared screens it also appends three rows
// (exit code, duration, status) to the persisted screenupdate log. On a
// terminal status it also updates the screen's
// in-memory status indicator and decrements its running-command counter.
func (w *Workspace) UpdateCmdDoneInfo(ctx context.Context, ck CmdKey, done DoneInfo, status types.CmdStatus) (types.UpdatePacket, error) {
	var webShared bool
	pkt, err := store.WithTxRtn(ctx, w.store, func(ctx context.Context, tx *sql.Tx) (types.UpdatePacket, error) {
		var pkt types.UpdatePacket

		cmd, err := w.loadCmdTx(ctx, tx, ck)
		if err != nil {
			return pkt, err
		}
		if !cmd.Status.CanTransitionTo(status) {
			return pkt, ErrBadStatusTransition
		}

		cmd.Status = status
		cmd.ExitCode = done.ExitCode
		cmd.DurationMs = done.DurationMs
		cmd.DoneTs = types.NowMillis()
		if err := w.saveCmdTx(ctx, tx, cmd); err != nil {
			return pkt, err
		}

		screen, err := w.loadScreenTx(ctx, tx, ck.ScreenId)
		if err != nil {
			return pkt, err
		}
		webShared = screen.IsWebShared()
		if webShared {
			pkt.AddUpdate(types.CmdUpdate{Cmd: cmd})
			for _, su := range []types.ScreenUpdateType{types.SUCmdExitCode, types.SUCmdDurationMs, types.SUCmdStatus} {
				if err := updatebus.RecordScreenUpdateTx(ctx, w.store, tx, su, ck.ScreenId, ck.LineId); err != nil {
					return pkt, err
				}
			}
		}
		return pkt, nil
	})
	if err != nil {
		return pkt, err
	}

	if w.screenState != nil && terminalCmdStatuses[status] {
		level := types.IndicatorError
		if status == types.StatusDone && done.ExitCode == 0 {
			level = types.IndicatorSuccess
		}
		if _, err := w.screenState.SetIndicator(ctx, ck.ScreenId, level); err != nil {
			return pkt, err
		}
		if _, err := w.screenState.IncrRunning(ctx, ck.ScreenId, -1); err != nil {
			return pkt, err
		}
	}
	if webShared && w.notify != nil {
		w.notify()
	}
	return pkt, nil
}

func (w *Workspace) loadCmdTx(ctx context.Context, tx *sql.Tx, ck CmdKey) (types.Cmd, error) {
	var cmd types.Cmd
	err := w.store.TxQueryRow(ctx, tx, func(row *sql.Row) error {
		var screenid, lineid, remote, cmdstr, rawcmdstr, festate, statebasehash, statediffhasharr, termopts, origtermopts, status, rtnbasehash, rtndiffhasharr string
		var cmdpid, remotepid, exitcode int
		var donets, restartts, durationms int64
		var rtnstate bool
		if err := row.Scan(&screenid, &lineid, &remote, &cmdstr, &rawcmdstr, &festate, &statebasehash, &statediffhasharr,
			&termopts, &origtermopts, &status, &cmdpid, &remotepid, &donets, &restartts, &exitcode, &durationms,
			&rtnstate, &rtnbasehash, &rtndiffhasharr); err != nil {
			return err
		}
		cmd.FromMap(map[string]any{
			"screenid": screenid, "lineid": lineid, "remote": remote, "cmdstr": cmdstr, "rawcmdstr": rawcmdstr,
			"festate": festate, "statebasehash": statebasehash, "statediffhasharr": statediffhasharr,
			"termopts": termopts, "origtermopts": origtermopts, "status": status, "cmdpid": cmdpid,
			"remotepid": remotepid, "donets": donets, "restartts": restartts, "exitcode": exitcode,
			"durationms": durationms, "rtnstate": rtnstate, "rtnbasehash": rtnbasehash, "rtndiffhasharr": rtndiffhasharr,
		})
		return nil
	}, `SELECT screenid, lineid, remote, cmdstr, rawcmdstr, festate, statebasehash, statediffhasharr, termopts, origtermopts,
		status, cmdpid, remotepid, donets, restartts, exitcode, durationms, rtnstate, rtnbasehash, rtndiffhasharr
		FROM cmd WHERE screenid = ? AND lineid = ?`, ck.ScreenId, ck.LineId)
	if err == sql.ErrNoRows {
		return types.Cmd{}, ErrCmdNotFound
	}
	return cmd, err
}

func (w *Workspace) saveCmdTx(ctx context.Context, tx *sql.Tx, cmd types.Cmd) error {
	m := cmd.ToMap()
	_, err := w.store.TxExec(ctx, tx,
		`UPDATE cmd SET remote = ?, cmdstr = ?, rawcmdstr = ?, festate = ?, statebasehash = ?, statediffhasharr = ?,
		 termopts = ?, origtermopts = ?, status = ?, cmdpid = ?, remotepid = ?, donets = ?, restartts = ?, exitcode = ?,
		 durationms = ?, rtnstate = ?, rtnbasehash = ?, rtndiffhasharr = ?
		 WHERE screenid = ? AND lineid = ?`,
		m["remote"], m["cmdstr"], m["rawcmdstr"], m["festate"], m["statebasehash"], m["statediffhasharr"],
		m["termopts"], m["origtermopts"], m["status"], m["cmdpid"], m["remotepid"], m["donets"], m["restartts"],
		m["exitcode"], m["durationms"], m["rtnstate"], m["rtnbasehash"], m["rtndiffhasharr"], m["screenid"], m["lineid"])
	return err
}

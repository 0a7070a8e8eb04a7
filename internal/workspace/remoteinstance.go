package workspace

import (
	"context"
	"database/sql"

	"github.com/shellbench/shellbench/internal/shellstate"
	"github.com/shellbench/shellbench/internal/store"
	"github.com/shellbench/shellbench/internal/types"
)

// UpdateRemoteState stores a captured shell state (exactly one of base or
// diff must be non-nil) via the shell-state repository, then upserts
// remoteinstance's fe-state and resulting state pointer.
func (w *Workspace) UpdateRemoteState(
	ctx context.Context,
	repo *shellstate.Repository,
	sessionId types.SessionId,
	screenId types.ScreenId,
	remote types.RemotePtr,
	feState types.FeState,
	base *types.ShellState,
	diff *shellstate.Payload,
	predecessors []types.DiffHash,
) (types.UpdatePacket, error) {
	if (base == nil) == (diff == nil) {
		return types.UpdatePacket{}, ErrBadStatePtrChoice
	}

	existing, err := w.findRemoteInstance(ctx, sessionId, screenId, remote.Id)
	if err != nil && err != sql.ErrNoRows {
		return types.UpdatePacket{}, err
	}

	var ptr types.StatePtr
	if base != nil {
		hash, err := repo.StoreStateBase(ctx, *base)
		if err != nil {
			return types.UpdatePacket{}, err
		}
		ptr = types.StatePtr{BaseHash: hash}
	} else {
		baseHash := existing.StatePtr.BaseHash
		hash, err := repo.StoreStateDiff(ctx, baseHash, predecessors, *diff)
		if err != nil {
			return types.UpdatePacket{}, err
		}
		ptr = types.StatePtr{BaseHash: baseHash, DiffHashArr: append(append([]types.DiffHash{}, predecessors...), hash)}
	}

	return store.WithTxRtn(ctx, w.store, func(ctx context.Context, tx *sql.Tx) (types.UpdatePacket, error) {
		var pkt types.UpdatePacket

		ri := existing
		if ri.Id == "" {
			ri = types.RemoteInstance{
				Id:        remoteInstanceId(sessionId, screenId, remote.Id),
				SessionId: sessionId,
				ScreenId:  screenId,
				Remote:    remote,
			}
		}
		ri.FeState = feState
		ri.StatePtr = ptr

		m := ri.ToMap()
		if _, err := w.store.TxExec(ctx, tx,
			`INSERT INTO remote_instance (riid, name, sessionid, screenid, remote, festate, statebasehash, statediffhasharr, shelltype)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(riid) DO UPDATE SET festate = excluded.festate, statebasehash = excluded.statebasehash,
			 statediffhasharr = excluded.statediffhasharr`,
			m["riid"], m["name"], m["sessionid"], m["screenid"], m["remote"], m["festate"],
			m["statebasehash"], m["statediffhasharr"], m["shelltype"]); err != nil {
			return pkt, err
		}

		pkt.AddUpdate(types.RemoteInstanceUpdate{RemoteInstance: ri})
		return pkt, nil
	})
}

// remoteInstanceId derives the deterministic primary key for the one
// remote instance binding (sessionId, screenId, remoteId) together — at
// most one instance exists per such triple.
func remoteInstanceId(sessionId types.SessionId, screenId types.ScreenId, remoteId types.RemoteId) types.RemoteInstanceId {
	return types.RemoteInstanceId(string(remoteId) + ":" + string(sessionId) + ":" + string(screenId))
}

func (w *Workspace) findRemoteInstance(ctx context.Context, sessionId types.SessionId, screenId types.ScreenId, remoteId types.RemoteId) (types.RemoteInstance, error) {
	var ri types.RemoteInstance
	err := w.store.QueryRow(ctx, func(row *sql.Row) error {
		var riid, name, sessionid, screenid, remote, festate, statebasehash, statediffhasharr, shelltype string
		if err := row.Scan(&riid, &name, &sessionid, &screenid, &remote, &festate, &statebasehash, &statediffhasharr, &shelltype); err != nil {
			return err
		}
		ri.FromMap(map[string]any{
			"riid": riid, "name": name, "sessionid": sessionid, "screenid": screenid, "remote": remote,
			"festate": festate, "statebasehash": statebasehash, "statediffhasharr": statediffhasharr, "shelltype": shelltype,
		})
		return nil
	}, `SELECT riid, name, sessionid, screenid, remote, festate, statebasehash, statediffhasharr, shelltype
		FROM remote_instance WHERE riid = ?`, remoteInstanceId(sessionId, screenId, remoteId))
	return ri, err
}

package workspace

import (
	"context"
	"database/sql"

	"github.com/shellbench/shellbench/internal/store"
	"github.com/shellbench/shellbench/internal/types"
)

// SetScreenIdx moves screenId to 1-based position newIndex among sessionId's
// non-archived screens, shifting the others to keep indices contiguous, and
// emits a ScreenUpdate for every screen whose index changed.
func (w *Workspace) SetScreenIdx(ctx context.Context, sessionId types.SessionId, screenId types.ScreenId, newIndex int) (types.UpdatePacket, error) {
	return store.WithTxRtn(ctx, w.store, func(ctx context.Context, tx *sql.Tx) (types.UpdatePacket, error) {
		var pkt types.UpdatePacket

		rows, err := w.store.TxQuery(ctx, tx,
			"SELECT screenid FROM screen WHERE sessionid = ? AND archived = 0 ORDER BY screenidx", sessionId)
		if err != nil {
			return pkt, err
		}
		var ids []types.ScreenId
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return pkt, err
			}
			ids = append(ids, id)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return pkt, err
		}
		rows.Close()

		moved := false
		reordered := make([]types.ScreenId, 0, len(ids))
		for _, id := range ids {
			if id == screenId {
				moved = true
				continue
			}
			reordered = append(reordered, id)
		}
		if !moved {
			return pkt, ErrScreenNotFound
		}

		if newIndex < 1 {
			newIndex = 1
		}
		if newIndex > len(reordered)+1 {
			newIndex = len(reordered) + 1
		}
		insertAt := newIndex - 1
		out := make([]types.ScreenId, 0, len(reordered)+1)
		out = append(out, reordered[:insertAt]...)
		out = append(out, screenId)
		out = append(out, reordered[insertAt:]...)

		for i, id := range out {
			idx := i + 1
			screen, err := w.loadScreenTx(ctx, tx, id)
			if err != nil {
				return pkt, err
			}
			if screen.ScreenIdx == idx {
				continue
			}
			screen.ScreenIdx = idx
			if err := w.saveScreenTx(ctx, tx, screen); err != nil {
				return pkt, err
			}
			pkt.AddUpdate(types.ScreenUpdate{Screen: screen})
		}
		return pkt, nil
	})
}

package shellstate

import (
	"context"
	"database/sql"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/shellbench/shellbench/internal/store"
	"github.com/shellbench/shellbench/internal/types"
)

// Repository is the content-addressed store for shell-state bases and
// diffs. Resolution of a full state from a StatePtr is collapsed through a
// singleflight group so that, e.g., several screens referencing the same
// long-lived base don't each re-walk and re-decode its diff chain
// concurrently.
type Repository struct {
	store *store.Store
	group singleflight.Group
}

// New constructs a Repository backed by s.
func New(s *store.Store) *Repository {
	return &Repository{store: s}
}

// StoreStateBase computes the base's content hash and inserts it if not
// already present, returning the resolved hash either way.
func (r *Repository) StoreStateBase(ctx context.Context, state types.ShellState) (types.BaseHash, error) {
	data, err := EncodeState(state)
	if err != nil {
		return "", err
	}
	hash := ComputeBaseHash(data)

	err = r.store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var exists int
		if err := r.store.TxQueryRow(ctx, tx, func(row *sql.Row) error {
			return row.Scan(&exists)
		}, "SELECT COUNT(*) FROM state_base WHERE basehash = ?", hash); err != nil {
			return err
		}
		if exists > 0 {
			return nil
		}
		base := types.StateBase{BaseHash: hash, Version: state.Version, Ts: types.NowMillis(), Data: data}
		m := base.ToMap()
		_, err := r.store.TxExec(ctx, tx,
			"INSERT INTO state_base (basehash, version, ts, data) VALUES (?, ?, ?, ?)",
			m["basehash"], m["version"], m["ts"], m["data"])
		return err
	})
	if err != nil {
		return "", err
	}
	return hash, nil
}

// StoreStateDiff verifies basehash and every hash in predecessors already
// exist, then inserts the diff if not already present, returning
// the resolved diff hash.
func (r *Repository) StoreStateDiff(ctx context.Context, basehash types.BaseHash, predecessors []types.DiffHash, payload Payload) (types.DiffHash, error) {
	data, err := EncodePayload(payload)
	if err != nil {
		return "", err
	}
	hash := ComputeDiffHash(data)

	err = r.store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var baseExists int
		if err := r.store.TxQueryRow(ctx, tx, func(row *sql.Row) error {
			return row.Scan(&baseExists)
		}, "SELECT COUNT(*) FROM state_base WHERE basehash = ?", basehash); err != nil {
			return err
		}
		if baseExists == 0 {
			return ErrBaseNotFound
		}
		for i, predHash := range predecessors {
			var diffExists int
			if err := r.store.TxQueryRow(ctx, tx, func(row *sql.Row) error {
				return row.Scan(&diffExists)
			}, "SELECT COUNT(*) FROM state_diff WHERE diffhash = ?", predHash); err != nil {
				return err
			}
			if diffExists == 0 {
				return fmt.Errorf("%w: diffhash[%d] does not exist", ErrDiffNotFound, i)
			}
		}

		var exists int
		if err := r.store.TxQueryRow(ctx, tx, func(row *sql.Row) error {
			return row.Scan(&exists)
		}, "SELECT COUNT(*) FROM state_diff WHERE diffhash = ?", hash); err != nil {
			return err
		}
		if exists > 0 {
			return nil
		}

		diff := types.StateDiff{DiffHash: hash, Ts: types.NowMillis(), BaseHash: basehash, DiffHashArr: predecessors, Data: data}
		m := diff.ToMap()
		_, err := r.store.TxExec(ctx, tx,
			"INSERT INTO state_diff (diffhash, ts, basehash, diffhasharr, data) VALUES (?, ?, ?, ?, ?)",
			m["diffhash"], m["ts"], m["basehash"], m["diffhasharr"], m["data"])
		return err
	})
	if err != nil {
		return "", err
	}
	return hash, nil
}

// GetFullState loads ptr's base and folds every diff in ptr.DiffHashArr
// over it in order, returning the resulting ShellState. Concurrent calls
// for the same ptr are collapsed into a single resolution.
func (r *Repository) GetFullState(ctx context.Context, ptr types.StatePtr) (types.ShellState, error) {
	key := fmt.Sprintf("%s:%v", ptr.BaseHash, ptr.DiffHashArr)
	v, err, _ := r.group.Do(key, func() (any, error) {
		return r.resolveFullState(ctx, ptr)
	})
	if err != nil {
		return types.ShellState{}, err
	}
	return v.(types.ShellState), nil
}

func (r *Repository) resolveFullState(ctx context.Context, ptr types.StatePtr) (types.ShellState, error) {
	baseData, err := r.loadBaseData(ctx, ptr.BaseHash)
	if err != nil {
		return types.ShellState{}, err
	}
	state, err := DecodeState(baseData)
	if err != nil {
		return types.ShellState{}, err
	}

	for _, diffHash := range ptr.DiffHashArr {
		diffData, err := r.loadDiffData(ctx, diffHash)
		if err != nil {
			return types.ShellState{}, err
		}
		state, err = ApplyShellStateDiff(state, diffData)
		if err != nil {
			return types.ShellState{}, err
		}
	}
	return state, nil
}

// GetCurStateDiffFromPtr returns the final diff in ptr's chain, or an empty
// diff carrying the base's hash and timestamp when the chain is empty.
func (r *Repository) GetCurStateDiffFromPtr(ctx context.Context, ptr types.StatePtr) (types.StateDiff, error) {
	if len(ptr.DiffHashArr) == 0 {
		var base types.StateBase
		err := r.store.QueryRow(ctx, func(row *sql.Row) error {
			var basehash string
			var version int
			var ts int64
			var data []byte
			if err := row.Scan(&basehash, &version, &ts, &data); err != nil {
				return err
			}
			base.FromMap(map[string]any{"basehash": basehash, "version": version, "ts": ts, "data": data})
			return nil
		}, "SELECT basehash, version, ts, data FROM state_base WHERE basehash = ?", ptr.BaseHash)
		if err == sql.ErrNoRows {
			return types.StateDiff{}, ErrBaseNotFound
		}
		if err != nil {
			return types.StateDiff{}, err
		}
		return types.StateDiff{BaseHash: ptr.BaseHash, Ts: base.Ts}, nil
	}

	lastHash := ptr.DiffHashArr[len(ptr.DiffHashArr)-1]
	var diff types.StateDiff
	err := r.store.QueryRow(ctx, func(row *sql.Row) error {
		var diffhash, basehash, diffhasharr string
		var ts int64
		var data []byte
		if err := row.Scan(&diffhash, &ts, &basehash, &diffhasharr, &data); err != nil {
			return err
		}
		diff.FromMap(map[string]any{
			"diffhash": diffhash, "ts": ts, "basehash": basehash,
			"diffhasharr": diffhasharr, "data": data,
		})
		return nil
	}, "SELECT diffhash, ts, basehash, diffhasharr, data FROM state_diff WHERE diffhash = ?", lastHash)
	if err == sql.ErrNoRows {
		return types.StateDiff{}, ErrDiffNotFound
	}
	if err != nil {
		return types.StateDiff{}, err
	}
	return diff, nil
}

func (r *Repository) loadBaseData(ctx context.Context, hash types.BaseHash) ([]byte, error) {
	var data []byte
	err := r.store.QueryRow(ctx, func(row *sql.Row) error {
		return row.Scan(&data)
	}, "SELECT data FROM state_base WHERE basehash = ?", hash)
	if err == sql.ErrNoRows {
		return nil, ErrBaseNotFound
	}
	return data, err
}

func (r *Repository) loadDiffData(ctx context.Context, hash types.DiffHash) ([]byte, error) {
	var data []byte
	err := r.store.QueryRow(ctx, func(row *sql.Row) error {
		return row.Scan(&data)
	}, "SELECT data FROM state_diff WHERE diffhash = ?", hash)
	if err == sql.ErrNoRows {
		return nil, ErrDiffNotFound
	}
	return data, err
}

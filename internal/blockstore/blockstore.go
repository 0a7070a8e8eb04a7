// Package blockstore implements the chunked, cache-backed, optionally
// circular binary file store keyed by (blockId, name). Files are divided
// into fixed PartSize chunks cached in memory and periodically flushed
// through to the relational store.
package blockstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/shellbench/shellbench/internal/store"
	"github.com/shellbench/shellbench/internal/types"
)

// Blockstore is the process-wide handle for chunked file storage. Exactly
// one should be constructed per daemon process; its cache and flush ticker
// are scoped to it rather than to the package so tests can run several
// isolated instances.
type Blockstore struct {
	store    *store.Store
	cache    *cache
	ticker   *flushTicker
	appendMu appendLock
}

// New constructs a Blockstore backed by s. Callers start the flush ticker
// separately via StartFlushTicker once the daemon's other startup steps
// have completed.
func New(s *store.Store) *Blockstore {
	return &Blockstore{
		store:  s,
		cache:  newCache(),
		ticker: newFlushTicker(),
	}
}

// StartFlushTicker starts the periodic FlushCache background task. interval
// of zero uses DefaultFlushTimeout.
func (b *Blockstore) StartFlushTicker(interval time.Duration) {
	b.ticker.Start(interval, func(ctx context.Context) {
		_ = b.FlushCache(ctx)
	})
}

// StopFlushTicker stops the periodic flush task, blocking until the
// background goroutine has exited.
func (b *Blockstore) StopFlushTicker() {
	b.ticker.Stop()
}

// MakeFile creates a new file row. It fails with ErrFileExists if
// (blockId, name) is already present.
func (b *Blockstore) MakeFile(ctx context.Context, blockId, name string, meta types.FileMeta, opts types.FileOpts) error {
	now := types.NowMillis()
	info := &types.FileInfo{
		BlockId:   blockId,
		Name:      name,
		Size:      0,
		CreatedTs: now,
		ModTs:     now,
		Opts:      opts,
		Meta:      meta,
	}

	err := b.store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var exists int
		scanErr := b.store.TxQueryRow(ctx, tx, func(row *sql.Row) error {
			return row.Scan(&exists)
		}, "SELECT COUNT(*) FROM blockstore_file WHERE blockid = ? AND name = ?", blockId, name)
		if scanErr != nil {
			return scanErr
		}
		if exists > 0 {
			return ErrFileExists
		}
		m := info.ToMap()
		_, execErr := b.store.TxExec(ctx, tx,
			"INSERT INTO blockstore_file (blockid, name, size, createdts, modts, opts, meta) VALUES (?, ?, ?, ?, ?, ?, ?)",
			m["blockid"], m["name"], m["size"], m["createdts"], m["modts"], m["opts"], m["meta"])
		return execErr
	})
	if err != nil {
		return err
	}

	key := cacheKey{blockId, name}
	e := b.cache.getOrCreate(key)
	e.mu.Lock()
	e.info = info
	e.mu.Unlock()
	return nil
}

// WriteFile creates the file then appends data to it in one call.
func (b *Blockstore) WriteFile(ctx context.Context, blockId, name string, meta types.FileMeta, opts types.FileOpts, data []byte) error {
	if err := b.MakeFile(ctx, blockId, name, meta, opts); err != nil {
		return err
	}
	_, err := b.AppendData(ctx, blockId, name, data)
	return err
}

// Stat returns a deep copy of the file's metadata, loading it from the SQL
// backend into the cache on first access.
func (b *Blockstore) Stat(ctx context.Context, blockId, name string) (*types.FileInfo, error) {
	key := cacheKey{blockId, name}
	e := b.cache.getOrCreate(key)

	e.mu.Lock()
	if e.info != nil {
		info := e.info.Clone()
		e.mu.Unlock()
		return info, nil
	}
	e.mu.Unlock()

	var info types.FileInfo
	err := b.store.QueryRow(ctx, func(row *sql.Row) error {
		var blockidV, nameV, optsV, metaV string
		var size, createdts, modts int64
		if scanErr := row.Scan(&blockidV, &nameV, &size, &createdts, &modts, &optsV, &metaV); scanErr != nil {
			return scanErr
		}
		info.FromMap(map[string]any{
			"blockid": blockidV, "name": nameV, "size": size,
			"createdts": createdts, "modts": modts, "opts": optsV, "meta": metaV,
		})
		return nil
	}, "SELECT blockid, name, size, createdts, modts, opts, meta FROM blockstore_file WHERE blockid = ? AND name = ?", blockId, name)
	if err == sql.ErrNoRows {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.info = &info
	out := e.info.Clone()
	e.mu.Unlock()
	return out, nil
}

// WriteMeta replaces a file's metadata map.
func (b *Blockstore) WriteMeta(ctx context.Context, blockId, name string, meta types.FileMeta) error {
	if _, err := b.Stat(ctx, blockId, name); err != nil {
		return err
	}
	key := cacheKey{blockId, name}
	e, _ := b.cache.get(key)

	e.mu.Lock()
	e.info.Meta = meta
	e.info.ModTs = types.NowMillis()
	m := e.info.ToMap()
	e.mu.Unlock()

	_, err := b.store.Exec(ctx, "UPDATE blockstore_file SET meta = ?, modts = ? WHERE blockid = ? AND name = ?",
		m["meta"], m["modts"], blockId, name)
	return err
}

// DeleteFile removes a file from the cache and the SQL backend.
func (b *Blockstore) DeleteFile(ctx context.Context, blockId, name string) error {
	_, err := b.store.Exec(ctx, "DELETE FROM blockstore_file WHERE blockid = ? AND name = ?", blockId, name)
	if err != nil {
		return err
	}
	_, err = b.store.Exec(ctx, "DELETE FROM blockstore_part WHERE blockid = ? AND name = ?", blockId, name)
	if err != nil {
		return err
	}
	b.cache.delete(cacheKey{blockId, name})
	return nil
}

// DeleteBlock removes every file in blockId from the cache and SQL backend.
func (b *Blockstore) DeleteBlock(ctx context.Context, blockId string) error {
	names, err := b.ListFiles(ctx, blockId)
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := b.DeleteFile(ctx, blockId, name); err != nil {
			return err
		}
	}
	return nil
}

// ListFiles returns every file name stored under blockId.
func (b *Blockstore) ListFiles(ctx context.Context, blockId string) ([]string, error) {
	rows, err := b.store.Query(ctx, "SELECT name FROM blockstore_file WHERE blockid = ? ORDER BY name", blockId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// GetAllBlockIds returns every distinct blockId with at least one file.
func (b *Blockstore) GetAllBlockIds(ctx context.Context) ([]string, error) {
	rows, err := b.store.Query(ctx, "SELECT DISTINCT blockid FROM blockstore_file ORDER BY blockid")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

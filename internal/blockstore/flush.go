package blockstore

import (
	"context"
	"database/sql"
	"sync"
	"time"
)

// DefaultFlushTimeout is how often the flush ticker runs FlushCache absent
// an explicit interval.
const DefaultFlushTimeout = 1 * time.Second

// flushTicker drives periodic FlushCache calls. It is a singleton per
// Blockstore (not a package-global) so tests can start/stop it
// deterministically without interfering with other Blockstore instances in
// the same test binary. Stop waits on the goroutine's done channel, so it
// returns only after the background goroutine has actually exited, and then
// broadcasts on cond once running is cleared.
type flushTicker struct {
	mu       sync.Mutex
	cond     *sync.Cond
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	interval time.Duration
}

func newFlushTicker() *flushTicker {
	t := &flushTicker{}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// Start launches the background flush goroutine at the given interval
// (DefaultFlushTimeout if zero). Starting an already-running ticker is a
// no-op so callers do not need to track whether they already started it.
func (t *flushTicker) Start(interval time.Duration, flush func(context.Context)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	if interval <= 0 {
		interval = DefaultFlushTimeout
	}
	t.interval = interval
	t.stopCh = make(chan struct{})
	t.doneCh = make(chan struct{})
	t.running = true
	stopCh := t.stopCh
	doneCh := t.doneCh

	go func() {
		defer close(doneCh)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				flush(context.Background())
			}
		}
	}()
}

// Stop signals the background goroutine to exit and blocks until it has,
// by waiting on its done channel, so a subsequent Start (e.g. in the next test)
// never races the previous goroutine's last tick.
func (t *flushTicker) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	stopCh := t.stopCh
	doneCh := t.doneCh
	t.mu.Unlock()

	close(stopCh)
	<-doneCh

	t.mu.Lock()
	t.running = false
	t.cond.Broadcast()
	t.mu.Unlock()
}

// Running reports whether the ticker is currently active.
func (t *flushTicker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// FlushCache writes every dirty part and every cached FileInfo through to
// the relational store, then evicts entries that have become idle. It is
// safe to call concurrently with readers/writers: each entry is flushed
// under its own lock so in-flight WriteAt/ReadAt calls on other entries are
// unaffected.
func (b *Blockstore) FlushCache(ctx context.Context) error {
	for _, key := range b.cache.keys() {
		e, ok := b.cache.get(key)
		if !ok {
			continue
		}
		if err := b.flushEntry(ctx, key, e); err != nil {
			return err
		}
		b.cache.evictIfIdle(key)
	}
	return nil
}

// flushEntry writes one entry's dirty parts and metadata through to SQL,
// clearing dirty flags (but keeping the bytes cached — eviction, not the
// flush itself, is what drops them from memory).
func (b *Blockstore) flushEntry(ctx context.Context, key cacheKey, e *entry) error {
	e.mu.Lock()
	if e.info == nil {
		e.mu.Unlock()
		return nil
	}
	infoMap := e.info.ToMap()
	dirty := make(map[int][]byte, len(e.parts))
	for num, p := range e.parts {
		if p.dirty {
			buf := make([]byte, len(p.bytes))
			copy(buf, p.bytes)
			dirty[num] = buf
		}
	}
	e.mu.Unlock()

	err := b.store.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		for num, buf := range dirty {
			_, err := b.store.TxExec(ctx, tx,
				`INSERT INTO blockstore_part (blockid, name, partnum, data) VALUES (?, ?, ?, ?)
				 ON CONFLICT(blockid, name, partnum) DO UPDATE SET data = excluded.data`,
				key.blockId, key.name, num, buf)
			if err != nil {
				return err
			}
		}
		_, err := b.store.TxExec(ctx, tx,
			`INSERT INTO blockstore_file (blockid, name, size, createdts, modts, opts, meta)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(blockid, name) DO UPDATE SET size = excluded.size, modts = excluded.modts, opts = excluded.opts, meta = excluded.meta`,
			infoMap["blockid"], infoMap["name"], infoMap["size"], infoMap["createdts"], infoMap["modts"], infoMap["opts"], infoMap["meta"])
		return err
	})
	if err != nil {
		return err
	}

	e.mu.Lock()
	for num := range dirty {
		if p, ok := e.parts[num]; ok {
			p.dirty = false
		}
	}
	e.mu.Unlock()
	return nil
}

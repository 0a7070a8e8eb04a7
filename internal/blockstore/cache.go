package blockstore

import (
	"sync"
	"sync/atomic"

	"github.com/shellbench/shellbench/internal/types"
)

// PartSize is the fixed size of one cached chunk of a blockstore file. Part k
// covers absolute byte offsets [k*PartSize, (k+1)*PartSize).
const PartSize = 128 * 1024

// cacheKey addresses one blockstore file.
type cacheKey struct {
	blockId string
	name    string
}

// part is one PartSize-aligned chunk of a file's bytes.
type part struct {
	bytes []byte
	dirty bool
}

// size returns len(bytes); kept as a method so call sites read like the
// spec's "size == len(bytes)" invariant rather than re-deriving it inline.
func (p *part) size() int {
	return len(p.bytes)
}

// entry is the process-wide cache's unit of ownership for one file: a
// sparse map of loaded parts, a pointer to the file's metadata, and a
// refcount that prevents the flush ticker from evicting it mid-use.
//
// The cache's global lock (cache.mu) guards inserting/removing entries from
// cache.byKey; an individual entry's own lock guards its parts and info
// fields. Never acquire the global lock while holding an entry lock.
type entry struct {
	mu     sync.Mutex
	info   *types.FileInfo
	parts  map[int]*part
	refs   atomic.Int32
}

// retain increments the entry's refcount so the flush ticker will not evict
// it while a caller is in the middle of a read/write. release must be called
// exactly once per retain.
func (e *entry) retain() { e.refs.Add(1) }

func (e *entry) release() { e.refs.Add(-1) }

// evictable reports whether the entry can be safely dropped from the cache:
// no in-flight borrower and no unflushed part.
func (e *entry) evictable() bool {
	if e.refs.Load() > 0 {
		return false
	}
	for _, p := range e.parts {
		if p.dirty {
			return false
		}
	}
	return true
}

// cache is the (blockId, name) -> entry map. It is not a package-level
// singleton: each Blockstore creates and holds its own instance, so tests
// can construct isolated caches instead of sharing state.
type cache struct {
	mu    sync.Mutex
	byKey map[cacheKey]*entry
}

func newCache() *cache {
	return &cache{byKey: make(map[cacheKey]*entry)}
}

// getOrCreate returns the entry for key, creating an empty one (no info,
// no parts) if absent. Callers populate info via Stat's load-on-demand path.
func (c *cache) getOrCreate(key cacheKey) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.byKey[key]
	if !ok {
		e = &entry{parts: make(map[int]*part)}
		c.byKey[key] = e
	}
	return e
}

func (c *cache) get(key cacheKey) (*entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.byKey[key]
	return e, ok
}

func (c *cache) delete(key cacheKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byKey, key)
}

// evictIfIdle removes key's entry if it is present and evictable, for use
// by FlushCache once a flushed entry's dirty parts are cleared.
func (c *cache) evictIfIdle(key cacheKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.byKey[key]
	if ok && e.evictable() {
		delete(c.byKey, key)
	}
}

// keys returns a snapshot of every cached key, for FlushCache to iterate
// without holding the global lock across per-entry flush work.
func (c *cache) keys() []cacheKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]cacheKey, 0, len(c.byKey))
	for k := range c.byKey {
		out = append(out, k)
	}
	return out
}

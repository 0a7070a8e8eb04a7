package blockstore

import (
	"context"
	"database/sql"
	"sync"

	"github.com/shellbench/shellbench/internal/types"
)

// appendLock serializes AppendData calls per process so appends from
// concurrent goroutines never interleave their WriteAt(off=currentSize)
// calls and silently overwrite each other.
type appendLock struct {
	mu sync.Mutex
}

// WriteAt writes p at logical offset off, growing/creating parts as needed.
// For a circular file, a write that reaches MaxSize wraps to offset 0 and
// continues through a recursive call; a write longer than MaxSize recurses
// once per lap, each lap overwriting the previous one.
func (b *Blockstore) WriteAt(ctx context.Context, blockId, name string, p []byte, off int64) (int, error) {
	info, err := b.Stat(ctx, blockId, name)
	if err != nil {
		return 0, err
	}
	key := cacheKey{blockId, name}
	e, ok := b.cache.get(key)
	if !ok {
		return 0, errCacheEntryMissing
	}
	e.retain()
	defer e.release()

	if info.Opts.MaxSize > 0 && off >= info.Opts.MaxSize {
		if !info.Opts.Circular {
			return 0, MaxSizeError
		}
		off %= info.Opts.MaxSize
	}

	if info.Opts.MaxSize > 0 && info.Opts.Circular && off+int64(len(p)) > info.Opts.MaxSize {
		firstLen := info.Opts.MaxSize - off
		n1, err := b.writeAtEntry(e, p[:firstLen], off)
		if err != nil {
			return n1, err
		}
		n2, err := b.WriteAt(ctx, blockId, name, p[firstLen:], 0)
		return n1 + n2, err
	}

	if info.Opts.MaxSize > 0 && !info.Opts.Circular && off+int64(len(p)) > info.Opts.MaxSize {
		return 0, MaxSizeError
	}

	n, err := b.writeAtEntry(e, p, off)
	if err != nil {
		return n, err
	}

	if err := b.persistMeta(ctx, e); err != nil {
		return n, err
	}
	return n, nil
}

// writeAtEntry performs the in-memory part of WriteAt: split p across the
// parts it touches, growing each part's byte buffer (left-padding with
// zeros if the write starts past the part's current length) and marking it
// dirty. FileInfo.Size is updated by the net length change.
func (b *Blockstore) writeAtEntry(e *entry, p []byte, off int64) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	written := 0
	for written < len(p) {
		absOff := off + int64(written)
		partNum := int(absOff / PartSize)
		cacheOff := int(absOff % PartSize)

		pt, ok := e.parts[partNum]
		if !ok {
			pt = &part{}
			e.parts[partNum] = pt
		}
		if cacheOff > len(pt.bytes) {
			pad := make([]byte, cacheOff-len(pt.bytes))
			pt.bytes = append(pt.bytes, pad...)
		}

		chunk := PartSize - cacheOff
		remaining := len(p) - written
		if chunk > remaining {
			chunk = remaining
		}

		needed := cacheOff + chunk
		if needed > len(pt.bytes) {
			grown := make([]byte, needed)
			copy(grown, pt.bytes)
			pt.bytes = grown
		}
		copy(pt.bytes[cacheOff:needed], p[written:written+chunk])
		pt.dirty = true
		written += chunk
	}

	newEnd := off + int64(len(p))
	if newEnd > e.info.Size {
		e.info.Size = newEnd
	}
	e.info.ModTs = types.NowMillis()
	return written, nil
}

// AppendData appends p to the end of the file, serialized by a single
// process-wide append lock so concurrent appenders never race on the
// current-size offset.
func (b *Blockstore) AppendData(ctx context.Context, blockId, name string, p []byte) (int, error) {
	b.appendMu.mu.Lock()
	defer b.appendMu.mu.Unlock()

	info, err := b.Stat(ctx, blockId, name)
	if err != nil {
		return 0, err
	}
	return b.WriteAt(ctx, blockId, name, p, info.Size)
}

// ReadAt reads up to len(out) bytes starting at logical offset off into
// out, returning the number of bytes read. It stops at end-of-file for
// non-circular files (short read, nil error) and wraps identically to
// WriteAt for circular files.
func (b *Blockstore) ReadAt(ctx context.Context, blockId, name string, out []byte, off int64) (int, error) {
	info, err := b.Stat(ctx, blockId, name)
	if err != nil {
		return 0, err
	}
	key := cacheKey{blockId, name}
	e, ok := b.cache.get(key)
	if !ok {
		return 0, errCacheEntryMissing
	}
	e.retain()
	defer e.release()

	if info.Opts.Circular && info.Opts.MaxSize > 0 {
		off %= info.Opts.MaxSize
	} else if off >= info.Size {
		return 0, errReadPastEnd
	}

	return b.readAtEntry(ctx, e, info, out, off)
}

func (b *Blockstore) readAtEntry(ctx context.Context, e *entry, info *types.FileInfo, out []byte, off int64) (int, error) {
	read := 0
	for read < len(out) {
		absOff := off + int64(read)
		if !info.Opts.Circular && absOff >= info.Size {
			break
		}
		if info.Opts.Circular && info.Opts.MaxSize > 0 && absOff >= info.Opts.MaxSize {
			// Wrapped past one lap with nothing further requested; stop
			// rather than looping forever over an exhausted read request.
			break
		}

		partNum := int(absOff / PartSize)
		cacheOff := int(absOff % PartSize)

		pt, err := b.loadPart(ctx, e, info, partNum)
		if err != nil {
			return read, err
		}
		if pt == nil || cacheOff >= pt.size() {
			break
		}

		n := copy(out[read:], pt.bytes[cacheOff:])
		read += n
		if n == 0 {
			break
		}
	}
	return read, nil
}

// loadPart returns partNum from the entry's in-memory parts, loading it
// from the SQL backend on first access if it exists there.
func (b *Blockstore) loadPart(ctx context.Context, e *entry, info *types.FileInfo, partNum int) (*part, error) {
	e.mu.Lock()
	if pt, ok := e.parts[partNum]; ok {
		e.mu.Unlock()
		return pt, nil
	}
	e.mu.Unlock()

	var data []byte
	err := b.store.QueryRow(ctx, func(row *sql.Row) error {
		return row.Scan(&data)
	}, "SELECT data FROM blockstore_part WHERE blockid = ? AND name = ? AND partnum = ?",
		info.BlockId, info.Name, partNum)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	pt, ok := e.parts[partNum]
	if !ok {
		pt = &part{bytes: data}
		e.parts[partNum] = pt
	}
	e.mu.Unlock()
	return pt, nil
}

// persistMeta writes the entry's FileInfo row through immediately (parts
// remain cached-and-dirty until the next flush); callers that mutate Size
// via WriteAt use this to keep Stat's SQL-backed fallback consistent even
// between flush ticks.
func (b *Blockstore) persistMeta(ctx context.Context, e *entry) error {
	e.mu.Lock()
	m := e.info.ToMap()
	e.mu.Unlock()

	_, err := b.store.Exec(ctx,
		"UPDATE blockstore_file SET size = ?, modts = ? WHERE blockid = ? AND name = ?",
		m["size"], m["modts"], m["blockid"], m["name"])
	return err
}

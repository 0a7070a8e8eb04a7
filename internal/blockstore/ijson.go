package blockstore

import (
	"bytes"
	"context"
	"encoding/json"
)

// CollapseIJson compacts an incremental-JSON file (a blockstore file whose
// FileOpts.IJson is set, written as a stream of independently-decodable JSON
// values) into a single JSON array snapshot. Callers typically run this
// during a flush or maintenance pass once an ijson file has accumulated
// enough fragments that replaying them on every read is wasteful.
func (b *Blockstore) CollapseIJson(ctx context.Context, blockId, name string) error {
	info, err := b.Stat(ctx, blockId, name)
	if err != nil {
		return err
	}
	if !info.Opts.IJson {
		return nil
	}

	buf := make([]byte, info.Size)
	n, err := b.ReadAt(ctx, blockId, name, buf, 0)
	if err != nil && err != errReadPastEnd {
		return err
	}
	buf = buf[:n]

	values, err := decodeJSONStream(buf)
	if err != nil {
		return err
	}

	collapsed, err := json.Marshal(values)
	if err != nil {
		return err
	}

	return b.replaceContents(ctx, blockId, name, collapsed)
}

// decodeJSONStream decodes a concatenated sequence of JSON values (no
// separators required) into a slice, keeping only the latest value for
// fragments that represent the same logical update is the caller's
// responsibility — this just flattens the stream into discrete values.
func decodeJSONStream(buf []byte) ([]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(buf))
	var out []json.RawMessage
	for dec.More() {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}

// replaceContents overwrites a file's bytes in place: truncate the cached
// parts and SQL-backed parts, then append the new contents as a fresh
// write starting at offset 0.
func (b *Blockstore) replaceContents(ctx context.Context, blockId, name string, data []byte) error {
	key := cacheKey{blockId, name}
	e, ok := b.cache.get(key)
	if !ok {
		return errCacheEntryMissing
	}

	e.mu.Lock()
	e.parts = make(map[int]*part)
	e.info.Size = 0
	e.mu.Unlock()

	if _, err := b.store.Exec(ctx, "DELETE FROM blockstore_part WHERE blockid = ? AND name = ?", blockId, name); err != nil {
		return err
	}

	_, err := b.WriteAt(ctx, blockId, name, data, 0)
	return err
}

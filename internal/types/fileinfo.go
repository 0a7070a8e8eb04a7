package types

// FileOpts are the creation-time options for a blockstore file.
type FileOpts struct {
	MaxSize  int64 `json:"maxsize,omitempty"` // 0 = unbounded
	Circular bool  `json:"circular,omitempty"`
	IJson    bool  `json:"ijson,omitempty"`
}

// FileMeta is a small free-form metadata map attached to a blockstore file
// (e.g. content-type hints for inlined UI artefacts).
type FileMeta map[string]string

// FileInfo is one blockstore file's row: identity, size, and options. It is
// always handed to callers as a deep copy (see internal/blockstore.Stat) so
// external mutation cannot corrupt the live cache entry.
type FileInfo struct {
	BlockId   string   `json:"blockid"`
	Name      string   `json:"name"`
	Size      int64    `json:"size"`
	CreatedTs int64    `json:"createdts"`
	ModTs     int64    `json:"modts"`
	Opts      FileOpts `json:"opts"`
	Meta      FileMeta `json:"meta"`
}

// Clone returns a deep copy safe for the caller to mutate.
func (fi *FileInfo) Clone() *FileInfo {
	if fi == nil {
		return nil
	}
	out := *fi
	if fi.Meta != nil {
		out.Meta = make(FileMeta, len(fi.Meta))
		for k, v := range fi.Meta {
			out.Meta[k] = v
		}
	}
	return &out
}

func (fi *FileInfo) ToMap() map[string]any {
	return map[string]any{
		"blockid":   fi.BlockId,
		"name":      fi.Name,
		"size":      fi.Size,
		"createdts": fi.CreatedTs,
		"modts":     fi.ModTs,
		"opts":      jsonColumn(fi.Opts),
		"meta":      jsonColumn(fi.Meta),
	}
}

func (fi *FileInfo) FromMap(m map[string]any) {
	fi.BlockId, _ = m["blockid"].(string)
	fi.Name, _ = m["name"].(string)
	fi.Size = toInt64(m["size"])
	fi.CreatedTs = toInt64(m["createdts"])
	fi.ModTs = toInt64(m["modts"])
	_ = parseJSONColumn(toString(m["opts"]), &fi.Opts)
	_ = parseJSONColumn(toString(m["meta"]), &fi.Meta)
}

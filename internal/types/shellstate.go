package types

// ShellStateVersion is bumped whenever the shell-integration agent changes
// its capture format; GetFullState callers use it to reject bases they
// cannot decode.
const ShellStateVersion = 1

// ShellState is the decoded form of a captured shell environment: variables,
// aliases, functions, shell identity, and working directory. It is never
// stored directly — StoreStateBase/StoreStateDiff work against its canonical
// byte encoding (see internal/shellstate).
type ShellState struct {
	Version   int               `json:"version"`
	Cwd       string            `json:"cwd"`
	ShellType ShellPref         `json:"shelltype"`
	Env       map[string]string `json:"env"`
	Aliases   map[string]string `json:"aliases,omitempty"`
	Funcs     string            `json:"funcs,omitempty"`
}

// StateBase is an immutable, content-addressed snapshot of a ShellState.
type StateBase struct {
	BaseHash BaseHash `json:"basehash"`
	Version  int      `json:"version"`
	Ts       int64    `json:"ts"`
	Data     []byte   `json:"data"`
}

func (b *StateBase) ToMap() map[string]any {
	return map[string]any{
		"basehash": b.BaseHash,
		"version":  b.Version,
		"ts":       b.Ts,
		"data":     b.Data,
	}
}

func (b *StateBase) FromMap(m map[string]any) {
	b.BaseHash, _ = m["basehash"].(string)
	b.Version = toInt(m["version"])
	b.Ts = toInt64(m["ts"])
	b.Data, _ = m["data"].([]byte)
}

// StateDiff is a content-addressed delta against a base (and, transitively,
// against every diff named in DiffHashArr, applied in order before it).
type StateDiff struct {
	DiffHash    DiffHash   `json:"diffhash"`
	Ts          int64      `json:"ts"`
	BaseHash    BaseHash   `json:"basehash"`
	DiffHashArr []DiffHash `json:"diffhasharr"`
	Data        []byte     `json:"data"`
}

func (d *StateDiff) ToMap() map[string]any {
	return map[string]any{
		"diffhash":    d.DiffHash,
		"ts":          d.Ts,
		"basehash":    d.BaseHash,
		"diffhasharr": jsonColumn(d.DiffHashArr),
		"data":        d.Data,
	}
}

func (d *StateDiff) FromMap(m map[string]any) {
	d.DiffHash, _ = m["diffhash"].(string)
	d.Ts = toInt64(m["ts"])
	d.BaseHash, _ = m["basehash"].(string)
	_ = parseJSONColumn(toString(m["diffhasharr"]), &d.DiffHashArr)
	d.Data, _ = m["data"].([]byte)
}

// IsEmpty reports whether the diff carries no actual delta (the sentinel
// value GetCurStateDiffFromPtr returns when a state pointer's chain is empty).
func (d *StateDiff) IsEmpty() bool {
	return len(d.Data) == 0 && len(d.DiffHashArr) == 0
}

package types

// ScreenUpdateType is the closed set of persisted update-log row kinds. Each
// maps to one concrete UpdateRecord; line:new implicitly pairs with a
// pty:pos row (see internal/updatebus).
type ScreenUpdateType string

const (
	SUScreenNew          ScreenUpdateType = "screen:new"
	SUScreenDel          ScreenUpdateType = "screen:del"
	SUScreenSelectedLine ScreenUpdateType = "screen:selectedline"
	SUScreenShareName    ScreenUpdateType = "screen:sharename"
	SULineNew            ScreenUpdateType = "line:new"
	SULineDel            ScreenUpdateType = "line:del"
	SULineRenderer       ScreenUpdateType = "line:renderer"
	SULineContentHeight  ScreenUpdateType = "line:contentheight"
	SULineState          ScreenUpdateType = "line:state"
	SUCmdStatus          ScreenUpdateType = "cmd:status"
	SUCmdTermOpts        ScreenUpdateType = "cmd:termopts"
	SUCmdExitCode        ScreenUpdateType = "cmd:exitcode"
	SUCmdDurationMs      ScreenUpdateType = "cmd:durationms"
	SUCmdRtnState        ScreenUpdateType = "cmd:rtnstate"
	SUPtyPos             ScreenUpdateType = "pty:pos"
)

// coalesceOnInsert is the subset of update types for which inserting a new
// row first deletes any prior row for the same (screenid, lineid): the
// persistent log only ever needs to tell a reconnecting web viewer the
// latest state of a line, not its full history.
var coalesceOnInsert = map[ScreenUpdateType]bool{
	SULineNew: true,
	SULineDel: true,
}

// ShouldCoalesce reports whether inserting a row of this type should first
// remove any existing row for the same (screenid, lineid).
func (t ScreenUpdateType) ShouldCoalesce() bool {
	return coalesceOnInsert[t]
}

// ScreenUpdateRow is one row of the persisted `screenupdate` log consumed by
// the UpdateWriter for web-shared screens.
type ScreenUpdateRow struct {
	UpdateId   int64            `json:"updateid"`
	ScreenId   ScreenId         `json:"screenid"`
	LineId     LineId           `json:"lineid,omitempty"`
	UpdateType ScreenUpdateType `json:"updatetype"`
	UpdateTs   int64            `json:"updatets"`
}

func (r *ScreenUpdateRow) ToMap() map[string]any {
	return map[string]any{
		"screenid":   r.ScreenId,
		"lineid":     r.LineId,
		"updatetype": string(r.UpdateType),
		"updatets":   r.UpdateTs,
	}
}

func (r *ScreenUpdateRow) FromMap(m map[string]any) {
	r.UpdateId = toInt64(m["updateid"])
	r.ScreenId, _ = m["screenid"].(string)
	r.LineId, _ = m["lineid"].(string)
	r.UpdateType = ScreenUpdateType(toString(m["updatetype"]))
	r.UpdateTs = toInt64(m["updatets"])
}

// WebPtyPos records the last byte position of a web-shared (screen, line)
// pty output that has been announced to viewers via a pty:pos update.
type WebPtyPos struct {
	ScreenId ScreenId `json:"screenid"`
	LineId   LineId   `json:"lineid"`
	PtyPos   int64    `json:"ptypos"`
}

func (p *WebPtyPos) ToMap() map[string]any {
	return map[string]any{
		"screenid": p.ScreenId,
		"lineid":   p.LineId,
		"ptypos":   p.PtyPos,
	}
}

func (p *WebPtyPos) FromMap(m map[string]any) {
	p.ScreenId, _ = m["screenid"].(string)
	p.LineId, _ = m["lineid"].(string)
	p.PtyPos = toInt64(m["ptypos"])
}

package types

// HistoryItem is one executed command preserved for history search, keyed
// independently of its originating line so it survives line deletion (the
// back-reference is cleared, not the row).
type HistoryItem struct {
	HistoryId  string    `json:"historyid"`
	Ts         int64     `json:"ts"`
	ScreenId   ScreenId  `json:"screenid,omitempty"`
	LineId     LineId    `json:"lineid,omitempty"`
	CmdStr     string    `json:"cmdstr"`
	RemoteId   RemoteId  `json:"remoteid,omitempty"`
	ExitCode   int       `json:"exitcode"`
	DurationMs int64     `json:"durationms"`
}

func (h *HistoryItem) ToMap() map[string]any {
	return map[string]any{
		"historyid":  h.HistoryId,
		"ts":         h.Ts,
		"screenid":   h.ScreenId,
		"lineid":     h.LineId,
		"cmdstr":     h.CmdStr,
		"remoteid":   h.RemoteId,
		"exitcode":   h.ExitCode,
		"durationms": h.DurationMs,
	}
}

func (h *HistoryItem) FromMap(m map[string]any) {
	h.HistoryId, _ = m["historyid"].(string)
	h.Ts = toInt64(m["ts"])
	h.ScreenId, _ = m["screenid"].(string)
	h.LineId, _ = m["lineid"].(string)
	h.CmdStr, _ = m["cmdstr"].(string)
	h.RemoteId, _ = m["remoteid"].(string)
	h.ExitCode = toInt(m["exitcode"])
	h.DurationMs = toInt64(m["durationms"])
}

// ClearLineRef detaches the history row from a deleted line without
// deleting the row itself, matching the delete-line invariant that history
// outlives its originating line.
func (h *HistoryItem) ClearLineRef() {
	h.LineId = ""
}

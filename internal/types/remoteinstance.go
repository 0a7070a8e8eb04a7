package types

// RemoteInstance is an active shell bound to a (session, screen, remote)
// triple. ScreenId is empty when the instance is session-scoped rather than
// tied to one screen.
type RemoteInstance struct {
	Id        RemoteInstanceId `json:"riid"`
	Name      string           `json:"name"`
	SessionId SessionId        `json:"sessionid"`
	ScreenId  ScreenId         `json:"screenid,omitempty"`
	Remote    RemotePtr        `json:"remote"`
	FeState   FeState          `json:"festate"`
	StatePtr  StatePtr         `json:"statebaseptr"`
	ShellType ShellPref        `json:"shelltype"`
}

// IsSessionScoped reports whether the instance is shared across every
// screen in its session rather than owned by a single screen.
func (ri *RemoteInstance) IsSessionScoped() bool {
	return ri.ScreenId == ""
}

func (ri *RemoteInstance) ToMap() map[string]any {
	return map[string]any{
		"riid":             ri.Id,
		"name":             ri.Name,
		"sessionid":        ri.SessionId,
		"screenid":         ri.ScreenId,
		"remote":           jsonColumn(ri.Remote),
		"festate":          jsonColumn(ri.FeState),
		"statebasehash":    ri.StatePtr.BaseHash,
		"statediffhasharr": jsonColumn(ri.StatePtr.DiffHashArr),
		"shelltype":        string(ri.ShellType),
	}
}

func (ri *RemoteInstance) FromMap(m map[string]any) {
	ri.Id, _ = m["riid"].(string)
	ri.Name, _ = m["name"].(string)
	ri.SessionId, _ = m["sessionid"].(string)
	ri.ScreenId, _ = m["screenid"].(string)
	_ = parseJSONColumn(toString(m["remote"]), &ri.Remote)
	_ = parseJSONColumn(toString(m["festate"]), &ri.FeState)
	ri.StatePtr.BaseHash = toString(m["statebasehash"])
	_ = parseJSONColumn(toString(m["statediffhasharr"]), &ri.StatePtr.DiffHashArr)
	ri.ShellType = ShellPref(toString(m["shelltype"]))
}

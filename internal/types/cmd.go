package types

// CmdStatus is the lifecycle state of a running (or finished) command.
type CmdStatus string

const (
	StatusRunning  CmdStatus = "running"
	StatusDetached CmdStatus = "detached"
	StatusError    CmdStatus = "error"
	StatusDone     CmdStatus = "done"
	StatusHangup   CmdStatus = "hangup"
	StatusUnknown  CmdStatus = "unknown"
)

// CanTransitionTo reports whether moving from status to next is a legal
// lifecycle transition: running may resolve into any terminal status, and
// any terminal status may restart back into running.
func (status CmdStatus) CanTransitionTo(next CmdStatus) bool {
	if status == StatusRunning {
		switch next {
		case StatusDone, StatusError, StatusHangup, StatusDetached:
			return true
		}
		return false
	}
	return next == StatusRunning
}

// RemotePtr names an owning remote and, for sudo/nested remotes, the remote
// underneath it.
type RemotePtr struct {
	OwnerId RemoteId `json:"ownerid,omitempty"`
	Id      RemoteId `json:"id"`
	Name    string   `json:"name,omitempty"`
}

// TermOpts is the pty geometry and output cap requested for a command.
type TermOpts struct {
	Rows       int  `json:"rows"`
	Cols       int  `json:"cols"`
	FlexRows   bool `json:"flexrows,omitempty"`
	MaxPtySize int  `json:"maxptysize,omitempty"`
}

// StatePtr addresses a resolvable shell state: a base plus zero or more
// diffs applied in order.
type StatePtr struct {
	BaseHash    BaseHash   `json:"basehash"`
	DiffHashArr []DiffHash `json:"diffhasharr,omitempty"`
}

// FeState is the small shell-environment summary shown in the front end.
type FeState map[string]string

// Cmd is 1:1 with a cmd-type Line: the invocation, its pty/exit metadata,
// and the shell-state pointers captured around it.
type Cmd struct {
	ScreenId      ScreenId  `json:"screenid"`
	LineId        LineId    `json:"lineid"`
	Remote        RemotePtr `json:"remote"`
	CmdStr        string    `json:"cmdstr"`
	RawCmdStr     string    `json:"rawcmdstr"`
	FeState       FeState   `json:"festate"`
	StatePtr      StatePtr  `json:"statebaseptr"`
	TermOpts      TermOpts  `json:"termopts"`
	OrigTermOpts  TermOpts  `json:"origtermopts"`
	Status        CmdStatus `json:"status"`
	CmdPid        int       `json:"cmdpid,omitempty"`
	RemotePid     int       `json:"remotepid,omitempty"`
	RestartTs     int64     `json:"restartts,omitempty"`
	DoneTs        int64     `json:"donets,omitempty"`
	ExitCode      int       `json:"exitcode"`
	DurationMs    int64     `json:"durationms"`
	RtnState      bool      `json:"rtnstate,omitempty"`
	RtnStatePtr   StatePtr  `json:"rtnstateptr"`
}

func (c *Cmd) ToMap() map[string]any {
	return map[string]any{
		"screenid":         c.ScreenId,
		"lineid":           c.LineId,
		"remote":           jsonColumn(c.Remote),
		"cmdstr":           c.CmdStr,
		"rawcmdstr":        c.RawCmdStr,
		"festate":          jsonColumn(c.FeState),
		"statebasehash":    c.StatePtr.BaseHash,
		"statediffhasharr": jsonColumn(c.StatePtr.DiffHashArr),
		"termopts":         jsonColumn(c.TermOpts),
		"origtermopts":     jsonColumn(c.OrigTermOpts),
		"status":           string(c.Status),
		"cmdpid":           c.CmdPid,
		"remotepid":        c.RemotePid,
		"restartts":        c.RestartTs,
		"donets":           c.DoneTs,
		"exitcode":         c.ExitCode,
		"durationms":       c.DurationMs,
		"rtnstate":         c.RtnState,
		"rtnbasehash":      c.RtnStatePtr.BaseHash,
		"rtndiffhasharr":   jsonColumn(c.RtnStatePtr.DiffHashArr),
	}
}

func (c *Cmd) FromMap(m map[string]any) {
	c.ScreenId, _ = m["screenid"].(string)
	c.LineId, _ = m["lineid"].(string)
	_ = parseJSONColumn(toString(m["remote"]), &c.Remote)
	c.CmdStr, _ = m["cmdstr"].(string)
	c.RawCmdStr, _ = m["rawcmdstr"].(string)
	_ = parseJSONColumn(toString(m["festate"]), &c.FeState)
	c.StatePtr.BaseHash = toString(m["statebasehash"])
	_ = parseJSONColumn(toString(m["statediffhasharr"]), &c.StatePtr.DiffHashArr)
	_ = parseJSONColumn(toString(m["termopts"]), &c.TermOpts)
	_ = parseJSONColumn(toString(m["origtermopts"]), &c.OrigTermOpts)
	c.Status = CmdStatus(toString(m["status"]))
	c.CmdPid = toInt(m["cmdpid"])
	c.RemotePid = toInt(m["remotepid"])
	c.RestartTs = toInt64(m["restartts"])
	c.DoneTs = toInt64(m["donets"])
	c.ExitCode = toInt(m["exitcode"])
	c.DurationMs = toInt64(m["durationms"])
	c.RtnState = toBool(m["rtnstate"])
	c.RtnStatePtr.BaseHash = toString(m["rtnbasehash"])
	_ = parseJSONColumn(toString(m["rtndiffhasharr"]), &c.RtnStatePtr.DiffHashArr)
}

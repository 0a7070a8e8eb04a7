package types

// IndicatorLevel is a screen's aggregate command-status indicator, shown as
// a colored dot on its tab. It is monotonic within a single running command
// (output never downgrades success/error back to output) and resets when
// the user scrolls past the line that set it.
type IndicatorLevel string

const (
	IndicatorNone    IndicatorLevel = "none"
	IndicatorOutput  IndicatorLevel = "output"
	IndicatorSuccess IndicatorLevel = "success"
	IndicatorError   IndicatorLevel = "error"
)

// OpenAIMessage is one turn in a screen's AI chat scratch.
type OpenAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UpdateRecord is one entry in an UpdatePacket. Concrete implementations are
// a fixed, closed set (see below) — consumers type-switch on the interface
// rather than on a string discriminant, but the wire encoding always carries
// the UpdateType() tag for non-Go clients.
type UpdateRecord interface {
	UpdateType() string
}

// ScreenUpdate carries a screen row; Remove marks it deleted (cascaded to a
// ScreenTombstoneUpdate by the caller).
type ScreenUpdate struct {
	Screen Screen `json:"screen"`
	Remove bool   `json:"remove,omitempty"`
}

func (ScreenUpdate) UpdateType() string { return "screen" }

type ScreenTombstoneUpdate struct {
	ScreenTombstone ScreenTombstone `json:"screentombstone"`
}

func (ScreenTombstoneUpdate) UpdateType() string { return "screentombstone" }

type SessionUpdate struct {
	Session Session `json:"session"`
	Remove  bool    `json:"remove,omitempty"`
}

func (SessionUpdate) UpdateType() string { return "session" }

type SessionTombstoneUpdate struct {
	SessionTombstone SessionTombstone `json:"sessiontombstone"`
}

func (SessionTombstoneUpdate) UpdateType() string { return "sessiontombstone" }

type LineUpdate struct {
	Line   Line `json:"line"`
	Remove bool `json:"remove,omitempty"`
}

func (LineUpdate) UpdateType() string { return "line" }

type CmdUpdate struct {
	Cmd    Cmd  `json:"cmd"`
	Remove bool `json:"remove,omitempty"`
}

func (CmdUpdate) UpdateType() string { return "cmd" }

type RemoteInstanceUpdate struct {
	RemoteInstance RemoteInstance `json:"remoteinstance"`
	Remove         bool           `json:"remove,omitempty"`
}

func (RemoteInstanceUpdate) UpdateType() string { return "remoteinstance" }

// ScreenStatusIndicatorUpdate reflects internal/screenstate's in-memory
// indicator level for a screen; it never touches the relational store.
type ScreenStatusIndicatorUpdate struct {
	ScreenId ScreenId       `json:"screenid"`
	Status   IndicatorLevel `json:"status"`
}

func (ScreenStatusIndicatorUpdate) UpdateType() string { return "screenstatusindicator" }

// ScreenNumRunningCommandsUpdate reflects internal/screenstate's running
// command counter for a screen.
type ScreenNumRunningCommandsUpdate struct {
	ScreenId ScreenId `json:"screenid"`
	Num      int      `json:"num"`
}

func (ScreenNumRunningCommandsUpdate) UpdateType() string { return "screennumrunningcommands" }

// ActiveSessionIdUpdate reports a client's newly active session.
type ActiveSessionIdUpdate struct {
	SessionId SessionId `json:"activesessionid"`
}

func (ActiveSessionIdUpdate) UpdateType() string { return "activesessionid" }

// PtyDataUpdate carries incremental pty bytes for a running command, sent
// only for web-shared screens so remote tailers can follow along.
type PtyDataUpdate struct {
	ScreenId   ScreenId `json:"screenid"`
	LineId     LineId   `json:"lineid"`
	PtyPos     int64    `json:"ptypos"`
	Data       []byte   `json:"data"`
	DataLength int64    `json:"datalength"`
}

func (PtyDataUpdate) UpdateType() string { return "ptydata" }

// CmdLineUpdate bundles a Cmd and its owning Line for consumers that apply
// both atomically (e.g. the done-info update after a command exits).
type CmdLineUpdate struct {
	Line Line `json:"line"`
	Cmd  Cmd  `json:"cmd"`
}

func (CmdLineUpdate) UpdateType() string { return "cmdline" }

// OpenAICmdInfoChatUpdate carries a screen's AI chat scratch.
type OpenAICmdInfoChatUpdate struct {
	ScreenId ScreenId        `json:"screenid"`
	Messages []OpenAIMessage `json:"messages"`
}

func (OpenAICmdInfoChatUpdate) UpdateType() string { return "openaicmdinfochat" }

// ScreenLinesUpdate is a full resync bundle for one screen: every line and
// cmd row, used to recover a client whose incremental updates were dropped.
type ScreenLinesUpdate struct {
	ScreenId ScreenId `json:"screenid"`
	Lines    []Line   `json:"lines"`
	Cmds     []Cmd    `json:"cmds"`
}

func (ScreenLinesUpdate) UpdateType() string { return "screenlines" }

// ConnectUpdate is the full-state resync sent when a client (re)connects:
// every session, screen, and remote it can see, plus its active session.
type ConnectUpdate struct {
	Sessions       []Session `json:"sessions"`
	Screens        []Screen  `json:"screens"`
	Remotes        []Remote  `json:"remotes"`
	ActiveSessionId SessionId `json:"activesessionid"`
}

func (ConnectUpdate) UpdateType() string { return "connect" }

// UpdatePacket is a batch of update records delivered as one message, e.g.
// {"type": "model-update", "updates": [...]} on the wire.
type UpdatePacket struct {
	Updates []UpdateRecord
}

// AddUpdate appends a record to the packet. It is the only mutator so every
// packet construction site is easy to find.
func (p *UpdatePacket) AddUpdate(u UpdateRecord) {
	p.Updates = append(p.Updates, u)
}

// IsEmpty reports whether the packet carries no updates and can be skipped.
func (p *UpdatePacket) IsEmpty() bool {
	return p == nil || len(p.Updates) == 0
}

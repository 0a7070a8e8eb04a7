package types

// LineType distinguishes command lines from plain text/AI-chat lines.
type LineType string

const (
	LineTypeCmd    LineType = "cmd"
	LineTypeText   LineType = "text"
	LineTypeOpenAI LineType = "openai"
)

// LineState is a small JSON scratch map attached to a line. The workspace
// mutator rejects an insert whose encoded state exceeds MaxLineStateBytes.
type LineState map[string]any

// MaxLineStateBytes bounds the serialized size of a Line's state map.
const MaxLineStateBytes = 4 * 1024

// Line is one entry in a screen's scrollback: a command invocation, a note,
// or an AI chat turn.
type Line struct {
	ScreenId      ScreenId  `json:"screenid"`
	UserId        UserId    `json:"userid,omitempty"`
	LineId        LineId    `json:"lineid"`
	Ts            int64     `json:"ts"`
	LineNum       int       `json:"linenum"`
	LineNumTemp   bool      `json:"linenumtemp,omitempty"`
	LineLocal     bool      `json:"linelocal,omitempty"`
	LineType      LineType  `json:"linetype"`
	LineState     LineState `json:"linestate"`
	Text          string    `json:"text,omitempty"`
	Renderer      string    `json:"renderer,omitempty"`
	Ephemeral     bool      `json:"ephemeral,omitempty"`
	ContentHeight int       `json:"contentheight,omitempty"`
	Star          bool      `json:"star,omitempty"`
	Archived      bool      `json:"archived,omitempty"`
}

func (l *Line) ToMap() map[string]any {
	return map[string]any{
		"screenid":      l.ScreenId,
		"userid":        l.UserId,
		"lineid":        l.LineId,
		"ts":            l.Ts,
		"linenum":       l.LineNum,
		"linelocal":     l.LineLocal,
		"linetype":      string(l.LineType),
		"linestate":     jsonColumn(l.LineState),
		"text":          l.Text,
		"renderer":      l.Renderer,
		"ephemeral":     l.Ephemeral,
		"contentheight": l.ContentHeight,
		"star":          l.Star,
		"archived":      l.Archived,
	}
}

func (l *Line) FromMap(m map[string]any) {
	l.ScreenId, _ = m["screenid"].(string)
	l.UserId, _ = m["userid"].(string)
	l.LineId, _ = m["lineid"].(string)
	l.Ts = toInt64(m["ts"])
	l.LineNum = toInt(m["linenum"])
	l.LineLocal = toBool(m["linelocal"])
	l.LineType = LineType(toString(m["linetype"]))
	_ = parseJSONColumn(toString(m["linestate"]), &l.LineState)
	l.Text, _ = m["text"].(string)
	l.Renderer, _ = m["renderer"].(string)
	l.Ephemeral = toBool(m["ephemeral"])
	l.ContentHeight = toInt(m["contentheight"])
	l.Star = toBool(m["star"])
	l.Archived = toBool(m["archived"])
}

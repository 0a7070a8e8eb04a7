package types

// FocusType tracks whether keyboard focus is on the command input or the
// scrollback of a running command.
type FocusType string

const (
	FocusInput FocusType = "input"
	FocusCmd   FocusType = "cmd"
)

// CurRemote identifies the remote instance a screen is currently bound to.
type CurRemote struct {
	OwnerId RemoteId `json:"ownerid,omitempty"`
	Id      RemoteId `json:"id"`
	Name    string   `json:"name,omitempty"`
}

// Anchor records a scroll anchor point (line + byte offset within it) used
// to restore scroll position across reconnects.
type Anchor struct {
	Line   int `json:"line"`
	Offset int `json:"offset"`
}

// ScreenOpts holds cosmetic per-screen settings (colors, tab icon).
type ScreenOpts struct {
	TabColor string `json:"tabcolor,omitempty"`
	TabIcon  string `json:"tabicon,omitempty"`
}

// ScreenViewOpts holds sidebar/layout view state.
type ScreenViewOpts struct {
	SidebarOpen  bool `json:"sidebaropen,omitempty"`
	SidebarWidth int  `json:"sidebarwidth,omitempty"`
}

// WebShareOpts controls what a web-shared screen exposes to viewers.
type WebShareOpts struct {
	ShareName  string `json:"sharename,omitempty"`
	ViewKey    string `json:"viewkey,omitempty"`
	IsWebShare bool   `json:"iswebshare"`
}

// Screen is a tab within a session.
type Screen struct {
	Id             ScreenId       `json:"screenid"`
	SessionId      SessionId      `json:"sessionid"`
	Name           string         `json:"name"`
	ScreenIdx      int            `json:"screenidx"`
	ScreenOpts     ScreenOpts     `json:"screenopts"`
	ScreenViewOpts ScreenViewOpts `json:"screenviewopts"`
	OwnerId        UserId         `json:"ownerid,omitempty"`
	ShareMode      ShareMode      `json:"sharemode"`
	WebShareOpts   WebShareOpts   `json:"webshareopts"`
	CurRemote      CurRemote      `json:"curremote"`
	NextLineNum    int            `json:"nextlinenum"`
	SelectedLine   int            `json:"selectedline"`
	Anchor         Anchor         `json:"anchor"`
	FocusType      FocusType      `json:"focustype"`
	Archived       bool           `json:"archived"`
	ArchivedTs     int64          `json:"archivedts"`
}

func (s *Screen) ToMap() map[string]any {
	return map[string]any{
		"screenid":       s.Id,
		"sessionid":      s.SessionId,
		"name":           s.Name,
		"screenidx":      s.ScreenIdx,
		"screenopts":     jsonColumn(s.ScreenOpts),
		"screenviewopts": jsonColumn(s.ScreenViewOpts),
		"ownerid":        s.OwnerId,
		"sharemode":      string(s.ShareMode),
		"webshareopts":   jsonColumn(s.WebShareOpts),
		"curremote":      jsonColumn(s.CurRemote),
		"nextlinenum":    s.NextLineNum,
		"selectedline":   s.SelectedLine,
		"anchor":         jsonColumn(s.Anchor),
		"focustype":      string(s.FocusType),
		"archived":       s.Archived,
		"archivedts":     s.ArchivedTs,
	}
}

func (s *Screen) FromMap(m map[string]any) {
	s.Id, _ = m["screenid"].(string)
	s.SessionId, _ = m["sessionid"].(string)
	s.Name, _ = m["name"].(string)
	s.ScreenIdx = toInt(m["screenidx"])
	_ = parseJSONColumn(toString(m["screenopts"]), &s.ScreenOpts)
	_ = parseJSONColumn(toString(m["screenviewopts"]), &s.ScreenViewOpts)
	s.OwnerId, _ = m["ownerid"].(string)
	s.ShareMode = ShareMode(toString(m["sharemode"]))
	_ = parseJSONColumn(toString(m["webshareopts"]), &s.WebShareOpts)
	_ = parseJSONColumn(toString(m["curremote"]), &s.CurRemote)
	s.NextLineNum = toInt(m["nextlinenum"])
	s.SelectedLine = toInt(m["selectedline"])
	_ = parseJSONColumn(toString(m["anchor"]), &s.Anchor)
	s.FocusType = FocusType(toString(m["focustype"]))
	s.Archived = toBool(m["archived"])
	s.ArchivedTs = toInt64(m["archivedts"])
}

// IsWebShared reports whether viewers outside the owning client can observe
// this screen's line/pty updates.
func (s *Screen) IsWebShared() bool {
	return s.ShareMode == ShareModeWeb && s.WebShareOpts.IsWebShare
}

// ScreenTombstone retains a deleted screen's identity for history views.
type ScreenTombstone struct {
	ScreenId   ScreenId   `json:"screenid"`
	SessionId  SessionId  `json:"sessionid"`
	Name       string     `json:"name"`
	DeletedTs  int64      `json:"deletedts"`
	ScreenOpts ScreenOpts `json:"screenopts"`
}

func (t *ScreenTombstone) ToMap() map[string]any {
	return map[string]any{
		"screenid":   t.ScreenId,
		"sessionid":  t.SessionId,
		"name":       t.Name,
		"deletedts":  t.DeletedTs,
		"screenopts": jsonColumn(t.ScreenOpts),
	}
}

func (t *ScreenTombstone) FromMap(m map[string]any) {
	t.ScreenId, _ = m["screenid"].(string)
	t.SessionId, _ = m["sessionid"].(string)
	t.Name, _ = m["name"].(string)
	t.DeletedTs = toInt64(m["deletedts"])
	_ = parseJSONColumn(toString(m["screenopts"]), &t.ScreenOpts)
}

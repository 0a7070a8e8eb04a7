package types

import "time"

// ShareMode controls whether a screen's output is exposed to web viewers.
type ShareMode string

const (
	ShareModeLocal ShareMode = "local"
	ShareModeWeb   ShareMode = "web"
)

// Session is a top-level workspace grouping of screens.
type Session struct {
	Id             SessionId `json:"sessionid"`
	Name           string    `json:"name"`
	SessionIdx     int       `json:"sessionidx"`
	ActiveScreenId ScreenId  `json:"activescreenid"`
	ShareMode      ShareMode `json:"sharemode"`
	NotifyNum      int       `json:"notifynum"`
	Archived       bool      `json:"archived"`
	ArchivedTs     int64     `json:"archivedts"` // unix millis, 0 when not archived
}

// ToMap serializes the session into its SQL column representation.
func (s *Session) ToMap() map[string]any {
	return map[string]any{
		"sessionid":      s.Id,
		"name":           s.Name,
		"sessionidx":     s.SessionIdx,
		"activescreenid": s.ActiveScreenId,
		"sharemode":      string(s.ShareMode),
		"notifynum":      s.NotifyNum,
		"archived":       s.Archived,
		"archivedts":     s.ArchivedTs,
	}
}

// FromMap populates the session from a SQL row scanned into a generic map.
func (s *Session) FromMap(m map[string]any) {
	s.Id, _ = m["sessionid"].(string)
	s.Name, _ = m["name"].(string)
	s.SessionIdx = toInt(m["sessionidx"])
	s.ActiveScreenId, _ = m["activescreenid"].(string)
	s.ShareMode = ShareMode(toString(m["sharemode"]))
	s.NotifyNum = toInt(m["notifynum"])
	s.Archived = toBool(m["archived"])
	s.ArchivedTs = toInt64(m["archivedts"])
}

// SessionTombstone retains a deleted session's identity for history views.
type SessionTombstone struct {
	SessionId SessionId `json:"sessionid"`
	Name      string    `json:"name"`
	DeletedTs int64     `json:"deletedts"`
}

func (t *SessionTombstone) ToMap() map[string]any {
	return map[string]any{
		"sessionid": t.SessionId,
		"name":      t.Name,
		"deletedts": t.DeletedTs,
	}
}

func (t *SessionTombstone) FromMap(m map[string]any) {
	t.SessionId, _ = m["sessionid"].(string)
	t.Name, _ = m["name"].(string)
	t.DeletedTs = toInt64(m["deletedts"])
}

// NowMillis returns the current time as unix milliseconds, the timestamp unit
// used throughout the stored entities.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

package types

// CmdStoreType names where pty output bytes ultimately live; the core
// always uses "blockstore", but the column is retained from the source
// layout for compatibility with older persisted installs.
type CmdStoreType string

const CmdStoreBlockstore CmdStoreType = "blockstore"

// ClientOpts and FeOpts are small free-form option bags the front end
// persists and reads back verbatim; the core never interprets their
// contents, only round-trips them.
type ClientOpts map[string]any
type FeOpts map[string]any

// WindowSize is the last known size of the desktop window, restored on
// startup so the UI does not flash at a default size.
type WindowSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ReleaseInfo records the last-seen release the client checked in with, for
// "what's new" banners; the core stores and returns it without validation.
type ReleaseInfo struct {
	LatestVersion string `json:"latestversion,omitempty"`
	InstalledVersion string `json:"installedversion,omitempty"`
}

// Client is the singleton row describing this installation: its identity,
// keypair, active session, and assorted front-end option bags.
type Client struct {
	ClientId        ClientId     `json:"clientid"`
	UserId          UserId       `json:"userid"`
	PublicKey       []byte       `json:"publickey"`
	PrivateKey      []byte       `json:"privatekey"`
	ActiveSessionId SessionId    `json:"activesessionid"`
	WindowSize      WindowSize   `json:"windowsize"`
	ClientOpts      ClientOpts   `json:"clientopts"`
	FeOpts          FeOpts       `json:"feopts"`
	CmdStoreType    CmdStoreType `json:"cmdstoretype"`
	OpenAIOpts      *OpenAIOpts  `json:"openaiopts,omitempty"`
	ReleaseInfo     ReleaseInfo  `json:"releaseinfo"`
}

func (c *Client) ToMap() map[string]any {
	return map[string]any{
		"clientid":        c.ClientId,
		"userid":          c.UserId,
		"publickey":       c.PublicKey,
		"privatekey":      c.PrivateKey,
		"activesessionid": c.ActiveSessionId,
		"windowsize":      jsonColumn(c.WindowSize),
		"clientopts":      jsonColumn(c.ClientOpts),
		"feopts":          jsonColumn(c.FeOpts),
		"cmdstoretype":    string(c.CmdStoreType),
		"openaiopts":      jsonColumn(c.OpenAIOpts),
		"releaseinfo":     jsonColumn(c.ReleaseInfo),
	}
}

func (c *Client) FromMap(m map[string]any) {
	c.ClientId, _ = m["clientid"].(string)
	c.UserId, _ = m["userid"].(string)
	c.PublicKey, _ = m["publickey"].([]byte)
	c.PrivateKey, _ = m["privatekey"].([]byte)
	c.ActiveSessionId, _ = m["activesessionid"].(string)
	_ = parseJSONColumn(toString(m["windowsize"]), &c.WindowSize)
	_ = parseJSONColumn(toString(m["clientopts"]), &c.ClientOpts)
	_ = parseJSONColumn(toString(m["feopts"]), &c.FeOpts)
	c.CmdStoreType = CmdStoreType(toString(m["cmdstoretype"]))
	if raw := toString(m["openaiopts"]); raw != "" {
		c.OpenAIOpts = &OpenAIOpts{}
		_ = parseJSONColumn(raw, c.OpenAIOpts)
	}
	_ = parseJSONColumn(toString(m["releaseinfo"]), &c.ReleaseInfo)
}

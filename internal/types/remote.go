package types

// RemoteType identifies the connection kind: a real ssh hop, the local
// shell, a sudo elevation, or an OpenAI chat endpoint masquerading as a
// remote so it reuses the screen/line/cmd model.
type RemoteType string

const (
	RemoteTypeSsh    RemoteType = "ssh"
	RemoteTypeLocal  RemoteType = "local"
	RemoteTypeSudo   RemoteType = "sudo"
	RemoteTypeOpenAI RemoteType = "openai"
)

// ConnectMode controls when a remote's shell instance is started.
type ConnectMode string

const (
	ConnectStartup ConnectMode = "startup"
	ConnectAuto    ConnectMode = "auto"
	ConnectManual  ConnectMode = "manual"
)

// ShellPref is the shell a remote prefers, or "detect" to probe it.
type ShellPref string

const (
	ShellBash   ShellPref = "bash"
	ShellZsh    ShellPref = "zsh"
	ShellDetect ShellPref = "detect"
)

// SshConfigSrc records whether a remote's connection details were entered
// manually or imported from the user's ssh config.
type SshConfigSrc string

const (
	SshConfigManual SshConfigSrc = "manual"
	SshConfigImport SshConfigSrc = "sshconfig-import"
)

// SshOpts holds ssh-specific connection parameters.
type SshOpts struct {
	SshPort        int    `json:"sshport,omitempty"`
	KeyFile        string `json:"keyfile,omitempty"`
	PasswordAuth   bool   `json:"passwordauth,omitempty"`
	ConnectTimeout int    `json:"connecttimeout,omitempty"`
}

// RemoteOpts holds cosmetic remote settings.
type RemoteOpts struct {
	Color string `json:"color,omitempty"`
}

// OpenAIOpts configures an OpenAI-backed pseudo-remote.
type OpenAIOpts struct {
	Model   string `json:"model,omitempty"`
	APIType string `json:"apitype,omitempty"`
	BaseURL string `json:"baseurl,omitempty"`
	MaxTokens int  `json:"maxtokens,omitempty"`
}

// Remote is a connection definition: ssh user@host, the local shell, sudo,
// or an OpenAI pseudo-remote.
type Remote struct {
	Id              RemoteId     `json:"remoteid"`
	Type            RemoteType   `json:"remotetype"`
	Alias           string       `json:"remotealias,omitempty"`
	CanonicalName   string       `json:"remotecanonicalname"`
	User            string       `json:"remoteuser,omitempty"`
	Host            string       `json:"remotehost,omitempty"`
	ConnectMode     ConnectMode  `json:"connectmode"`
	AutoInstall     bool         `json:"autoinstall,omitempty"`
	SshOpts         SshOpts      `json:"sshopts"`
	RemoteOpts      RemoteOpts   `json:"remoteopts"`
	LastConnectTs   int64        `json:"lastconnectts,omitempty"`
	RemoteIdx       int          `json:"remoteidx"`
	Archived        bool         `json:"archived,omitempty"`
	Local           bool         `json:"local,omitempty"`
	ShellPref       ShellPref    `json:"shellpref"`
	SshConfigSrc    SshConfigSrc `json:"sshconfigsrc"`
	OpenAIOpts      *OpenAIOpts  `json:"openaiopts,omitempty"`
}

func (r *Remote) ToMap() map[string]any {
	return map[string]any{
		"remoteid":             r.Id,
		"remotetype":           string(r.Type),
		"remotealias":          r.Alias,
		"remotecanonicalname":  r.CanonicalName,
		"remoteuser":           r.User,
		"remotehost":           r.Host,
		"connectmode":          string(r.ConnectMode),
		"autoinstall":          r.AutoInstall,
		"sshopts":              jsonColumn(r.SshOpts),
		"remoteopts":           jsonColumn(r.RemoteOpts),
		"lastconnectts":        r.LastConnectTs,
		"remoteidx":            r.RemoteIdx,
		"archived":             r.Archived,
		"local":                r.Local,
		"shellpref":            string(r.ShellPref),
		"sshconfigsrc":         string(r.SshConfigSrc),
		"openaiopts":           jsonColumn(r.OpenAIOpts),
	}
}

func (r *Remote) FromMap(m map[string]any) {
	r.Id, _ = m["remoteid"].(string)
	r.Type = RemoteType(toString(m["remotetype"]))
	r.Alias, _ = m["remotealias"].(string)
	r.CanonicalName, _ = m["remotecanonicalname"].(string)
	r.User, _ = m["remoteuser"].(string)
	r.Host, _ = m["remotehost"].(string)
	r.ConnectMode = ConnectMode(toString(m["connectmode"]))
	r.AutoInstall = toBool(m["autoinstall"])
	_ = parseJSONColumn(toString(m["sshopts"]), &r.SshOpts)
	_ = parseJSONColumn(toString(m["remoteopts"]), &r.RemoteOpts)
	r.LastConnectTs = toInt64(m["lastconnectts"])
	r.RemoteIdx = toInt(m["remoteidx"])
	r.Archived = toBool(m["archived"])
	r.Local = toBool(m["local"])
	r.ShellPref = ShellPref(toString(m["shellpref"]))
	r.SshConfigSrc = SshConfigSrc(toString(m["sshconfigsrc"]))
	if raw := toString(m["openaiopts"]); raw != "" {
		r.OpenAIOpts = &OpenAIOpts{}
		_ = parseJSONColumn(raw, r.OpenAIOpts)
	}
}

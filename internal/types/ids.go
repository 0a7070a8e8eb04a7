// Package types holds the data-model entities persisted by the workspace:
// sessions, screens, lines, commands, remotes, remote instances, shell-state
// bases/diffs, blockstore file metadata, and the tagged update records that
// flow out over the update bus.
//
// Every persisted entity declares a ToMap/FromMap pair used by the query
// code in workspace, shellstate and updatebus to map rows to and from SQL
// columns. Mapping is explicit and table-driven: no reflection
// over struct tags, so the SQL column set for an entity is always visible by
// reading its ToMap method.
package types

// All identifiers are opaque, client-generated UUID strings.
type (
	SessionId        = string
	ScreenId         = string
	LineId           = string
	RemoteId         = string
	RemoteInstanceId = string
	UserId           = string
	ClientId         = string
)

// BaseHash and DiffHash are base36-encoded 64-bit content hashes, not UUIDs.
type (
	BaseHash = string
	DiffHash = string
)

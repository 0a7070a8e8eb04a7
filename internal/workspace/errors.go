package workspace

import "errors"

var (
	ErrSessionNotFound   = errors.New("workspace: session not found")
	ErrSessionArchived   = errors.New("workspace: session is archived")
	ErrScreenNotFound    = errors.New("workspace: screen not found")
	ErrScreenArchived    = errors.New("workspace: screen is archived")
	ErrNoLocalRemote     = errors.New("workspace: no local remote configured")
	ErrLastScreen        = errors.New("workspace: cannot archive the last screen in a session")
	ErrScreenWebShared   = errors.New("workspace: cannot archive a web-shared screen")
	ErrLineExists        = errors.New("workspace: line id already exists")
	ErrCmdRunning        = errors.New("workspace: cannot delete a line whose command is running")
	ErrCmdNotFound       = errors.New("workspace: cmd not found")
	ErrBadStatePtrChoice = errors.New("workspace: exactly one of base or diff must be supplied")
	ErrBadStatusTransition = errors.New("workspace: illegal cmd status transition")
)

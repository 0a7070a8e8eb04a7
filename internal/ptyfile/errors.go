package ptyfile

import "errors"

// ErrNotFound is returned by Stat/Read operations against a (screen, line)
// pair with no pty file on disk.
var ErrNotFound = errors.New("ptyfile: file not found")

// ErrBadHeader is returned when an on-disk file's header cannot be parsed
// as a valid ring-buffer header (wrong magic, truncated, or corrupt).
var ErrBadHeader = errors.New("ptyfile: corrupt header")

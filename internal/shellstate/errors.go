package shellstate

import "errors"

// ErrBaseNotFound is returned when a StatePtr names a base hash the
// repository has never stored.
var ErrBaseNotFound = errors.New("shellstate: base not found")

// ErrDiffNotFound is returned when a StatePtr's diff chain names a diff
// hash the repository has never stored.
var ErrDiffNotFound = errors.New("shellstate: diff not found")

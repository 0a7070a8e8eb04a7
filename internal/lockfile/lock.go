package lockfile

import (
	"errors"
)

// ErrLocked is returned when the daemon lock is already held by another process.
var ErrLocked = errDaemonLocked

// ErrLockBusy is returned when a non-blocking lock cannot be acquired
// because another process holds a conflicting lock.
var ErrLockBusy = errors.New("lock busy: held by another process")

// IsLocked returns true if the error indicates the daemon lock is held elsewhere.
func IsLocked(err error) bool {
	return err == errDaemonLocked
}

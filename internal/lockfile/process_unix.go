//go:build unix || linux || darwin

package lockfile

import (
	"syscall"
)

// IsProcessRunning checks if a process with the given PID is running, for
// diagnosing a lock file left behind by a daemon that died without
// releasing it.
func IsProcessRunning(pid int) bool {
	if pid <= 0 {
		return false // Invalid PID (0 would signal our process group, not a specific process)
	}
	return syscall.Kill(pid, 0) == nil
}

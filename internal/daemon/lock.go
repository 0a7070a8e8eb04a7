package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/shellbench/shellbench/internal/lockfile"
)

// LockInfo is the metadata persisted inside the daemon lock file, readable by
// any process that wants to know who holds it without acquiring it.
type LockInfo struct {
	PID       int       `json:"pid"`
	DataDir   string    `json:"data_dir"`
	Version   string    `json:"version"`
	StartedAt time.Time `json:"started_at"`
}

// instanceLock is a held lock on the daemon's single-instance lock file.
type instanceLock struct {
	file *os.File
	path string
}

// Close releases the lock. The lock file itself is left in place; a future
// acquirer overwrites its contents once it re-acquires the flock.
func (l *instanceLock) Close() error {
	if l.file == nil {
		return nil
	}
	_ = lockfile.FlockUnlock(l.file)
	err := l.file.Close()
	l.file = nil
	return err
}

// acquireInstanceLock takes the exclusive daemon.lock in dataDir, recording
// PID/version/start-time, and mirrors the PID into daemon.pid for callers
// that only want to read a PID without opening the lock file.
//
// Returns lockfile.ErrLocked if another process already holds the lock.
func acquireInstanceLock(dataDir, version string) (io.Closer, error) {
	lockPath := filepath.Join(dataDir, "daemon.lock")

	// #nosec G304 - dataDir is operator-controlled configuration, not user input
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open daemon lock: %w", err)
	}

	if err := lockfile.FlockExclusiveNonBlocking(f); err != nil {
		_ = f.Close()
		return nil, err
	}

	info := LockInfo{
		PID:       os.Getpid(),
		DataDir:   dataDir,
		Version:   version,
		StartedAt: time.Now().UTC(),
	}
	_ = f.Truncate(0)
	_, _ = f.Seek(0, 0)
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	_ = enc.Encode(info)
	_ = f.Sync()

	pidPath := filepath.Join(dataDir, "daemon.pid")
	_ = os.WriteFile(pidPath, []byte(fmt.Sprintf("%d\n", info.PID)), 0o600)

	return &instanceLock{file: f, path: lockPath}, nil
}

// ReadLockInfo reads the lock file without taking the daemon's exclusive
// lock, for use by shbctl to report on a possibly-running daemon. It first
// tries a non-blocking shared flock so a concurrent write lands entirely
// before or after the read rather than being observed mid-write; since the
// daemon holds its exclusive lock for its whole running lifetime, that
// attempt will almost always return lockfile.ErrLockBusy while the daemon is
// alive, which is expected and falls back to a best-effort plain read.
func ReadLockInfo(dataDir string) (LockInfo, error) {
	path := filepath.Join(dataDir, "daemon.lock")

	// #nosec G304 - dataDir is operator-controlled configuration, not user input
	f, openErr := os.OpenFile(path, os.O_RDONLY, 0)
	if openErr == nil {
		defer f.Close()
		switch err := lockfile.FlockSharedNonBlock(f); {
		case err == nil:
			defer func() { _ = lockfile.FlockUnlock(f) }()
		case errors.Is(err, lockfile.ErrLockBusy):
			// Daemon is alive and holds the exclusive lock; fall through to
			// a best-effort read without the shared lock.
		default:
			return LockInfo{}, fmt.Errorf("shared-lock daemon lock: %w", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return LockInfo{}, err
	}
	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return LockInfo{}, fmt.Errorf("parse daemon lock: %w", err)
	}
	return info, nil
}

// IsStale reports whether the process that wrote this lock info is no
// longer running. That is the case once the daemon has exited, whether it
// was stopped cleanly or killed: Close leaves daemon.lock in place and the
// kernel releases the flock on process exit, so the file's last-written PID
// stays behind for shbctl to flag.
func (l LockInfo) IsStale() bool {
	return !lockfile.IsProcessRunning(l.PID)
}

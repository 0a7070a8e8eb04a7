// Package ptyfile stores each command's captured pty output in a bounded
// circular file on disk, one directory per screen under the daemon's data
// directory.
package ptyfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/shellbench/shellbench/internal/types"
)

// DefaultMaxSize is used when CreateCmdPtyFile is called with maxSize <= 0.
const DefaultMaxSize = 256 * 1024

// AppendNotifier is called after a successful append to a web-shared
// screen's pty file so callers can fan the new bytes out over the update
// bus without ptyfile importing it directly.
type AppendNotifier func(screenId types.ScreenId, lineId types.LineId, realOffset int64, data []byte)

// Store manages on-disk pty files under homeDir. The per-screen directory
// path is memoised since it is looked up on every append.
type Store struct {
	homeDir string

	dirMu sync.Mutex
	dirs  map[types.ScreenId]string

	// dirWatcher is set by NewWatcher; when non-nil, every directory handed
	// out by screenDir is also registered for external-deletion events.
	dirWatcher *Watcher

	IsWebShared func(screenId types.ScreenId) bool
	OnAppend    AppendNotifier
}

// New constructs a Store rooted at homeDir (created if absent).
func New(homeDir string) *Store {
	return &Store{homeDir: homeDir, dirs: make(map[types.ScreenId]string)}
}

// screenDir returns (creating if necessary) the directory holding
// screenId's pty files.
func (s *Store) screenDir(screenId types.ScreenId) (string, error) {
	s.dirMu.Lock()
	defer s.dirMu.Unlock()

	if dir, ok := s.dirs[screenId]; ok {
		return dir, nil
	}
	dir := filepath.Join(s.homeDir, "screens", string(screenId))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ptyfile: create screen dir: %w", err)
	}
	s.dirs[screenId] = dir
	if s.dirWatcher != nil {
		s.dirWatcher.watchDir(dir)
	}
	return dir, nil
}

func (s *Store) path(screenId types.ScreenId, lineId types.LineId) (string, error) {
	dir, err := s.screenDir(screenId)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, string(lineId)+".pty"), nil
}

// CreateCmdPtyFile creates a fresh ring-buffer file for (screenId, lineId).
// maxSize <= 0 uses DefaultMaxSize.
func (s *Store) CreateCmdPtyFile(ctx context.Context, screenId types.ScreenId, lineId types.LineId, maxSize int64) error {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	path, err := s.path(screenId, lineId)
	if err != nil {
		return err
	}
	return createRingFile(path, maxSize)
}

// AppendToCmdPtyBlob appends data to (screenId, lineId)'s pty file. pos is
// the caller's expected current real offset (the running total of bytes
// ever appended); a mismatch indicates the caller is replaying from a
// stale position and is rejected rather than silently accepted out of
// order.
func (s *Store) AppendToCmdPtyBlob(ctx context.Context, screenId types.ScreenId, lineId types.LineId, data []byte, pos int64) (int64, error) {
	path, err := s.path(screenId, lineId)
	if err != nil {
		return 0, err
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	defer f.Close()

	h, err := readHeader(f)
	if err != nil {
		return 0, err
	}
	if pos != h.Total {
		return 0, fmt.Errorf("ptyfile: append at pos %d but current total is %d", pos, h.Total)
	}

	_, realOffset, err := appendRing(f, h, data)
	if err != nil {
		return 0, err
	}

	if s.IsWebShared != nil && s.OnAppend != nil && s.IsWebShared(screenId) {
		s.OnAppend(screenId, lineId, realOffset, data)
	}
	return realOffset, nil
}

// FileStat summarizes a pty file's current state.
type FileStat struct {
	MaxSize int64
	Filled  int64
	Total   int64
}

// StatCmdPtyFile returns (screenId, lineId)'s current ring-buffer state.
func (s *Store) StatCmdPtyFile(ctx context.Context, screenId types.ScreenId, lineId types.LineId) (FileStat, error) {
	path, err := s.path(screenId, lineId)
	if err != nil {
		return FileStat{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileStat{}, ErrNotFound
		}
		return FileStat{}, err
	}
	defer f.Close()

	h, err := readHeader(f)
	if err != nil {
		return FileStat{}, err
	}
	return FileStat{MaxSize: h.MaxSize, Filled: h.Filled, Total: h.Total}, nil
}

// ReadFullPtyOutFile returns every byte currently retained in the ring,
// along with the real offset of the first returned byte.
func (s *Store) ReadFullPtyOutFile(ctx context.Context, screenId types.ScreenId, lineId types.LineId) (int64, []byte, error) {
	return s.ReadPtyOutFile(ctx, screenId, lineId, 0, 0)
}

// ReadPtyOutFile returns up to maxSize bytes starting at logical offset
// off (0 = oldest retained byte), or every retained byte from off if
// maxSize <= 0, along with the real offset of the first returned byte.
func (s *Store) ReadPtyOutFile(ctx context.Context, screenId types.ScreenId, lineId types.LineId, off int64, maxSize int64) (int64, []byte, error) {
	path, err := s.path(screenId, lineId)
	if err != nil {
		return 0, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil, ErrNotFound
		}
		return 0, nil, err
	}
	defer f.Close()

	h, err := readHeader(f)
	if err != nil {
		return 0, nil, err
	}
	return readRing(f, h, off, maxSize)
}

// ClearCmdPtyFile removes the existing file and recreates it empty at the
// same max size.
func (s *Store) ClearCmdPtyFile(ctx context.Context, screenId types.ScreenId, lineId types.LineId) error {
	path, err := s.path(screenId, lineId)
	if err != nil {
		return err
	}

	maxSize := int64(DefaultMaxSize)
	if f, err := os.Open(path); err == nil {
		if h, hErr := readHeader(f); hErr == nil {
			maxSize = h.MaxSize
		}
		f.Close()
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return createRingFile(path, maxSize)
}

// RemoveCmdPtyFile deletes (screenId, lineId)'s pty file, if any. Missing
// files are not an error: the line may never have had a cmd.
func (s *Store) RemoveCmdPtyFile(ctx context.Context, screenId types.ScreenId, lineId types.LineId) error {
	path, err := s.path(screenId, lineId)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// RemoveScreenDir deletes every pty file for screenId and forgets its
// memoised directory, for use when a screen is torn down.
func (s *Store) RemoveScreenDir(screenId types.ScreenId) error {
	s.dirMu.Lock()
	dir, ok := s.dirs[screenId]
	delete(s.dirs, screenId)
	s.dirMu.Unlock()

	if !ok {
		dir = filepath.Join(s.homeDir, "screens", string(screenId))
	}
	return os.RemoveAll(dir)
}

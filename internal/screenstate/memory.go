package screenstate

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/shellbench/shellbench/internal/types"
)

// memoryStore is the default in-memory Store implementation: a process-wide
// map of screen id to flags guarded by one read-write mutex, mirroring the
// daemon's in-memory ephemeral-state stores.
type memoryStore struct {
	mu     sync.RWMutex
	flags  map[types.ScreenId]*ScreenFlags
	closed atomic.Bool
}

// NewMemoryStore creates an empty in-memory screen-state store.
func NewMemoryStore() Store {
	return &memoryStore{flags: make(map[types.ScreenId]*ScreenFlags)}
}

func (s *memoryStore) Get(ctx context.Context, screenId types.ScreenId) (ScreenFlags, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.flags[screenId]
	if !ok {
		return ScreenFlags{}, nil
	}
	return cloneFlags(f), nil
}

func (s *memoryStore) SetIndicator(ctx context.Context, screenId types.ScreenId, level types.IndicatorLevel) (types.IndicatorLevel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.getOrCreateLocked(screenId)
	f.Indicator = nextIndicator(f.Indicator, level)
	return f.Indicator, nil
}

func (s *memoryStore) ResetIndicator(ctx context.Context, screenId types.ScreenId) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.getOrCreateLocked(screenId)
	f.Indicator = types.IndicatorNone
	return nil
}

func (s *memoryStore) IncrRunning(ctx context.Context, screenId types.ScreenId, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.getOrCreateLocked(screenId)
	f.NumRunning += delta
	if f.NumRunning < 0 {
		f.NumRunning = 0
	}
	return f.NumRunning, nil
}

func (s *memoryStore) AppendOpenAIMessage(ctx context.Context, screenId types.ScreenId, msg types.OpenAIMessage) ([]types.OpenAIMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.getOrCreateLocked(screenId)
	f.OpenAIChat = append(f.OpenAIChat, msg)
	out := make([]types.OpenAIMessage, len(f.OpenAIChat))
	copy(out, f.OpenAIChat)
	return out, nil
}

func (s *memoryStore) ClearOpenAIChat(ctx context.Context, screenId types.ScreenId) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.getOrCreateLocked(screenId)
	f.OpenAIChat = nil
	return nil
}

func (s *memoryStore) Remove(ctx context.Context, screenId types.ScreenId) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flags, screenId)
}

func (s *memoryStore) Close() error {
	s.closed.Store(true)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags = make(map[types.ScreenId]*ScreenFlags)
	return nil
}

func (s *memoryStore) getOrCreateLocked(screenId types.ScreenId) *ScreenFlags {
	f, ok := s.flags[screenId]
	if !ok {
		f = &ScreenFlags{Indicator: types.IndicatorNone}
		s.flags[screenId] = f
	}
	return f
}

func cloneFlags(f *ScreenFlags) ScreenFlags {
	out := *f
	if f.OpenAIChat != nil {
		out.OpenAIChat = make([]types.OpenAIMessage, len(f.OpenAIChat))
		copy(out.OpenAIChat, f.OpenAIChat)
	}
	return out
}

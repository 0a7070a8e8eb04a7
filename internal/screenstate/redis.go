package screenstate

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shellbench/shellbench/internal/types"
)

const (
	defaultNamespace = "shellbench"
	defaultStateTTL  = 24 * time.Hour
)

// RedisOption configures a redisStore.
type RedisOption func(*redisStore)

// WithNamespace sets the Redis key namespace prefix.
func WithNamespace(ns string) RedisOption {
	return func(s *redisStore) {
		if ns != "" {
			s.namespace = ns
		}
	}
}

// WithTTL sets the TTL refreshed on every write, so an abandoned screen's
// flags expire instead of accumulating forever across daemon restarts that
// share a Redis instance with other daemons.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *redisStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// redisStore is a Store backed by Redis, for multi-process daemon
// deployments that need screen flags visible across processes.
type redisStore struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
	closed    atomic.Bool
}

// NewRedisStore connects to redisURL (e.g. "redis://localhost:6379/0") and
// returns a Redis-backed Store.
func NewRedisStore(redisURL string, opts ...RedisOption) (Store, error) {
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("screenstate: invalid redis url: %w", err)
	}
	client := redis.NewClient(redisOpts)

	s := &redisStore{client: client, namespace: defaultNamespace, ttl: defaultStateTTL}
	for _, opt := range opts {
		opt(s)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("screenstate: redis ping: %w", err)
	}
	return s, nil
}

func (s *redisStore) key(screenId types.ScreenId) string {
	return s.namespace + ":screenstate:" + string(screenId)
}

func (s *redisStore) Get(ctx context.Context, screenId types.ScreenId) (ScreenFlags, error) {
	if s.closed.Load() {
		return ScreenFlags{}, fmt.Errorf("screenstate: store is closed")
	}
	data, err := s.client.Get(ctx, s.key(screenId)).Bytes()
	if err == redis.Nil {
		return ScreenFlags{}, nil
	}
	if err != nil {
		return ScreenFlags{}, fmt.Errorf("screenstate: get: %w", err)
	}
	var f ScreenFlags
	if err := json.Unmarshal(data, &f); err != nil {
		return ScreenFlags{}, fmt.Errorf("screenstate: unmarshal: %w", err)
	}
	return f, nil
}

func (s *redisStore) mutate(ctx context.Context, screenId types.ScreenId, fn func(*ScreenFlags)) (ScreenFlags, error) {
	if s.closed.Load() {
		return ScreenFlags{}, fmt.Errorf("screenstate: store is closed")
	}
	f, err := s.Get(ctx, screenId)
	if err != nil {
		return ScreenFlags{}, err
	}
	fn(&f)

	data, err := json.Marshal(f)
	if err != nil {
		return ScreenFlags{}, fmt.Errorf("screenstate: marshal: %w", err)
	}
	if err := s.client.Set(ctx, s.key(screenId), data, s.ttl).Err(); err != nil {
		return ScreenFlags{}, fmt.Errorf("screenstate: set: %w", err)
	}
	return f, nil
}

func (s *redisStore) SetIndicator(ctx context.Context, screenId types.ScreenId, level types.IndicatorLevel) (types.IndicatorLevel, error) {
	f, err := s.mutate(ctx, screenId, func(f *ScreenFlags) {
		f.Indicator = nextIndicator(f.Indicator, level)
	})
	return f.Indicator, err
}

func (s *redisStore) ResetIndicator(ctx context.Context, screenId types.ScreenId) error {
	_, err := s.mutate(ctx, screenId, func(f *ScreenFlags) {
		f.Indicator = types.IndicatorNone
	})
	return err
}

func (s *redisStore) IncrRunning(ctx context.Context, screenId types.ScreenId, delta int) (int, error) {
	f, err := s.mutate(ctx, screenId, func(f *ScreenFlags) {
		f.NumRunning += delta
		if f.NumRunning < 0 {
			f.NumRunning = 0
		}
	})
	return f.NumRunning, err
}

func (s *redisStore) AppendOpenAIMessage(ctx context.Context, screenId types.ScreenId, msg types.OpenAIMessage) ([]types.OpenAIMessage, error) {
	f, err := s.mutate(ctx, screenId, func(f *ScreenFlags) {
		f.OpenAIChat = append(f.OpenAIChat, msg)
	})
	return f.OpenAIChat, err
}

func (s *redisStore) ClearOpenAIChat(ctx context.Context, screenId types.ScreenId) error {
	_, err := s.mutate(ctx, screenId, func(f *ScreenFlags) {
		f.OpenAIChat = nil
	})
	return err
}

func (s *redisStore) Remove(ctx context.Context, screenId types.ScreenId) {
	s.client.Del(ctx, s.key(screenId))
}

func (s *redisStore) Close() error {
	s.closed.Store(true)
	return s.client.Close()
}

package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists cooldown state per provider.
type Store interface {
	// Load returns the provider's state, or nil when none is recorded.
	Load(ctx context.Context, provider string) (*State, error)

	// Save records the provider's state.
	Save(ctx context.Context, state *State) error
}

// MemoryStore keeps state in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]State
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]State)}
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context, provider string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.states[provider]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, state *State) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.Provider] = *state
	return nil
}

// RedisStore shares state between processes that use the same API keys.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{redis: redisClient}
}

// Load implements Store.
func (r *RedisStore) Load(ctx context.Context, provider string) (*State, error) {
	data, err := r.redis.Get(ctx, redisKey(provider)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse rate limit state: %w", err)
	}
	return &state, nil
}

// Save implements Store. The key expires shortly after the cooldown ends.
func (r *RedisStore) Save(ctx context.Context, state *State) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal rate limit state: %w", err)
	}

	ttl := state.TimeUntilReset() + time.Minute
	if err := r.redis.Set(ctx, redisKey(state.Provider), data, ttl).Err(); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}
	return nil
}

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// setupTestRedis starts an in-process Redis for unit tests.
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
	})
	return client, mr
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	state, err := store.Load(ctx, "headhunter")
	if err != nil || state != nil {
		t.Fatalf("Load() on empty store = %v, %v; want nil, nil", state, err)
	}

	resetAt := time.Now().Add(time.Minute).Truncate(time.Second)
	if err := store.Save(ctx, &State{Provider: "headhunter", ResetAt: resetAt, LastStatus: 429}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	state, err = store.Load(ctx, "headhunter")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !state.ResetAt.Equal(resetAt) || state.LastStatus != 429 {
		t.Errorf("Load() = %+v", state)
	}

	if err := store.Save(ctx, nil); err == nil {
		t.Error("Save(nil) should fail")
	}
}

func TestRedisStore_SaveAndLoad(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewRedisStore(client)
	ctx := context.Background()

	state, err := store.Load(ctx, "superjob")
	if err != nil || state != nil {
		t.Fatalf("Load() on empty redis = %v, %v; want nil, nil", state, err)
	}

	resetAt := time.Now().Add(30 * time.Second).UTC().Truncate(time.Second)
	want := &State{
		Provider:   "superjob",
		ResetAt:    resetAt,
		LastStatus: 503,
		LastUpdate: time.Now().UTC().Truncate(time.Second),
	}
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if !mr.Exists("vacancy_rate_limit:superjob") {
		t.Fatal("expected state key in redis")
	}
	ttl := mr.TTL("vacancy_rate_limit:superjob")
	if ttl <= time.Minute || ttl > 91*time.Second {
		t.Errorf("TTL = %v, want cooldown plus one minute", ttl)
	}

	got, err := store.Load(ctx, "superjob")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !got.ResetAt.Equal(want.ResetAt) || got.LastStatus != want.LastStatus || got.Provider != want.Provider {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestRedisStore_CorruptState(t *testing.T) {
	client, mr := setupTestRedis(t)
	store := NewRedisStore(client)

	if err := mr.Set("vacancy_rate_limit:superjob", "not json"); err != nil {
		t.Fatalf("seed redis: %v", err)
	}

	if _, err := store.Load(context.Background(), "superjob"); err == nil {
		t.Error("Load() should fail on corrupt state")
	}
}

func TestNewRedisStore_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewRedisStore should panic with nil redis client")
		}
	}()
	NewRedisStore(nil)
}

func TestTracker_SharedRedisState(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	// Two trackers (two processes) sharing one Redis see the same cooldown.
	first, _, _ := newTestTracker(t)
	first.store = NewRedisStore(client)
	second, sleeper, _ := newTestTracker(t)
	second.store = NewRedisStore(client)

	now := time.Now()
	first.now = func() time.Time { return now }
	second.now = func() time.Time { return now }

	if err := first.UpdateFromResponse(ctx, "superjob", 429, map[string][]string{"Retry-After": {"20"}}); err != nil {
		t.Fatalf("UpdateFromResponse() error = %v", err)
	}
	if err := second.Wait(ctx, "superjob"); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	sleeps := sleeper.Sleeps()
	if len(sleeps) != 1 {
		t.Fatalf("sleeps = %v, want one cooldown wait", sleeps)
	}
	if sleeps[0] < 19*time.Second || sleeps[0] > 20*time.Second {
		t.Errorf("wait = %v, want ~20s", sleeps[0])
	}
}

package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Sternrassler/vacancy-stats/internal/testutil"
	"github.com/rs/zerolog"
)

func TestPacer_Pause(t *testing.T) {
	sleeper := &testutil.RecordingSleeper{}
	pacer := NewPacer(sleeper, zerolog.Nop())
	ctx := context.Background()

	if err := pacer.Pause(ctx, "headhunter", PauseInterPage, time.Second); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if err := pacer.Pause(ctx, "headhunter", PauseInterCategory, 0); err != nil {
		t.Fatalf("Pause(0) error = %v", err)
	}
	if err := pacer.Pause(ctx, "headhunter", PauseInterCategory, -time.Second); err != nil {
		t.Fatalf("Pause(<0) error = %v", err)
	}

	if got := sleeper.Sleeps(); len(got) != 1 || got[0] != time.Second {
		t.Errorf("sleeps = %v, want [1s]", got)
	}
}

func TestSleepContext(t *testing.T) {
	start := time.Now()
	if err := sleepContext(context.Background(), 10*time.Millisecond); err != nil {
		t.Fatalf("sleepContext() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("slept %v, want >= 10ms", elapsed)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("sleepContext() with cancelled ctx = %v, want context.Canceled", err)
	}
}

func TestNewPacer_DefaultSleeper(t *testing.T) {
	pacer := NewPacer(nil, zerolog.Nop())
	if pacer.sleeper == nil {
		t.Fatal("NewPacer(nil) should fall back to RealSleeper")
	}
}

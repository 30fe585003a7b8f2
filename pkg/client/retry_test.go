package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Sternrassler/vacancy-stats/internal/testutil"
	"github.com/Sternrassler/vacancy-stats/pkg/ratelimit"
	"github.com/rs/zerolog"
)

func serverErr() error {
	return &TransportError{Provider: "test", Class: ErrorClassServer, StatusCode: 500}
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", config.MaxAttempts)
	}
	if config.InitialBackoff != 1*time.Second {
		t.Errorf("InitialBackoff = %v, want 1s", config.InitialBackoff)
	}
	if config.MaxBackoff != 30*time.Second {
		t.Errorf("MaxBackoff = %v, want 30s", config.MaxBackoff)
	}
	if config.BackoffMultiplier != 2.0 {
		t.Errorf("BackoffMultiplier = %v, want 2.0", config.BackoffMultiplier)
	}
}

func TestRetryConfig_ForErrorClass(t *testing.T) {
	tests := []struct {
		name            string
		errorClass      ErrorClass
		expectedInitial time.Duration
		expectedMax     time.Duration
	}{
		{
			name:            "server error keeps base",
			errorClass:      ErrorClassServer,
			expectedInitial: 1 * time.Second,
			expectedMax:     30 * time.Second,
		},
		{
			name:            "rate limit backs off longer",
			errorClass:      ErrorClassRateLimit,
			expectedInitial: 5 * time.Second,
			expectedMax:     60 * time.Second,
		},
		{
			name:            "network error doubles initial",
			errorClass:      ErrorClassNetwork,
			expectedInitial: 2 * time.Second,
			expectedMax:     30 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultRetryConfig().ForErrorClass(tt.errorClass)

			if config.InitialBackoff != tt.expectedInitial {
				t.Errorf("InitialBackoff = %v, want %v", config.InitialBackoff, tt.expectedInitial)
			}
			if config.MaxBackoff != tt.expectedMax {
				t.Errorf("MaxBackoff = %v, want %v", config.MaxBackoff, tt.expectedMax)
			}
			if config.MaxAttempts != 3 {
				t.Errorf("MaxAttempts = %d, want 3", config.MaxAttempts)
			}
		})
	}
}

func TestRetryConfig_Normalized(t *testing.T) {
	got := RetryConfig{}.normalized()
	if got != DefaultRetryConfig() {
		t.Errorf("normalized() = %+v, want defaults", got)
	}

	custom := RetryConfig{MaxAttempts: 1, InitialBackoff: time.Millisecond, MaxBackoff: time.Second, BackoffMultiplier: 3}
	if custom.normalized() != custom {
		t.Errorf("normalized() changed a valid config: %+v", custom.normalized())
	}
}

func TestRetryWithBackoff_Success(t *testing.T) {
	sleeper := &testutil.RecordingSleeper{}

	callCount := 0
	err := retryWithBackoff(context.Background(), DefaultRetryConfig(), sleeper, zerolog.Nop(), func() error {
		callCount++
		return nil
	})

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
	if len(sleeper.Sleeps()) != 0 {
		t.Errorf("Expected no backoff, got %v", sleeper.Sleeps())
	}
}

func TestRetryWithBackoff_SuccessAfterRetry(t *testing.T) {
	sleeper := &testutil.RecordingSleeper{}

	callCount := 0
	err := retryWithBackoff(context.Background(), DefaultRetryConfig(), sleeper, zerolog.Nop(), func() error {
		callCount++
		if callCount < 3 {
			return serverErr()
		}
		return nil
	})

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls, got %d", callCount)
	}
	if n := len(sleeper.Sleeps()); n != 2 {
		t.Errorf("Expected 2 backoffs, got %d", n)
	}
}

func TestRetryWithBackoff_MaxAttemptsExhausted(t *testing.T) {
	sleeper := &testutil.RecordingSleeper{}

	callCount := 0
	err := retryWithBackoff(context.Background(), DefaultRetryConfig(), sleeper, zerolog.Nop(), func() error {
		callCount++
		return serverErr()
	})

	if !errors.Is(err, ErrRetryExhausted) {
		t.Fatalf("Expected ErrRetryExhausted, got %v", err)
	}
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("Expected *TransportError in chain, got %v", err)
	}
	if te.StatusCode != 500 {
		t.Errorf("StatusCode = %d, want 500", te.StatusCode)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls, got %d", callCount)
	}
	// no backoff after the last attempt
	if n := len(sleeper.Sleeps()); n != 2 {
		t.Errorf("Expected 2 backoffs, got %d", n)
	}
}

func TestRetryWithBackoff_ClientErrorNoRetry(t *testing.T) {
	sleeper := &testutil.RecordingSleeper{}

	callCount := 0
	clientErr := &TransportError{Provider: "test", Class: ErrorClassClient, StatusCode: 404}
	err := retryWithBackoff(context.Background(), DefaultRetryConfig(), sleeper, zerolog.Nop(), func() error {
		callCount++
		return clientErr
	})

	if !errors.Is(err, clientErr) {
		t.Errorf("Expected the client error, got %v", err)
	}
	if errors.Is(err, ErrRetryExhausted) {
		t.Error("client errors must not report retry exhaustion")
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
}

func TestRetryWithBackoff_NonTransportErrorNoRetry(t *testing.T) {
	sleeper := &testutil.RecordingSleeper{}

	callCount := 0
	plain := errors.New("create request: bad url")
	err := retryWithBackoff(context.Background(), DefaultRetryConfig(), sleeper, zerolog.Nop(), func() error {
		callCount++
		return plain
	})

	if !errors.Is(err, plain) {
		t.Errorf("Expected the plain error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	callCount := 0
	sleeper := ratelimit.SleeperFunc(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	})

	err := retryWithBackoff(ctx, DefaultRetryConfig(), sleeper, zerolog.Nop(), func() error {
		callCount++
		return serverErr()
	})

	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("Expected ErrContextCancelled, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled in chain, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
}

func TestRetryWithBackoff_ContextCancelledImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sleeper := &testutil.RecordingSleeper{}
	callCount := 0
	err := retryWithBackoff(ctx, DefaultRetryConfig(), sleeper, zerolog.Nop(), func() error {
		callCount++
		return &TransportError{Provider: "test", Class: ErrorClassNetwork, Err: ctx.Err()}
	})

	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("Expected ErrContextCancelled, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
	if len(sleeper.Sleeps()) != 0 {
		t.Errorf("Expected no backoff, got %v", sleeper.Sleeps())
	}
}

func TestRetryWithBackoff_ExponentialBackoff(t *testing.T) {
	sleeper := &testutil.RecordingSleeper{}
	cfg := RetryConfig{
		MaxAttempts:       5,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}

	_ = retryWithBackoff(context.Background(), cfg, sleeper, zerolog.Nop(), serverErr)

	sleeps := sleeper.Sleeps()
	if len(sleeps) != 4 {
		t.Fatalf("Expected 4 backoffs, got %v", sleeps)
	}
	expected := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}
	for i, base := range expected {
		lower := time.Duration(float64(base) * 0.8)
		upper := time.Duration(float64(base) * 1.2)
		if sleeps[i] < lower || sleeps[i] > upper {
			t.Errorf("backoff[%d] = %v, want within [%v, %v]", i, sleeps[i], lower, upper)
		}
	}
}

func TestRetryWithBackoff_RateLimitLongerBackoff(t *testing.T) {
	sleeper := &testutil.RecordingSleeper{}
	cfg := DefaultRetryConfig()
	cfg.MaxAttempts = 2

	_ = retryWithBackoff(context.Background(), cfg, sleeper, zerolog.Nop(), func() error {
		return &TransportError{Provider: "test", Class: ErrorClassRateLimit, StatusCode: 429}
	})

	sleeps := sleeper.Sleeps()
	if len(sleeps) != 1 {
		t.Fatalf("Expected 1 backoff, got %v", sleeps)
	}
	if sleeps[0] < 4*time.Second || sleeps[0] > 6*time.Second {
		t.Errorf("rate limit backoff = %v, want ~5s", sleeps[0])
	}
}

func TestRetryWithBackoff_MaxBackoffCap(t *testing.T) {
	sleeper := &testutil.RecordingSleeper{}
	cfg := RetryConfig{
		MaxAttempts:       6,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        3 * time.Second,
		BackoffMultiplier: 4.0,
	}

	_ = retryWithBackoff(context.Background(), cfg, sleeper, zerolog.Nop(), serverErr)

	limit := time.Duration(float64(cfg.MaxBackoff) * 1.2)
	for i, d := range sleeper.Sleeps() {
		if d > limit {
			t.Errorf("backoff[%d] = %v exceeds cap %v", i, d, limit)
		}
	}
}

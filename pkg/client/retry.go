package client

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/Sternrassler/vacancy-stats/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vacancy_http_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vacancy_http_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vacancy_http_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// ForErrorClass adjusts the backoff of base to an error class.
// Rate limit errors back off five times longer, network errors twice as long.
func (base RetryConfig) ForErrorClass(errorClass ErrorClass) RetryConfig {
	cfg := base
	switch errorClass {
	case ErrorClassRateLimit:
		cfg.InitialBackoff *= 5
		cfg.MaxBackoff *= 2
	case ErrorClassNetwork:
		cfg.InitialBackoff *= 2
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}
	return cfg
}

func (base RetryConfig) normalized() RetryConfig {
	def := DefaultRetryConfig()
	if base.MaxAttempts <= 0 {
		base.MaxAttempts = def.MaxAttempts
	}
	if base.InitialBackoff <= 0 {
		base.InitialBackoff = def.InitialBackoff
	}
	if base.MaxBackoff <= 0 {
		base.MaxBackoff = def.MaxBackoff
	}
	if base.BackoffMultiplier < 1 {
		base.BackoffMultiplier = def.BackoffMultiplier
	}
	return base
}

// retryWithBackoff executes fn until it succeeds, returns a non-retryable
// error, or the attempts are exhausted. Only *TransportError values with a
// retryable class are repeated. Backoff grows exponentially with ±20% jitter.
func retryWithBackoff(ctx context.Context, base RetryConfig, sleeper ratelimit.Sleeper, logger zerolog.Logger, fn func() error) error {
	base = base.normalized()

	var lastErr error
	var errorClass ErrorClass
	attempts := base.MaxAttempts
	var backoff time.Duration

	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				logger.Info().
					Str("error_class", string(errorClass)).
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		lastErr = err

		var te *TransportError
		if !errors.As(err, &te) || !te.Retryable() {
			return err
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", ErrContextCancelled, err)
		}

		cfg := base.ForErrorClass(te.Class)
		if te.Class != errorClass {
			errorClass = te.Class
			backoff = cfg.InitialBackoff
		}

		if attempt >= attempts {
			break
		}

		retriesTotal.WithLabelValues(string(errorClass)).Inc()

		jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
		retryBackoffSeconds.WithLabelValues(string(errorClass)).Observe(jitter.Seconds())

		logger.Warn().
			Str("error_class", string(errorClass)).
			Int("attempt", attempt).
			Dur("backoff", jitter).
			Msg("Retrying request after backoff")

		if err := sleeper.Sleep(ctx, jitter); err != nil {
			logger.Warn().
				Str("error_class", string(errorClass)).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return fmt.Errorf("%w: %w", ErrContextCancelled, err)
		}

		backoff = time.Duration(float64(backoff) * cfg.BackoffMultiplier)
		if backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}

	retryExhaustedTotal.WithLabelValues(string(errorClass)).Inc()
	logger.Warn().
		Str("error_class", string(errorClass)).
		Int("max_attempts", attempts).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempts, lastErr)
}

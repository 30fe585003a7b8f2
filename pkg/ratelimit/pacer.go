package ratelimit

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Pause reasons, used as the metric label and log field.
const (
	PauseInterPage     = "inter_page"
	PauseInterCategory = "inter_category"
	PauseCooldown      = "cooldown"
)

var pauseSecondsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "vacancy_pause_seconds_total",
	Help: "Total time spent in deliberate pauses by provider and reason",
}, []string{"provider", "reason"})

// Sleeper blocks for a duration or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to the Sleeper interface.
type SleeperFunc func(ctx context.Context, d time.Duration) error

// Sleep implements Sleeper.
func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// RealSleeper sleeps on the wall clock.
var RealSleeper Sleeper = SleeperFunc(sleepContext)

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Pacer performs the configured pauses between requests.
type Pacer struct {
	sleeper Sleeper
	logger  zerolog.Logger
}

// NewPacer creates a pacer. A nil sleeper means RealSleeper.
func NewPacer(sleeper Sleeper, logger zerolog.Logger) *Pacer {
	if sleeper == nil {
		sleeper = RealSleeper
	}
	return &Pacer{sleeper: sleeper, logger: logger}
}

// Pause waits d on behalf of provider. Non-positive durations return at once.
func (p *Pacer) Pause(ctx context.Context, provider, reason string, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	p.logger.Debug().
		Str("provider", provider).
		Str("reason", reason).
		Dur("duration", d).
		Msg("Pausing")

	pauseSecondsTotal.WithLabelValues(provider, reason).Add(d.Seconds())
	return p.sleeper.Sleep(ctx, d)
}

package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for cooldown tracking.
var (
	rateLimitCooldownsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vacancy_rate_limit_cooldowns_total",
		Help: "Total number of throttling responses that started a cooldown",
	}, []string{"provider"})

	rateLimitWaitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vacancy_rate_limit_waits_total",
		Help: "Total number of requests delayed by an active cooldown",
	}, []string{"provider"})
)

// Tracker records provider throttling responses and gates requests.
type Tracker struct {
	store  Store
	pacer  *Pacer
	logger zerolog.Logger
	now    func() time.Time
}

// NewTracker creates a new cooldown tracker.
func NewTracker(store Store, pacer *Pacer, logger zerolog.Logger) *Tracker {
	if store == nil {
		store = NewMemoryStore()
	}
	if pacer == nil {
		pacer = NewPacer(nil, logger)
	}
	return &Tracker{
		store:  store,
		pacer:  pacer,
		logger: logger,
		now:    time.Now,
	}
}

// GetState retrieves the provider's cooldown state, nil when none is recorded.
func (t *Tracker) GetState(ctx context.Context, provider string) (*State, error) {
	return t.store.Load(ctx, provider)
}

// UpdateFromResponse starts a cooldown when the provider answered with
// 429 Too Many Requests or 503 Service Unavailable. Other statuses are ignored.
func (t *Tracker) UpdateFromResponse(ctx context.Context, provider string, status int, headers http.Header) error {
	if status != http.StatusTooManyRequests && status != http.StatusServiceUnavailable {
		return nil
	}

	now := t.now()
	cooldown, ok := ParseRetryAfter(headers.Get("Retry-After"), now)
	if !ok {
		cooldown = DefaultCooldown
	}
	if cooldown > MaxCooldown {
		cooldown = MaxCooldown
	}

	state := &State{
		Provider:   provider,
		ResetAt:    now.Add(cooldown),
		LastStatus: status,
		LastUpdate: now,
	}
	if err := t.store.Save(ctx, state); err != nil {
		return fmt.Errorf("save rate limit state: %w", err)
	}

	rateLimitCooldownsTotal.WithLabelValues(provider).Inc()
	t.logger.Warn().
		Str("provider", provider).
		Int("status", status).
		Dur("cooldown", cooldown).
		Time("reset_at", state.ResetAt).
		Msg("Provider throttling - cooldown started")

	return nil
}

// Wait blocks until the provider's cooldown, if any, has passed.
func (t *Tracker) Wait(ctx context.Context, provider string) error {
	state, err := t.store.Load(ctx, provider)
	if err != nil {
		return fmt.Errorf("get rate limit state: %w", err)
	}
	if state == nil {
		return nil
	}

	now := t.now()
	if !state.InCooldown(now) {
		return nil
	}

	wait := state.ResetAt.Sub(now)
	rateLimitWaitsTotal.WithLabelValues(provider).Inc()
	t.logger.Warn().
		Str("provider", provider).
		Dur("wait_duration", wait).
		Msg("Provider in cooldown - delaying request")

	return t.pacer.Pause(ctx, provider, PauseCooldown, wait)
}

// ParseRetryAfter parses a Retry-After header value, either delay-seconds
// or an HTTP date. Returns false when the value is empty or unparseable.
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}

	at, err := http.ParseTime(value)
	if err != nil {
		return 0, false
	}
	d := at.Sub(now)
	if d < 0 {
		d = 0
	}
	return d, true
}

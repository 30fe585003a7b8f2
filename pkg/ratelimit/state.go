// Package ratelimit keeps request pacing within job-board limits.
//
// Two mechanisms live here. Pacer performs the deliberate, configured pauses
// between pages and between categories. Tracker reacts to the provider: a 429
// or 503 carrying Retry-After puts the provider into cooldown, and every
// following request for that provider waits until the cooldown has passed.
// Cooldown state can be shared between processes through Redis.
package ratelimit

import (
	"time"
)

// RedisKeyPrefix prefixes the per-provider cooldown state key.
const RedisKeyPrefix = "vacancy_rate_limit:"

// Cooldown bounds.
const (
	// DefaultCooldown is used when a throttling response carries no Retry-After.
	DefaultCooldown = 5 * time.Second

	// MaxCooldown caps a single cooldown so a bogus header cannot stall a run.
	MaxCooldown = 5 * time.Minute
)

// State is the cooldown state of one provider.
type State struct {
	// Provider is the job board name the state belongs to.
	Provider string `json:"provider"`

	// ResetAt is when requests to the provider may resume.
	ResetAt time.Time `json:"reset_at"`

	// LastStatus is the HTTP status that triggered the cooldown.
	LastStatus int `json:"last_status"`

	// LastUpdate is when the state was written.
	LastUpdate time.Time `json:"last_update"`
}

// InCooldown reports whether requests must still wait at the given instant.
func (s *State) InCooldown(now time.Time) bool {
	return now.Before(s.ResetAt)
}

// TimeUntilReset is the remaining cooldown, never negative.
func (s *State) TimeUntilReset() time.Duration {
	return max(time.Until(s.ResetAt), 0)
}

func redisKey(provider string) string {
	return RedisKeyPrefix + provider
}

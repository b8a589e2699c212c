// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

// Package health tracks the availability of external providers.
package health

import (
	"sync"
	"time"
)

// Metrics exposes the current health state of a provider for monitoring
// and operator visibility. All fields are point-in-time snapshots safe
// to serialize to JSON.
type Metrics struct {
	FailureCount  int64      `json:"failure_count"`
	LastFailureAt *time.Time `json:"last_failure_at,omitempty"`
	CooldownUntil *time.Time `json:"cooldown_until,omitempty"`
	Available     bool       `json:"available"`
}

// DefaultCooldown is the unavailability window after a failed call.
const DefaultCooldown = 30 * time.Second

// Tracker records call outcomes for one provider. After a failure the
// provider is reported unavailable for the cooldown window; any success
// clears the failure streak immediately.
type Tracker struct {
	mu            sync.Mutex
	failureCount  int64
	lastFailureAt time.Time
	cooldownUntil time.Time
	cooldown      time.Duration
	now           func() time.Time
}

// NewTracker creates a Tracker. A non-positive cooldown uses DefaultCooldown.
func NewTracker(cooldown time.Duration) *Tracker {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Tracker{cooldown: cooldown, now: time.Now}
}

// RecordSuccess clears the failure streak and any active cooldown.
func (t *Tracker) RecordSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.failureCount = 0
	t.cooldownUntil = time.Time{}
}

// RecordFailure increments the failure streak and opens a cooldown window.
func (t *Tracker) RecordFailure() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.failureCount++
	t.lastFailureAt = now
	t.cooldownUntil = now.Add(t.cooldown)
}

// Available reports whether the provider is outside any cooldown window.
func (t *Tracker) Available() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.availableLocked()
}

// Snapshot returns the current metrics.
func (t *Tracker) Snapshot() Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	m := Metrics{
		FailureCount: t.failureCount,
		Available:    t.availableLocked(),
	}
	if !t.lastFailureAt.IsZero() {
		at := t.lastFailureAt
		m.LastFailureAt = &at
	}
	if !t.cooldownUntil.IsZero() {
		until := t.cooldownUntil
		m.CooldownUntil = &until
	}
	return m
}

func (t *Tracker) availableLocked() bool {
	return t.cooldownUntil.IsZero() || !t.now().Before(t.cooldownUntil)
}

// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"log/slog"
	"sync"
	"time"
)

// BreakerState is the circuit breaker's position.
type BreakerState int

const (
	// StateClosed allows all calls through.
	StateClosed BreakerState = iota
	// StateOpen rejects calls until the cooldown elapses.
	StateOpen
	// StateHalfOpen has admitted one trial call and awaits its outcome.
	StateHalfOpen
)

// String returns the state name for logging.
func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker isolates a single flaky dependency. It performs no I/O
// itself: callers must ask CanProceed before attempting and report the
// outcome via Succeed or Fail afterward. Safe for concurrent use.
type CircuitBreaker struct {
	mu           sync.Mutex
	threshold    int
	cooldown     time.Duration
	state        BreakerState
	failureCount int
	openedAt     time.Time
	now          func() time.Time
	logger       *slog.Logger
}

// NewCircuitBreaker creates a closed breaker that opens after threshold
// consecutive failures and admits a half-open trial once cooldown has
// elapsed.
func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold < 1 {
		threshold = 1
	}
	return &CircuitBreaker{
		threshold: threshold,
		cooldown:  cooldown,
		state:     StateClosed,
		now:       time.Now,
		logger:    slog.Default().With("component", "circuit-breaker"),
	}
}

// CanProceed reports whether a call may be attempted.
// While open, it returns true exactly once per cooldown window, flipping
// the breaker to half-open for that trial.
func (cb *CircuitBreaker) CanProceed() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if cb.now().Sub(cb.openedAt) >= cb.cooldown {
			cb.state = StateHalfOpen
			cb.logger.Debug("breaker admitting half-open trial")
			return true
		}
		return false
	case StateHalfOpen:
		// The trial slot is already taken.
		return false
	default:
		return false
	}
}

// Succeed reports a successful call, resetting the failure count and
// forcing the breaker closed.
func (cb *CircuitBreaker) Succeed() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateClosed {
		cb.logger.Info("breaker closing after success", "from", cb.state.String())
	}
	cb.state = StateClosed
	cb.failureCount = 0
}

// Fail reports a failed call. At the failure threshold, or on a failed
// half-open trial, the breaker opens and records the opening time.
func (cb *CircuitBreaker) Fail() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++

	if cb.state == StateHalfOpen || cb.failureCount >= cb.threshold {
		if cb.state != StateOpen {
			cb.logger.Warn("breaker opening",
				"failures", cb.failureCount,
				"cooldown", cb.cooldown)
		}
		cb.state = StateOpen
		cb.openedAt = cb.now()
	}
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// FailureCount returns the consecutive failure count.
func (cb *CircuitBreaker) FailureCount() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failureCount
}

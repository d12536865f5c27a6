// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// BreakerState is the state of a Breaker.
type BreakerState int

const (
	StateClosed   BreakerState = iota // calls pass through
	StateOpen                         // calls are rejected until the cool-down ends
	StateHalfOpen                     // one probe call is admitted
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ErrOpen is matched by every rejection from an open or probing breaker.
var ErrOpen = errors.New("circuit breaker open")

// OpenError reports a rejected call and how long until the next probe.
type OpenError struct {
	Layer   string
	State   BreakerState
	RetryIn time.Duration
}

func (e *OpenError) Error() string {
	if e.State == StateHalfOpen {
		return fmt.Sprintf("%s: circuit breaker probing, call rejected", e.Layer)
	}
	return fmt.Sprintf("%s: circuit breaker open, next probe in %s", e.Layer, e.RetryIn.Round(time.Second))
}

func (e *OpenError) Is(target error) bool { return target == ErrOpen }

// IsOpen reports whether err is a breaker rejection rather than a call
// failure.
func IsOpen(err error) bool {
	return errors.Is(err, ErrOpen)
}

// BreakerConfig configures a Breaker.
type BreakerConfig struct {
	// Layer names the guarded detection layer in errors and callbacks.
	Layer string
	// Threshold is the number of consecutive failures that opens the breaker.
	Threshold int
	// Cooldown is how long the breaker stays open before admitting a probe.
	Cooldown time.Duration
	// IsFailure decides which call errors count against the layer.
	IsFailure func(error) bool
	// OnStateChange is called with the breaker lock held; it must not call
	// back into the breaker.
	OnStateChange func(layer string, from, to BreakerState)
	Clock         func() time.Time
}

// DefaultBreakerConfig returns the settings used for the tagger sidecar and
// the reviewer: three service faults open the breaker for thirty seconds.
// Malformed replies and caller cancellations do not count.
func DefaultBreakerConfig(layer string) BreakerConfig {
	return BreakerConfig{
		Layer:     layer,
		Threshold: 3,
		Cooldown:  30 * time.Second,
		IsFailure: func(err error) bool {
			return err != nil && ClassifyError(err).ServiceFault
		},
	}
}

// Breaker stops calling a detection layer that keeps failing, so a dead
// sidecar costs one rejected call instead of a timeout per request.
type Breaker struct {
	cfg BreakerConfig

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	probing  bool
}

// NewBreaker creates a closed breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 1
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(err error) bool { return err != nil }
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Breaker{cfg: cfg}
}

// Do runs fn unless the breaker rejects the call, in which case it returns
// an *OpenError without calling fn.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	b.record(err)
	return err
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		elapsed := b.cfg.Clock().Sub(b.openedAt)
		if elapsed < b.cfg.Cooldown {
			return &OpenError{Layer: b.cfg.Layer, State: StateOpen, RetryIn: b.cfg.Cooldown - elapsed}
		}
		b.transition(StateHalfOpen)
		b.probing = true
	case StateHalfOpen:
		if b.probing {
			return &OpenError{Layer: b.cfg.Layer, State: StateHalfOpen}
		}
		b.probing = true
	}
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false
	if !b.cfg.IsFailure(err) {
		b.failures = 0
		b.transition(StateClosed)
		return
	}

	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.cfg.Threshold {
		b.openedAt = b.cfg.Clock()
		b.transition(StateOpen)
	}
}

func (b *Breaker) transition(to BreakerState) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.cfg.Layer, from, to)
	}
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the current run of consecutive failures.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Reset closes the breaker and clears the failure run.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.probing = false
	b.transition(StateClosed)
}

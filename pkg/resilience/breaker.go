// Package resilience guards calls to flaky upstreams.
package resilience

import (
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"signaling-relay/pkg/logger"
)

// State is the position of a circuit breaker
type State string

const (
	StateClosed   State = "closed"
	StateHalfOpen State = "half_open"
	StateOpen     State = "open"
)

// Value maps a state to the gauge value exported for it
func (s State) Value() float64 {
	switch s {
	case StateHalfOpen:
		return 1
	case StateOpen:
		return 2
	default:
		return 0
	}
}

// Breaker opens after threshold consecutive failures. Once the cooldown has
// passed a single probe is let through; its outcome closes or reopens it.
type Breaker struct {
	name      string
	threshold int
	cooldown  time.Duration
	onChange  func(name string, state State)
	now       func() time.Time

	mu                  sync.Mutex
	state               State
	consecutiveFailures int
	openedAt            time.Time
	probing             bool
}

// NewBreaker creates a closed breaker. onChange may be nil.
func NewBreaker(name string, threshold int, cooldown time.Duration, onChange func(string, State)) *Breaker {
	if threshold <= 0 {
		threshold = 1
	}
	if onChange == nil {
		onChange = func(string, State) {}
	}
	return &Breaker{
		name:      name,
		threshold: threshold,
		cooldown:  cooldown,
		onChange:  onChange,
		now:       time.Now,
		state:     StateClosed,
	}
}

// Allow reports whether a call may go out now
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return false
		}
		b.setState(StateHalfOpen)
		b.probing = true
		return true
	case StateHalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	default:
		return true
	}
}

// Success records a successful call
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures = 0
	b.probing = false
	if b.state != StateClosed {
		b.setState(StateClosed)
	}
}

// Failure records a failed call
func (b *Breaker) Failure(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures++
	b.probing = false
	if b.state == StateHalfOpen || b.consecutiveFailures >= b.threshold {
		b.openedAt = b.now()
		if b.state != StateOpen {
			logger.Warn("Circuit breaker opened",
				zap.String("upstream", b.name),
				zap.Int("consecutive_failures", b.consecutiveFailures),
				zap.String("error_type", ClassifyError(err)))
			b.setState(StateOpen)
		}
	}
}

// State returns the current state
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// setState must be called with mu held
func (b *Breaker) setState(s State) {
	if s == StateClosed && b.state != StateClosed {
		logger.Info("Circuit breaker closed", zap.String("upstream", b.name))
	}
	b.state = s
	b.onChange(b.name, s)
}

// ClassifyError buckets an upstream error for logs and metrics
func ClassifyError(err error) string {
	if err == nil {
		return "none"
	}

	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) && timeout.Timeout() {
		return "timeout"
	}

	errMsg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "deadline exceeded"):
		return "timeout"
	case strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "network unreachable"):
		return "network"
	case strings.Contains(errMsg, "no such host"):
		return "dns"
	case strings.Contains(errMsg, "status 401") || strings.Contains(errMsg, "status 403"):
		return "unauthorized"
	case strings.Contains(errMsg, "status "):
		return "upstream_status"
	default:
		return "unknown"
	}
}

package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(threshold int, cooldown time.Duration) (*Breaker, *clock, *[]State) {
	c := &clock{t: time.Unix(1700000000, 0)}
	var changes []State
	b := NewBreaker("twilio", threshold, cooldown, func(_ string, s State) { changes = append(changes, s) })
	b.now = c.now
	return b, c, &changes
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b, _, changes := newTestBreaker(3, time.Minute)
	boom := errors.New("boom")

	for i := 0; i < 2; i++ {
		assert.True(t, b.Allow())
		b.Failure(boom)
	}
	assert.Equal(t, StateClosed, b.State())

	assert.True(t, b.Allow())
	b.Failure(boom)
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
	assert.Equal(t, []State{StateOpen}, *changes)
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	b, _, _ := newTestBreaker(2, time.Minute)

	b.Failure(errors.New("x"))
	b.Success()
	b.Failure(errors.New("x"))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	b, c, changes := newTestBreaker(1, 10*time.Second)

	b.Failure(errors.New("x"))
	assert.False(t, b.Allow())

	c.advance(10 * time.Second)
	assert.True(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.State())
	assert.False(t, b.Allow(), "only one probe at a time")

	b.Success()
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
	assert.Equal(t, []State{StateOpen, StateHalfOpen, StateClosed}, *changes)
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	b, c, _ := newTestBreaker(3, 10*time.Second)

	for i := 0; i < 3; i++ {
		b.Failure(errors.New("x"))
	}
	c.advance(11 * time.Second)
	assert.True(t, b.Allow())

	b.Failure(errors.New("still down"))
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())

	c.advance(10 * time.Second)
	assert.True(t, b.Allow())
}

func TestStateValue(t *testing.T) {
	assert.Equal(t, 0.0, StateClosed.Value())
	assert.Equal(t, 1.0, StateHalfOpen.Value())
	assert.Equal(t, 2.0, StateOpen.Value())
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "none"},
		{context.DeadlineExceeded, "timeout"},
		{fmt.Errorf("fetch: %w", context.DeadlineExceeded), "timeout"},
		{errors.New("dial tcp: connection refused"), "network"},
		{errors.New("dial tcp: lookup api.example: no such host"), "dns"},
		{errors.New("unexpected status 401"), "unauthorized"},
		{errors.New("unexpected status 503"), "upstream_status"},
		{errors.New("something odd"), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyError(tt.err), "%v", tt.err)
	}
}

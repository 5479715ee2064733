package signaling

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type expiryLog struct {
	mu  sync.Mutex
	ids []string
}

func (l *expiryLog) record(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ids = append(l.ids, id)
}

func (l *expiryLog) count(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, v := range l.ids {
		if v == id {
			n++
		}
	}
	return n
}

func TestScheduler_Fires(t *testing.T) {
	log := &expiryLog{}
	s := NewScheduler(20*time.Millisecond, log.record)

	s.Arm("c1")
	assert.Equal(t, 1, s.Pending())

	assert.Eventually(t, func() bool { return log.count("c1") == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, s.Pending())
}

func TestScheduler_CancelPreventsFire(t *testing.T) {
	log := &expiryLog{}
	s := NewScheduler(20*time.Millisecond, log.record)

	s.Arm("c1")
	assert.True(t, s.Cancel("c1"))
	assert.False(t, s.Cancel("c1"))

	assert.Never(t, func() bool { return log.count("c1") > 0 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestScheduler_RearmReplaces(t *testing.T) {
	log := &expiryLog{}
	s := NewScheduler(30*time.Millisecond, log.record)

	s.Arm("c1")
	s.Arm("c1")
	assert.Equal(t, 1, s.Pending())

	assert.Eventually(t, func() bool { return log.count("c1") == 1 }, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return log.count("c1") > 1 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestScheduler_Stop(t *testing.T) {
	log := &expiryLog{}
	s := NewScheduler(20*time.Millisecond, log.record)

	s.Arm("a")
	s.Arm("b")
	s.Stop()
	s.Arm("c")

	assert.Equal(t, 0, s.Pending())
	assert.Never(t, func() bool {
		return log.count("a")+log.count("b")+log.count("c") > 0
	}, 100*time.Millisecond, 10*time.Millisecond)
}

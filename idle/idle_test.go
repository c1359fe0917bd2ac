package idle

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffProgression(t *testing.T) {
	b := NewBackoff(3, 2, time.Microsecond, 8*time.Microsecond)

	for i := 0; i < 3; i++ {
		b.Idle(0)
	}
	assert.Equal(t, 3, b.spins)
	assert.Equal(t, 0, b.yields)

	b.Idle(0)
	b.Idle(0)
	assert.Equal(t, 2, b.yields)
	assert.Equal(t, time.Duration(0), b.park)

	// Parks double up to the cap.
	b.Idle(0)
	assert.Equal(t, 2*time.Microsecond, b.park)
	b.Idle(0)
	b.Idle(0)
	b.Idle(0)
	assert.Equal(t, 8*time.Microsecond, b.park)
	b.Idle(0)
	assert.Equal(t, 8*time.Microsecond, b.park)
}

func TestBackoffResetsOnWork(t *testing.T) {
	b := NewBackoff(1, 1, time.Microsecond, 4*time.Microsecond)

	for i := 0; i < 5; i++ {
		b.Idle(0)
	}
	assert.NotZero(t, b.park)

	b.Idle(10)
	assert.Zero(t, b.spins)
	assert.Zero(t, b.yields)
	assert.Zero(t, b.park)
}

func TestSleepingParksOnlyWhenIdle(t *testing.T) {
	s := Sleeping{Period: 20 * time.Millisecond}

	start := time.Now()
	s.Idle(5)
	assert.Less(t, time.Since(start), 10*time.Millisecond)

	start = time.Now()
	s.Idle(0)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestControllableFollowsStatus(t *testing.T) {
	status := &atomic.Int64{}
	fallback := NewBackoff(1, 1, time.Microsecond, 2*time.Microsecond)
	c := NewControllable(status, fallback, time.Microsecond)

	// NotControlled delegates to the fallback.
	status.Store(NotControlled)
	c.Idle(0)
	assert.Equal(t, 1, fallback.spins)

	// A controlled status bypasses the fallback entirely.
	status.Store(Spin)
	c.Idle(0)
	assert.Equal(t, 1, fallback.spins)

	status.Store(Yield)
	c.Idle(0)
	assert.Equal(t, 1, fallback.spins)

	c.Reset()
	assert.Zero(t, fallback.spins)
}

func TestBusyAndYieldingDoNotBlock(t *testing.T) {
	start := time.Now()
	Busy{}.Idle(0)
	Yielding{}.Idle(0)
	Yielding{}.Idle(3)
	assert.Less(t, time.Since(start), 10*time.Millisecond)
}

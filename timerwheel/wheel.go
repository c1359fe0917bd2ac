// Package timerwheel implements a hashed timing wheel for deadline-driven
// callbacks: O(1) scheduling and cancellation at tick resolution. Scheduling
// allocates one Timer per call plus any bucket growth; expiring and
// cancelling allocate nothing.
//
// A Wheel is single-threaded. All scheduling, cancellation, and expiration
// must happen on the owner thread; there is no internal synchronization.
package timerwheel

import (
	"math"
	"time"

	aeron "github.com/l2ex/aeron-go"
)

// Clock returns monotonic time in nanoseconds. Injectable for tests.
type Clock func() int64

// Task is the callback invoked, with no arguments, when a timer expires.
type Task func()

// initialTickDepth is the number of slots each bucket starts with.
const initialTickDepth = 16

var processStart = time.Now()

// defaultClock reads the process monotonic clock.
func defaultClock() int64 {
	return time.Since(processStart).Nanoseconds()
}

// Wheel is a hashed timing wheel. Timers are hashed to a bucket by deadline
// tick; timers beyond one wheel revolution carry a remaining-rounds counter
// that is decremented on each visit to their bucket.
type Wheel struct {
	clock          Clock
	tickDurationNs int64
	ticksPerWheel  int64
	mask           int64
	startTime      int64
	currentTick    int64
	buckets        [][]*Timer
}

// Option configures a Wheel.
type Option func(*Wheel)

// WithClock injects a monotonic nanosecond clock, replacing the default
// process clock. Useful for deterministic tests.
func WithClock(clock Clock) Option {
	return func(w *Wheel) {
		w.clock = clock
	}
}

// NewWheel creates a wheel of ticksPerWheel buckets, each tickDuration wide.
// ticksPerWheel must be a power of two of at least 2, and the full wheel
// span tickDuration*ticksPerWheel must fit in an int64 of nanoseconds.
func NewWheel(tickDuration time.Duration, ticksPerWheel int, opts ...Option) (*Wheel, error) {
	const op = "NewWheel"

	tickNs := tickDuration.Nanoseconds()
	if tickNs <= 0 {
		return nil, aeron.NewInvalidArgument(op,
			"tick duration must be positive: tickDuration=%v", tickDuration)
	}
	ticks := int64(ticksPerWheel)
	if ticks < 2 || ticks&(ticks-1) != 0 {
		return nil, aeron.NewInvalidArgument(op,
			"ticks per wheel must be a power of two >= 2: ticksPerWheel=%d", ticksPerWheel)
	}
	if tickNs > math.MaxInt64/ticks {
		return nil, aeron.NewInvalidArgument(op,
			"wheel span overflows int64 nanoseconds: tickDuration=%v ticksPerWheel=%d",
			tickDuration, ticksPerWheel)
	}

	w := &Wheel{
		clock:          defaultClock,
		tickDurationNs: tickNs,
		ticksPerWheel:  ticks,
		mask:           ticks - 1,
	}
	for _, opt := range opts {
		opt(w)
	}

	w.startTime = w.clock()
	w.buckets = make([][]*Timer, ticks)
	for i := range w.buckets {
		w.buckets[i] = make([]*Timer, initialTickDepth)
	}

	return w, nil
}

// TickDuration returns the width of one tick.
func (w *Wheel) TickDuration() time.Duration {
	return time.Duration(w.tickDurationNs)
}

// TicksPerWheel returns the number of buckets.
func (w *Wheel) TicksPerWheel() int {
	return int(w.ticksPerWheel)
}

// CurrentTick returns the number of ticks processed so far.
func (w *Wheel) CurrentTick() int64 {
	return w.currentTick
}

// CurrentTime returns nanoseconds elapsed since the wheel was constructed.
func (w *Wheel) CurrentTime() int64 {
	return w.clock() - w.startTime
}

// NewTimeout schedules task to fire once delay has elapsed. The timer lands in
// the slot of its deadline tick, or in the current slot when that tick has
// already been processed. A non-positive delay therefore fires on the next
// ExpireTimers while the wheel keeps up with the clock; when the wheel lags,
// it lands in the slot of the current time and fires when that slot is reached.
func (w *Wheel) NewTimeout(delay time.Duration, task Task) *Timer {
	deadline := w.CurrentTime() + delay.Nanoseconds()
	calculatedIndex := deadline / w.tickDurationNs

	// Deadlines already in the past hash to the current slot, never a
	// slot the wheel has moved beyond.
	ticks := calculatedIndex
	if ticks < w.currentTick {
		ticks = w.currentTick
	}

	timer := &Timer{
		wheel:           w,
		task:            task,
		deadline:        deadline,
		wheelIndex:      ticks & w.mask,
		tickIndex:       -1,
		remainingRounds: (calculatedIndex - w.currentTick) / w.ticksPerWheel,
		state:           stateActive,
	}

	w.insert(timer)
	return timer
}

// insert places the timer in the first free slot of its bucket, growing the
// bucket by one slot when full. Buckets never shrink.
func (w *Wheel) insert(timer *Timer) {
	bucket := w.buckets[timer.wheelIndex]
	for i, slot := range bucket {
		if slot == nil {
			bucket[i] = timer
			timer.tickIndex = int32(i)
			return
		}
	}

	timer.tickIndex = int32(len(bucket))
	w.buckets[timer.wheelIndex] = append(bucket, timer)
}

// CalculateDelayInMs returns milliseconds until the next tick boundary,
// rounded up. Non-positive when the wheel has fallen behind; callers
// typically treat that as "tick now".
func (w *Wheel) CalculateDelayInMs() int64 {
	deadline := w.tickDurationNs * (w.currentTick + 1)
	return (deadline - w.CurrentTime() + 999_999) / 1_000_000
}

// ExpireTimers processes the current slot and advances the wheel by one
// tick, returning the number of tasks fired.
//
// A timer with rounds remaining is left in place with its counter
// decremented. A timer out of rounds is removed; its task runs only if the
// deadline has actually passed, otherwise it is dropped. Rounds are
// decremented without consulting the deadline, so a timer whose deadline
// elapsed between visits waits out its remaining rounds before firing.
//
// A task that panics propagates to the caller. Its slot is cleared before
// the task runs, so re-entry does not double-fire, but later timers in the
// same slot are not processed and the tick does not advance.
func (w *Wheel) ExpireTimers() int {
	expired := 0
	slot := w.currentTick & w.mask
	now := w.CurrentTime()

	// Index through the wheel rather than a captured slice: a task may
	// schedule into this bucket and grow it mid-pass. Slots appended during
	// the pass wait for the next revolution.
	depth := len(w.buckets[slot])
	for i := 0; i < depth; i++ {
		timer := w.buckets[slot][i]
		if timer == nil {
			continue
		}

		if timer.remainingRounds <= 0 {
			w.buckets[slot][i] = nil
			timer.tickIndex = -1
			if timer.deadline <= now {
				expired++
				timer.task()
			}
		} else {
			timer.remainingRounds--
		}
	}

	w.currentTick++
	return expired
}

package timerwheel

type timerState int32

const (
	stateActive timerState = iota
	stateCancelled
)

// Timer is a scheduled callback. It lives in exactly one bucket slot while
// scheduled and holds only indices back into the wheel, so cancellation is
// O(1) without back-pointers into bucket storage.
//
// Expiration removes the timer from the wheel without a state transition:
// a fired timer still reads as active. Callers that need to distinguish
// fired from pending must track that themselves.
type Timer struct {
	wheel           *Wheel
	task            Task
	deadline        int64 // Nanoseconds since wheel start
	wheelIndex      int64 // Bucket index, fixed at creation
	tickIndex       int32 // Slot index within the bucket, -1 when absent
	remainingRounds int64 // Wheel revolutions left before eligible to fire
	state           timerState
}

// Deadline returns the absolute expiration time in nanoseconds since the
// wheel was constructed.
func (t *Timer) Deadline() int64 {
	return t.deadline
}

// IsActive reports whether the timer has not been cancelled. Note that an
// expired timer keeps reading as active.
func (t *Timer) IsActive() bool {
	return t.state == stateActive
}

// IsCancelled reports whether Cancel has been called.
func (t *Timer) IsCancelled() bool {
	return t.state == stateCancelled
}

// Cancel removes the timer from the wheel. Idempotent; once it returns the
// task will not be invoked by any subsequent ExpireTimers. Cancelling a
// timer that already fired only marks it cancelled. The freed slot may be
// reused by a later scheduling call.
func (t *Timer) Cancel() {
	if t.state == stateActive && t.tickIndex >= 0 {
		t.wheel.buckets[t.wheelIndex][t.tickIndex] = nil
		t.tickIndex = -1
	}
	t.state = stateCancelled
}

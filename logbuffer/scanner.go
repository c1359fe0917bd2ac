package logbuffer

import (
	"runtime"

	aeron "github.com/l2ex/aeron-go"
)

// AvailabilityHandler receives one contiguous byte range of fully-published
// frames. It is invoked at most once per ScanNext, after the cursor has
// already advanced past the range (and any trailing padding).
type AvailabilityHandler func(offset, length int32)

// Scanner is a cursor over an append-only framed log. A single external
// producer appends frames and advances the tail counter in the state buffer;
// the scanner trails behind the tail and reports batches of complete frames.
//
// A Scanner is single-reader. Each consuming thread must own its own
// instance; the scanner itself never writes to either buffer.
type Scanner struct {
	logBuffer     *Buffer
	stateBuffer   *Buffer
	alignedHeader int32
	capacity      int32
	offset        int32
}

// NewScanner creates a scanner over the given log and state buffers.
// headerLength is the frame header length used by the producer; it must be
// non-negative and word aligned.
func NewScanner(logBuffer, stateBuffer *Buffer, headerLength int32) (*Scanner, error) {
	const op = "NewScanner"

	capacity := logBuffer.Capacity()
	if capacity <= 0 || capacity%FrameAlignment != 0 {
		return nil, aeron.NewInvalidArgument(op,
			"log buffer capacity must be a positive multiple of %d: capacity=%d",
			FrameAlignment, capacity)
	}
	if stateBuffer.Capacity() < TailCounterOffset+4 {
		return nil, aeron.NewInvalidArgument(op,
			"state buffer too small for tail counter: capacity=%d", stateBuffer.Capacity())
	}
	if headerLength < 0 || headerLength%8 != 0 {
		return nil, aeron.NewInvalidArgument(op,
			"header length must be non-negative and a multiple of 8: headerLength=%d", headerLength)
	}

	return &Scanner{
		logBuffer:     logBuffer,
		stateBuffer:   stateBuffer,
		alignedHeader: Align(headerLength, FrameAlignment),
		capacity:      capacity,
	}, nil
}

// Capacity returns the log buffer capacity in bytes.
func (s *Scanner) Capacity() int32 {
	return s.capacity
}

// Offset returns the next frame boundary the scanner will examine.
func (s *Scanner) Offset() int32 {
	return s.offset
}

// IsComplete reports whether the scanner has consumed the whole log.
func (s *Scanner) IsComplete() bool {
	return s.offset >= s.capacity
}

// Seek moves the cursor to newOffset. The offset may not be negative or
// ahead of the published tail. Alignment is the caller's responsibility.
func (s *Scanner) Seek(newOffset int32) error {
	tail := s.tailVolatile()
	if newOffset < 0 || newOffset > tail {
		return aeron.NewInvalidState("Seek",
			"offset out of range: offset=%d tail=%d", newOffset, tail)
	}
	s.offset = newOffset
	return nil
}

// ScanNext reports the next batch of complete frames behind the tail,
// bounded by limit bytes, and returns the number of frames covered.
//
// The handler is invoked at most once, with a range that is frame aligned
// and contains only whole published frames in append order. A padding frame
// contributes only its aligned header to the range; the slack it spans is
// consumed from the cursor but never exposed. If the first frame alone
// exceeds limit the call emits nothing and the cursor does not move.
//
// When the frame at the cursor has been claimed but its length is not yet
// published, ScanNext spins until the producer releases it.
func (s *Scanner) ScanNext(limit int32, handler AvailabilityHandler) int {
	if s.IsComplete() {
		return 0
	}

	tail := s.tailVolatile()
	base := s.offset
	if tail <= base {
		return 0
	}

	var length, padding int32
	frameCount := 0

	for {
		frameLength := s.waitForFrameLength(base + length)
		aligned := Align(frameLength, FrameAlignment)

		if s.frameType(base+length) == PaddingFrameType {
			padding = aligned - s.alignedHeader
			aligned = s.alignedHeader
		}

		length += aligned
		if length > limit {
			length -= aligned
			break
		}
		frameCount++

		if base+length+padding >= tail {
			break
		}
	}

	if length > 0 {
		s.offset = base + length + padding
		handler(base, length)
	}

	return frameCount
}

// tailVolatile reads the producer's tail counter with acquire semantics.
func (s *Scanner) tailVolatile() int32 {
	return s.stateBuffer.GetInt32Volatile(TailCounterOffset)
}

// waitForFrameLength spins until the frame length at frameOffset has been
// published. The producer writes the length with release semantics after the
// frame body, so a non-zero load here makes the whole frame visible. The
// wait yields between probes but never blocks; there is no producer-side
// signal to wait on.
func (s *Scanner) waitForFrameLength(frameOffset int32) int32 {
	for {
		frameLength := s.logBuffer.GetInt32Volatile(frameOffset + LengthFieldOffset)
		if frameLength != 0 {
			return frameLength
		}
		runtime.Gosched()
	}
}

// frameType reads the type field with plain semantics. Safe once a positive
// length has been observed, the field lives inside the published frame.
func (s *Scanner) frameType(frameOffset int32) uint16 {
	return s.logBuffer.GetUInt16(frameOffset + TypeFieldOffset)
}

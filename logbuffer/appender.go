package logbuffer

import (
	"errors"

	aeron "github.com/l2ex/aeron-go"
)

// ErrInsufficientCapacity is returned when the remaining log space cannot
// hold the next frame. The appender pads out the remainder so a trailing
// scanner still reaches the end of the log.
var ErrInsufficientCapacity = errors.New("logbuffer: insufficient capacity")

// Appender is a minimal single-threaded producer for a framed log. It claims
// space at the tail, writes header and payload, and publishes the frame
// length with release semantics so a concurrent Scanner observes only whole
// frames. It exists to drive scanners in samples and tests; it is not safe
// for concurrent producers.
type Appender struct {
	logBuffer    *Buffer
	stateBuffer  *Buffer
	headerLength int32
	capacity     int32
}

// Claim is a two-step publication of a single frame. The claimed region is
// visible to the producer immediately but withheld from scanners until
// Commit publishes the frame length.
type Claim struct {
	buffer      *Buffer
	frameOffset int32
	frameLength int32
}

// NewAppender creates an appender over the given log and state buffers.
func NewAppender(logBuffer, stateBuffer *Buffer, headerLength int32) (*Appender, error) {
	const op = "NewAppender"

	capacity := logBuffer.Capacity()
	if capacity <= 0 || capacity%FrameAlignment != 0 {
		return nil, aeron.NewInvalidArgument(op,
			"log buffer capacity must be a positive multiple of %d: capacity=%d",
			FrameAlignment, capacity)
	}
	if stateBuffer.Capacity() < StateBufferLength {
		return nil, aeron.NewInvalidArgument(op,
			"state buffer too small: capacity=%d required=%d",
			stateBuffer.Capacity(), StateBufferLength)
	}
	if headerLength < 0 || headerLength%8 != 0 {
		return nil, aeron.NewInvalidArgument(op,
			"header length must be non-negative and a multiple of 8: headerLength=%d", headerLength)
	}

	return &Appender{
		logBuffer:    logBuffer,
		stateBuffer:  stateBuffer,
		headerLength: headerLength,
		capacity:     capacity,
	}, nil
}

// Tail returns the current tail offset.
func (a *Appender) Tail() int32 {
	return a.stateBuffer.GetInt32(TailCounterOffset)
}

// AppendFrame writes one data frame containing payload and publishes it.
// When the remaining capacity cannot hold the frame, the remainder is filled
// with a padding frame and ErrInsufficientCapacity is returned.
func (a *Appender) AppendFrame(payload []byte) (int32, error) {
	claim, err := a.Claim(int32(len(payload)))
	if err != nil {
		return 0, err
	}

	a.logBuffer.PutBytes(claim.frameOffset+a.headerLength, payload)
	claim.Commit()
	return claim.frameOffset, nil
}

// Claim reserves space for a frame with a payload of the given length and
// advances the tail past it. The frame stays invisible to scanners (its
// length field reads zero) until Commit is called. When the frame does not
// fit, the remainder is padded out and ErrInsufficientCapacity is returned.
func (a *Appender) Claim(payloadLength int32) (*Claim, error) {
	tail := a.Tail()
	frameLength := a.headerLength + payloadLength
	alignedLength := Align(frameLength, FrameAlignment)

	if tail+alignedLength > a.capacity {
		a.padRemainder(tail)
		return nil, ErrInsufficientCapacity
	}

	a.writeHeader(tail, DataFrameType)
	a.publishTail(tail + alignedLength)

	return &Claim{
		buffer:      a.logBuffer,
		frameOffset: tail,
		frameLength: frameLength,
	}, nil
}

// Buffer returns the log buffer the claim was made against.
func (c *Claim) Buffer() *Buffer {
	return c.buffer
}

// Offset returns the frame offset of the claimed region.
func (c *Claim) Offset() int32 {
	return c.frameOffset
}

// Commit publishes the frame length with release semantics, making the
// frame visible to scanners.
func (c *Claim) Commit() {
	c.buffer.PutInt32Ordered(c.frameOffset+LengthFieldOffset, c.frameLength)
}

// padRemainder fills [tail, capacity) with a single padding frame whose
// length spans the whole filler region, then advances the tail to capacity.
func (a *Appender) padRemainder(tail int32) {
	remaining := a.capacity - tail
	if remaining <= 0 {
		return
	}

	a.writeHeader(tail, PaddingFrameType)
	a.logBuffer.PutInt32Ordered(tail+LengthFieldOffset, remaining)
	a.publishTail(a.capacity)
}

// writeHeader writes the non-length header fields with plain semantics.
// The length field is what publishes the frame and is written separately.
func (a *Appender) writeHeader(frameOffset int32, frameType uint16) {
	a.logBuffer.PutUInt8(frameOffset+VersionFieldOffset, 1)
	a.logBuffer.PutUInt8(frameOffset+FlagsFieldOffset, 0)
	a.logBuffer.PutUInt16(frameOffset+TypeFieldOffset, frameType)
}

// publishTail advances the tail counter and high-water mark with release
// semantics so trailing scanners observe completed frames only.
func (a *Appender) publishTail(newTail int32) {
	a.stateBuffer.PutInt32Ordered(TailCounterOffset, newTail)
	if a.stateBuffer.Capacity() >= HighWaterMarkOffset+4 {
		a.stateBuffer.PutInt32Ordered(HighWaterMarkOffset, newTail)
	}
}

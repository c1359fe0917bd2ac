// Package logbuffer implements the framed log-buffer layout shared between a
// producer and a single-reader scanner: the frame descriptor, an atomic byte
// buffer, the Scanner cursor, and a minimal Appender.
package logbuffer

// Frame layout. Each frame begins at a FrameAlignment-aligned offset within
// the log buffer and starts with a fixed header. The length field covers the
// whole frame (header + payload) before alignment and is published last, with
// release semantics; a zero length means the frame is not yet visible.
const (
	// FrameAlignment is the boundary every frame starts on. Power of two.
	FrameAlignment = 32

	// LengthFieldOffset is the position of the 32-bit little-endian frame length.
	LengthFieldOffset = 0

	// VersionFieldOffset is the position of the 8-bit protocol version.
	VersionFieldOffset = 4

	// FlagsFieldOffset is the position of the 8-bit fragmentation flags.
	FlagsFieldOffset = 5

	// TypeFieldOffset is the position of the 16-bit little-endian frame type.
	TypeFieldOffset = 6

	// DefaultHeaderLength is the header length used by the transport.
	DefaultHeaderLength = 32
)

// Frame types. Padding frames fill out log space the producer could not use;
// their length field spans the whole filler region.
const (
	PaddingFrameType uint16 = 0x00
	DataFrameType    uint16 = 0x01
)

// State buffer layout. The scanner only reads the tail counter; the other
// positions are maintained by external producers.
const (
	// CacheLineLength separates hot counters to avoid false sharing.
	CacheLineLength = 64

	// TailCounterOffset is the position of the 32-bit tail counter.
	TailCounterOffset = 0

	// HighWaterMarkOffset is the position of the producer's high-water mark.
	HighWaterMarkOffset = CacheLineLength

	// StateBufferLength is the minimum capacity of a state buffer.
	StateBufferLength = 2 * CacheLineLength
)

// Align rounds value up to the next multiple of alignment.
// Alignment must be a power of two.
func Align(value, alignment int32) int32 {
	return (value + (alignment - 1)) &^ (alignment - 1)
}

// IsPowerOfTwo reports whether value is a positive power of two.
func IsPowerOfTwo(value int64) bool {
	return value > 0 && (value&(value-1)) == 0
}

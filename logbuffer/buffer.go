package logbuffer

import (
	"encoding/binary"
	"sync/atomic"
	"unsafe"
)

// Buffer wraps a fixed byte region with plain little-endian accessors and
// volatile 32-bit accessors for the fields the producer/scanner handshake
// depends on. Offsets passed to the volatile accessors must be 4-byte
// aligned; frame boundaries and the state counters satisfy this by layout.
//
// The volatile accessors load and store through sync/atomic against the
// backing array, which assumes a little-endian host. Big-endian ports must
// byte-swap, the on-wire order is load-bearing.
type Buffer struct {
	data []byte
}

// MakeBuffer wraps the given byte slice. The slice is shared, not copied.
func MakeBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

// Capacity returns the length of the underlying region in bytes.
func (b *Buffer) Capacity() int32 {
	return int32(len(b.data))
}

// GetInt32Volatile reads a 32-bit value with acquire semantics.
func (b *Buffer) GetInt32Volatile(offset int32) int32 {
	return atomic.LoadInt32((*int32)(unsafe.Pointer(&b.data[offset])))
}

// PutInt32Ordered writes a 32-bit value with release semantics.
func (b *Buffer) PutInt32Ordered(offset int32, value int32) {
	atomic.StoreInt32((*int32)(unsafe.Pointer(&b.data[offset])), value)
}

// GetInt32 reads a 32-bit little-endian value with plain semantics.
func (b *Buffer) GetInt32(offset int32) int32 {
	return int32(binary.LittleEndian.Uint32(b.data[offset:]))
}

// PutInt32 writes a 32-bit little-endian value with plain semantics.
func (b *Buffer) PutInt32(offset int32, value int32) {
	binary.LittleEndian.PutUint32(b.data[offset:], uint32(value))
}

// GetUInt16 reads a 16-bit little-endian value with plain semantics.
func (b *Buffer) GetUInt16(offset int32) uint16 {
	return binary.LittleEndian.Uint16(b.data[offset:])
}

// PutUInt16 writes a 16-bit little-endian value with plain semantics.
func (b *Buffer) PutUInt16(offset int32, value uint16) {
	binary.LittleEndian.PutUint16(b.data[offset:], value)
}

// GetUInt8 reads a byte.
func (b *Buffer) GetUInt8(offset int32) uint8 {
	return b.data[offset]
}

// PutUInt8 writes a byte.
func (b *Buffer) PutUInt8(offset int32, value uint8) {
	b.data[offset] = value
}

// GetBytes copies length bytes starting at offset into a new slice.
func (b *Buffer) GetBytes(offset, length int32) []byte {
	out := make([]byte, length)
	copy(out, b.data[offset:offset+length])
	return out
}

// PutBytes copies src into the buffer starting at offset.
func (b *Buffer) PutBytes(offset int32, src []byte) {
	copy(b.data[offset:], src)
}

// Range returns a view of [offset, offset+length) without copying.
// The view aliases the underlying region.
func (b *Buffer) Range(offset, length int32) []byte {
	return b.data[offset : offset+length : offset+length]
}

package logbuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aeron "github.com/l2ex/aeron-go"
)

func makeAppender(t *testing.T, capacity int32) (*Appender, *Scanner, *Buffer, *Buffer) {
	t.Helper()
	logBuffer, stateBuffer := makeBuffers(t, capacity)
	appender, err := NewAppender(logBuffer, stateBuffer, testHeaderLength)
	require.NoError(t, err)
	scanner, err := NewScanner(logBuffer, stateBuffer, testHeaderLength)
	require.NoError(t, err)
	return appender, scanner, logBuffer, stateBuffer
}

func TestNewAppenderValidation(t *testing.T) {
	logBuffer, stateBuffer := makeBuffers(t, 1024)

	_, err := NewAppender(MakeBuffer(make([]byte, 100)), stateBuffer, testHeaderLength)
	require.Error(t, err)
	assert.True(t, aeron.IsCode(err, aeron.ErrCodeInvalidArgument))

	_, err = NewAppender(logBuffer, MakeBuffer(make([]byte, 64)), testHeaderLength)
	require.Error(t, err)
	assert.True(t, aeron.IsCode(err, aeron.ErrCodeInvalidArgument))

	_, err = NewAppender(logBuffer, stateBuffer, 12)
	require.Error(t, err)
	assert.True(t, aeron.IsCode(err, aeron.ErrCodeInvalidArgument))
}

func TestAppendFrameRoundTrip(t *testing.T) {
	appender, scanner, logBuffer, _ := makeAppender(t, 1024)

	payloads := [][]byte{
		[]byte("first message"),
		[]byte("second, somewhat longer message body"),
		[]byte("third"),
	}
	for _, p := range payloads {
		_, err := appender.AppendFrame(p)
		require.NoError(t, err)
	}

	var got batch
	frames := scanner.ScanNext(1024, func(offset, length int32) {
		got = batch{offset, length}
	})

	require.Equal(t, len(payloads), frames)
	assert.Equal(t, int32(0), got.offset)
	assert.Equal(t, appender.Tail(), got.length)

	// Walk the emitted range frame by frame and compare payloads.
	offset := got.offset
	for _, p := range payloads {
		frameLength := logBuffer.GetInt32(offset + LengthFieldOffset)
		assert.Equal(t, int32(testHeaderLength+len(p)), frameLength)
		assert.Equal(t, DataFrameType, logBuffer.GetUInt16(offset+TypeFieldOffset))
		assert.Equal(t, p, logBuffer.GetBytes(offset+testHeaderLength, int32(len(p))))
		offset += Align(frameLength, FrameAlignment)
	}
	assert.Equal(t, got.offset+got.length, offset)
}

func TestClaimWithholdsFrameUntilCommit(t *testing.T) {
	appender, scanner, logBuffer, stateBuffer := makeAppender(t, 1024)

	claim, err := appender.Claim(16)
	require.NoError(t, err)

	// The tail has advanced but the frame is not yet published.
	assert.Equal(t, int32(64), stateBuffer.GetInt32Volatile(TailCounterOffset))
	assert.Zero(t, logBuffer.GetInt32Volatile(claim.Offset()+LengthFieldOffset))

	claim.Buffer().PutBytes(claim.Offset()+testHeaderLength, []byte("claimed payload!"))
	claim.Commit()

	frames := scanner.ScanNext(1024, func(offset, length int32) {
		assert.Equal(t, int32(0), offset)
		assert.Equal(t, int32(64), length)
	})
	assert.Equal(t, 1, frames)
}

func TestAppendFramePadsWhenFull(t *testing.T) {
	appender, scanner, logBuffer, stateBuffer := makeAppender(t, 128)

	// 64 bytes of payload -> 96-byte frame, leaving 32 bytes of slack.
	_, err := appender.AppendFrame(make([]byte, 64))
	require.NoError(t, err)

	_, err = appender.AppendFrame(make([]byte, 64))
	require.ErrorIs(t, err, ErrInsufficientCapacity)

	// The remainder was padded out and the tail pushed to capacity.
	assert.Equal(t, int32(128), stateBuffer.GetInt32Volatile(TailCounterOffset))
	assert.Equal(t, PaddingFrameType, logBuffer.GetUInt16(96+TypeFieldOffset))
	assert.Equal(t, int32(32), logBuffer.GetInt32(96+LengthFieldOffset))

	// A trailing scanner consumes the padding and completes.
	scanner.ScanNext(1024, func(int32, int32) {})
	assert.True(t, scanner.IsComplete())
}

func TestHighWaterMarkTracksTail(t *testing.T) {
	appender, _, _, stateBuffer := makeAppender(t, 1024)

	_, err := appender.AppendFrame(make([]byte, 100))
	require.NoError(t, err)

	tail := stateBuffer.GetInt32Volatile(TailCounterOffset)
	assert.Equal(t, int32(160), tail)
	assert.Equal(t, tail, stateBuffer.GetInt32Volatile(HighWaterMarkOffset))
}

package spectrogram

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunk(fill byte) []byte {
	return bytes.Repeat([]byte{fill}, FrameSize)
}

func TestNewFrameValidatesSize(t *testing.T) {
	_, err := NewFrame(time.Now(), make([]byte, FrameSize-1))
	require.Error(t, err)

	frame, err := NewFrame(time.Now(), chunk(7))
	require.NoError(t, err)
	first, second := frame.Slices()
	assert.Len(t, first, BinsPerSlice)
	assert.Len(t, second, BinsPerSlice)
}

func TestBufferRoundTrip(t *testing.T) {
	b := NewBuffer(4, nil)

	require.NoError(t, b.WriteChunk(chunk(1)))
	require.NoError(t, b.WriteChunk(chunk(2)))

	frame, ok := b.ReadFrame()
	require.True(t, ok)
	assert.Equal(t, chunk(1), frame.Data, "frames come out in write order")

	frame, ok = b.ReadFrame()
	require.True(t, ok)
	assert.Equal(t, chunk(2), frame.Data)

	_, ok = b.ReadFrame()
	assert.False(t, ok, "empty buffer yields no frame")
}

func TestBufferRejectsWrongSize(t *testing.T) {
	b := NewBuffer(4, nil)
	assert.Error(t, b.WriteChunk(make([]byte, FrameSize+1)))
	assert.Error(t, b.WriteChunk(nil))
}

func TestBufferOverflowDropsOldest(t *testing.T) {
	b := NewBuffer(2, nil)

	require.NoError(t, b.WriteChunk(chunk(1)))
	require.NoError(t, b.WriteChunk(chunk(2)))
	require.NoError(t, b.WriteChunk(chunk(3)), "overflow must not fail the writer")

	frame, ok := b.ReadFrame()
	require.True(t, ok)
	assert.Equal(t, chunk(2), frame.Data, "oldest frame was discarded")

	frame, ok = b.ReadFrame()
	require.True(t, ok)
	assert.Equal(t, chunk(3), frame.Data)
}

func TestBufferMonitorForwardsFrames(t *testing.T) {
	b := NewBuffer(4, nil)
	out := make(chan Frame, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	monitorDone := make(chan struct{})
	go func() {
		b.Monitor(ctx, out)
		close(monitorDone)
	}()

	require.NoError(t, b.WriteChunk(chunk(9)))

	select {
	case frame := <-out:
		assert.Equal(t, chunk(9), frame.Data)
	case <-time.After(time.Second):
		require.Fail(t, "monitor did not forward the frame")
	}

	cancel()
	select {
	case <-monitorDone:
	case <-time.After(time.Second):
		require.Fail(t, "monitor did not stop on cancellation")
	}
}

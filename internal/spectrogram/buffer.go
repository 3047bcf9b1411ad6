// buffer.go: byte staging between the spectrogram producer and the
// distribution worker. The producer writes fixed-size chunks at audio rate;
// the monitor goroutine re-frames them onto the bounded stream queue.
package spectrogram

import (
	"context"
	"sync"
	"time"

	"github.com/smallnest/ringbuffer"

	"github.com/tphakala/birdstream/internal/errors"
	"github.com/tphakala/birdstream/internal/logging"
	"github.com/tphakala/birdstream/internal/observability"
)

const pollInterval = time.Millisecond * 10

// Buffer stages raw spectrogram bytes in a ring buffer. Writes and reads
// are always whole frames, so frame boundaries survive buffer wraps. When
// the buffer is full the oldest frame is dropped to make room; the live
// view prefers fresh data over complete data.
type Buffer struct {
	mu      sync.Mutex
	rb      *ringbuffer.RingBuffer
	metrics *observability.Metrics
}

// NewBuffer creates a staging buffer with room for the given number of
// frames. metrics may be nil.
func NewBuffer(frames int, metrics *observability.Metrics) *Buffer {
	if frames < 1 {
		frames = 1
	}
	return &Buffer{
		rb:      ringbuffer.New(frames * FrameSize),
		metrics: metrics,
	}
}

// WriteChunk appends one frame-sized chunk. If the buffer is full the
// oldest frame is discarded first.
func (b *Buffer) WriteChunk(data []byte) error {
	if len(data) != FrameSize {
		return errors.Newf("invalid spectrogram chunk size: got %d bytes, want %d", len(data), FrameSize).
			Component("spectrogram").
			Category(errors.CategoryValidation).
			Build()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.rb.Free() < FrameSize {
		discard := make([]byte, FrameSize)
		if _, err := b.rb.Read(discard); err != nil && !errors.Is(err, ringbuffer.ErrIsEmpty) {
			return errors.New(err).
				Component("spectrogram").
				Category(errors.CategoryState).
				Context("operation", "discard-oldest").
				Build()
		}
		if b.metrics != nil {
			b.metrics.Stream.RecordDroppedFrame("spectrogram")
		}
	}

	if _, err := b.rb.Write(data); err != nil {
		return errors.New(err).
			Component("spectrogram").
			Category(errors.CategoryState).
			Context("operation", "write-chunk").
			Build()
	}
	return nil
}

// ReadFrame pops the oldest complete frame, if one is buffered.
func (b *Buffer) ReadFrame() (Frame, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.rb.Length() < FrameSize {
		return Frame{}, false
	}

	data := make([]byte, FrameSize)
	read := 0
	for read < FrameSize {
		n, err := b.rb.Read(data[read:])
		if err != nil {
			return Frame{}, false
		}
		read += n
	}
	return Frame{Timestamp: time.Now(), Data: data}, true
}

// Length returns the number of buffered bytes.
func (b *Buffer) Length() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rb.Length()
}

// Monitor polls the staging buffer and forwards complete frames onto the
// stream queue until the context is cancelled. A full queue drops the frame
// rather than blocking the monitor behind a stalled consumer.
func (b *Buffer) Monitor(ctx context.Context, out chan<- Frame) {
	log := logging.ForService("spectrogram")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if log != nil {
				log.Debug("spectrogram buffer monitor stopping")
			}
			return
		case <-ticker.C:
			for {
				frame, ok := b.ReadFrame()
				if !ok {
					break
				}
				select {
				case out <- frame:
				default:
					if b.metrics != nil {
						b.metrics.Stream.RecordDroppedFrame("spectrogram")
					}
				}
			}
		}
	}
}

// Package spectrogram defines the raw spectrogram frame format pushed to
// viewers and the byte staging buffer between the producer and the
// distribution worker.
package spectrogram

import (
	"time"

	"github.com/tphakala/birdstream/internal/errors"
)

// BinsPerSlice is the number of frequency bins in one rendered column.
const BinsPerSlice = 128

// FrameSize is the byte length of one complete frame update: two
// consecutive equal-length frequency-bin slices, one byte per bin.
const FrameSize = 2 * BinsPerSlice

// Frame is one spectrogram update. Data holds two consecutive equal-length
// frequency-bin slices; each slice is rendered independently by the viewer.
type Frame struct {
	Timestamp time.Time `json:"timestamp"`
	Data      []byte    `json:"data"`
}

// NewFrame validates a raw byte chunk and wraps it into a Frame. The chunk
// must be exactly FrameSize bytes so the viewer can split it into its two
// bin slices.
func NewFrame(timestamp time.Time, data []byte) (Frame, error) {
	if len(data) != FrameSize {
		return Frame{}, errors.Newf("invalid spectrogram chunk size: got %d bytes, want %d", len(data), FrameSize).
			Component("spectrogram").
			Category(errors.CategoryValidation).
			Build()
	}
	frame := Frame{Timestamp: timestamp, Data: make([]byte, FrameSize)}
	copy(frame.Data, data)
	return frame, nil
}

// Slices splits the frame into its two frequency-bin slices.
func (f Frame) Slices() (first, second []byte) {
	return f.Data[:BinsPerSlice], f.Data[BinsPerSlice:]
}

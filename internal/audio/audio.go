// Package audio abstracts the continuous PCM stream into fixed-size frames,
// independent of whether the bytes come from a live capture process or a
// recorded WAV file. All audio is mono 16 kHz signed 16-bit little-endian.
package audio

import (
	"context"
	"errors"
	"time"
)

const (
	SampleRate     = 16000
	BytesPerSample = 2
	Channels       = 1
)

// ErrStreamEnded signals that a live capture stream terminated unexpectedly,
// as opposed to the io.EOF a finite source returns when it is exhausted.
var ErrStreamEnded = errors.New("audio: capture stream ended")

// Frame is a contiguous block of PCM samples with a monotonically increasing
// sequence number. Frames are immutable once produced.
type Frame struct {
	PCM []byte
	Seq uint64
}

// Samples returns the number of samples in the frame.
func (f Frame) Samples() int {
	return len(f.PCM) / BytesPerSample
}

// Duration returns the frame's play time at the capture sample rate.
func (f Frame) Duration() time.Duration {
	return Duration(len(f.PCM))
}

// Source produces frames in strict arrival order. A finite source returns
// io.EOF when exhausted; a live source returns ErrStreamEnded if the
// underlying stream dies.
type Source interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// Duration converts a PCM byte length to play time.
func Duration(byteLen int) time.Duration {
	samples := byteLen / BytesPerSample
	return time.Duration(samples) * time.Second / SampleRate
}

// BytesFor returns the PCM byte length covering d, aligned to whole samples.
func BytesFor(d time.Duration) int {
	samples := int(d * SampleRate / time.Second)
	if samples < 1 {
		samples = 1
	}
	return samples * BytesPerSample
}

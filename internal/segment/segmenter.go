// Package segment carves the frame stream into overlapping windows suitable
// for transcription. The buffer holds at most one window of samples, so
// memory stays bounded regardless of stream length.
package segment

import (
	"fmt"
	"time"

	"github.com/echosub/echosub/internal/audio"
)

// Window is a bounded audio segment submitted to transcription. Start is
// stream-relative.
type Window struct {
	PCM      []byte
	Start    time.Duration
	Duration time.Duration
}

// Segmenter accumulates frames and emits a window each time the buffer
// reaches the window length, then retains the trailing overlap as the seed
// for the next window. Single-writer: Push and Flush must run on one
// goroutine.
type Segmenter struct {
	windowBytes int
	stepBytes   int

	buf []byte
	// offset is the stream position of buf[0] in bytes.
	offset int64
	// unseen counts buffered bytes not yet covered by any emitted window,
	// so Flush never re-emits audio that was already transcribed.
	unseen int
}

// New validates the window geometry. step must be shorter than window; the
// overlap between consecutive windows is window - step.
func New(window, step time.Duration) (*Segmenter, error) {
	if window <= 0 || step <= 0 {
		return nil, fmt.Errorf("segment: window and step must be > 0, got window=%v step=%v", window, step)
	}
	if step >= window {
		return nil, fmt.Errorf("segment: step %v must be shorter than window %v", step, window)
	}
	return &Segmenter{
		windowBytes: audio.BytesFor(window),
		stepBytes:   audio.BytesFor(step),
		buf:         make([]byte, 0, audio.BytesFor(window)),
	}, nil
}

// Push appends a frame and returns any windows that became ready. A single
// oversized frame can complete more than one window.
func (s *Segmenter) Push(f audio.Frame) []Window {
	if len(f.PCM) == 0 {
		return nil
	}
	s.buf = append(s.buf, f.PCM...)
	s.unseen += len(f.PCM)

	var out []Window
	for len(s.buf) >= s.windowBytes {
		out = append(out, s.emit())
	}
	return out
}

// Flush returns the buffered tail as a final short window, so the end of the
// stream is never silently lost. It returns false when everything buffered
// has already been part of an emitted window.
func (s *Segmenter) Flush() (Window, bool) {
	if s.unseen == 0 || len(s.buf) == 0 {
		return Window{}, false
	}
	w := Window{
		PCM:      append([]byte(nil), s.buf...),
		Start:    audio.Duration(int(s.offset)),
		Duration: audio.Duration(len(s.buf)),
	}
	s.offset += int64(len(s.buf))
	s.buf = s.buf[:0]
	s.unseen = 0
	return w, true
}

func (s *Segmenter) emit() Window {
	w := Window{
		PCM:      append([]byte(nil), s.buf[:s.windowBytes]...),
		Start:    audio.Duration(int(s.offset)),
		Duration: audio.Duration(s.windowBytes),
	}
	// Retain the tail past the step point; the first window-step bytes of the
	// next window replay the overlap.
	s.buf = append(s.buf[:0], s.buf[s.stepBytes:]...)
	s.offset += int64(s.stepBytes)
	overlap := s.windowBytes - s.stepBytes
	s.unseen = len(s.buf) - overlap
	if s.unseen < 0 {
		s.unseen = 0
	}
	return w
}

package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"sync/atomic"
	"time"
)

// CaptureSource reads the capture process's stdout byte stream and slices it
// into fixed-size frames. The process is expected to emit raw mono 16 kHz
// s16le PCM (audiotee-style).
type CaptureSource struct {
	cmd        *exec.Cmd
	stdout     io.ReadCloser
	chunkBytes int
	seq        uint64
	closed     atomic.Bool
	log        *slog.Logger
}

// StartCapture spawns the capture binary and returns a live Source. The
// process is killed when ctx is cancelled or Close is called.
func StartCapture(ctx context.Context, binary string, chunk time.Duration, logger *slog.Logger) (*CaptureSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	chunkBytes := BytesFor(chunk)

	cmd := exec.CommandContext(ctx, binary,
		"--sample-rate", strconv.Itoa(SampleRate),
		"--chunk-duration", strconv.FormatFloat(chunk.Seconds(), 'f', -1, 64),
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("audio: capture stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("audio: start capture %q: %w", binary, err)
	}

	logger.Info("capture started",
		"component", "audio.CaptureSource",
		"binary", binary,
		"chunk_ms", chunk.Milliseconds(),
	)
	return &CaptureSource{
		cmd:        cmd,
		stdout:     stdout,
		chunkBytes: chunkBytes,
		log:        logger.With("component", "audio.CaptureSource"),
	}, nil
}

// Next blocks until a full chunk has been read from the capture process. A
// short final read is still delivered as a (short) frame; the following call
// reports the stream end.
func (s *CaptureSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	buf := make([]byte, s.chunkBytes)
	n, err := io.ReadFull(s.stdout, buf)
	if n > 0 && (err == io.ErrUnexpectedEOF || err == nil) {
		frame := Frame{PCM: buf[:n:n], Seq: s.seq}
		s.seq++
		return frame, nil
	}
	if err == nil {
		// Zero-length full read cannot happen with chunkBytes > 0.
		return Frame{}, ErrStreamEnded
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Frame{}, ctxErr
	}
	if s.closed.Load() {
		return Frame{}, io.EOF
	}
	s.log.Warn("capture stream ended", "error", err, "frames", s.seq)
	return Frame{}, ErrStreamEnded
}

// Close terminates the capture process. A subsequent Next returns io.EOF so
// callers can tell a requested stop from a capture crash.
func (s *CaptureSource) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.stdout.Close()
	_ = s.cmd.Wait()
	return nil
}

package session

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/echosub/echosub/internal/audio"
	"github.com/echosub/echosub/internal/caption"
	"github.com/echosub/echosub/internal/telemetry"
)

// fakeSource mirrors the CaptureSource contract: buffered frames are drained
// first, and a Close while Next is blocked surfaces as a clean io.EOF.
type fakeSource struct {
	frames    chan audio.Frame
	final     error
	closeOnce sync.Once
	closed    chan struct{}
}

func newFakeSource(buf int) *fakeSource {
	return &fakeSource{
		frames: make(chan audio.Frame, buf),
		closed: make(chan struct{}),
	}
}

func (s *fakeSource) Next(ctx context.Context) (audio.Frame, error) {
	select {
	case f, ok := <-s.frames:
		if !ok {
			return audio.Frame{}, s.final
		}
		return f, nil
	default:
	}
	select {
	case f, ok := <-s.frames:
		if !ok {
			return audio.Frame{}, s.final
		}
		return f, nil
	case <-s.closed:
		return audio.Frame{}, io.EOF
	case <-ctx.Done():
		return audio.Frame{}, ctx.Err()
	}
}

func (s *fakeSource) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

func (s *fakeSource) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

type fakeCaptioner struct {
	wavPath string
	result  caption.Result
	err     error
}

func (f *fakeCaptioner) Generate(_ context.Context, wavPath string) (caption.Result, error) {
	f.wavPath = wavPath
	f.result.SRTPath = wavPath + ".srt"
	return f.result, f.err
}

func pcmFor(d time.Duration) []byte {
	return make([]byte, audio.BytesFor(d))
}

func waitFrames(t *testing.T, metrics *telemetry.Recorder, want uint64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if metrics.Snapshot().Frames >= want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d frames, have %d", want, metrics.Snapshot().Frames)
}

func TestStartStopPersistsRecordingAndRunsCaptions(t *testing.T) {
	t.Parallel()

	src := newFakeSource(4)
	captions := &fakeCaptioner{}
	metrics := telemetry.NewRecorder(nil)
	dir := t.TempDir()
	m := NewManager(func(context.Context) (audio.Source, error) {
		return src, nil
	}, captions, dir, nil, metrics)

	s, err := m.Start(context.Background(), "My Episode #1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.Episode != "My_Episode_1" {
		t.Fatalf("episode sanitized to %q", s.Episode)
	}
	if s.ID == "" {
		t.Fatal("session ID missing")
	}
	wantWAV := filepath.Join(dir, "My_Episode_1.wav")
	if s.WAVPath != wantWAV {
		t.Fatalf("WAV path = %q, want %q", s.WAVPath, wantWAV)
	}

	src.frames <- audio.Frame{PCM: pcmFor(100 * time.Millisecond), Seq: 1}
	src.frames <- audio.Frame{PCM: pcmFor(100 * time.Millisecond), Seq: 2}
	waitFrames(t, metrics, 2)

	res, err := m.Stop(context.Background())
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if captions.wavPath != wantWAV {
		t.Fatalf("captioner received %q, want %q", captions.wavPath, wantWAV)
	}
	if res.SRTPath == "" {
		t.Fatal("caption result not passed through")
	}
	if !src.isClosed() {
		t.Fatal("capture source left open")
	}

	d, err := audio.FileDuration(wantWAV)
	if err != nil {
		t.Fatalf("FileDuration: %v", err)
	}
	if d != 200*time.Millisecond {
		t.Fatalf("persisted duration = %v, want 200ms", d)
	}
	if metrics.Snapshot().Sessions != 1 {
		t.Fatalf("sessions = %d, want 1", metrics.Snapshot().Sessions)
	}
}

func TestStopWhileCaptureBlockedEndsCleanly(t *testing.T) {
	t.Parallel()

	src := newFakeSource(4)
	metrics := telemetry.NewRecorder(nil)
	m := NewManager(func(context.Context) (audio.Source, error) {
		return src, nil
	}, &fakeCaptioner{}, t.TempDir(), nil, metrics)

	s, err := m.Start(context.Background(), "clean_stop")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	src.frames <- audio.Frame{PCM: pcmFor(50 * time.Millisecond), Seq: 1}
	waitFrames(t, metrics, 1)

	// The copy loop is now blocked waiting for the next frame; a user stop
	// must end it through the end-of-stream path, not as a capture crash.
	if _, err := m.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if s.copyErr != nil {
		t.Fatalf("user stop recorded a copy error: %v", s.copyErr)
	}
	if !src.isClosed() {
		t.Fatal("capture source left open")
	}
}

func TestStartRejectsSecondSession(t *testing.T) {
	t.Parallel()

	src := newFakeSource(0)
	m := NewManager(func(context.Context) (audio.Source, error) {
		return src, nil
	}, &fakeCaptioner{}, t.TempDir(), nil, nil)

	if _, err := m.Start(context.Background(), "one"); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if _, err := m.Start(context.Background(), "two"); !errors.Is(err, ErrAlreadyRecording) {
		t.Fatalf("second Start err = %v, want ErrAlreadyRecording", err)
	}
	if _, err := m.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestStopWithoutActiveSession(t *testing.T) {
	t.Parallel()

	m := NewManager(nil, &fakeCaptioner{}, t.TempDir(), nil, nil)
	if _, err := m.Stop(context.Background()); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("err = %v, want ErrNotRecording", err)
	}
}

func TestStopAfterStreamEndedStillCaptions(t *testing.T) {
	t.Parallel()

	src := newFakeSource(1)
	src.final = audio.ErrStreamEnded
	captions := &fakeCaptioner{}
	m := NewManager(func(context.Context) (audio.Source, error) {
		return src, nil
	}, captions, t.TempDir(), nil, nil)

	s, err := m.Start(context.Background(), "cut_short")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	src.frames <- audio.Frame{PCM: pcmFor(50 * time.Millisecond), Seq: 1}
	close(src.frames)
	<-s.done

	if _, err := m.Stop(context.Background()); err != nil {
		t.Fatalf("Stop after stream end: %v", err)
	}
	if captions.wavPath == "" {
		t.Fatal("captions did not run")
	}
}

func TestStartPropagatesSourceFailure(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("device busy")
	m := NewManager(func(context.Context) (audio.Source, error) {
		return nil, wantErr
	}, &fakeCaptioner{}, t.TempDir(), nil, nil)

	if _, err := m.Start(context.Background(), "x"); !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if m.Active() != nil {
		t.Fatal("failed start left an active session")
	}
}

func TestSanitizeEpisode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"My Episode #1", "My_Episode_1"},
		{"a/b\\c", "abc"},
		{"../../etc/passwd", "etcpasswd"},
		{"日本語", "episode"},
		{"", "episode"},
	}
	for _, tc := range cases {
		if got := sanitizeEpisode(tc.in); got != tc.want {
			t.Fatalf("sanitizeEpisode(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

// Package session manages the record-then-caption workflow: one active
// recording at a time, persisted as WAV, captioned on stop.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/echosub/echosub/internal/audio"
	"github.com/echosub/echosub/internal/caption"
	"github.com/echosub/echosub/internal/telemetry"
)

var (
	// ErrAlreadyRecording is returned by Start while a session is active.
	ErrAlreadyRecording = errors.New("session: recording already in progress")
	// ErrNotRecording is returned by Stop with no active session.
	ErrNotRecording = errors.New("session: no recording in progress")
)

// SourceFactory opens a fresh capture stream for a session.
type SourceFactory func(ctx context.Context) (audio.Source, error)

// Captioner runs the offline pipeline over a finished recording.
type Captioner interface {
	Generate(ctx context.Context, wavPath string) (caption.Result, error)
}

// Session is one in-flight recording.
type Session struct {
	ID      string
	Episode string
	WAVPath string
	Started time.Time

	source  audio.Source
	cancel  context.CancelFunc
	done    chan struct{}
	copyErr error
}

// Manager serializes Start/Stop and owns the background copy loop that
// drains the capture source into the WAV file.
type Manager struct {
	newSource     SourceFactory
	captions      Captioner
	recordingsDir string
	log           *slog.Logger
	metrics       *telemetry.Recorder

	mu     sync.Mutex
	active *Session
}

// NewManager returns a manager storing recordings under recordingsDir.
func NewManager(newSource SourceFactory, captions Captioner, recordingsDir string, logger *slog.Logger, metrics *telemetry.Recorder) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		newSource:     newSource,
		captions:      captions,
		recordingsDir: recordingsDir,
		log:           logger.With("component", "session.Manager"),
		metrics:       metrics,
	}
}

// Start opens the capture source and begins persisting audio for episode.
// The recording keeps running after ctx is done; only Stop ends it.
func (m *Manager) Start(ctx context.Context, episode string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		return nil, ErrAlreadyRecording
	}

	name := sanitizeEpisode(episode)
	if err := os.MkdirAll(m.recordingsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create recordings dir: %w", err)
	}
	wavPath := filepath.Join(m.recordingsDir, name+".wav")

	source, err := m.newSource(ctx)
	if err != nil {
		return nil, fmt.Errorf("open capture source: %w", err)
	}
	writer, err := audio.NewWAVWriter(wavPath)
	if err != nil {
		source.Close()
		return nil, err
	}

	// The copy loop outlives the Start context: a recording ends when the
	// caller stops it, not when the startup call returns.
	copyCtx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:      uuid.New().String(),
		Episode: name,
		WAVPath: wavPath,
		Started: time.Now(),
		source:  source,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go m.copyLoop(copyCtx, s, source, writer)

	m.active = s
	m.log.Info("recording started", "session", s.ID, "episode", name, "path", wavPath)
	return s, nil
}

// Stop ends the active recording and runs the caption pipeline on the
// persisted WAV. The returned Result carries whatever artifacts were
// produced; ctx bounds only the caption stage.
func (m *Manager) Stop(ctx context.Context) (caption.Result, error) {
	m.mu.Lock()
	s := m.active
	if s == nil {
		m.mu.Unlock()
		return caption.Result{}, ErrNotRecording
	}
	m.active = nil
	m.mu.Unlock()

	// Closing the source first lets the copy loop drain the final frames and
	// exit through the clean end-of-stream path instead of a cancellation.
	s.source.Close()
	s.cancel()
	<-s.done
	if s.copyErr != nil {
		m.log.Warn("capture ended abnormally", "session", s.ID, "error", s.copyErr)
	}
	m.log.Info("recording stopped",
		"session", s.ID,
		"episode", s.Episode,
		"elapsed", time.Since(s.Started).Round(time.Millisecond),
	)
	m.metrics.RecordSession()

	return m.captions.Generate(ctx, s.WAVPath)
}

// Active reports the in-flight session, or nil.
func (m *Manager) Active() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// copyLoop drains the source into the writer until cancellation or stream
// end, then closes both and signals done.
func (m *Manager) copyLoop(ctx context.Context, s *Session, source audio.Source, writer *audio.WAVWriter) {
	defer close(s.done)
	defer source.Close()

	for {
		frame, err := source.Next(ctx)
		if len(frame.PCM) > 0 {
			m.metrics.RecordFrame(len(frame.PCM))
			if werr := writer.WriteFrame(frame); werr != nil {
				s.copyErr = werr
				break
			}
		}
		if err != nil {
			switch {
			case errors.Is(err, io.EOF), errors.Is(err, context.Canceled):
			case errors.Is(err, audio.ErrStreamEnded):
				s.copyErr = err
			default:
				if ctx.Err() == nil {
					s.copyErr = err
				}
			}
			break
		}
	}
	if err := writer.Close(); err != nil && s.copyErr == nil {
		s.copyErr = err
	}
}

// sanitizeEpisode reduces a free-form episode name to a safe file stem.
func sanitizeEpisode(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "episode"
	}
	return b.String()
}

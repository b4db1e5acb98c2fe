// Package telemetry tracks pipeline counters that main logs at shutdown.
package telemetry

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// Recorder accumulates cumulative pipeline metrics. All methods are safe for
// concurrent use and tolerate a nil receiver.
type Recorder struct {
	log *slog.Logger

	frames             atomic.Uint64
	bytes              atomic.Uint64
	windows            atomic.Uint64
	supersededWindows  atomic.Uint64
	invocations        atomic.Uint64
	invocationFailures atomic.Uint64
	inferenceMillis    atomic.Uint64
	cues               atomic.Uint64
	suppressedCues     atomic.Uint64
	sessions           atomic.Uint64
}

// Snapshot captures the totals recorded so far.
type Snapshot struct {
	Frames             uint64
	Bytes              uint64
	Windows            uint64
	SupersededWindows  uint64
	Invocations        uint64
	InvocationFailures uint64
	InferenceMillis    uint64
	Cues               uint64
	SuppressedCues     uint64
	Sessions           uint64
}

// NewRecorder constructs a Recorder using the provided logger.
func NewRecorder(logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		log: logger.With("component", "telemetry.Recorder"),
	}
}

// RecordFrame counts one ingested frame of size bytes.
func (r *Recorder) RecordFrame(size int) {
	if r == nil || size <= 0 {
		return
	}
	r.frames.Add(1)
	r.bytes.Add(uint64(size))
}

// RecordWindow counts one window handed to the transcription worker.
func (r *Recorder) RecordWindow() {
	if r == nil {
		return
	}
	r.windows.Add(1)
}

// RecordSuperseded counts a pending window displaced by a newer one before
// transcription started.
func (r *Recorder) RecordSuperseded() {
	if r == nil {
		return
	}
	r.supersededWindows.Add(1)
	r.log.Debug("pending window superseded")
}

// RecordInvocation counts a successful engine call and its wall time.
func (r *Recorder) RecordInvocation(d time.Duration) {
	if r == nil {
		return
	}
	r.invocations.Add(1)
	r.inferenceMillis.Add(uint64(d.Milliseconds()))
}

// RecordInvocationFailure counts a dropped window caused by an engine error.
func (r *Recorder) RecordInvocationFailure() {
	if r == nil {
		return
	}
	r.invocationFailures.Add(1)
}

// RecordCue counts an accepted subtitle cue.
func (r *Recorder) RecordCue() {
	if r == nil {
		return
	}
	r.cues.Add(1)
}

// RecordSuppressed counts a result dropped by cleaning or de-duplication.
func (r *Recorder) RecordSuppressed() {
	if r == nil {
		return
	}
	r.suppressedCues.Add(1)
}

// RecordSession counts a completed recording session.
func (r *Recorder) RecordSession() {
	if r == nil {
		return
	}
	r.sessions.Add(1)
}

// Snapshot returns an immutable view of the recorder totals.
func (r *Recorder) Snapshot() Snapshot {
	if r == nil {
		return Snapshot{}
	}
	return Snapshot{
		Frames:             r.frames.Load(),
		Bytes:              r.bytes.Load(),
		Windows:            r.windows.Load(),
		SupersededWindows:  r.supersededWindows.Load(),
		Invocations:        r.invocations.Load(),
		InvocationFailures: r.invocationFailures.Load(),
		InferenceMillis:    r.inferenceMillis.Load(),
		Cues:               r.cues.Load(),
		SuppressedCues:     r.suppressedCues.Load(),
		Sessions:           r.sessions.Load(),
	}
}

// Package pipeline wires the live path: frames in, de-duplicated subtitle
// cues out. Frame ingestion and transcription run on independent schedules;
// a slow engine call never blocks capture.
package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/echosub/echosub/internal/audio"
	"github.com/echosub/echosub/internal/segment"
	"github.com/echosub/echosub/internal/subtitle"
	"github.com/echosub/echosub/internal/telemetry"
	"github.com/echosub/echosub/internal/textclean"
	"github.com/echosub/echosub/internal/transcribe"
)

const (
	frameQueueDepth = 8
	cueQueueDepth   = 16
)

// Live runs the incremental transcription pipeline over a frame source.
type Live struct {
	source  audio.Source
	trans   transcribe.Transcriber
	seg     *segment.Segmenter
	opts    transcribe.Options
	log     *slog.Logger
	metrics *telemetry.Recorder

	dedupe textclean.Deduper
	cues   chan subtitle.Cue
}

// NewLive assembles a pipeline. window and step define the segmentation
// geometry; opts is passed through to every engine invocation.
func NewLive(source audio.Source, trans transcribe.Transcriber, window, step time.Duration, opts transcribe.Options, logger *slog.Logger, metrics *telemetry.Recorder) (*Live, error) {
	if logger == nil {
		logger = slog.Default()
	}
	seg, err := segment.New(window, step)
	if err != nil {
		return nil, err
	}
	return &Live{
		source:  source,
		trans:   trans,
		seg:     seg,
		opts:    opts,
		log:     logger.With("component", "pipeline.Live"),
		metrics: metrics,
		cues:    make(chan subtitle.Cue, cueQueueDepth),
	}, nil
}

// Cues returns the channel of accepted subtitle cues. It is closed when Run
// returns; cues are emitted in window timestamp order.
func (l *Live) Cues() <-chan subtitle.Cue {
	return l.cues
}

// Run drives the pipeline until the source ends or ctx is cancelled. The
// buffered tail is flushed as a final short window before the cue channel
// closes. It returns audio.ErrStreamEnded when the capture stream died
// rather than being stopped.
func (l *Live) Run(ctx context.Context) error {
	defer close(l.cues)

	frames := make(chan audio.Frame, frameQueueDepth)
	ingestErr := make(chan error, 1)
	go l.ingest(ctx, frames, ingestErr)

	// Pending slot of size one: the transcription worker takes windows from
	// here, and a newer window displaces an older unstarted one. Freshness
	// beats completeness on the live path.
	pending := make(chan segment.Window, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.work(ctx, pending)
	}()

	for f := range frames {
		l.metrics.RecordFrame(len(f.PCM))
		for _, w := range l.seg.Push(f) {
			l.offer(pending, w)
		}
	}
	if w, ok := l.seg.Flush(); ok {
		l.offer(pending, w)
	}
	close(pending)
	wg.Wait()

	return <-ingestErr
}

// ingest pulls frames from the source until it ends. It owns the frames
// channel and always closes it.
func (l *Live) ingest(ctx context.Context, frames chan<- audio.Frame, result chan<- error) {
	defer close(frames)
	for {
		f, err := l.source.Next(ctx)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				l.log.Info("source exhausted")
				result <- nil
			case errors.Is(err, audio.ErrStreamEnded):
				l.log.Warn("capture stream ended unexpectedly")
				result <- err
			case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
				result <- err
			default:
				l.log.Error("source failure", "error", err)
				result <- err
			}
			return
		}
		select {
		case frames <- f:
		case <-ctx.Done():
			result <- ctx.Err()
			return
		}
	}
}

// offer places a window in the pending slot, displacing an older unstarted
// window if one is still waiting.
func (l *Live) offer(pending chan segment.Window, w segment.Window) {
	for {
		select {
		case pending <- w:
			l.metrics.RecordWindow()
			return
		default:
		}
		select {
		case stale := <-pending:
			l.metrics.RecordSuperseded()
			l.log.Debug("window superseded",
				"stale_start_ms", stale.Start.Milliseconds(),
				"new_start_ms", w.Start.Milliseconds(),
			)
		default:
		}
	}
}

// work runs engine invocations one at a time and forwards surviving text as
// cues. A failed invocation drops the window: by the time a retry completed
// the audio would be stale.
func (l *Live) work(ctx context.Context, pending <-chan segment.Window) {
	for w := range pending {
		if ctx.Err() != nil {
			continue // drain without transcribing
		}
		started := time.Now()
		res, err := l.trans.Transcribe(ctx, w.PCM, l.opts)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			l.metrics.RecordInvocationFailure()
			l.log.Warn("window dropped after engine failure",
				"error", err,
				"window_ms", w.Duration.Milliseconds(),
				"start_ms", w.Start.Milliseconds(),
			)
			continue
		}
		l.metrics.RecordInvocation(time.Since(started))

		text, ok := l.dedupe.Next(textclean.Clean(res.Text))
		if !ok {
			l.metrics.RecordSuppressed()
			continue
		}
		cue := subtitle.Cue{Start: w.Start, End: w.Start + w.Duration, Text: text}
		select {
		case l.cues <- cue:
			l.metrics.RecordCue()
		case <-ctx.Done():
		}
	}
}

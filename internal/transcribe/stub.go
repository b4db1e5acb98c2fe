package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/echosub/echosub/internal/audio"
)

// Stub produces deterministic transcripts without invoking an engine. It
// exists so the pipelines can be exercised end to end on machines without a
// whisper binary or model.
type Stub struct {
	log        *slog.Logger
	totalBytes int
}

// NewStub returns a Transcriber that generates placeholder transcripts.
func NewStub(logger *slog.Logger) *Stub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stub{
		log: logger.With("component", "transcribe.Stub"),
	}
}

// Transcribe implements the Transcriber interface.
func (s *Stub) Transcribe(ctx context.Context, pcm []byte, opts Options) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if len(pcm) == 0 {
		return Result{}, nil
	}
	s.totalBytes += len(pcm)
	text := fmt.Sprintf("[stub] window of %s (%d bytes total)", audio.Duration(len(pcm)), s.totalBytes)
	s.log.Debug("stub transcript", "bytes", len(pcm), "translate", opts.Translate)
	return Result{Text: text, Language: language(opts)}, nil
}

// TranscribeFile implements the Transcriber interface. It fabricates one
// utterance per five seconds of recording.
func (s *Stub) TranscribeFile(ctx context.Context, wavPath string, opts Options) ([]Utterance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	total, err := audio.FileDuration(wavPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvocationFailed, err)
	}
	const span = 5 * time.Second
	var out []Utterance
	for start := time.Duration(0); start < total; start += span {
		end := start + span
		if end > total {
			end = total
		}
		out = append(out, Utterance{
			Start: start,
			End:   end,
			Text:  fmt.Sprintf("[stub] utterance %d", len(out)+1),
		})
	}
	s.log.Debug("stub file transcript", "path", wavPath, "utterances", len(out))
	return out, nil
}

// Close implements the Transcriber interface.
func (s *Stub) Close() error {
	return nil
}

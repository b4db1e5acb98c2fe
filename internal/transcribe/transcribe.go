// Package transcribe defines the transcription engine boundary. The engine
// is a black box: samples in, text out, all-or-nothing per call, never
// retried. Implementations are not assumed to be reentrant; callers must
// keep at most one call in flight.
package transcribe

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrInvocationFailed wraps any engine failure: crash, timeout, or malformed
// output. Live callers drop the window; the offline pipeline treats it as
// fatal.
var ErrInvocationFailed = errors.New("transcribe: invocation failed")

// LanguageAuto asks the engine to detect the spoken language.
const LanguageAuto = "auto"

// Options configures a single invocation.
type Options struct {
	// Language is a source-language hint (ISO code) or LanguageAuto.
	Language string
	// Translate requests translation to English instead of verbatim text.
	Translate bool
}

// Result carries the text produced for one audio window.
type Result struct {
	Text     string
	Language string
}

// Utterance is one timestamped segment from a full-file transcription. The
// timing comes from the engine's own internal segmentation.
type Utterance struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// Transcriber is the pluggable engine capability.
type Transcriber interface {
	// Transcribe runs the engine over one window of 16 kHz mono s16le PCM.
	Transcribe(ctx context.Context, pcm []byte, opts Options) (Result, error)
	// TranscribeFile runs the engine once over a complete WAV recording and
	// returns its per-utterance segmentation.
	TranscribeFile(ctx context.Context, wavPath string, opts Options) ([]Utterance, error)
	// Close releases underlying resources.
	Close() error
}

// language resolves the hint to pass to the engine.
func language(opts Options) string {
	if trimmed := strings.TrimSpace(opts.Language); trimmed != "" {
		return trimmed
	}
	return LanguageAuto
}

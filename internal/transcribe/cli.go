package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/echosub/echosub/internal/audio"
	"github.com/echosub/echosub/internal/subtitle"
)

// CLI drives a whisper.cpp command-line binary. Each window is written to a
// temporary WAV file and transcribed with -otxt; full recordings use -osrt so
// the engine's own segmentation provides per-utterance timing.
type CLI struct {
	bin       string
	modelPath string
	log       *slog.Logger

	// The binary loads the model per invocation but shares caches; the
	// engine is treated as non-reentrant, so calls are serialised.
	mu sync.Mutex
}

// NewCLI returns a Transcriber backed by the whisper-cli binary at bin using
// the model file at modelPath.
func NewCLI(bin, modelPath string, logger *slog.Logger) (*CLI, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if bin == "" {
		return nil, fmt.Errorf("transcribe: whisper binary required")
	}
	if modelPath == "" {
		return nil, fmt.Errorf("transcribe: model path required")
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("transcribe: model: %w", err)
	}
	return &CLI{
		bin:       bin,
		modelPath: modelPath,
		log: logger.With(
			"component", "transcribe.CLI",
			"model", filepath.Base(modelPath),
		),
	}, nil
}

// Transcribe implements the Transcriber interface.
func (c *CLI) Transcribe(ctx context.Context, pcm []byte, opts Options) (Result, error) {
	if len(pcm) == 0 {
		return Result{}, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	wavPath, cleanup, err := writeTempWAV(pcm)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvocationFailed, err)
	}
	defer cleanup()

	lang := language(opts)
	prefix := strings.TrimSuffix(wavPath, ".wav")
	args := cliArgs(c.modelPath, wavPath, lang, opts.Translate, "-otxt", prefix)
	if err := c.run(ctx, args); err != nil {
		return Result{}, err
	}

	raw, err := os.ReadFile(prefix + ".txt")
	if err != nil {
		return Result{}, fmt.Errorf("%w: read output: %v", ErrInvocationFailed, err)
	}
	return Result{
		Text:     strings.TrimSpace(string(raw)),
		Language: lang,
	}, nil
}

// TranscribeFile implements the Transcriber interface. The SRT sidecar file
// written by the engine is parsed and removed.
func (c *CLI) TranscribeFile(ctx context.Context, wavPath string, opts Options) ([]Utterance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := filepath.Join(os.TempDir(), fmt.Sprintf("echosub_full_%d", os.Getpid()))
	srtPath := prefix + ".srt"
	defer os.Remove(srtPath)

	lang := language(opts)
	args := cliArgs(c.modelPath, wavPath, lang, opts.Translate, "-osrt", prefix)
	// Beam search improves full-file accuracy; latency does not matter here.
	args = append(args, "-bs", "8")
	if err := c.run(ctx, args); err != nil {
		return nil, err
	}

	f, err := os.Open(srtPath)
	if err != nil {
		return nil, fmt.Errorf("%w: engine produced no srt: %v", ErrInvocationFailed, err)
	}
	defer f.Close()
	track, err := subtitle.ParseSRT(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvocationFailed, err)
	}

	utterances := make([]Utterance, 0, len(track))
	for _, cue := range track {
		utterances = append(utterances, Utterance{Start: cue.Start, End: cue.End, Text: cue.Text})
	}
	return utterances, nil
}

// Close implements the Transcriber interface.
func (c *CLI) Close() error {
	return nil
}

func (c *CLI) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, c.bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.log.Error("engine invocation failed", "error", err, "stderr", tail(stderr.String(), 512))
		return fmt.Errorf("%w: %v", ErrInvocationFailed, err)
	}
	return nil
}

// cliArgs builds the whisper-cli argument list shared by both invocation
// modes. outFlag selects the output format (-otxt or -osrt).
func cliArgs(modelPath, wavPath, lang string, translate bool, outFlag, outPrefix string) []string {
	args := []string{
		"-m", modelPath,
		"-f", wavPath,
		"-l", lang,
		outFlag,
		"-of", outPrefix,
	}
	if translate {
		args = append(args, "-tr")
	}
	return args
}

func writeTempWAV(pcm []byte) (string, func(), error) {
	f, err := os.CreateTemp("", "echosub_win_*.wav")
	if err != nil {
		return "", nil, err
	}
	path := f.Name()
	f.Close()

	w, err := audio.NewWAVWriter(path)
	if err != nil {
		os.Remove(path)
		return "", nil, err
	}
	if _, err := w.Write(pcm); err != nil {
		w.Close()
		os.Remove(path)
		return "", nil, err
	}
	if err := w.Close(); err != nil {
		os.Remove(path)
		return "", nil, err
	}
	cleanup := func() {
		os.Remove(path)
		os.Remove(strings.TrimSuffix(path, ".wav") + ".txt")
	}
	return path, cleanup, nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

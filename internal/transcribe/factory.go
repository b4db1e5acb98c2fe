package transcribe

import (
	"log/slog"
	"os/exec"

	"github.com/echosub/echosub/internal/config"
)

// New resolves the configured engine. When the whisper binary or model is
// missing the stub is used instead, with the resolution error returned so
// the caller can log it; the returned Transcriber is always usable.
func New(cfg config.Config, logger *slog.Logger) (Transcriber, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.UseStubTranscriber {
		logger.Warn("stub transcriber forced by configuration")
		return NewStub(logger), nil
	}

	bin, err := exec.LookPath(cfg.WhisperBin)
	if err != nil {
		logger.Warn("whisper binary not found; using stub transcriber", "binary", cfg.WhisperBin, "error", err)
		return NewStub(logger), err
	}

	cli, err := NewCLI(bin, cfg.WhisperModel, logger)
	if err != nil {
		logger.Warn("engine initialisation failed; using stub transcriber", "error", err)
		return NewStub(logger), err
	}
	logger.Info("whisper engine ready", "binary", bin, "model", cfg.WhisperModel)
	return cli, nil
}

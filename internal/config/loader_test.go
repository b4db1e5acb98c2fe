package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/echosub/echosub/internal/config"
)

func TestLoaderDefaults(t *testing.T) {
	loader := config.Loader{
		Lookup: func(string) (string, bool) { return "", false },
	}
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	assertEqual(t, config.DefaultCaptureBin, cfg.CaptureBin, "capture bin")
	assertEqual(t, config.DefaultWhisperBin, cfg.WhisperBin, "whisper bin")
	assertEqual(t, config.DefaultLanguage, cfg.Language, "language")
	assertEqual(t, config.DefaultOutputMode, cfg.OutputMode, "output mode")
	assertEqual(t, config.DefaultLogLevel, cfg.LogLevel, "log level")
	assertEqual(t, config.DefaultRecordingsDir, cfg.RecordingsDir, "recordings dir")
	if cfg.Segment() != 12*time.Second {
		t.Fatalf("expected 12s segment, got %v", cfg.Segment())
	}
	if cfg.Step() != 6*time.Second {
		t.Fatalf("expected 6s step, got %v", cfg.Step())
	}
	if !cfg.Translate() {
		t.Fatalf("expected translate enabled for default output mode")
	}
	if cfg.UseStubTranscriber {
		t.Fatalf("expected stub transcriber disabled by default")
	}
}

func TestLoaderEnvOverrides(t *testing.T) {
	env := map[string]string{
		"ECHOSUB_WHISPER_BIN":             "/opt/whisper/whisper-cli",
		"ECHOSUB_WHISPER_MODEL":           "/opt/whisper/ggml-large-v3.bin",
		"ECHOSUB_LANGUAGE":                "ja",
		"ECHOSUB_OUTPUT_MODE":             "original",
		"ECHOSUB_LOG_LEVEL":               "debug",
		"ECHOSUB_SEGMENT_SECONDS":         "10",
		"ECHOSUB_STEP_SECONDS":            "5",
		"ECHOSUB_SILENCE_TIMEOUT_SECONDS": "3.5",
		"ECHOSUB_USE_STUB_TRANSCRIBER":    "true",
	}
	loader := config.Loader{
		Lookup: func(key string) (string, bool) {
			value, ok := env[key]
			return value, ok
		},
	}
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	assertEqual(t, "/opt/whisper/whisper-cli", cfg.WhisperBin, "whisper bin")
	assertEqual(t, "/opt/whisper/ggml-large-v3.bin", cfg.WhisperModel, "whisper model")
	assertEqual(t, "ja", cfg.Language, "language")
	assertEqual(t, "original", cfg.OutputMode, "output mode")
	assertEqual(t, "debug", cfg.LogLevel, "log level")
	if cfg.Translate() {
		t.Fatalf("expected verbatim output for original mode")
	}
	if cfg.Segment() != 10*time.Second {
		t.Fatalf("expected 10s segment, got %v", cfg.Segment())
	}
	if cfg.SilenceTimeout() != 3500*time.Millisecond {
		t.Fatalf("expected 3.5s silence timeout, got %v", cfg.SilenceTimeout())
	}
	if !cfg.UseStubTranscriber {
		t.Fatalf("expected stub transcriber enabled")
	}
}

func TestLoaderConfigFile(t *testing.T) {
	const file = `
whisper_model: /models/ggml-base.bin
language: hi
output_mode: original
segment_seconds: 8
step_seconds: 4
font_size: 40
`
	env := map[string]string{
		"ECHOSUB_CONFIG_FILE": "/etc/echosub.yaml",
		// Env still wins over the file.
		"ECHOSUB_LANGUAGE": "ko",
	}
	loader := config.Loader{
		Lookup: func(key string) (string, bool) {
			value, ok := env[key]
			return value, ok
		},
		ReadFile: func(path string) ([]byte, error) {
			if path != "/etc/echosub.yaml" {
				t.Fatalf("unexpected config file path %q", path)
			}
			return []byte(file), nil
		},
	}
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	assertEqual(t, "/models/ggml-base.bin", cfg.WhisperModel, "whisper model")
	assertEqual(t, "ko", cfg.Language, "language")
	assertEqual(t, "original", cfg.OutputMode, "output mode")
	if cfg.Segment() != 8*time.Second {
		t.Fatalf("expected 8s segment, got %v", cfg.Segment())
	}
	if cfg.FontSize != 40 {
		t.Fatalf("expected font size 40, got %d", cfg.FontSize)
	}
}

func TestLoaderRejectsInvalidWindow(t *testing.T) {
	env := map[string]string{
		"ECHOSUB_SEGMENT_SECONDS": "6",
		"ECHOSUB_STEP_SECONDS":    "6",
	}
	loader := config.Loader{
		Lookup: func(key string) (string, bool) {
			value, ok := env[key]
			return value, ok
		},
	}
	if _, err := loader.Load(); err == nil {
		t.Fatalf("expected error when step >= segment")
	} else if !strings.Contains(err.Error(), "step_seconds") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoaderRejectsUnknownOutputMode(t *testing.T) {
	env := map[string]string{
		"ECHOSUB_OUTPUT_MODE": "dubbed",
	}
	loader := config.Loader{
		Lookup: func(key string) (string, bool) {
			value, ok := env[key]
			return value, ok
		},
	}
	if _, err := loader.Load(); err == nil {
		t.Fatalf("expected error for unknown output mode")
	}
}

func assertEqual(t *testing.T, want, got, label string) {
	t.Helper()
	if want != got {
		t.Fatalf("unexpected %s: want %q, got %q", label, want, got)
	}
}

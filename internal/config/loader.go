package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader loads configuration from an optional YAML file and environment
// variables. Tests can override Lookup and ReadFile to inject deterministic
// inputs.
type Loader struct {
	Lookup   func(string) (string, bool)
	ReadFile func(string) ([]byte, error)
}

// Load retrieves the configuration, applying the YAML file first and
// environment overrides second, then validates it.
func (l Loader) Load() (Config, error) {
	if l.Lookup == nil {
		l.Lookup = os.LookupEnv
	}
	if l.ReadFile == nil {
		l.ReadFile = os.ReadFile
	}

	var cfg Config

	if path, ok := l.Lookup("ECHOSUB_CONFIG_FILE"); ok && strings.TrimSpace(path) != "" {
		raw, err := l.ReadFile(strings.TrimSpace(path))
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := applyYAML(raw, &cfg); err != nil {
			return Config{}, err
		}
	}

	overrideString(l.Lookup, "ECHOSUB_CAPTURE_BIN", &cfg.CaptureBin)
	overrideString(l.Lookup, "ECHOSUB_WHISPER_BIN", &cfg.WhisperBin)
	overrideString(l.Lookup, "ECHOSUB_WHISPER_MODEL", &cfg.WhisperModel)
	overrideString(l.Lookup, "ECHOSUB_LANGUAGE", &cfg.Language)
	overrideString(l.Lookup, "ECHOSUB_OUTPUT_MODE", &cfg.OutputMode)
	overrideString(l.Lookup, "ECHOSUB_LOG_LEVEL", &cfg.LogLevel)
	overrideString(l.Lookup, "ECHOSUB_RECORDINGS_DIR", &cfg.RecordingsDir)
	overrideString(l.Lookup, "ECHOSUB_SUBTITLES_DIR", &cfg.SubtitlesDir)
	overrideString(l.Lookup, "ECHOSUB_VIDEOS_DIR", &cfg.VideosDir)
	overrideFloat(l.Lookup, "ECHOSUB_SEGMENT_SECONDS", &cfg.SegmentSeconds)
	overrideFloat(l.Lookup, "ECHOSUB_STEP_SECONDS", &cfg.StepSeconds)
	overrideFloat(l.Lookup, "ECHOSUB_SILENCE_TIMEOUT_SECONDS", &cfg.SilenceTimeoutSeconds)
	overrideBool(l.Lookup, "ECHOSUB_USE_STUB_TRANSCRIBER", &cfg.UseStubTranscriber)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyYAML(raw []byte, cfg *Config) error {
	type fileConfig struct {
		CaptureBin            *string  `yaml:"capture_bin"`
		WhisperBin            *string  `yaml:"whisper_bin"`
		WhisperModel          *string  `yaml:"whisper_model"`
		Language              *string  `yaml:"language"`
		OutputMode            *string  `yaml:"output_mode"`
		SegmentSeconds        *float64 `yaml:"segment_seconds"`
		StepSeconds           *float64 `yaml:"step_seconds"`
		ChunkSeconds          *float64 `yaml:"chunk_seconds"`
		RecordChunkSeconds    *float64 `yaml:"record_chunk_seconds"`
		SilenceTimeoutSeconds *float64 `yaml:"silence_timeout_seconds"`
		RecordingsDir         *string  `yaml:"recordings_dir"`
		SubtitlesDir          *string  `yaml:"subtitles_dir"`
		VideosDir             *string  `yaml:"videos_dir"`
		FontSize              *int     `yaml:"font_size"`
		FontColor             *string  `yaml:"font_color"`
		LogLevel              *string  `yaml:"log_level"`
		UseStubTranscriber    *bool    `yaml:"use_stub_transcriber"`
	}
	var payload fileConfig
	if err := yaml.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("config: decode config file: %w", err)
	}
	setString := func(dst *string, src *string) {
		if src != nil && *src != "" {
			*dst = *src
		}
	}
	setString(&cfg.CaptureBin, payload.CaptureBin)
	setString(&cfg.WhisperBin, payload.WhisperBin)
	setString(&cfg.WhisperModel, payload.WhisperModel)
	setString(&cfg.Language, payload.Language)
	setString(&cfg.OutputMode, payload.OutputMode)
	setString(&cfg.RecordingsDir, payload.RecordingsDir)
	setString(&cfg.SubtitlesDir, payload.SubtitlesDir)
	setString(&cfg.VideosDir, payload.VideosDir)
	setString(&cfg.FontColor, payload.FontColor)
	setString(&cfg.LogLevel, payload.LogLevel)
	if payload.SegmentSeconds != nil {
		cfg.SegmentSeconds = *payload.SegmentSeconds
	}
	if payload.StepSeconds != nil {
		cfg.StepSeconds = *payload.StepSeconds
	}
	if payload.ChunkSeconds != nil {
		cfg.ChunkSeconds = *payload.ChunkSeconds
	}
	if payload.RecordChunkSeconds != nil {
		cfg.RecordChunkSeconds = *payload.RecordChunkSeconds
	}
	if payload.SilenceTimeoutSeconds != nil {
		cfg.SilenceTimeoutSeconds = *payload.SilenceTimeoutSeconds
	}
	if payload.FontSize != nil {
		cfg.FontSize = *payload.FontSize
	}
	if payload.UseStubTranscriber != nil {
		cfg.UseStubTranscriber = *payload.UseStubTranscriber
	}
	return nil
}

func overrideString(lookup func(string) (string, bool), key string, target *string) {
	if lookup == nil || target == nil {
		return
	}
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
	}
}

func overrideFloat(lookup func(string) (string, bool), key string, target *float64) {
	value, ok := lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return
	}
	*target = parsed
}

func overrideBool(lookup func(string) (string, bool), key string, target *bool) {
	value, ok := lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return
	}
	*target = parsed
}

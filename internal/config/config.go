package config

import (
	"fmt"
	"time"
)

const (
	DefaultCaptureBin    = "audiotee"
	DefaultWhisperBin    = "whisper-cli"
	DefaultLanguage      = "auto"
	DefaultOutputMode    = OutputModeEnglish
	DefaultLogLevel      = "info"
	DefaultRecordingsDir = "recordings"
	DefaultSubtitlesDir  = "subtitles"
	DefaultVideosDir     = "videos"
	DefaultFontSize      = 32
	DefaultFontColor     = "&HFFFFFF&"

	DefaultSegmentSeconds        = 12.0
	DefaultStepSeconds           = 6.0
	DefaultChunkSeconds          = 2.0
	DefaultRecordChunkSeconds    = 0.5
	DefaultSilenceTimeoutSeconds = 6.0
)

// Output modes select between translated and verbatim subtitles.
const (
	OutputModeEnglish  = "english"
	OutputModeOriginal = "original"
)

// Config captures bootstrap configuration extracted from the optional YAML
// config file (`ECHOSUB_CONFIG_FILE`) and environment variables.
type Config struct {
	CaptureBin   string
	WhisperBin   string
	WhisperModel string

	Language   string
	OutputMode string

	SegmentSeconds        float64
	StepSeconds           float64
	ChunkSeconds          float64
	RecordChunkSeconds    float64
	SilenceTimeoutSeconds float64

	RecordingsDir string
	SubtitlesDir  string
	VideosDir     string

	FontSize  int
	FontColor string

	LogLevel           string
	UseStubTranscriber bool
}

// Validate applies defaults, checks required fields, and rejects out-of-range
// values.
func (c *Config) Validate() error {
	if c.CaptureBin == "" {
		c.CaptureBin = DefaultCaptureBin
	}
	if c.WhisperBin == "" {
		c.WhisperBin = DefaultWhisperBin
	}
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
	if c.OutputMode == "" {
		c.OutputMode = DefaultOutputMode
	}
	if c.OutputMode != OutputModeEnglish && c.OutputMode != OutputModeOriginal {
		return fmt.Errorf("config: output mode must be %q or %q, got %q", OutputModeEnglish, OutputModeOriginal, c.OutputMode)
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.RecordingsDir == "" {
		c.RecordingsDir = DefaultRecordingsDir
	}
	if c.SubtitlesDir == "" {
		c.SubtitlesDir = DefaultSubtitlesDir
	}
	if c.VideosDir == "" {
		c.VideosDir = DefaultVideosDir
	}
	if c.FontSize <= 0 {
		c.FontSize = DefaultFontSize
	}
	if c.FontColor == "" {
		c.FontColor = DefaultFontColor
	}
	if c.SegmentSeconds == 0 {
		c.SegmentSeconds = DefaultSegmentSeconds
	}
	if c.StepSeconds == 0 {
		c.StepSeconds = DefaultStepSeconds
	}
	if c.ChunkSeconds == 0 {
		c.ChunkSeconds = DefaultChunkSeconds
	}
	if c.RecordChunkSeconds == 0 {
		c.RecordChunkSeconds = DefaultRecordChunkSeconds
	}
	if c.SilenceTimeoutSeconds == 0 {
		c.SilenceTimeoutSeconds = DefaultSilenceTimeoutSeconds
	}
	if c.SegmentSeconds <= 0 {
		return fmt.Errorf("config: segment_seconds must be > 0, got %v", c.SegmentSeconds)
	}
	if c.StepSeconds <= 0 || c.StepSeconds >= c.SegmentSeconds {
		return fmt.Errorf("config: step_seconds must be > 0 and < segment_seconds, got %v", c.StepSeconds)
	}
	if c.ChunkSeconds <= 0 || c.RecordChunkSeconds <= 0 {
		return fmt.Errorf("config: chunk durations must be > 0")
	}
	if c.SilenceTimeoutSeconds <= 0 {
		return fmt.Errorf("config: silence_timeout_seconds must be > 0, got %v", c.SilenceTimeoutSeconds)
	}
	return nil
}

// Translate reports whether transcripts should be translated to English.
func (c Config) Translate() bool {
	return c.OutputMode == OutputModeEnglish
}

// Segment returns the sliding-window length.
func (c Config) Segment() time.Duration {
	return seconds(c.SegmentSeconds)
}

// Step returns the sliding-window hop size. The overlap between consecutive
// windows is Segment() - Step().
func (c Config) Step() time.Duration {
	return seconds(c.StepSeconds)
}

// Chunk returns the capture chunk duration used by the live pipeline.
func (c Config) Chunk() time.Duration {
	return seconds(c.ChunkSeconds)
}

// RecordChunk returns the smaller capture chunk used while recording, kept
// short so stopping a session stays responsive.
func (c Config) RecordChunk() time.Duration {
	return seconds(c.RecordChunkSeconds)
}

// SilenceTimeout returns how long displayed text lingers without a new cue.
func (c Config) SilenceTimeout() time.Duration {
	return seconds(c.SilenceTimeoutSeconds)
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// Package video renders caption-only videos: a black background with the
// subtitle track burned in at its exact timestamps.
package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// ErrEncodingFailed wraps any caption-video generation failure. The caller
// keeps the recording and the SRT regardless.
var ErrEncodingFailed = errors.New("video: encoding failed")

// Encoder is the pluggable video engine capability.
type Encoder interface {
	// Render produces an audio-less video of duration d with the cues from
	// srtPath burned in, written to outPath.
	Render(ctx context.Context, srtPath string, d time.Duration, outPath string) error
}

// Style controls the burned-in subtitle appearance.
type Style struct {
	FontSize  int
	FontColor string // libass colour, e.g. "&HFFFFFF&"
}

// FFmpeg renders caption videos with the ffmpeg binary: a lavfi colour
// source for the background and the subtitles filter for the text.
type FFmpeg struct {
	bin    string
	width  int
	height int
	style  Style
	log    *slog.Logger
}

// NewFFmpeg returns an encoder producing 1280x720 output via bin.
func NewFFmpeg(bin string, style Style, logger *slog.Logger) *FFmpeg {
	if bin == "" {
		bin = "ffmpeg"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FFmpeg{
		bin:    bin,
		width:  1280,
		height: 720,
		style:  style,
		log:    logger.With("component", "video.FFmpeg"),
	}
}

// Render implements the Encoder interface.
func (f *FFmpeg) Render(ctx context.Context, srtPath string, d time.Duration, outPath string) error {
	if d <= 0 {
		return fmt.Errorf("%w: non-positive duration %v", ErrEncodingFailed, d)
	}
	args := renderArgs(f.width, f.height, f.style, srtPath, d, outPath)
	f.log.Info("rendering caption video",
		"srt", srtPath,
		"out", outPath,
		"duration_s", fmt.Sprintf("%.3f", d.Seconds()),
	)

	cmd := exec.CommandContext(ctx, f.bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		f.log.Error("ffmpeg failed", "error", err, "stderr", tail(stderr.String(), 512))
		return fmt.Errorf("%w: %v", ErrEncodingFailed, err)
	}
	return nil
}

func renderArgs(width, height int, style Style, srtPath string, d time.Duration, outPath string) []string {
	background := fmt.Sprintf("color=c=black:s=%dx%d:d=%.3f", width, height, d.Seconds())
	filter := fmt.Sprintf("subtitles=%s:force_style='Fontsize=%d,PrimaryColour=%s'",
		escapeFilterPath(srtPath), style.FontSize, style.FontColor)
	return []string{
		"-y",
		"-f", "lavfi",
		"-i", background,
		"-vf", filter,
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		outPath,
	}
}

// escapeFilterPath quotes the characters that confuse ffmpeg's subtitles
// filter parser.
func escapeFilterPath(p string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`:`, `\:`,
		`'`, `\'`,
	)
	return r.Replace(p)
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

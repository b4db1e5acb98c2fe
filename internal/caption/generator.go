// Package caption runs the offline pipeline over a finished recording: one
// whole-file transcription pass, subtitle cleanup, SRT export and an optional
// caption video.
package caption

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/echosub/echosub/internal/subtitle"
	"github.com/echosub/echosub/internal/textclean"
	"github.com/echosub/echosub/internal/transcribe"
	"github.com/echosub/echosub/internal/video"
)

// Result reports the artifacts produced for a recording. VideoPath is empty
// when encoding failed; the SRT is kept either way.
type Result struct {
	Track     subtitle.Track
	SRTPath   string
	VideoPath string
}

// Generator turns a WAV recording into an SRT file plus a caption video.
type Generator struct {
	trans        transcribe.Transcriber
	encoder      video.Encoder
	subtitlesDir string
	videosDir    string
	opts         transcribe.Options
	log          *slog.Logger
}

// New returns a generator writing artifacts under subtitlesDir and videosDir.
func New(trans transcribe.Transcriber, encoder video.Encoder, subtitlesDir, videosDir string, opts transcribe.Options, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		trans:        trans,
		encoder:      encoder,
		subtitlesDir: subtitlesDir,
		videosDir:    videosDir,
		opts:         opts,
		log:          logger.With("component", "caption.Generator"),
	}
}

// Generate transcribes the recording at wavPath and writes the subtitle and
// video artifacts. A transcription failure aborts the run; an encoding
// failure returns the partial Result together with a video.ErrEncodingFailed
// error so the caller can keep the subtitles.
func (g *Generator) Generate(ctx context.Context, wavPath string) (Result, error) {
	base := strings.TrimSuffix(filepath.Base(wavPath), filepath.Ext(wavPath))

	utterances, err := g.trans.TranscribeFile(ctx, wavPath, g.opts)
	if err != nil {
		return Result{}, fmt.Errorf("transcribe %s: %w", wavPath, err)
	}

	track := buildTrack(utterances)
	srtPath := filepath.Join(g.subtitlesDir, srtName(base, g.opts.Translate))
	if err := writeTrack(srtPath, track); err != nil {
		return Result{}, err
	}
	g.log.Info("subtitles written", "path", srtPath, "cues", len(track))

	res := Result{Track: track, SRTPath: srtPath}

	if err := os.MkdirAll(g.videosDir, 0o755); err != nil {
		return res, fmt.Errorf("%w: create videos dir: %v", video.ErrEncodingFailed, err)
	}
	// One second of pad keeps the final cue on screen to the end.
	d := track.End() + time.Second
	videoPath := filepath.Join(g.videosDir, base+".mp4")
	if err := g.encoder.Render(ctx, srtPath, d, videoPath); err != nil {
		if errors.Is(err, video.ErrEncodingFailed) {
			return res, err
		}
		return res, fmt.Errorf("%w: %v", video.ErrEncodingFailed, err)
	}
	res.VideoPath = videoPath
	g.log.Info("caption video written", "path", videoPath)
	return res, nil
}

// buildTrack cleans each utterance and normalizes the timeline. Offline
// output has no overlap dedup: whole-file decoding already sees each word
// once.
func buildTrack(utterances []transcribe.Utterance) subtitle.Track {
	cues := make([]subtitle.Cue, 0, len(utterances))
	for _, u := range utterances {
		text := textclean.Clean(u.Text)
		if text == "" {
			continue
		}
		cues = append(cues, subtitle.Cue{Start: u.Start, End: u.End, Text: text})
	}
	return subtitle.Clip(cues)
}

func writeTrack(path string, track subtitle.Track) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create subtitles dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := subtitle.WriteSRT(f, track); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func srtName(base string, translated bool) string {
	if translated {
		return base + "_en.srt"
	}
	return base + ".srt"
}

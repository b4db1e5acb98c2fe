package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/echosub/echosub/internal/audio"
	"github.com/echosub/echosub/internal/caption"
	"github.com/echosub/echosub/internal/config"
	"github.com/echosub/echosub/internal/display"
	"github.com/echosub/echosub/internal/pipeline"
	"github.com/echosub/echosub/internal/session"
	"github.com/echosub/echosub/internal/subtitle"
	"github.com/echosub/echosub/internal/telemetry"
	"github.com/echosub/echosub/internal/transcribe"
	"github.com/echosub/echosub/internal/video"
)

func main() {
	record := flag.String("record", "", "record an episode with the given name instead of live subtitling")
	input := flag.String("input", "", "subtitle a WAV file instead of capturing live audio")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Loader{}.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("starting echosub",
		"capture_bin", cfg.CaptureBin,
		"whisper_model", cfg.WhisperModel,
		"language", cfg.Language,
		"output_mode", cfg.OutputMode,
	)

	recorder := telemetry.NewRecorder(logger)

	trans, err := transcribe.New(cfg, logger)
	if err != nil {
		logger.Warn("transcriber initialised with warnings", "error", err)
	}
	defer func() {
		if err := trans.Close(); err != nil {
			logger.Warn("failed to close transcriber", "error", err)
		}
	}()

	opts := transcribe.Options{Language: cfg.Language, Translate: cfg.Translate()}

	var runErr error
	if *record != "" {
		runErr = runRecord(ctx, cfg, trans, opts, *record, logger, recorder)
	} else {
		runErr = runLive(ctx, cfg, trans, opts, *input, logger, recorder)
	}
	if runErr != nil {
		logger.Error("run failed", "error", runErr)
		os.Exit(1)
	}

	if snapshot := recorder.Snapshot(); snapshot.Frames > 0 {
		logger.Info("telemetry totals",
			"frames", snapshot.Frames,
			"bytes", snapshot.Bytes,
			"windows", snapshot.Windows,
			"superseded_windows", snapshot.SupersededWindows,
			"invocations", snapshot.Invocations,
			"invocation_failures", snapshot.InvocationFailures,
			"inference_millis", snapshot.InferenceMillis,
			"cues", snapshot.Cues,
			"suppressed_cues", snapshot.SuppressedCues,
			"sessions", snapshot.Sessions,
		)
	}

	logger.Info("echosub stopped")
}

// runLive streams audio through the incremental pipeline and prints each cue.
// Live capture runs until interrupted; a WAV input ends on its own.
func runLive(ctx context.Context, cfg config.Config, trans transcribe.Transcriber, opts transcribe.Options, input string, logger *slog.Logger, recorder *telemetry.Recorder) error {
	var (
		source audio.Source
		err    error
	)
	if input != "" {
		source, err = audio.OpenWAV(input, cfg.Chunk())
		if err != nil {
			return err
		}
	} else {
		source, err = audio.StartCapture(ctx, cfg.CaptureBin, cfg.Chunk(), logger)
		if err != nil {
			return fmt.Errorf("start capture: %w", err)
		}
	}
	defer source.Close()

	live, err := pipeline.NewLive(source, trans, cfg.Segment(), cfg.Step(), opts, logger, recorder)
	if err != nil {
		return err
	}

	controller := display.NewController(cfg.SilenceTimeout(), logger)
	shown := make(chan subtitle.Cue)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		controller.Run(ctx, shown)
	}()
	go func() {
		defer wg.Done()
		defer close(shown)
		for cue := range live.Cues() {
			fmt.Printf("[%s] %s\n", subtitle.FormatTimestamp(cue.Start), cue.Text)
			select {
			case shown <- cue:
			case <-ctx.Done():
				return
			}
		}
	}()

	runErr := live.Run(ctx)
	wg.Wait()
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

// runRecord captures audio until interrupted, then transcribes the recording
// and renders its artifacts.
func runRecord(ctx context.Context, cfg config.Config, trans transcribe.Transcriber, opts transcribe.Options, episode string, logger *slog.Logger, recorder *telemetry.Recorder) error {
	encoder := video.NewFFmpeg("ffmpeg", video.Style{
		FontSize:  cfg.FontSize,
		FontColor: cfg.FontColor,
	}, logger)
	captions := caption.New(trans, encoder, cfg.SubtitlesDir, cfg.VideosDir, opts, logger)

	// The capture process must outlive the signal context: Ctrl+C requests
	// the stop, and the manager ends the capture by closing the source.
	manager := session.NewManager(func(context.Context) (audio.Source, error) {
		return audio.StartCapture(context.Background(), cfg.CaptureBin, cfg.RecordChunk(), logger)
	}, captions, cfg.RecordingsDir, logger, recorder)

	s, err := manager.Start(ctx, episode)
	if err != nil {
		return err
	}
	fmt.Printf("recording %q, press Ctrl+C to stop\n", s.Episode)

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	res, err := manager.Stop(stopCtx)
	if err != nil {
		if errors.Is(err, video.ErrEncodingFailed) {
			logger.Warn("caption video failed, subtitles kept", "error", err)
		} else {
			return err
		}
	}
	fmt.Printf("recording saved: %s\n", s.WAVPath)
	if res.SRTPath != "" {
		fmt.Printf("subtitles: %s (%d cues)\n", res.SRTPath, len(res.Track))
	}
	if res.VideoPath != "" {
		fmt.Printf("caption video: %s\n", res.VideoPath)
	}
	return nil
}

func newLogger(level string) *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler)
}

func parseLevel(value string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Package display owns the on-screen subtitle state. The rendering surface
// reads it; only the controller writes it.
package display

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/echosub/echosub/internal/subtitle"
)

// State is what the rendering surface shows: the current text and when it
// last changed. Empty text means the overlay is idle.
type State struct {
	Text      string
	ChangedAt time.Time
}

// Controller replaces the displayed text as accepted cues arrive and clears
// it after a silence timeout, so stale text does not linger once speech
// stops. The timeout is independent of the segmentation cadence.
type Controller struct {
	timeout time.Duration
	log     *slog.Logger

	mu    sync.Mutex
	state State
}

// NewController returns a Controller that clears the display after timeout
// without new cues.
func NewController(timeout time.Duration, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		timeout: timeout,
		log:     logger.With("component", "display.Controller"),
	}
}

// Run consumes cues until the channel closes or ctx is cancelled. Each
// accepted cue replaces the displayed text immediately; there is no queueing
// or animation, subtitles must track speech.
func (c *Controller) Run(ctx context.Context, cues <-chan subtitle.Cue) {
	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	for {
		select {
		case cue, ok := <-cues:
			if !ok {
				c.clear()
				return
			}
			c.set(cue.Text)
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(c.timeout)
		case <-timer.C:
			c.clear()
			timer.Reset(c.timeout)
		case <-ctx.Done():
			c.clear()
			return
		}
	}
}

// Snapshot returns the current display state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) set(text string) {
	c.mu.Lock()
	c.state = State{Text: text, ChangedAt: time.Now()}
	c.mu.Unlock()
	c.log.Debug("display updated", "chars", len(text))
}

func (c *Controller) clear() {
	c.mu.Lock()
	cleared := c.state.Text != ""
	if cleared {
		c.state = State{ChangedAt: time.Now()}
	}
	c.mu.Unlock()
	if cleared {
		c.log.Debug("display cleared after silence")
	}
}

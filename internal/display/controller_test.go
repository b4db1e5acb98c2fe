package display_test

import (
	"context"
	"testing"
	"time"

	"github.com/echosub/echosub/internal/display"
	"github.com/echosub/echosub/internal/subtitle"
)

func waitFor(t *testing.T, deadline time.Duration, cond func() bool) {
	t.Helper()
	stop := time.Now().Add(deadline)
	for time.Now().Before(stop) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", deadline)
}

func TestControllerShowsAcceptedCue(t *testing.T) {
	t.Parallel()

	c := display.NewController(time.Minute, nil)
	cues := make(chan subtitle.Cue)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx, cues)
	}()

	cues <- subtitle.Cue{Text: "hello"}
	waitFor(t, time.Second, func() bool { return c.Snapshot().Text == "hello" })

	// A newer cue replaces the text immediately.
	cues <- subtitle.Cue{Text: "hello world"}
	waitFor(t, time.Second, func() bool { return c.Snapshot().Text == "hello world" })

	close(cues)
	<-done
	if got := c.Snapshot().Text; got != "" {
		t.Fatalf("display not cleared on stream end, still shows %q", got)
	}
}

func TestControllerClearsAfterSilence(t *testing.T) {
	t.Parallel()

	c := display.NewController(20*time.Millisecond, nil)
	cues := make(chan subtitle.Cue)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx, cues)

	cues <- subtitle.Cue{Text: "lingering"}
	waitFor(t, time.Second, func() bool { return c.Snapshot().Text == "lingering" })
	waitFor(t, time.Second, func() bool { return c.Snapshot().Text == "" })
}

func TestControllerStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	c := display.NewController(time.Minute, nil)
	cues := make(chan subtitle.Cue)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx, cues)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after context cancellation")
	}
}

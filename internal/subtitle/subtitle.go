// Package subtitle holds the cue and track types shared by the live overlay
// and the offline captioning pipeline, plus the SRT serialisation boundary.
package subtitle

import "time"

// Cue is a unit of subtitle text with its time range. Index is the 1-based
// position within a track; live cues leave it zero.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

// Track is the finalized cue sequence for a complete recording: cues are
// non-overlapping and strictly increasing in start time.
type Track []Cue

// Clip enforces the track invariant on engine output: a cue whose end runs
// past the next cue's start is clipped, cues that do not advance the
// timeline or have no text are dropped, and indexes are renumbered from 1.
func Clip(cues []Cue) Track {
	out := make(Track, 0, len(cues))
	for _, cue := range cues {
		if cue.Text == "" {
			continue
		}
		if len(out) > 0 && cue.Start <= out[len(out)-1].Start {
			continue
		}
		if n := len(out); n > 0 && out[n-1].End > cue.Start {
			out[n-1].End = cue.Start
		}
		out = append(out, cue)
	}
	for i := range out {
		out[i].Index = i + 1
		if out[i].End < out[i].Start {
			out[i].End = out[i].Start
		}
	}
	return out
}

// End returns the end time of the last cue, or zero for an empty track.
func (t Track) End() time.Duration {
	if len(t) == 0 {
		return 0
	}
	return t[len(t)-1].End
}

package textclean

import "strings"

// Deduper decides whether cleaned text is materially new relative to the
// previously accepted text. Because transcription windows overlap, the same
// sentence tends to come back on every cadence tick; naive re-display would
// flood the overlay.
//
// Matching is exact on the normalized form, chosen conservatively: fuzzy
// matching can be layered on later if measurement shows it is needed.
type Deduper struct {
	last     string
	lastNorm string
}

// Next applies the acceptance policy to cleaned text. It returns the text to
// display and whether anything should be displayed at all:
//
//   - empty text: dropped
//   - identical to the previous accepted text: dropped
//   - shrunken repeat (normalized text contained in the previous): dropped
//   - previous text is a prefix of the new text: only the new tail is
//     emitted, refining the displayed line in place
//   - anything else: emitted in full
func (d *Deduper) Next(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", false
	}
	norm := normalize(trimmed)
	if norm == d.lastNorm {
		return "", false
	}
	if d.lastNorm != "" && strings.Contains(d.lastNorm, norm) {
		return "", false
	}

	out := trimmed
	if d.lastNorm != "" && strings.HasPrefix(norm, d.lastNorm) {
		if tail := tailAfterPrefix(trimmed, d.last); tail != "" {
			out = tail
		}
	}
	d.last = trimmed
	d.lastNorm = norm
	return out, true
}

// Reset clears the comparison state, e.g. when a new stream starts.
func (d *Deduper) Reset() {
	d.last = ""
	d.lastNorm = ""
}

// tailAfterPrefix returns the part of current past the previous text,
// preserving the original casing of the tail. It falls back to empty when
// the display-cased strings diverge even though the normalized forms match.
func tailAfterPrefix(current, previous string) string {
	if previous == "" {
		return strings.TrimSpace(current)
	}
	if !strings.HasPrefix(current, previous) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(current, previous))
}

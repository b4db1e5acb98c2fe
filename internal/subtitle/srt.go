package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var timingRe = regexp.MustCompile(`^(\d+):(\d+):(\d+)[,.](\d+)\s*-->\s*(\d+):(\d+):(\d+)[,.](\d+)`)

// WriteSRT serialises the track in standard SubRip form: index line, timing
// line, text, blank separator. Output is deterministic for a given track.
func WriteSRT(w io.Writer, track Track) error {
	bw := bufio.NewWriter(w)
	for i, cue := range track {
		index := cue.Index
		if index == 0 {
			index = i + 1
		}
		fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n\n",
			index, FormatTimestamp(cue.Start), FormatTimestamp(cue.End), cue.Text)
	}
	return bw.Flush()
}

// ParseSRT reads a SubRip stream back into a track. Cue text may span
// multiple lines; lines are joined with a single space.
func ParseSRT(r io.Reader) (Track, error) {
	var (
		track   Track
		current *Cue
		lines   []string
	)
	flush := func() {
		if current == nil {
			return
		}
		current.Text = strings.TrimSpace(strings.Join(lines, " "))
		track = append(track, *current)
		current = nil
		lines = nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			flush()
			continue
		}
		if m := timingRe.FindStringSubmatch(line); m != nil {
			flush()
			start, err := timestampFromParts(m[1], m[2], m[3], m[4])
			if err != nil {
				return nil, err
			}
			end, err := timestampFromParts(m[5], m[6], m[7], m[8])
			if err != nil {
				return nil, err
			}
			current = &Cue{Index: len(track) + 1, Start: start, End: end}
			continue
		}
		if current == nil {
			// Index line (or stray text before the first timing line).
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("subtitle: read srt: %w", err)
	}
	flush()
	return track, nil
}

// FormatTimestamp renders a duration as HH:MM:SS,mmm.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	h := ms / 3_600_000
	ms -= h * 3_600_000
	m := ms / 60_000
	ms -= m * 60_000
	s := ms / 1_000
	ms -= s * 1_000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

func timestampFromParts(hh, mm, ss, mmm string) (time.Duration, error) {
	h, err1 := strconv.Atoi(hh)
	m, err2 := strconv.Atoi(mm)
	s, err3 := strconv.Atoi(ss)
	ms, err4 := strconv.Atoi(mmm)
	for _, err := range []error{err1, err2, err3, err4} {
		if err != nil {
			return 0, fmt.Errorf("subtitle: parse timestamp: %w", err)
		}
	}
	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}

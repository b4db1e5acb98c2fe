// Package textclean turns raw engine output into displayable subtitle text:
// it strips known hallucination boilerplate and non-speech markers, and
// decides whether a new result is materially different from the previous one.
package textclean

import (
	"regexp"
	"strings"
)

// Phrases the engine hallucinates on silence or music. Matched
// case-insensitively and removed wherever they appear. Matching runs on the
// original text so surrounding runes whose byte length changes under case
// conversion cannot skew offsets.
var denylist = compileDenylist(
	"subtitles by the amara.org community",
	"subtitles by amara.org",
	"subtitles by the community",
	"thanks for watching!",
	"thanks for watching",
	"[blank_audio]",
)

func compileDenylist(phrases ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(phrases))
	for i, p := range phrases {
		out[i] = regexp.MustCompile("(?i)" + regexp.QuoteMeta(p))
	}
	return out
}

// Clean strips boilerplate and non-speech markers from raw transcript text.
// It returns an empty string when nothing displayable remains. Casing of the
// surviving text is preserved.
func Clean(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	for _, phrase := range denylist {
		text = phrase.ReplaceAllLiteralString(text, "")
	}
	text = strings.Join(strings.Fields(text), " ")
	if isNonSpeech(text) {
		return ""
	}
	return text
}

// isNonSpeech reports whether the text is purely a sound-effect or music
// marker rather than speech, e.g. "*music*", "[applause]", "(speaking
// Japanese)" or a run of note symbols.
func isNonSpeech(text string) bool {
	if text == "" {
		return true
	}
	pairs := [][2]string{{"*", "*"}, {"[", "]"}, {"(", ")"}}
	for _, p := range pairs {
		if strings.HasPrefix(text, p[0]) && strings.HasSuffix(text, p[1]) {
			inner := text[len(p[0]) : len(text)-len(p[1])]
			if !strings.Contains(inner, p[1]) {
				return true
			}
		}
	}
	stripped := strings.Map(func(r rune) rune {
		switch r {
		case '♪', '♫', '♬', ' ', '.', '~', '-':
			return -1
		}
		return r
	}, text)
	return stripped == ""
}

// normalize produces the comparison form of subtitle text: lower-cased with
// whitespace runs collapsed. Display text is never normalized.
func normalize(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

package textclean

import (
	"testing"
	"unicode/utf8"
)

func TestClean(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain speech", "hello there", "hello there"},
		{"leading and trailing space", "  hello there \n", "hello there"},
		{"whitespace collapsed", "hello\n\n  there", "hello there"},
		{"casing preserved", "Hello There", "Hello There"},
		{"empty", "", ""},
		{"amara credit", "Subtitles by the Amara.org community", ""},
		{"amara credit embedded", "see you soon. Subtitles by Amara.org", "see you soon."},
		{"thanks for watching", "Thanks for watching!", ""},
		{"blank audio marker", "[BLANK_AUDIO]", ""},
		{"music stars", "*music*", ""},
		{"music stars spaced", "* Badass music *", ""},
		{"bracketed applause", "[applause]", ""},
		{"parenthesised narration", "(speaking Japanese)", ""},
		{"note symbols", "♪ ♪ ♪", ""},
		{"markers around speech kept", "*sigh* fine, let's go", "*sigh* fine, let's go"},
		{"denylist inside speech", "he said Thanks for watching! and left", "he said and left"},
		{"boilerplate after runes that grow when lowered", "ȺȺȺȺȺȺȺȺȺȺȺȺȺȺȺȺȺȺȺȺ Thanks for watching", "ȺȺȺȺȺȺȺȺȺȺȺȺȺȺȺȺȺȺȺȺ"},
		{"boilerplate after runes that shrink when lowered", "İİİİİİİİİİ Thanks for watching", "İİİİİİİİİİ"},
		{"boilerplate between multibyte words", "Ⱥ Thanks for watching! İ", "Ⱥ İ"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := Clean(tc.raw)
			if got != tc.want {
				t.Fatalf("Clean(%q) = %q, want %q", tc.raw, got, tc.want)
			}
			if !utf8.ValidString(got) {
				t.Fatalf("Clean(%q) produced invalid UTF-8: %q", tc.raw, got)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	if got := normalize("  Hello   WORLD \n"); got != "hello world" {
		t.Fatalf("normalize = %q, want %q", got, "hello world")
	}
}

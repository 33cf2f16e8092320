package pipe

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func extractWithDefaults(transcript, sent string) Extraction {
	return NewExtractor(DefaultConfig(), nil).Extract(transcript, sent)
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
		sent       string
		want       string
	}{
		{
			name: "skips tool chrome before the answer",
			transcript: lines(
				"❯ What is 2+2? (When done, print ===PIPE_END=== on its own line)",
				"  Read(notes.txt)",
				"  Bash(echo hi)",
				"● 4",
				"===PIPE_END===",
				"",
				"❯",
			),
			sent: "What is 2+2?",
			want: "4",
		},
		{
			name: "marker on the same line as content",
			transcript: lines(
				"❯ Finish up (When done, print ===PIPE_END=== on its own line)",
				"● Done ===PIPE_END===",
				"❯",
			),
			sent: "Finish up",
			want: "Done",
		},
		{
			name: "trailing chrome removed and interior blank kept",
			transcript: lines(
				"❯ Two paragraphs please",
				"● line one",
				"",
				"  more",
				"",
				"────────────────",
				"? for shortcuts",
				"❯",
			),
			sent: "Two paragraphs please",
			want: "line one\n\nmore",
		},
		{
			name: "sub-item indentation pulled back, code indentation kept",
			transcript: lines(
				"❯ List it",
				"● Items:",
				"  - a",
				"    code",
				"===PIPE_END===",
			),
			sent: "List it",
			want: "Items:\n- a\n    code",
		},
		{
			name: "tool result bullet stripped",
			transcript: lines(
				"❯ run ls",
				"● Bash(ls)",
				"  ⎿ go.mod",
				"===PIPE_END===",
			),
			sent: "run ls",
			want: "Bash(ls)\ngo.mod",
		},
		{
			name: "wrapped instruction carrying the marker is not a response",
			transcript: lines(
				"❯ Hello (When done, print",
				"===PIPE_END=== on its own line)",
				"● Hi there",
				"===PIPE_END===",
			),
			sent: "Hello",
			want: "Hi there",
		},
		{
			name: "only the first line of a multi-line message anchors",
			transcript: lines(
				"❯ first line",
				"  second line (When done, print ===PIPE_END=== on its own line)",
				"● got both",
				"===PIPE_END===",
			),
			sent: "first line\nsecond line",
			want: "got both",
		},
		{
			name: "long prompt wrapped at the pane width",
			transcript: lines(
				"❯ Please summarize the release notes for the newsletter, keeping it short and",
				"  friendly, and mention the two breaking changes (When done, print",
				"  ===PIPE_END=== on its own line)",
				"● Here is the summary.",
				"===PIPE_END===",
				"❯",
			),
			sent: "Please summarize the release notes for the newsletter, keeping it short and friendly, and mention the two breaking changes",
			want: "Here is the summary.",
		},
		{
			name: "wrap leaves the marker mid-instruction",
			transcript: lines(
				"❯ Please summarize the release notes for the newsletter, keeping it short and",
				"  friendly, and mention the two breaking changes (When done,",
				"  print ===PIPE_END=== on its own",
				"  line)",
				"",
				"● Here is the summary.",
				"  - breaking: config moved",
				"===PIPE_END===",
			),
			sent: "Please summarize the release notes for the newsletter, keeping it short and friendly",
			want: "Here is the summary.\n- breaking: config moved",
		},
		{
			name: "multi-line message echo with blank line inside",
			transcript: lines(
				"❯ Review this:",
				"",
				"  func main() {}",
				"  Is it fine? (When done, print ===PIPE_END=== on its own line)",
				"● Yes, it compiles.",
				"===PIPE_END===",
			),
			sent: "Review this:\n\nfunc main() {}\nIs it fine?",
			want: "Yes, it compiles.",
		},
		{
			name: "response with inline marker after an unwrapped echo",
			transcript: lines(
				"❯ Finish up",
				"● Done ===PIPE_END===",
				"❯",
			),
			sent: "Finish up",
			want: "Done",
		},
		{
			name: "no marker and no trailing chrome",
			transcript: lines(
				"❯ ping",
				"● pong",
			),
			sent: "ping",
			want: "pong",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractWithDefaults(tt.transcript, tt.sent)
			assert.True(t, got.Anchored)
			assert.Equal(t, tt.want, got.Text)
		})
	}
}

func TestExtractUsesFirstAnchor(t *testing.T) {
	transcript := lines(
		"❯ status",
		"● first answer",
		"===PIPE_END===",
		"❯ status",
		"● second answer",
		"===PIPE_END===",
	)
	got := extractWithDefaults(transcript, "status")
	assert.Equal(t, "first answer", got.Text)
}

func TestExtractLongMessageAnchorsOnPrefix(t *testing.T) {
	msg := strings.Repeat("abcdefghij", 12)
	// The pane wraps the echo at 80 columns.
	transcript := lines(
		"❯ "+msg[:78],
		msg[78:]+" (When done, print ===PIPE_END=== on its own line)",
		"● long answer",
		"===PIPE_END===",
	)
	got := extractWithDefaults(transcript, msg)
	assert.True(t, got.Anchored)
	assert.Equal(t, "long answer", got.Text)
}

func TestExtractFallsBackToWholeTranscript(t *testing.T) {
	transcript := "\n\n● something unrelated\n  ⎿ detail\n❯\n\n"
	got := extractWithDefaults(transcript, "never echoed")

	assert.False(t, got.Anchored)
	assert.Equal(t, "● something unrelated\n  ⎿ detail\n❯", got.Text)
}

func TestExtractEmptyWhenNothingFollowsEcho(t *testing.T) {
	got := extractWithDefaults(lines("❯ hi", "", "❯"), "hi")
	assert.True(t, got.Anchored)
	assert.Empty(t, got.Text)
}

func TestExtractIsPure(t *testing.T) {
	x := NewExtractor(DefaultConfig(), nil)
	transcript := lines("❯ q", "● a", "", "  b", "===PIPE_END===")

	first := x.Extract(transcript, "q")
	second := x.Extract(transcript, "q")
	assert.Equal(t, first, second)
}

type plainRules struct{}

func (plainRules) ResponseStarted(trimmed string) bool { return strings.HasPrefix(trimmed, ">> ") }
func (plainRules) TrailingNoise(trimmed string) bool   { return trimmed == "" || trimmed == "$" }
func (plainRules) StripBullet(line string) string      { return strings.TrimPrefix(line, ">> ") }

func TestExtractWithCustomRules(t *testing.T) {
	x := NewExtractor(DefaultConfig(), plainRules{})
	transcript := lines(
		"$ ask something",
		"thinking...",
		">> the answer",
		"",
		"$",
	)
	got := x.Extract(transcript, "ask something")
	assert.True(t, got.Anchored)
	assert.Equal(t, "the answer", got.Text)
}

func TestExtractBlankFirstLineIsUnanchored(t *testing.T) {
	transcript := lines("❯ hello", "● hi", "===PIPE_END===")
	got := extractWithDefaults(transcript, "\nhello")

	assert.False(t, got.Anchored)
	assert.Equal(t, strings.TrimSpace(transcript), got.Text)
}

package tmux

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPane(r *fakeRunner, s *sleepLog) *Pane {
	return newTestManager(r, s).pane("%3")
}

func TestCaptureVisible(t *testing.T) {
	r := newFakeRunner()
	r.outputs["capture-pane"] = "● hi\n\n❯ \n\n\n   \n"
	p := testPane(r, &sleepLog{})

	got, err := p.Capture(0)
	require.NoError(t, err)
	assert.Equal(t, "● hi\n\n❯ ", got)
	assert.Equal(t, []string{"capture-pane -p -t %3"}, r.commands())
	assert.True(t, r.calls[0].hasDeadline)
}

func TestCaptureWithScrollback(t *testing.T) {
	r := newFakeRunner()
	p := testPane(r, &sleepLog{})

	got, err := p.Capture(10000)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, []string{"capture-pane -p -t %3 -S -10000"}, r.commands())
}

func TestCaptureError(t *testing.T) {
	r := newFakeRunner()
	r.errs["capture-pane"] = errors.New("can't find pane: %3")
	p := testPane(r, &sleepLog{})

	_, err := p.Capture(0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "can't find pane")
}

func TestCurrentCommand(t *testing.T) {
	r := newFakeRunner()
	r.outputs["display-message"] = "Node\nignored\n"
	p := testPane(r, &sleepLog{})

	got, err := p.CurrentCommand()
	require.NoError(t, err)
	assert.Equal(t, "node", got)
	assert.Equal(t, []string{"display-message -p -t %3 #{pane_current_command}"}, r.commands())
}

func TestSendLiteralAndActivate(t *testing.T) {
	r := newFakeRunner()
	s := &sleepLog{}
	p := testPane(r, s)

	require.NoError(t, p.SendLiteralAndActivate("Enter the -l flag; C-c"))
	assert.Equal(t, []string{
		"send-keys -l -t %3 -- Enter the -l flag; C-c",
		"send-keys -t %3 Enter",
	}, r.commands())
	assert.Equal(t, []time.Duration{600 * time.Millisecond}, s.slept)
}

func TestSendLiteralAndActivateStopsOnError(t *testing.T) {
	r := newFakeRunner()
	r.errs["send-keys"] = errors.New("no current client")
	s := &sleepLog{}
	p := testPane(r, s)

	err := p.SendLiteralAndActivate("hi")
	require.Error(t, err)
	assert.Len(t, r.calls, 1)
	assert.Empty(t, s.slept, "Enter is not scheduled after a failed send")
}

func TestSendLargeTextInChunks(t *testing.T) {
	r := newFakeRunner()
	s := &sleepLog{}
	p := testPane(r, s)

	text := strings.Repeat(strings.Repeat("x", 99)+"\n", 100)
	require.NoError(t, p.SendLiteralAndActivate(text))

	sends := r.count("send-keys")
	assert.Equal(t, 4, sends, "three chunks plus Enter")
	var joined strings.Builder
	for _, c := range r.calls[:3] {
		joined.WriteString(c.args[len(c.args)-1])
	}
	assert.Equal(t, text, joined.String())
	assert.Equal(t, []time.Duration{chunkDelay, chunkDelay, 600 * time.Millisecond}, s.slept)
}

func TestSplitIntoChunks(t *testing.T) {
	assert.Nil(t, splitIntoChunks("", 10))
	assert.Equal(t, []string{"short"}, splitIntoChunks("short", 10))
	assert.Equal(t, []string{"abc\n", "defgh\n", "ij"}, splitIntoChunks("abc\ndefgh\nij", 7))
	assert.Equal(t, []string{"abcdefg", "hij"}, splitIntoChunks("abcdefghij", 7))

	// No newline: the cut backs off to a rune boundary.
	for _, chunk := range splitIntoChunks(strings.Repeat("❯", 10), 7) {
		assert.True(t, utf8.ValidString(chunk), "%q", chunk)
		assert.LessOrEqual(t, len(chunk), 7)
	}
}

func TestTrimTrailingBlankLines(t *testing.T) {
	assert.Equal(t, "", trimTrailingBlankLines("\n\n"))
	assert.Equal(t, "a\n\nb", trimTrailingBlankLines("a\n\nb\n \n"))
	assert.Equal(t, "\na", trimTrailingBlankLines("\na"))
}

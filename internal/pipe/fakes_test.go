package pipe

import (
	"errors"
	"strings"
	"time"
)

// fakeClock advances only when something sleeps.
type fakeClock struct {
	now    time.Time
	slept  []time.Duration
	origin time.Time
}

func newFakeClock() *fakeClock {
	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &fakeClock{now: t0, origin: t0}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(d time.Duration) {
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
}

func (c *fakeClock) elapsed() time.Duration { return c.now.Sub(c.origin) }

// fakePane renders its content from a script evaluated against the fake clock.
type fakePane struct {
	clock   *fakeClock
	command string
	sends   []string
	sentAt  map[string]time.Time

	// render returns the pane text; deep reports whether scrollback was requested.
	render func(p *fakePane, deep bool) string

	captureErr error
	sendErr    error
	captures   int
}

func newFakePane(clock *fakeClock, render func(p *fakePane, deep bool) string) *fakePane {
	return &fakePane{
		clock:   clock,
		command: "node",
		sentAt:  make(map[string]time.Time),
		render:  render,
	}
}

func (p *fakePane) Capture(scrollback int) (string, error) {
	p.captures++
	if p.captureErr != nil {
		return "", p.captureErr
	}
	return p.render(p, scrollback > 0), nil
}

func (p *fakePane) CurrentCommand() (string, error) {
	return strings.ToLower(p.command), nil
}

func (p *fakePane) SendLiteralAndActivate(text string) error {
	if p.sendErr != nil {
		return p.sendErr
	}
	p.sends = append(p.sends, text)
	p.sentAt[text] = p.clock.Now()
	return nil
}

// since reports how long ago a text whose prefix is prefix was sent, or
// false if it was not sent yet.
func (p *fakePane) since(prefix string) (time.Duration, bool) {
	for text, at := range p.sentAt {
		if strings.HasPrefix(text, prefix) {
			return p.clock.Now().Sub(at), true
		}
	}
	return 0, false
}

func staticPane(clock *fakeClock, text string) *fakePane {
	return newFakePane(clock, func(*fakePane, bool) string { return text })
}

var errTmuxGone = errors.New("no server running on /tmp/tmux-0/default")

func testConfig() Config {
	return DefaultConfig()
}

func lines(ls ...string) string {
	return strings.Join(ls, "\n")
}

package main

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/asheshgoplani/claude-pipe/internal/clipboard"
	"github.com/asheshgoplani/claude-pipe/internal/pipe"
	"github.com/asheshgoplani/claude-pipe/internal/tmux"
)

// fakeAgent plays tmux plus a claude CLI that answers every prompt with reply.
type fakeAgent struct {
	sessions string
	command  string
	reply    []string
	// spin makes the pane change on every capture and never finish.
	spin bool

	calls []string
	sent  []string
	spins int
}

func newFakeAgent(reply ...string) *fakeAgent {
	return &fakeAgent{command: "node", reply: reply}
}

func (f *fakeAgent) Run(_ context.Context, args ...string) (string, error) {
	f.calls = append(f.calls, strings.Join(args, " "))
	switch args[0] {
	case "list-sessions":
		if f.sessions == "" {
			return "", fmt.Errorf("tmux list-sessions: exit status 1 (output: no server running)")
		}
		return f.sessions + "\n", nil
	case "new-session":
		f.sessions = args[len(args)-1]
		return "", nil
	case "list-panes":
		return "0\t0\t%1\n", nil
	case "display-message":
		return f.command + "\n", nil
	case "send-keys":
		if args[1] == "-l" {
			f.sent = append(f.sent, args[len(args)-1])
		}
		return "", nil
	case "capture-pane":
		return f.screen(), nil
	}
	return "", fmt.Errorf("unexpected tmux %s", args[0])
}

func (f *fakeAgent) screen() string {
	var prompt string
	for _, s := range f.sent {
		if strings.Contains(s, "===PIPE_END===") {
			prompt = s
		}
	}
	if prompt == "" {
		return "\n❯\n"
	}
	echo := "❯ " + prompt
	if f.spin {
		f.spins++
		return fmt.Sprintf("%s\n✻ Thinking… %d\n", echo, f.spins)
	}
	return strings.Join(append([]string{echo}, f.reply...), "\n") + "\n"
}

type instantClock struct{ now time.Time }

func (c *instantClock) Now() time.Time        { return c.now }
func (c *instantClock) Sleep(d time.Duration) { c.now = c.now.Add(d) }

type fakeCopier struct {
	copied []string
	err    error
}

func (c *fakeCopier) Copy(text string) (*clipboard.CopyResult, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.copied = append(c.copied, text)
	return &clipboard.CopyResult{Method: "fake", ByteSize: len(text), LineCount: 1}, nil
}

type harness struct {
	dir    string
	env    *env
	agent  *fakeAgent
	copier *fakeCopier
	stdin  *bytes.Buffer
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

// newHarness isolates the state directory and wires fakes for tmux, time
// and the clipboard.
func newHarness(t *testing.T, agent *fakeAgent) *harness {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CLAUDE_PIPE_HOME", dir)
	t.Setenv("CLAUDE_PIPE_CONFIG", filepath.Join(dir, "config.toml"))

	h := &harness{
		dir:    dir,
		agent:  agent,
		copier: &fakeCopier{},
		stdin:  &bytes.Buffer{},
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	}
	clock := &instantClock{now: time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)}
	h.env = &env{
		stdin:     h.stdin,
		stdout:    h.stdout,
		stderr:    h.stderr,
		stdinTTY:  true,
		tmuxCheck: func() error { return nil },
		tmuxOpts: []tmux.ManagerOption{
			tmux.WithRunner(agent),
			tmux.WithSleeper(func(time.Duration) {}),
		},
		engineOpts: []pipe.Option{pipe.WithClock(clock)},
		newCopier:  func(bool) copier { return h.copier },
	}
	return h
}

func (h *harness) run(args ...string) int {
	return execute(args, h.env)
}

func (h *harness) historyPath() string {
	return filepath.Join(h.dir, "history.db")
}

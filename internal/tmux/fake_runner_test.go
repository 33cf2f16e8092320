package tmux

import (
	"context"
	"errors"
	"strings"
	"time"
)

type fakeCall struct {
	args        []string
	hasDeadline bool
}

// fakeRunner answers tmux invocations by subcommand.
type fakeRunner struct {
	calls   []fakeCall
	outputs map[string]string
	errs    map[string]error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{outputs: map[string]string{}, errs: map[string]error{}}
}

func (f *fakeRunner) Run(ctx context.Context, args ...string) (string, error) {
	_, ok := ctx.Deadline()
	f.calls = append(f.calls, fakeCall{args: append([]string(nil), args...), hasDeadline: ok})
	if err := f.errs[args[0]]; err != nil {
		return "", err
	}
	return f.outputs[args[0]], nil
}

func (f *fakeRunner) commands() []string {
	var out []string
	for _, c := range f.calls {
		out = append(out, strings.Join(c.args, " "))
	}
	return out
}

func (f *fakeRunner) count(verb string) int {
	n := 0
	for _, c := range f.calls {
		if c.args[0] == verb {
			n++
		}
	}
	return n
}

var errNoServer = errors.New("tmux list-sessions: exit status 1 (output: no server running on /tmp/tmux-1000/default)")

type sleepLog struct{ slept []time.Duration }

func (s *sleepLog) sleep(d time.Duration) { s.slept = append(s.slept, d) }

func newTestManager(r *fakeRunner, s *sleepLog) *Manager {
	return NewManager("pipe-test",
		WithRunner(r),
		WithSleeper(s.sleep),
		WithSubmitDelay(600*time.Millisecond))
}

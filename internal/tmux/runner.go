package tmux

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/asheshgoplani/claude-pipe/internal/logging"
)

var tmuxLog = logging.ForComponent(logging.CompTmux)

// ErrCommandTimeout is returned when a tmux invocation exceeds its timeout.
var ErrCommandTimeout = errors.New("tmux command timed out")

// Runner executes one tmux invocation and returns its stdout.
type Runner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// ExecRunner runs the tmux binary as a subprocess. Spawns are paced so a
// tight polling loop cannot flood the tmux server.
type ExecRunner struct {
	Binary  string
	limiter *rate.Limiter
}

// NewExecRunner returns a runner for the tmux found in PATH, allowing a short
// burst and then one spawn every 20ms.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{
		Binary:  "tmux",
		limiter: rate.NewLimiter(rate.Every(20*time.Millisecond), 4),
	}
}

func (r *ExecRunner) Run(ctx context.Context, args ...string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("tmux %s: %w", verb(args), err)
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, r.Binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	tmuxLog.Debug("tmux_exec",
		slog.String("args", strings.Join(args, " ")),
		slog.Duration("duration", time.Since(start)))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("tmux %s: %w", verb(args), ErrCommandTimeout)
		}
		return "", fmt.Errorf("tmux %s: %w (output: %s)", verb(args), err, strings.TrimSpace(stderr.String()))
	}
	return string(out), nil
}

// IsAvailable checks that tmux is installed and runs.
func IsAvailable() error {
	out, err := exec.Command("tmux", "-V").CombinedOutput()
	if err != nil {
		return fmt.Errorf("tmux not found or not working: %w (output: %s)", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func verb(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/asheshgoplani/claude-pipe/internal/clipboard"
	"github.com/asheshgoplani/claude-pipe/internal/config"
	"github.com/asheshgoplani/claude-pipe/internal/logging"
	"github.com/asheshgoplani/claude-pipe/internal/pipe"
	"github.com/asheshgoplani/claude-pipe/internal/tmux"
)

const Version = "0.4.0"

var cliLog = logging.ForComponent(logging.CompCLI)

// errUsage asks execute to print usage instead of an error line.
var errUsage = errors.New("usage")

// copier is the clipboard surface --copy needs.
type copier interface {
	Copy(text string) (*clipboard.CopyResult, error)
}

// env is everything the commands touch outside the process. main fills it
// from the real terminal; tests substitute buffers and fakes.
type env struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	stdinTTY  bool
	stdoutTTY bool
	stderrTTY bool

	tmuxCheck  func() error
	tmuxOpts   []tmux.ManagerOption
	engineOpts []pipe.Option
	newCopier  func(osc52 bool) copier
}

func newEnv() *env {
	return &env{
		stdin:     os.Stdin,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		stdinTTY:  term.IsTerminal(int(os.Stdin.Fd())),
		stdoutTTY: term.IsTerminal(int(os.Stdout.Fd())),
		stderrTTY: term.IsTerminal(int(os.Stderr.Fd())),
		tmuxCheck: tmux.IsAvailable,
		newCopier: func(osc52 bool) copier { return clipboard.New(osc52) },
	}
}

func main() {
	initColorProfile()
	os.Exit(execute(os.Args[1:], newEnv()))
}

// execute runs the command line and returns the process exit code.
func execute(args []string, e *env) int {
	root := newRootCmd(e)
	root.SetArgs(args)
	root.SetIn(e.stdin)
	root.SetOut(e.stdout)
	root.SetErr(e.stderr)

	err := root.Execute()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprint(e.stderr, root.UsageString())
		return 1
	default:
		fmt.Fprintln(e.stderr, formatFatal(err, e.stderrTTY))
		return 1
	}
}

// dumpCrashLog writes the in-memory log tail next to the config so a failed
// run can be inspected after the fact.
func dumpCrashLog() {
	dir, err := config.Dir()
	if err != nil {
		return
	}
	path := filepath.Join(dir, "crash.log")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return
	}
	if err := logging.DumpRingBuffer(path); err != nil {
		cliLog.Debug("crash log dump failed", "error", err)
	}
}

// initColorProfile configures lipgloss color profile based on terminal capabilities.
func initColorProfile() {
	// CLAUDE_PIPE_COLOR: truecolor, 256, 16, none
	if colorEnv := os.Getenv("CLAUDE_PIPE_COLOR"); colorEnv != "" {
		if p, ok := parseColorProfile(colorEnv); ok {
			lipgloss.SetColorProfile(p)
			return
		}
	}
	if os.Getenv("NO_COLOR") != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}

	colorTerm := os.Getenv("COLORTERM")
	if colorTerm == "truecolor" || colorTerm == "24bit" {
		lipgloss.SetColorProfile(termenv.TrueColor)
		return
	}

	// Known TrueColor-capable terminals
	termName := os.Getenv("TERM")
	for _, t := range []string{"xterm-256color", "screen-256color", "tmux-256color", "xterm-direct", "alacritty", "kitty", "wezterm"} {
		if strings.Contains(termName, t) {
			lipgloss.SetColorProfile(termenv.TrueColor)
			return
		}
	}

	// Fallback: ANSI256 works over SSH and in older emulators
	lipgloss.SetColorProfile(termenv.ANSI256)
}

func parseColorProfile(s string) (termenv.Profile, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "truecolor", "true", "24bit":
		return termenv.TrueColor, true
	case "256", "ansi256":
		return termenv.ANSI256, true
	case "16", "ansi", "basic":
		return termenv.ANSI, true
	case "none", "off", "ascii":
		return termenv.Ascii, true
	}
	return termenv.Ascii, false
}

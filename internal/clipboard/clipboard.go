// Package clipboard copies a response to the system clipboard for --copy.
package clipboard

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/asheshgoplani/claude-pipe/internal/logging"
	"github.com/asheshgoplani/claude-pipe/internal/platform"
)

var clipLog = logging.ForComponent(logging.CompClipboard)

// ErrEmpty is returned when there is nothing to copy.
var ErrEmpty = errors.New("no content to copy")

// ErrNoMethod is returned when neither a native tool nor OSC 52 is usable.
var ErrNoMethod = errors.New("no clipboard method available (install pbcopy, xclip, xsel, or wl-copy)")

// CopyResult contains metadata about a successful clipboard copy operation.
type CopyResult struct {
	Method    string // How the content was copied (e.g., "pbcopy", "xclip", "osc52")
	ByteSize  int
	LineCount int
}

// Copier picks a clipboard method for the current platform. The zero value
// is not usable; call New.
type Copier struct {
	Platform platform.Platform
	// OSC52 receives the escape sequence fallback; nil disables it.
	OSC52 io.Writer
	InTmux bool

	lookPath func(string) (string, error)
	run      func(name string, args []string, stdin string) error
	getenv   func(string) string
}

// New returns a copier for this machine. When osc52 is true the fallback
// writes to the controlling terminal, bypassing stdout redirection.
func New(osc52 bool) *Copier {
	c := &Copier{
		Platform: platform.Detect(),
		InTmux:   platform.InTmux(),
		lookPath: exec.LookPath,
		run:      runClipCmd,
		getenv:   os.Getenv,
	}
	if osc52 {
		c.OSC52 = ttyWriter{}
	}
	return c
}

// Copy copies text using the native clipboard tool, falling back to OSC 52.
func (c *Copier) Copy(text string) (*CopyResult, error) {
	if text == "" {
		return nil, ErrEmpty
	}
	res := &CopyResult{ByteSize: len(text), LineCount: countLines(text)}

	method, err := c.copyNative(text)
	if err == nil {
		res.Method = method
		return res, nil
	}
	clipLog.Debug("native clipboard unavailable", slog.String("error", err.Error()))

	if c.OSC52 == nil {
		return nil, ErrNoMethod
	}
	seq := generateOSC52(base64.StdEncoding.EncodeToString([]byte(text)), c.InTmux)
	if _, err := io.WriteString(c.OSC52, seq); err != nil {
		return nil, fmt.Errorf("OSC 52 clipboard failed: %w", err)
	}
	res.Method = "osc52"
	return res, nil
}

// copyNative attempts to copy using a platform-native clipboard command.
func (c *Copier) copyNative(text string) (string, error) {
	switch c.Platform {
	case platform.PlatformMacOS:
		return "pbcopy", c.run("pbcopy", nil, text)

	case platform.PlatformWSL1, platform.PlatformWSL2, platform.PlatformWindows:
		return "clip.exe", c.run("clip.exe", nil, text)

	case platform.PlatformLinux:
		// Wayland takes priority over X11
		if c.getenv("WAYLAND_DISPLAY") != "" {
			if path, err := c.lookPath("wl-copy"); err == nil {
				return "wl-copy", c.run(path, nil, text)
			}
		}
		if path, err := c.lookPath("xclip"); err == nil {
			return "xclip", c.run(path, []string{"-selection", "clipboard"}, text)
		}
		if path, err := c.lookPath("xsel"); err == nil {
			return "xsel", c.run(path, []string{"--clipboard", "--input"}, text)
		}
		return "", errors.New("no clipboard command found on Linux")

	default:
		return "", fmt.Errorf("unsupported platform: %s", c.Platform)
	}
}

func runClipCmd(name string, args []string, text string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin = strings.NewReader(text)
	return cmd.Run()
}

// ttyWriter writes to /dev/tty, opened per write.
type ttyWriter struct{}

func (ttyWriter) Write(p []byte) (int, error) {
	tty, err := os.OpenFile("/dev/tty", os.O_WRONLY, 0)
	if err != nil {
		return 0, fmt.Errorf("cannot open /dev/tty: %w", err)
	}
	defer tty.Close()
	return tty.Write(p)
}

// generateOSC52 builds the OSC 52 escape sequence.
// If inTmux is true, wraps it in a DCS passthrough for tmux compatibility.
func generateOSC52(base64Content string, inTmux bool) string {
	osc := "\x1b]52;c;" + base64Content + "\x07"
	if inTmux {
		return "\x1bPtmux;\x1b" + osc + "\x1b\\"
	}
	return osc
}

// countLines counts lines; a trailing newline does not add one.
func countLines(text string) int {
	if text == "" {
		return 0
	}
	n := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		n++
	}
	return n
}

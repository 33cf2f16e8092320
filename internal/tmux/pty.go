//go:build !windows

package tmux

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"golang.org/x/term"
)

// DetachKey is Ctrl+Q; pressing it alone ends an Attach.
const DetachKey = 17

// Attach connects the calling terminal to the session through a PTY so the
// user can answer the agent's first-run dialogs or log in. Ctrl+Q returns to
// the caller; a regular tmux detach works too.
func (m *Manager) Attach(ctx context.Context) error {
	if !m.Exists(ctx) {
		return fmt.Errorf("session %s does not exist", m.Name)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, "tmux", "attach-session", "-t", m.Name)
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return fmt.Errorf("failed to start pty: %w", err)
	}
	defer ptmx.Close()

	stdin := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(stdin)
	if err != nil {
		return fmt.Errorf("failed to set raw mode: %w", err)
	}
	defer func() { _ = term.Restore(stdin, oldState) }()

	var wg sync.WaitGroup
	defer wg.Wait()

	resize := make(chan os.Signal, 1)
	signal.Notify(resize, syscall.SIGWINCH)
	defer signal.Stop(resize)
	resize <- syscall.SIGWINCH

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-resize:
				if ws, err := pty.GetsizeFull(os.Stdin); err == nil {
					_ = pty.Setsize(ptmx, ws)
				}
			}
		}
	}()

	// Output copy ends when the PTY closes; it is not waited for.
	go func() { _, _ = io.Copy(os.Stdout, ptmx) }()

	detached := make(chan struct{})
	go forwardInput(ptmx, detached, cancel)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-detached:
		return nil
	case <-ctx.Done():
		return nil
	case err := <-done:
		cancel()
		return normalDetach(err)
	}
}

// forwardInput copies stdin to the PTY until Ctrl+Q. Terminal capability
// replies that arrive in the first 50ms are dropped.
func forwardInput(w io.Writer, detached chan<- struct{}, cancel context.CancelFunc) {
	start := time.Now()
	buf := make([]byte, 32)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return
		}
		if time.Since(start) < 50*time.Millisecond {
			continue
		}
		if n == 1 && buf[0] == DetachKey {
			close(detached)
			cancel()
			return
		}
		if _, err := w.Write(buf[:n]); err != nil {
			return
		}
	}
}

// AttachReadOnly attaches without forwarding input to the agent.
func (m *Manager) AttachReadOnly(ctx context.Context) error {
	if !m.Exists(ctx) {
		return fmt.Errorf("session %s does not exist", m.Name)
	}
	cmd := exec.CommandContext(ctx, "tmux", "attach-session", "-r", "-t", m.Name)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		if err := normalDetach(err); err != nil {
			return fmt.Errorf("attach command failed: %w", err)
		}
	}
	return nil
}

// normalDetach treats tmux exiting with 0 or 1 as a user detach.
func normalDetach(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && (exitErr.ExitCode() == 0 || exitErr.ExitCode() == 1) {
		return nil
	}
	return err
}

package tmux

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Pane drives one tmux pane: it captures text, reports the foreground
// process, and types into it.
type Pane struct {
	// ID is the tmux pane id, e.g. "%3".
	ID      string
	Session string

	runner      Runner
	sleep       func(time.Duration)
	submitDelay time.Duration
	timeout     time.Duration
}

// Capture returns the visible pane text, or the visible text plus scrollback
// history lines when scrollback > 0. Trailing blank rows are dropped.
func (p *Pane) Capture(scrollback int) (string, error) {
	args := []string{"capture-pane", "-p", "-t", p.ID}
	if scrollback > 0 {
		args = append(args, "-S", "-"+strconv.Itoa(scrollback))
	}
	out, err := p.run(args...)
	if err != nil {
		return "", fmt.Errorf("failed to capture pane: %w", err)
	}
	return trimTrailingBlankLines(out), nil
}

// CurrentCommand returns the lower-cased name of the pane's foreground process.
func (p *Pane) CurrentCommand() (string, error) {
	out, err := p.run("display-message", "-p", "-t", p.ID, "#{pane_current_command}")
	if err != nil {
		return "", fmt.Errorf("failed to read pane command: %w", err)
	}
	first, _, _ := strings.Cut(out, "\n")
	return strings.ToLower(strings.TrimSpace(first)), nil
}

// SendLiteralAndActivate types text verbatim, waits the submit delay and then
// presses Enter as a separate command. tmux 3.2+ wraps send-keys -l in a
// bracketed paste, and an Enter that arrives in the same read as the paste
// end is swallowed by Ink-based UIs.
func (p *Pane) SendLiteralAndActivate(text string) error {
	if err := p.sendChunked(text); err != nil {
		return err
	}
	p.sleep(p.submitDelay)
	if _, err := p.run("send-keys", "-t", p.ID, "Enter"); err != nil {
		return fmt.Errorf("failed to send Enter: %w", err)
	}
	return nil
}

const (
	chunkSize  = 4096
	chunkDelay = 50 * time.Millisecond
)

// sendChunked sends large text in pieces to stay under tmux and OS argument limits.
func (p *Pane) sendChunked(text string) error {
	chunks := splitIntoChunks(text, chunkSize)
	for i, chunk := range chunks {
		if _, err := p.run("send-keys", "-l", "-t", p.ID, "--", chunk); err != nil {
			if len(chunks) == 1 {
				return fmt.Errorf("failed to send keys: %w", err)
			}
			return fmt.Errorf("failed to send chunk %d/%d: %w", i+1, len(chunks), err)
		}
		if i < len(chunks)-1 {
			p.sleep(chunkDelay)
		}
	}
	return nil
}

func (p *Pane) run(args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	return p.runner.Run(ctx, args...)
}

// splitIntoChunks splits content into chunks of at most maxSize bytes,
// preferring newline boundaries and never cutting a UTF-8 sequence.
func splitIntoChunks(content string, maxSize int) []string {
	if content == "" {
		return nil
	}
	var chunks []string
	remaining := content
	for len(remaining) > maxSize {
		cut := strings.LastIndex(remaining[:maxSize], "\n") + 1
		if cut <= 0 {
			cut = maxSize
			for cut > 0 && !isRuneStart(remaining[cut]) {
				cut--
			}
			if cut == 0 {
				cut = maxSize
			}
		}
		chunks = append(chunks, remaining[:cut])
		remaining = remaining[cut:]
	}
	return append(chunks, remaining)
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

// trimTrailingBlankLines mirrors what tmux clients see: the rows below the
// last output line are empty and carry no information.
func trimTrailingBlankLines(out string) string {
	lines := strings.Split(out, "\n")
	end := len(lines)
	for end > 0 && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return strings.Join(lines[:end], "\n")
}

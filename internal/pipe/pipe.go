// Package pipe drives a one-shot exchange with an interactive CLI agent
// running in a terminal pane: it submits a prompt, infers from the repainted
// pane when the agent is done, and extracts the new response text.
package pipe

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/asheshgoplani/claude-pipe/internal/logging"
)

var pipeLog = logging.ForComponent(logging.CompPipe)

var (
	// ErrEmptyMessage is returned before touching the pane when there is nothing to send.
	ErrEmptyMessage = errors.New("empty message")
	// ErrAgentStartup means a freshly launched agent never showed its prompt.
	ErrAgentStartup = errors.New("prompt not detected after starting agent")
	// ErrResponseTimeout means the watcher hit MaxWait.
	ErrResponseTimeout = errors.New("timed out waiting for response")
	// ErrAnchorNotFound is returned in strict mode when the echoed message is missing.
	ErrAnchorNotFound = errors.New("echoed message not found in pane transcript")
)

// Pane is the slice of the pane driver the engine needs.
type Pane interface {
	// Capture returns the visible lines, plus scrollback lines of history when > 0.
	Capture(scrollback int) (string, error)
	// CurrentCommand returns the lower-cased foreground process name.
	CurrentCommand() (string, error)
	// SendLiteralAndActivate types text verbatim and then presses Enter separately.
	SendLiteralAndActivate(text string) error
}

// Result describes one finished exchange.
type Result struct {
	Message   string
	Response  string
	Reason    Reason
	Anchored  bool
	Polls     int
	StartedAt time.Time
	Duration  time.Duration
	// Transcript is the final capture the response was extracted from.
	Transcript string
}

// Engine runs exchanges against one pane. Calls must not overlap.
type Engine struct {
	pane      Pane
	cfg       Config
	clock     Clock
	rules     Rules
	extractor *Extractor
	strict    bool
	log       *slog.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock replaces the real clock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithRules replaces the glyph-driven rules.
func WithRules(r Rules) Option {
	return func(e *Engine) { e.rules = r }
}

// WithStrictAnchor makes a missing echo an error instead of returning the
// whole transcript.
func WithStrictAnchor(strict bool) Option {
	return func(e *Engine) { e.strict = strict }
}

// WithLogger replaces the component logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New validates cfg and builds an engine for pane.
func New(pane Pane, cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	e := &Engine{pane: pane, cfg: cfg, clock: RealClock(), log: pipeLog}
	for _, opt := range opts {
		opt(e)
	}
	if e.rules == nil {
		e.rules = NewGlyphRules(cfg)
	}
	e.extractor = NewExtractor(cfg, e.rules)
	return e, nil
}

// Run performs the whole exchange: make sure the agent is up and idle, clear
// it, send message with the marker instruction, wait, and extract. On failure
// the returned Result is still filled in as far as the run got.
func (e *Engine) Run(message string) (*Result, error) {
	message = strings.TrimSpace(message)
	res := &Result{Message: message, StartedAt: e.clock.Now()}
	if message == "" {
		return res, ErrEmptyMessage
	}

	if err := e.EnsureAgent(); err != nil {
		return res, err
	}
	if err := e.Clear(); err != nil {
		return res, err
	}

	baseline, err := e.pane.Capture(e.cfg.Scrollback)
	if err != nil {
		return res, fmt.Errorf("baseline capture: %w", err)
	}

	e.log.Info("sending prompt…", slog.Int("bytes", len(message)))
	if err := e.pane.SendLiteralAndActivate(e.cfg.OutgoingPrompt(message)); err != nil {
		return res, fmt.Errorf("send prompt: %w", err)
	}

	e.log.Info("waiting for response…")
	completion, err := NewWatcher(e.pane, e.cfg, e.clock, e.log).Wait(baseline)
	res.Reason = completion.Reason
	res.Polls = completion.Polls
	res.Transcript = completion.Capture
	res.Duration = e.clock.Now().Sub(res.StartedAt)
	if err != nil {
		return res, err
	}
	e.log.Info("response complete",
		slog.String("reason", string(completion.Reason)),
		slog.Int("polls", completion.Polls),
		slog.Duration("elapsed", completion.Elapsed))

	ext := e.extractor.Extract(completion.Capture, message)
	res.Anchored = ext.Anchored
	if !ext.Anchored {
		e.log.Warn("echoed message not found, returning whole transcript")
		if e.strict {
			return res, ErrAnchorNotFound
		}
	}
	res.Response = ext.Text
	return res, nil
}

// AgentRunning reports whether the pane's foreground process is one of the
// configured agent processes.
func (e *Engine) AgentRunning() (bool, error) {
	current, err := e.pane.CurrentCommand()
	if err != nil {
		return false, fmt.Errorf("pane command: %w", err)
	}
	current = strings.ToLower(current)
	for _, name := range e.cfg.AgentProcesses {
		if name != "" && strings.Contains(current, strings.ToLower(name)) {
			return true, nil
		}
	}
	return false, nil
}

// EnsureAgent launches the agent when the pane is not already running it and
// waits for its prompt.
func (e *Engine) EnsureAgent() error {
	running, err := e.AgentRunning()
	if err != nil {
		return err
	}
	if running {
		return nil
	}

	e.log.Info("starting agent…", slog.String("command", e.cfg.AgentCommand))
	if err := e.pane.SendLiteralAndActivate(e.cfg.AgentCommand); err != nil {
		return fmt.Errorf("start agent: %w", err)
	}
	e.clock.Sleep(e.cfg.StartupWait)

	ready, err := e.WaitForPrompt(e.cfg.StartupTimeout)
	if err != nil {
		return err
	}
	if !ready {
		return ErrAgentStartup
	}
	return nil
}

// Clear sends the clear command and gives the agent a moment to come back.
// Not seeing the prompt afterwards is tolerated.
func (e *Engine) Clear() error {
	if e.cfg.ClearCommand == "" {
		return nil
	}
	e.log.Info(e.cfg.ClearCommand)
	if err := e.pane.SendLiteralAndActivate(e.cfg.ClearCommand); err != nil {
		return fmt.Errorf("send %s: %w", e.cfg.ClearCommand, err)
	}
	e.clock.Sleep(e.cfg.ClearWait)
	ready, err := e.WaitForPrompt(e.cfg.ClearTimeout)
	if err != nil {
		return err
	}
	if !ready {
		e.log.Debug("prompt not visible after clear, continuing")
	}
	return nil
}

// PromptVisible captures the visible pane and checks for the idle prompt.
func (e *Engine) PromptVisible() (bool, error) {
	snapshot, err := e.pane.Capture(0)
	if err != nil {
		return false, fmt.Errorf("capture pane: %w", err)
	}
	return PromptVisible(snapshot, e.cfg.PromptGlyph, e.cfg.PromptLines), nil
}

// WaitForPrompt polls until the prompt is visible or timeout passes.
func (e *Engine) WaitForPrompt(timeout time.Duration) (bool, error) {
	deadline := e.clock.Now().Add(timeout)
	for e.clock.Now().Before(deadline) {
		visible, err := e.PromptVisible()
		if err != nil {
			return false, err
		}
		if visible {
			return true, nil
		}
		e.clock.Sleep(e.cfg.PollInterval)
	}
	return false, nil
}

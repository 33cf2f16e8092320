package pipe

import (
	"fmt"
	"log/slog"
	"time"
)

// State is a phase of the completion watcher.
type State int

const (
	StateSettling State = iota
	StatePolling
	StateDone
	StateTimeout
)

func (s State) String() string {
	switch s {
	case StateSettling:
		return "settling"
	case StatePolling:
		return "polling"
	case StateDone:
		return "done"
	case StateTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Reason records why the watcher stopped.
type Reason string

const (
	// ReasonMarker: a new standalone marker line appeared.
	ReasonMarker Reason = "marker"
	// ReasonIdlePrompt: the pane stopped changing and the prompt is back.
	ReasonIdlePrompt Reason = "idle-prompt"
	// ReasonIdleStuck: the pane stopped changing for StuckFactor idle timeouts.
	ReasonIdleStuck Reason = "idle-stuck"
	// ReasonTimeout: MaxWait elapsed.
	ReasonTimeout Reason = "timeout"
)

// Completion is what the watcher hands back.
type Completion struct {
	// Capture is the final deep capture. On timeout it is the last capture
	// seen, kept for diagnostics only.
	Capture string
	Reason  Reason
	Polls   int
	Elapsed time.Duration
}

// Watcher decides when a submitted prompt has been answered. One Watcher
// serves one prompt; it is not safe for reuse.
type Watcher struct {
	pane  Pane
	cfg   Config
	clock Clock
	log   *slog.Logger

	state           State
	baselineMarkers int
	begun           time.Time
	pollStart       time.Time
	lastCapture     string
	lastChange      time.Time
	result          Completion

	// OnTransition, when set, is called on every state change.
	OnTransition func(from, to State)
}

// NewWatcher creates a watcher for one prompt.
func NewWatcher(p Pane, cfg Config, clock Clock, log *slog.Logger) *Watcher {
	if clock == nil {
		clock = RealClock()
	}
	if log == nil {
		log = pipeLog
	}
	return &Watcher{pane: p, cfg: cfg, clock: clock, log: log}
}

// State returns the current phase.
func (w *Watcher) State() State { return w.state }

// Wait blocks until the response is complete or MaxWait passes. baseline is
// the deep capture taken just before the prompt was sent; markers already in
// it are ignored. On timeout the returned Completion still carries the last
// capture, but the error is ErrResponseTimeout and the caller must fail.
func (w *Watcher) Wait(baseline string) (Completion, error) {
	w.baselineMarkers = CountMarkers(baseline, w.cfg.Marker)
	w.begun = w.clock.Now()
	w.state = StateSettling

	for {
		switch w.state {
		case StateSettling:
			w.clock.Sleep(w.cfg.Settle)
			w.pollStart = w.clock.Now()
			w.lastChange = w.pollStart
			w.transition(StatePolling)

		case StatePolling:
			if err := w.poll(); err != nil {
				w.result.Capture = w.lastCapture
				return w.result, err
			}

		case StateDone:
			return w.result, nil

		case StateTimeout:
			return w.result, fmt.Errorf("%w (%s)", ErrResponseTimeout, w.cfg.MaxWait)
		}
	}
}

// poll runs one tick of the polling state.
func (w *Watcher) poll() error {
	if w.clock.Now().Sub(w.pollStart) >= w.cfg.MaxWait {
		w.finish(w.lastCapture, ReasonTimeout, StateTimeout)
		return nil
	}

	capture, err := w.pane.Capture(w.cfg.Scrollback)
	if err != nil {
		return fmt.Errorf("capture pane: %w", err)
	}
	w.result.Polls++

	if CountMarkers(capture, w.cfg.Marker) > w.baselineMarkers {
		w.clock.Sleep(w.cfg.MarkerSettle)
		final, err := w.pane.Capture(w.cfg.Scrollback)
		if err != nil {
			return fmt.Errorf("final capture: %w", err)
		}
		w.finish(final, ReasonMarker, StateDone)
		return nil
	}

	now := w.clock.Now()
	if capture != w.lastCapture {
		w.lastCapture = capture
		w.lastChange = now
	}

	idle := now.Sub(w.lastChange)
	if idle >= w.cfg.IdleTimeout {
		visible, err := w.promptVisible()
		if err != nil {
			return err
		}
		switch {
		case visible:
			w.finish(capture, ReasonIdlePrompt, StateDone)
			return nil
		case idle >= w.cfg.StuckAfter():
			w.finish(capture, ReasonIdleStuck, StateDone)
			return nil
		}
	}

	w.clock.Sleep(w.cfg.PollInterval)
	return nil
}

func (w *Watcher) promptVisible() (bool, error) {
	snapshot, err := w.pane.Capture(0)
	if err != nil {
		return false, fmt.Errorf("capture pane: %w", err)
	}
	return PromptVisible(snapshot, w.cfg.PromptGlyph, w.cfg.PromptLines), nil
}

func (w *Watcher) finish(capture string, reason Reason, to State) {
	w.result.Capture = capture
	w.result.Reason = reason
	w.result.Elapsed = w.clock.Now().Sub(w.begun)
	w.transition(to)
}

func (w *Watcher) transition(to State) {
	from := w.state
	w.state = to
	w.log.Debug("watcher_state",
		slog.String("from", from.String()),
		slog.String("to", to.String()),
		slog.Int("polls", w.result.Polls))
	if w.OnTransition != nil {
		w.OnTransition(from, to)
	}
}

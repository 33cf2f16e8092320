package tmux

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultSessionName is the tmux session claude-pipe works in.
const DefaultSessionName = "claude-pipe"

// ErrNoPane is returned when a session exists but tmux lists no pane for it.
var ErrNoPane = errors.New("session has no pane")

// Manager finds or creates the named session and resolves its first pane.
type Manager struct {
	Name string

	runner      Runner
	sleep       func(time.Duration)
	submitDelay time.Duration
	timeout     time.Duration
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithRunner replaces the exec runner, mostly for tests.
func WithRunner(r Runner) ManagerOption {
	return func(m *Manager) { m.runner = r }
}

// WithSleeper replaces time.Sleep for the pauses between keystrokes.
func WithSleeper(sleep func(time.Duration)) ManagerOption {
	return func(m *Manager) { m.sleep = sleep }
}

// WithSubmitDelay sets the pause between typing text and pressing Enter.
func WithSubmitDelay(d time.Duration) ManagerOption {
	return func(m *Manager) { m.submitDelay = d }
}

// WithCommandTimeout bounds every single tmux invocation.
func WithCommandTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) { m.timeout = d }
}

// NewManager returns a manager for the session called name.
func NewManager(name string, opts ...ManagerOption) *Manager {
	if name == "" {
		name = DefaultSessionName
	}
	m := &Manager{
		Name:        name,
		sleep:       time.Sleep,
		submitDelay: 600 * time.Millisecond,
		timeout:     5 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.runner == nil {
		m.runner = NewExecRunner()
	}
	return m
}

// Exists reports whether the session is listed. Any listing failure, such as
// no tmux server running yet, counts as absent.
func (m *Manager) Exists(ctx context.Context) bool {
	out, err := m.runner.Run(ctx, "list-sessions", "-F", "#{session_name}")
	if err != nil {
		tmuxLog.Debug("list_sessions_failed", slog.String("error", err.Error()))
		return false
	}
	for _, name := range strings.Split(out, "\n") {
		if strings.TrimSpace(name) == m.Name {
			return true
		}
	}
	return false
}

// Create starts the session detached.
func (m *Manager) Create(ctx context.Context) error {
	if _, err := m.runner.Run(ctx, "new-session", "-d", "-s", m.Name); err != nil {
		return fmt.Errorf("failed to create tmux session: %w", err)
	}
	tmuxLog.Info("session created", slog.String("session", m.Name))
	return nil
}

// EnsureSession creates the session when it does not exist and returns its
// first window's first pane.
func (m *Manager) EnsureSession(ctx context.Context) (*Pane, error) {
	if !m.Exists(ctx) {
		if err := m.Create(ctx); err != nil {
			return nil, err
		}
	}
	return m.FirstPane(ctx)
}

// FirstPane resolves the pane with the lowest window and pane index.
func (m *Manager) FirstPane(ctx context.Context) (*Pane, error) {
	out, err := m.runner.Run(ctx, "list-panes", "-s", "-t", m.Name,
		"-F", "#{window_index}\t#{pane_index}\t#{pane_id}")
	if err != nil {
		return nil, fmt.Errorf("failed to list panes: %w", err)
	}

	type entry struct {
		window, pane int
		id           string
	}
	var entries []entry
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		fields := strings.Split(line, "\t")
		if len(fields) != 3 || fields[2] == "" {
			continue
		}
		w, werr := strconv.Atoi(fields[0])
		p, perr := strconv.Atoi(fields[1])
		if werr != nil || perr != nil {
			continue
		}
		entries = append(entries, entry{w, p, fields[2]})
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: %w", m.Name, ErrNoPane)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].window != entries[j].window {
			return entries[i].window < entries[j].window
		}
		return entries[i].pane < entries[j].pane
	})
	return m.pane(entries[0].id), nil
}

func (m *Manager) pane(id string) *Pane {
	return &Pane{
		ID:          id,
		Session:     m.Name,
		runner:      m.runner,
		sleep:       m.sleep,
		submitDelay: m.submitDelay,
		timeout:     m.timeout,
	}
}

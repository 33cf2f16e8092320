// Package lock keeps two claude-pipe processes from driving the same tmux
// session at once.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/gofrs/flock"
)

// ErrSessionBusy is returned when another process holds the session lock.
var ErrSessionBusy = errors.New("another prompt is in flight for this session")

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SessionLock is an advisory file lock named after a tmux session.
type SessionLock struct {
	Session string
	fl      *flock.Flock
}

// ForSession returns the lock for session, stored under dir/locks.
func ForSession(dir, session string) *SessionLock {
	name := unsafeName.ReplaceAllString(session, "_")
	if name == "" {
		name = "_"
	}
	return &SessionLock{
		Session: session,
		fl:      flock.New(filepath.Join(dir, "locks", name+".lock")),
	}
}

// Path returns the lock file path.
func (l *SessionLock) Path() string { return l.fl.Path() }

// TryLock takes the lock without waiting.
func (l *SessionLock) TryLock() error {
	if err := os.MkdirAll(filepath.Dir(l.fl.Path()), 0o700); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}
	ok, err := l.fl.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", l.fl.Path(), err)
	}
	if !ok {
		return fmt.Errorf("%w (%s)", ErrSessionBusy, l.Session)
	}
	return nil
}

// Unlock releases the lock. The file is left in place.
func (l *SessionLock) Unlock() error {
	return l.fl.Unlock()
}
